package utils

import (
	"fmt"
	"strings"
)

// ChainInfo 链信息
type ChainInfo struct {
	ChainID      uint64   `json:"chain_id"`      // EVM Chain ID
	Name         string   `json:"name"`          // 链名称
	Symbol       string   `json:"symbol"`        // 原生代币符号
	Testnet      bool     `json:"testnet"`       // 是否测试网
	RPCEndpoints []string `json:"rpc_endpoints"` // 公共 RPC 端点
	ExplorerURL  string   `json:"explorer_url"`  // 区块链浏览器（无则为空）
}

// ChainRegistry 链注册表
type ChainRegistry struct {
	byID   map[uint64]*ChainInfo
	byName map[string]*ChainInfo
}

// GlobalChainRegistry 全局链注册表
var GlobalChainRegistry *ChainRegistry

func init() {
	GlobalChainRegistry = NewChainRegistry([]*ChainInfo{
		{
			ChainID:      1,
			Name:         "mainnet",
			Symbol:       "ETH",
			RPCEndpoints: []string{"https://eth.llamarpc.com", "https://rpc.ankr.com/eth"},
			ExplorerURL:  "https://etherscan.io",
		},
		{
			ChainID:      11155111,
			Name:         "sepolia",
			Symbol:       "ETH",
			Testnet:      true,
			RPCEndpoints: []string{"https://rpc.sepolia.org", "https://ethereum-sepolia-rpc.publicnode.com"},
			ExplorerURL:  "https://sepolia.etherscan.io",
		},
		{
			ChainID:      17000,
			Name:         "holesky",
			Symbol:       "ETH",
			Testnet:      true,
			RPCEndpoints: []string{"https://ethereum-holesky-rpc.publicnode.com"},
			ExplorerURL:  "https://holesky.etherscan.io",
		},
		{
			ChainID:      560048,
			Name:         "hoodi",
			Symbol:       "ETH",
			Testnet:      true,
			RPCEndpoints: []string{"https://ethereum-hoodi-rpc.publicnode.com"},
			ExplorerURL:  "https://hoodi.etherscan.io",
		},
		{
			ChainID:      84532,
			Name:         "base-sepolia",
			Symbol:       "ETH",
			Testnet:      true,
			RPCEndpoints: []string{"https://sepolia.base.org"},
			ExplorerURL:  "https://sepolia.basescan.org",
		},
		{
			ChainID:      11155420,
			Name:         "optimism-sepolia",
			Symbol:       "ETH",
			Testnet:      true,
			RPCEndpoints: []string{"https://sepolia.optimism.io"},
			ExplorerURL:  "https://sepolia-optimism.etherscan.io",
		},
		{
			ChainID:      97,
			Name:         "bsc-testnet",
			Symbol:       "tBNB",
			Testnet:      true,
			RPCEndpoints: []string{"https://data-seed-prebsc-1-s1.bnbchain.org:8545"},
			ExplorerURL:  "https://testnet.bscscan.com",
		},
		// 本地开发链（anvil / hardhat / geth --dev）
		{
			ChainID:      1337,
			Name:         "dev",
			Symbol:       "ETH",
			Testnet:      true,
			RPCEndpoints: []string{"http://127.0.0.1:8545"},
		},
		{
			ChainID:      31337,
			Name:         "anvil",
			Symbol:       "ETH",
			Testnet:      true,
			RPCEndpoints: []string{"http://127.0.0.1:8545"},
		},
	})
}

// NewChainRegistry builds a registry indexed by chain id and lower-cased name.
func NewChainRegistry(chains []*ChainInfo) *ChainRegistry {
	r := &ChainRegistry{
		byID:   make(map[uint64]*ChainInfo, len(chains)),
		byName: make(map[string]*ChainInfo, len(chains)),
	}
	for _, chain := range chains {
		r.byID[chain.ChainID] = chain
		r.byName[strings.ToLower(chain.Name)] = chain
	}
	return r
}

// GetByID 通过 Chain ID 查询
func (r *ChainRegistry) GetByID(chainID uint64) (*ChainInfo, bool) {
	info, ok := r.byID[chainID]
	return info, ok
}

// GetByName 通过链名称查询
func (r *ChainRegistry) GetByName(name string) (*ChainInfo, bool) {
	info, ok := r.byName[strings.ToLower(name)]
	return info, ok
}

// Symbol returns the native currency symbol, ETH when unknown.
func (r *ChainRegistry) Symbol(chainID uint64) string {
	if info, ok := r.GetByID(chainID); ok && info.Symbol != "" {
		return info.Symbol
	}
	return "ETH"
}

// TxURL 交易浏览器链接，未知链返回空字符串
func (r *ChainRegistry) TxURL(chainID uint64, txHash string) string {
	info, ok := r.GetByID(chainID)
	if !ok || info.ExplorerURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/tx/%s", info.ExplorerURL, txHash)
}

// AddressURL 地址浏览器链接，未知链返回空字符串
func (r *ChainRegistry) AddressURL(chainID uint64, address string) string {
	info, ok := r.GetByID(chainID)
	if !ok || info.ExplorerURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/address/%s", info.ExplorerURL, address)
}
