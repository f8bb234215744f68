package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"go-eoa-upgrade/internal/utils"
)

// ErrMissingConfig is returned when a required setting is absent.
var ErrMissingConfig = errors.New("missing required configuration")

// Config application configuration structure
type Config struct {
	Network  NetworkConfig  `yaml:"network"`
	Deployer DeployerConfig `yaml:"deployer"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Inspect  InspectConfig  `yaml:"inspect"`
	Log      LogConfig      `yaml:"log"`
	NATS     NATSConfig     `yaml:"nats"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// NetworkConfig target chain
type NetworkConfig struct {
	Name         string   `yaml:"name"`
	ChainID      uint64   `yaml:"chainId"` // 0 = 使用 RPC 返回的 chain id
	RPCEndpoints []string `yaml:"rpcEndpoints"`
	DialTimeout  int      `yaml:"dialTimeout"` // seconds
}

// DeployerConfig pre-funded identity that pays for test accounts
type DeployerConfig struct {
	PrivateKey string `yaml:"privateKey"` // hex, with or without 0x
}

// WorkflowConfig upgrade workflow parameters
type WorkflowConfig struct {
	ImplementationAddress string `yaml:"implementationAddress"` // 目标合约（SimpleWallet）地址
	FundingAmountEth      string `yaml:"fundingAmountEth"`
	Designator            string `yaml:"designator"`      // self | relayer
	UpgradeFunction       string `yaml:"upgradeFunction"` // 升级交易中调用的函数
	GasLimit              uint64 `yaml:"gasLimit"`
	ConfirmationTimeout   int    `yaml:"confirmationTimeout"` // seconds
	PollInterval          int    `yaml:"pollInterval"`        // milliseconds
	MaxReceiptErrors      int    `yaml:"maxReceiptErrors"`
	ExecuteCheck          *bool  `yaml:"executeCheck"`
}

// InspectConfig inputs for the inspection tools
type InspectConfig struct {
	WalletAddress string `yaml:"walletAddress"` // 已升级的 EOA
	UpgradeTxHash string `yaml:"upgradeTxHash"`
}

// LogConfig logging
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

// NATSConfig NATS run event publishing
type NATSConfig struct {
	URL           string `yaml:"url"`
	Timeout       int    `yaml:"timeout"`
	SubjectPrefix string `yaml:"subjectPrefix"`
}

// MetricsConfig Prometheus pushgateway
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgatewayUrl"`
	Job            string `yaml:"job"`
}

const (
	DefaultNetworkName         = "sepolia"
	DefaultChainID             = 11155111
	DefaultRPCEndpoint         = "https://rpc.sepolia.org"
	DefaultFundingAmountEth    = "0.01"
	DefaultUpgradeFunction     = "getBalance"
	DefaultGasLimit            = 120000
	DefaultConfirmationTimeout = 180
	DefaultPollInterval        = 2000
	DefaultMaxReceiptErrors    = 5
	DefaultDialTimeout         = 10
	DefaultSubjectPrefix       = "eoa.upgrade"
	DefaultMetricsJob          = "eoa_upgrade"
)

var AppConfig *Config

// LoadConfig Load configuration file
func LoadConfig(configPath string) error {
	cfg, err := Load(configPath)
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// Load reads the yaml file (optional), the .env file (optional) and environment
// overrides, then fills defaults. It does not validate.
func Load(configPath string) (*Config, error) {
	explicit := configPath != ""
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
			log.Printf("🔧 Using local configuration file: config.local.yaml")
		}
	}

	var cfg Config
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		log.Printf("✅ [%s] Loading configuration from config file: %s", time.Now().Format("2006-01-02 15:04:05"), configPath)
	case errors.Is(err, os.ErrNotExist) && !explicit:
		log.Printf("📋 [Config] %s not found, using environment only", configPath)
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// .env 不覆盖已存在的环境变量
	if err := godotenv.Load(); err == nil {
		log.Printf("🔧 [Config] Loaded .env file")
	}

	overrideFromEnv(&cfg)
	cfg.applyDefaults()
	return &cfg, nil
}

// overrideFromEnv Overrideconfiguration
func overrideFromEnv(config *Config) {
	if network := os.Getenv("NETWORK"); network != "" {
		config.Network.Name = network
	}
	if chainID := os.Getenv("CHAIN_ID"); chainID != "" {
		if id, err := strconv.ParseUint(chainID, 10, 64); err == nil {
			config.Network.ChainID = id
		}
	}

	// RPC: RPC_URL > <NETWORK>_RPC_URL > <NETWORK>_RPC_ENDPOINTS
	networkName := config.Network.Name
	if networkName == "" {
		networkName = DefaultNetworkName
	}
	prefix := strings.ToUpper(networkName)
	if rpcURL := os.Getenv("RPC_URL"); rpcURL != "" {
		config.Network.RPCEndpoints = []string{rpcURL}
	} else if rpcURL := os.Getenv(prefix + "_RPC_URL"); rpcURL != "" {
		config.Network.RPCEndpoints = []string{rpcURL}
	} else if endpoints := os.Getenv(prefix + "_RPC_ENDPOINTS"); endpoints != "" {
		config.Network.RPCEndpoints = splitList(endpoints)
	}

	if privateKey := os.Getenv("DEPLOYER_PRIVATE_KEY"); privateKey != "" {
		config.Deployer.PrivateKey = privateKey
		log.Printf("✅ [Config] Loaded deployer key from environment variable: DEPLOYER_PRIVATE_KEY")
	}

	if impl := os.Getenv("SIMPLE_WALLET_ADDRESS"); impl != "" {
		config.Workflow.ImplementationAddress = impl
	}
	if amount := os.Getenv("FUNDING_AMOUNT_ETH"); amount != "" {
		config.Workflow.FundingAmountEth = amount
	}
	if designator := os.Getenv("DESIGNATOR"); designator != "" {
		config.Workflow.Designator = designator
	}
	if gasLimit := os.Getenv("UPGRADE_GAS_LIMIT"); gasLimit != "" {
		if limit, err := strconv.ParseUint(gasLimit, 10, 64); err == nil {
			config.Workflow.GasLimit = limit
		}
	}
	if timeout := os.Getenv("CONFIRMATION_TIMEOUT"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil {
			config.Workflow.ConfirmationTimeout = t
		}
	}
	if executeCheck := os.Getenv("EXECUTE_CHECK"); executeCheck != "" {
		enabled := executeCheck == "true"
		config.Workflow.ExecuteCheck = &enabled
	}

	if wallet := os.Getenv("SMART_WALLET_ADDRESS"); wallet != "" {
		config.Inspect.WalletAddress = wallet
	}
	if txHash := os.Getenv("UPGRADE_TX_HASH"); txHash != "" {
		config.Inspect.UpgradeTxHash = txHash
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		config.Log.Format = format
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		config.NATS.URL = natsURL
	}
	if natsTimeout := os.Getenv("NATS_TIMEOUT"); natsTimeout != "" {
		if t, err := strconv.Atoi(natsTimeout); err == nil {
			config.NATS.Timeout = t
		}
	}

	if pushURL := os.Getenv("PUSHGATEWAY_URL"); pushURL != "" {
		config.Metrics.PushgatewayURL = pushURL
	}
}

func (c *Config) applyDefaults() {
	if c.Network.Name == "" {
		c.Network.Name = DefaultNetworkName
	}
	if c.Network.ChainID == 0 && c.Network.Name == DefaultNetworkName {
		c.Network.ChainID = DefaultChainID
	}
	if len(c.Network.RPCEndpoints) == 0 {
		if c.Network.Name == DefaultNetworkName {
			c.Network.RPCEndpoints = []string{DefaultRPCEndpoint}
		} else if info, ok := utils.GlobalChainRegistry.GetByName(c.Network.Name); ok {
			// 已知网络使用注册表中的公共端点
			c.Network.RPCEndpoints = append([]string(nil), info.RPCEndpoints...)
		}
	}
	if c.Network.DialTimeout <= 0 {
		c.Network.DialTimeout = DefaultDialTimeout
	}
	if c.Workflow.FundingAmountEth == "" {
		c.Workflow.FundingAmountEth = DefaultFundingAmountEth
	}
	if c.Workflow.Designator == "" {
		c.Workflow.Designator = "self"
	}
	if c.Workflow.UpgradeFunction == "" {
		c.Workflow.UpgradeFunction = DefaultUpgradeFunction
	}
	if c.Workflow.GasLimit == 0 {
		c.Workflow.GasLimit = DefaultGasLimit
	}
	if c.Workflow.ConfirmationTimeout <= 0 {
		c.Workflow.ConfirmationTimeout = DefaultConfirmationTimeout
	}
	if c.Workflow.PollInterval <= 0 {
		c.Workflow.PollInterval = DefaultPollInterval
	}
	if c.Workflow.MaxReceiptErrors <= 0 {
		c.Workflow.MaxReceiptErrors = DefaultMaxReceiptErrors
	}
	if c.Workflow.ExecuteCheck == nil {
		enabled := true
		c.Workflow.ExecuteCheck = &enabled
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.NATS.Timeout <= 0 {
		c.NATS.Timeout = 10
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = DefaultSubjectPrefix
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = DefaultMetricsJob
	}
}

// Validate checks the settings the upgrade workflow cannot run without.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Deployer.PrivateKey) == "" {
		missing = append(missing, "DEPLOYER_PRIVATE_KEY")
	}
	if len(c.Network.RPCEndpoints) == 0 {
		missing = append(missing, "RPC endpoint")
	}
	if strings.TrimSpace(c.Workflow.ImplementationAddress) == "" {
		missing = append(missing, "SIMPLE_WALLET_ADDRESS")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	if c.Workflow.Designator != "self" && c.Workflow.Designator != "relayer" {
		return fmt.Errorf("invalid designator %q: expected self or relayer", c.Workflow.Designator)
	}
	return nil
}

// ValidateEndpoint checks the settings the read-only tools need.
func (c *Config) ValidateEndpoint() error {
	if len(c.Network.RPCEndpoints) == 0 {
		return fmt.Errorf("%w: RPC endpoint", ErrMissingConfig)
	}
	return nil
}

// ConfirmationTimeoutDuration returns the receipt wait bound.
func (w WorkflowConfig) ConfirmationTimeoutDuration() time.Duration {
	return time.Duration(w.ConfirmationTimeout) * time.Second
}

// PollIntervalDuration returns the receipt polling interval.
func (w WorkflowConfig) PollIntervalDuration() time.Duration {
	return time.Duration(w.PollInterval) * time.Millisecond
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
