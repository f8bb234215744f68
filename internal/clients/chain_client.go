package clients

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// ChainClient is the chain capability the upgrade workflow depends on.
// *ethclient.Client and the go-ethereum simulated backend client both satisfy it.
type ChainClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

var _ ChainClient = (*ethclient.Client)(nil)

// DialChainClient attempts every endpoint in order and returns the first one that
// answers a chain id query. When expectedChainID is non-zero the endpoint must
// report that chain.
func DialChainClient(ctx context.Context, endpoints []string, expectedChainID uint64, timeout time.Duration, logger *logrus.Logger) (*ethclient.Client, *big.Int, error) {
	if len(endpoints) == 0 {
		return nil, nil, fmt.Errorf("no RPC endpoints configured")
	}

	var lastErr error
	for i, endpoint := range endpoints {
		entry := logger.WithFields(logrus.Fields{
			"endpoint": endpoint,
			"attempt":  fmt.Sprintf("%d/%d", i+1, len(endpoints)),
		})
		entry.Info("🔗 Trying RPC endpoint")

		dialCtx, cancel := context.WithTimeout(ctx, timeout)
		client, err := ethclient.DialContext(dialCtx, endpoint)
		if err != nil {
			cancel()
			entry.WithError(err).Warn("❌ Dial failed")
			lastErr = err
			continue
		}

		chainID, err := client.ChainID(dialCtx)
		cancel()
		if err != nil {
			entry.WithError(err).Warn("❌ ChainID check failed")
			client.Close()
			lastErr = err
			continue
		}

		if expectedChainID != 0 && chainID.Uint64() != expectedChainID {
			entry.WithFields(logrus.Fields{
				"expected": expectedChainID,
				"actual":   chainID.Uint64(),
			}).Warn("⚠️  Chain ID mismatch")
			client.Close()
			lastErr = fmt.Errorf("chain ID mismatch on %s: expected %d, got %d", endpoint, expectedChainID, chainID.Uint64())
			continue
		}

		entry.WithField("chain_id", chainID.String()).Info("✅ Connection verified")
		return client, chainID, nil
	}

	return nil, nil, fmt.Errorf("all RPC endpoints failed: %w", lastErr)
}
