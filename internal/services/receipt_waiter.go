package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"go-eoa-upgrade/internal/clients"
	"go-eoa-upgrade/internal/metrics"
)

// ReceiptWaiter polls for transaction receipts until found or the
// confirmation timeout expires.
type ReceiptWaiter struct {
	client           clients.ChainClient
	pollInterval     time.Duration
	timeout          time.Duration
	maxReceiptErrors int
	logger           *logrus.Logger
}

// NewReceiptWaiter creates a waiter. Non-positive values fall back to 2s polling,
// a 3 minute timeout and 5 consecutive query errors.
func NewReceiptWaiter(client clients.ChainClient, pollInterval, timeout time.Duration, maxReceiptErrors int, logger *logrus.Logger) *ReceiptWaiter {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	if maxReceiptErrors <= 0 {
		maxReceiptErrors = 5
	}
	return &ReceiptWaiter{
		client:           client,
		pollInterval:     pollInterval,
		timeout:          timeout,
		maxReceiptErrors: maxReceiptErrors,
		logger:           logger,
	}
}

// Wait blocks until the receipt for txHash is available.
// Expiry returns ErrConfirmationTimeout; repeated query failures return the last error.
func (w *ReceiptWaiter) Wait(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	startTime := time.Now()
	defer func() {
		metrics.ReceiptWaitDuration.Observe(time.Since(startTime).Seconds())
	}()

	entry := w.logger.WithField("tx_hash", txHash.Hex())
	entry.WithField("timeout", w.timeout).Info("⏳ Waiting for transaction confirmation")

	waitCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	pollCount := 0
	consecutiveErrors := 0
	for {
		pollCount++
		receipt, err := w.client.TransactionReceipt(waitCtx, txHash)
		if err == nil && receipt != nil {
			entry.WithFields(logrus.Fields{
				"block":    receipt.BlockNumber,
				"status":   receipt.Status,
				"gas_used": receipt.GasUsed,
				"polls":    pollCount,
				"elapsed":  time.Since(startTime).Round(time.Millisecond),
			}).Info("✅ Transaction confirmed")
			return receipt, nil
		}

		switch {
		case err == nil, errors.Is(err, ethereum.NotFound), isIndexing(err):
			consecutiveErrors = 0
			entry.WithField("poll", pollCount).Debug("Transaction receipt not found yet")
		case waitCtx.Err() != nil:
			// 超时导致的查询失败在下面统一处理
		default:
			consecutiveErrors++
			entry.WithError(err).WithField("consecutive_errors", consecutiveErrors).Warn("⚠️  Error querying receipt")
			if consecutiveErrors >= w.maxReceiptErrors {
				return nil, fmt.Errorf("failed to query receipt for %s: %w", txHash.Hex(), err)
			}
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			entry.WithField("elapsed", time.Since(startTime).Round(time.Millisecond)).Error("❌ Transaction confirmation timed out")
			return nil, fmt.Errorf("%w: %s not confirmed within %v", ErrConfirmationTimeout, txHash.Hex(), w.timeout)
		case <-ticker.C:
		}
	}
}

// isIndexing reports the error nodes return while the tx index is catching up.
func isIndexing(err error) bool {
	return strings.Contains(err.Error(), "indexing is in progress")
}
