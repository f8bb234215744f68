package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"go-eoa-upgrade/internal/clients"
	"go-eoa-upgrade/internal/metrics"
	"go-eoa-upgrade/internal/models"
)

// DefaultUpgradeGasLimit gas limit of the set-code transaction
const DefaultUpgradeGasLimit = 120000

// UpgradeSubmitter broadcasts the set-code transaction carrying an authorization.
// It never retries.
type UpgradeSubmitter struct {
	client   clients.ChainClient
	waiter   *ReceiptWaiter
	gasLimit uint64
	logger   *logrus.Logger
}

// NewUpgradeSubmitter creates a submitter.
func NewUpgradeSubmitter(client clients.ChainClient, waiter *ReceiptWaiter, gasLimit uint64, logger *logrus.Logger) *UpgradeSubmitter {
	if gasLimit == 0 {
		gasLimit = DefaultUpgradeGasLimit
	}
	return &UpgradeSubmitter{client: client, waiter: waiter, gasLimit: gasLimit, logger: logger}
}

// CheckNonceFresh verifies the authority's nonce has not moved since signing.
func (s *UpgradeSubmitter) CheckNonceFresh(ctx context.Context, auth *models.DelegationAuthorization) error {
	current, err := s.client.PendingNonceAt(ctx, auth.Signer)
	if err != nil {
		return NewStepError(models.StepSubmit, NetworkError, fmt.Errorf("failed to get authority nonce: %w", err))
	}
	if current != auth.AccountNonce {
		return NewStepError(models.StepSubmit, SubmissionRevert,
			fmt.Errorf("%w: signed at account nonce %d (auth nonce %d), account nonce is now %d",
				ErrStaleNonce, auth.AccountNonce, auth.Nonce, current))
	}
	// 以签名内容中的 nonce 为准
	if signed, want := auth.SetCode().Nonce, auth.Designator.AuthorizationNonce(current); signed != want {
		return NewStepError(models.StepSubmit, SubmissionRevert,
			fmt.Errorf("%w: authorization signed with nonce %d, %s designator needs %d at account nonce %d",
				ErrStaleNonce, signed, auth.Designator, want, current))
	}
	return nil
}

// Submit sends one set-code transaction from sender to the authority's own
// address with call as calldata and waits for its receipt. A reverted receipt
// is returned as a result with Success=false, not as an error.
func (s *UpgradeSubmitter) Submit(ctx context.Context, sender *models.Account, auth *models.DelegationAuthorization, call []byte) (*models.SubmissionResult, error) {
	entry := s.logger.WithFields(logrus.Fields{
		"sender":         sender.Label(),
		"authority":      auth.Signer.Hex(),
		"implementation": auth.Implementation.Hex(),
		"designator":     auth.Designator,
	})

	if err := s.CheckNonceFresh(ctx, auth); err != nil {
		entry.WithError(err).Error("❌ Authorization nonce is stale, not broadcasting")
		return nil, err
	}

	chainID, err := s.client.ChainID(ctx)
	if err != nil {
		return nil, NewStepError(models.StepSubmit, NetworkError, fmt.Errorf("failed to get chain id: %w", err))
	}
	if auth.ChainID.Sign() != 0 && auth.ChainID.Cmp(chainID) != 0 {
		return nil, NewStepError(models.StepSubmit, SigningError,
			fmt.Errorf("%w: authorization for %s, endpoint reports %s", ErrChainIDMismatch, auth.ChainID, chainID))
	}

	nonce := auth.AccountNonce
	if sender.Address != auth.Signer {
		nonce, err = s.client.PendingNonceAt(ctx, sender.Address)
		if err != nil {
			return nil, NewStepError(models.StepSubmit, NetworkError, fmt.Errorf("failed to get sender nonce: %w", err))
		}
	}

	fees, err := suggestFees(ctx, s.client)
	if err != nil {
		return nil, NewStepError(models.StepSubmit, NetworkError, err)
	}

	tx, err := types.SignNewTx(sender.PrivateKey, types.LatestSignerForChainID(chainID), &types.SetCodeTx{
		ChainID:   uint256.MustFromBig(chainID),
		Nonce:     nonce,
		GasTipCap: uint256.MustFromBig(fees.TipCap),
		GasFeeCap: uint256.MustFromBig(fees.FeeCap),
		Gas:       s.gasLimit,
		To:        auth.Signer,
		Value:     new(uint256.Int),
		Data:      call,
		AuthList:  []types.SetCodeAuthorization{auth.SetCode()},
	})
	if err != nil {
		return nil, NewStepError(models.StepSubmit, SigningError, fmt.Errorf("failed to sign upgrade transaction: %w", err))
	}

	entry = entry.WithField("tx_hash", tx.Hash().Hex())
	entry.WithField("gas_limit", s.gasLimit).Info("🚀 Broadcasting upgrade transaction")
	if err := s.client.SendTransaction(ctx, tx); err != nil {
		entry.WithError(err).Error("❌ Upgrade transaction not accepted")
		return nil, NewStepError(models.StepSubmit, sendErrorKind(err), fmt.Errorf("failed to send upgrade transaction: %w", err))
	}
	metrics.TransactionsSent.WithLabelValues("upgrade").Inc()

	receipt, err := s.waiter.Wait(ctx, tx.Hash())
	if err != nil {
		return nil, NewStepError(models.StepSubmit, KindOf(err), err)
	}
	metrics.TransactionGasUsed.WithLabelValues("upgrade").Observe(float64(receipt.GasUsed))

	result := models.NewSubmissionResult(receipt, sender.Address, auth.Signer)
	if result.Success {
		entry.WithField("block", result.BlockNumber).Info("✅ Upgrade transaction succeeded")
	} else {
		entry.WithField("block", result.BlockNumber).Warn("⚠️  Upgrade transaction reverted")
	}
	return result, nil
}

// sendErrorKind a JSON-RPC error means the node answered and refused the
// transaction; anything else is a transport failure.
func sendErrorKind(err error) ErrorKind {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return SubmissionRevert
	}
	return NetworkError
}
