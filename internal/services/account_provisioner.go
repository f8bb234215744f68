package services

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"go-eoa-upgrade/internal/clients"
	"go-eoa-upgrade/internal/metrics"
	"go-eoa-upgrade/internal/models"
	"go-eoa-upgrade/internal/utils"
)

// AccountProvisioner creates signing identities and funds them from the deployer.
type AccountProvisioner struct {
	client clients.ChainClient
	waiter *ReceiptWaiter
	logger *logrus.Logger
}

// NewAccountProvisioner creates a provisioner.
func NewAccountProvisioner(client clients.ChainClient, waiter *ReceiptWaiter, logger *logrus.Logger) *AccountProvisioner {
	return &AccountProvisioner{client: client, waiter: waiter, logger: logger}
}

// GenerateAccount creates a fresh ephemeral account.
func (p *AccountProvisioner) GenerateAccount() (*models.Account, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, NewStepError(models.StepProvision, SigningError, fmt.Errorf("failed to generate key: %w", err))
	}
	return &models.Account{
		Address:    crypto.PubkeyToAddress(key.PublicKey),
		PrivateKey: key,
		Ephemeral:  true,
	}, nil
}

// LoadAccount parses hex key material with or without 0x prefix.
func LoadAccount(keyMaterial string) (*models.Account, error) {
	normalized, err := utils.NormalizePrivateKeyHex(keyMaterial)
	if err != nil {
		return nil, NewStepError(models.StepConfigure, ConfigurationError, fmt.Errorf("%w: %v", ErrInvalidKey, err))
	}
	key, err := crypto.HexToECDSA(normalized)
	if err != nil {
		return nil, NewStepError(models.StepConfigure, ConfigurationError, fmt.Errorf("%w: %v", ErrInvalidKey, err))
	}
	return &models.Account{
		Address:    crypto.PubkeyToAddress(key.PublicKey),
		PrivateKey: key,
	}, nil
}

// Fund transfers amount from the deployer to target and waits for confirmation.
func (p *AccountProvisioner) Fund(ctx context.Context, deployer *models.Account, target common.Address, amount *big.Int) (*models.SubmissionResult, error) {
	entry := p.logger.WithFields(logrus.Fields{
		"from":   deployer.Label(),
		"to":     target.Hex(),
		"amount": utils.FormatEther(amount),
	})

	chainID, err := p.client.ChainID(ctx)
	if err != nil {
		return nil, NewStepError(models.StepProvision, NetworkError, fmt.Errorf("failed to get chain id: %w", err))
	}
	fees, err := suggestFees(ctx, p.client)
	if err != nil {
		return nil, NewStepError(models.StepProvision, NetworkError, err)
	}

	balance, err := p.client.BalanceAt(ctx, deployer.Address, nil)
	if err != nil {
		return nil, NewStepError(models.StepProvision, NetworkError, fmt.Errorf("failed to get deployer balance: %w", err))
	}
	required := fees.MaxCost(TransferGas, amount)
	if balance.Cmp(required) < 0 {
		entry.WithFields(logrus.Fields{
			"balance":  utils.FormatEther(balance),
			"required": utils.FormatEther(required),
		}).Error("❌ Deployer balance too low")
		return nil, NewStepError(models.StepProvision, FundingError,
			fmt.Errorf("%w: deployer %s has %s wei, needs %s wei", ErrInsufficientFunds, deployer.Address.Hex(), balance, required))
	}

	nonce, err := p.client.PendingNonceAt(ctx, deployer.Address)
	if err != nil {
		return nil, NewStepError(models.StepProvision, NetworkError, fmt.Errorf("failed to get deployer nonce: %w", err))
	}

	tx, err := types.SignNewTx(deployer.PrivateKey, types.LatestSignerForChainID(chainID), &types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: fees.TipCap,
		GasFeeCap: fees.FeeCap,
		Gas:       TransferGas,
		To:        &target,
		Value:     amount,
	})
	if err != nil {
		return nil, NewStepError(models.StepProvision, SigningError, fmt.Errorf("failed to sign funding transaction: %w", err))
	}

	entry.WithField("tx_hash", tx.Hash().Hex()).Info("💸 Sending funding transfer")
	if err := p.client.SendTransaction(ctx, tx); err != nil {
		return nil, NewStepError(models.StepProvision, FundingError, fmt.Errorf("funding transfer rejected: %w", err))
	}
	metrics.TransactionsSent.WithLabelValues("funding").Inc()

	receipt, err := p.waiter.Wait(ctx, tx.Hash())
	if err != nil {
		return nil, NewStepError(models.StepProvision, KindOf(err), err)
	}
	metrics.TransactionGasUsed.WithLabelValues("funding").Observe(float64(receipt.GasUsed))

	result := models.NewSubmissionResult(receipt, deployer.Address, target)
	if !result.Success {
		return result, NewStepError(models.StepProvision, FundingError,
			fmt.Errorf("%w: funding transfer %s", ErrTransactionReverted, tx.Hash().Hex()))
	}
	entry.WithField("block", result.BlockNumber).Info("✅ Account funded")
	return result, nil
}

// Provision generates a fresh account and funds it.
func (p *AccountProvisioner) Provision(ctx context.Context, deployer *models.Account, amount *big.Int) (*models.Account, *models.SubmissionResult, error) {
	account, err := p.GenerateAccount()
	if err != nil {
		return nil, nil, err
	}
	p.logger.WithField("account", account.Address.Hex()).Info("🔑 Generated test account")

	funding, err := p.Fund(ctx, deployer, account.Address, amount)
	if err != nil {
		return account, funding, err
	}
	return account, funding, nil
}
