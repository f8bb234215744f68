package services

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"go-eoa-upgrade/internal/clients"
	"go-eoa-upgrade/internal/models"
)

// AuthorizationSigner signs EIP-7702 delegation authorizations. It never writes to the chain.
type AuthorizationSigner struct {
	client          clients.ChainClient
	expectedChainID uint64 // 0 = 不校验
	logger          *logrus.Logger
}

// NewAuthorizationSigner creates a signer. A non-zero expectedChainID must match the RPC endpoint.
func NewAuthorizationSigner(client clients.ChainClient, expectedChainID uint64, logger *logrus.Logger) *AuthorizationSigner {
	return &AuthorizationSigner{client: client, expectedChainID: expectedChainID, logger: logger}
}

// Sign produces an authorization delegating account to implementation.
func (s *AuthorizationSigner) Sign(ctx context.Context, account *models.Account, implementation common.Address, designator models.Designator) (*models.DelegationAuthorization, error) {
	if !designator.Valid() {
		return nil, NewStepError(models.StepAuthorize, ConfigurationError, fmt.Errorf("unknown designator %q", designator))
	}
	if account == nil || account.PrivateKey == nil {
		return nil, NewStepError(models.StepAuthorize, SigningError, fmt.Errorf("%w: account has no key material", ErrInvalidKey))
	}

	chainID, err := s.client.ChainID(ctx)
	if err != nil {
		return nil, NewStepError(models.StepAuthorize, SigningError, fmt.Errorf("failed to read chain id: %w", err))
	}
	if s.expectedChainID != 0 && chainID.Uint64() != s.expectedChainID {
		return nil, NewStepError(models.StepAuthorize, SigningError,
			fmt.Errorf("%w: configured %d, endpoint reports %s", ErrChainIDMismatch, s.expectedChainID, chainID))
	}
	authChainID, overflow := uint256.FromBig(chainID)
	if overflow {
		return nil, NewStepError(models.StepAuthorize, SigningError, fmt.Errorf("chain id %s overflows uint256", chainID))
	}

	accountNonce, err := s.client.PendingNonceAt(ctx, account.Address)
	if err != nil {
		return nil, NewStepError(models.StepAuthorize, NetworkError, fmt.Errorf("failed to get account nonce: %w", err))
	}

	signed, err := types.SignSetCode(account.PrivateKey, types.SetCodeAuthorization{
		ChainID: *authChainID,
		Address: implementation,
		Nonce:   designator.AuthorizationNonce(accountNonce),
	})
	if err != nil {
		return nil, NewStepError(models.StepAuthorize, SigningError, fmt.Errorf("failed to sign authorization: %w", err))
	}

	authority, err := signed.Authority()
	if err != nil {
		return nil, NewStepError(models.StepAuthorize, SigningError, fmt.Errorf("failed to recover authority: %w", err))
	}
	if authority != account.Address {
		return nil, NewStepError(models.StepAuthorize, SigningError,
			fmt.Errorf("authorization recovers to %s, expected %s", authority.Hex(), account.Address.Hex()))
	}

	auth := models.NewDelegationAuthorization(signed, authority, accountNonce, designator)
	s.logger.WithFields(logrus.Fields{
		"authority":      authority.Hex(),
		"implementation": implementation.Hex(),
		"chain_id":       chainID.String(),
		"auth_nonce":     auth.Nonce,
		"account_nonce":  accountNonce,
		"designator":     designator,
	}).Info("✍️  Authorization signed")
	return auth, nil
}
