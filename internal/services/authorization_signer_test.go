package services

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go-eoa-upgrade/internal/models"
)

var testImplementation = common.HexToAddress("0x00000000000000000000000000000000000070a2")

func newTestAccount(t *testing.T) *models.Account {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &models.Account{Address: crypto.PubkeyToAddress(key.PublicKey), PrivateKey: key, Ephemeral: true}
}

func TestAuthorizationSigner_NonceRule(t *testing.T) {
	tests := []struct {
		name       string
		designator models.Designator
		want       uint64
	}{
		{"self", models.DesignatorSelf, 8},
		{"relayer", models.DesignatorRelayer, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := newTestAccount(t)
			client := &mockChainClient{}
			client.On("ChainID", mock.Anything).Return(big.NewInt(11155111), nil)
			client.On("PendingNonceAt", mock.Anything, account.Address).Return(uint64(7), nil)

			signer := NewAuthorizationSigner(client, 11155111, quietLogger())
			auth, err := signer.Sign(context.Background(), account, testImplementation, tt.designator)
			require.NoError(t, err)

			assert.Equal(t, tt.want, auth.Nonce)
			assert.Equal(t, uint64(7), auth.AccountNonce)
			assert.Equal(t, testImplementation, auth.Implementation)
			assert.Equal(t, int64(11155111), auth.ChainID.Int64())
			assert.Equal(t, account.Address, auth.Signer)

			setCode := auth.SetCode()
			authority, err := setCode.Authority()
			require.NoError(t, err)
			assert.Equal(t, account.Address, authority)
		})
	}
}

func TestAuthorizationSigner_ChainIDMismatch(t *testing.T) {
	account := newTestAccount(t)
	client := &mockChainClient{}
	client.On("ChainID", mock.Anything).Return(big.NewInt(1), nil)

	signer := NewAuthorizationSigner(client, 11155111, quietLogger())
	_, err := signer.Sign(context.Background(), account, testImplementation, models.DesignatorSelf)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChainIDMismatch)
	assert.Equal(t, SigningError, KindOf(err))
	assert.Contains(t, err.Error(), "11155111")
	client.AssertNotCalled(t, "PendingNonceAt", mock.Anything, mock.Anything)
}

func TestAuthorizationSigner_ChainIDUnavailable(t *testing.T) {
	account := newTestAccount(t)
	client := &mockChainClient{}
	client.On("ChainID", mock.Anything).Return(nil, errors.New("dial tcp: connection refused"))

	signer := NewAuthorizationSigner(client, 0, quietLogger())
	_, err := signer.Sign(context.Background(), account, testImplementation, models.DesignatorSelf)

	require.Error(t, err)
	assert.Equal(t, SigningError, KindOf(err))
	step, ok := StepOf(err)
	require.True(t, ok)
	assert.Equal(t, models.StepAuthorize, step)
}

func TestAuthorizationSigner_MissingKey(t *testing.T) {
	client := &mockChainClient{}
	signer := NewAuthorizationSigner(client, 0, quietLogger())

	_, err := signer.Sign(context.Background(), &models.Account{Address: testImplementation}, testImplementation, models.DesignatorSelf)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.Equal(t, SigningError, KindOf(err))
	client.AssertNotCalled(t, "ChainID", mock.Anything)
}

func TestAuthorizationSigner_UnknownDesignator(t *testing.T) {
	signer := NewAuthorizationSigner(&mockChainClient{}, 0, quietLogger())
	_, err := signer.Sign(context.Background(), newTestAccount(t), testImplementation, models.Designator("sponsor"))
	require.Error(t, err)
	assert.Equal(t, ConfigurationError, KindOf(err))
}
