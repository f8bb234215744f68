package services

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go-eoa-upgrade/internal/models"
)

const testKeyHex = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

func TestLoadAccount(t *testing.T) {
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	want := crypto.PubkeyToAddress(key.PublicKey)

	for _, material := range []string{testKeyHex, "0x" + testKeyHex, "  0x" + testKeyHex + "\n"} {
		account, err := LoadAccount(material)
		require.NoError(t, err)
		assert.Equal(t, want, account.Address)
		assert.False(t, account.Ephemeral)
	}

	for _, material := range []string{"", "0x1234", "zz" + testKeyHex[2:]} {
		_, err := LoadAccount(material)
		require.Error(t, err, material)
		assert.ErrorIs(t, err, ErrInvalidKey)
		assert.Equal(t, ConfigurationError, KindOf(err))
	}
}

func TestAccountProvisioner_GenerateAccount(t *testing.T) {
	p := NewAccountProvisioner(&mockChainClient{}, nil, quietLogger())
	first, err := p.GenerateAccount()
	require.NoError(t, err)
	second, err := p.GenerateAccount()
	require.NoError(t, err)

	assert.True(t, first.Ephemeral)
	assert.Equal(t, crypto.PubkeyToAddress(first.PrivateKey.PublicKey), first.Address)
	assert.NotEqual(t, first.Address, second.Address)
}

func newTestProvisioner(client *mockChainClient) *AccountProvisioner {
	waiter := NewReceiptWaiter(client, time.Millisecond, time.Second, 3, quietLogger())
	return NewAccountProvisioner(client, waiter, quietLogger())
}

func TestAccountProvisioner_FundInsufficientBalance(t *testing.T) {
	deployer := newTestAccount(t)
	target := newTestAccount(t).Address
	amount := big.NewInt(1e16)

	client := &mockChainClient{}
	client.On("ChainID", mock.Anything).Return(big.NewInt(1337), nil)
	client.expectFees()
	// exactly one wei short of amount + 21000 * 5 gwei
	short := new(big.Int).Add(amount, big.NewInt(21000*5_000_000_000-1))
	client.On("BalanceAt", mock.Anything, deployer.Address, mock.Anything).Return(short, nil)

	_, err := newTestProvisioner(client).Fund(context.Background(), deployer, target, amount)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, FundingError, KindOf(err))
	client.AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything)
}

func TestAccountProvisioner_FundSendsTransfer(t *testing.T) {
	deployer := newTestAccount(t)
	target := newTestAccount(t).Address
	amount := big.NewInt(1e16)

	client := &mockChainClient{}
	client.On("ChainID", mock.Anything).Return(big.NewInt(1337), nil)
	client.expectFees()
	client.On("BalanceAt", mock.Anything, deployer.Address, mock.Anything).Return(big.NewInt(1e18), nil)
	client.On("PendingNonceAt", mock.Anything, deployer.Address).Return(uint64(9), nil)

	var sent *types.Transaction
	client.On("SendTransaction", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(*types.Transaction) }).
		Return(nil)
	client.On("TransactionReceipt", mock.Anything, mock.Anything).Return(&types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		GasUsed:     TransferGas,
		BlockNumber: big.NewInt(2),
	}, nil)

	result, err := newTestProvisioner(client).Fund(context.Background(), deployer, target, amount)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, deployer.Address, result.From)
	assert.Equal(t, target, result.To)
	require.NotNil(t, sent)
	assert.Equal(t, uint8(types.DynamicFeeTxType), sent.Type())
	assert.Equal(t, uint64(9), sent.Nonce())
	assert.Equal(t, target, *sent.To())
	assert.Zero(t, amount.Cmp(sent.Value()))
}

func TestAccountProvisioner_FundFailures(t *testing.T) {
	tests := []struct {
		name     string
		sendErr  error
		status   uint64
		wantKind ErrorKind
	}{
		{"rejected by node", errors.New("replacement transaction underpriced"), 0, FundingError},
		{"reverted receipt", nil, types.ReceiptStatusFailed, FundingError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deployer := newTestAccount(t)
			client := &mockChainClient{}
			client.On("ChainID", mock.Anything).Return(big.NewInt(1337), nil)
			client.expectFees()
			client.On("BalanceAt", mock.Anything, deployer.Address, mock.Anything).Return(big.NewInt(1e18), nil)
			client.On("PendingNonceAt", mock.Anything, deployer.Address).Return(uint64(0), nil)
			client.On("SendTransaction", mock.Anything, mock.Anything).Return(tt.sendErr)
			client.On("TransactionReceipt", mock.Anything, mock.Anything).Return(&types.Receipt{
				Status:      tt.status,
				BlockNumber: big.NewInt(2),
			}, nil)

			_, err := newTestProvisioner(client).Fund(context.Background(), deployer, newTestAccount(t).Address, big.NewInt(1))
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, KindOf(err))
			step, _ := StepOf(err)
			assert.Equal(t, models.StepProvision, step)
		})
	}
}
