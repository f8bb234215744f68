package services

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestReceiptWaiter_FoundAfterPolling(t *testing.T) {
	txHash := common.HexToHash("0x01")
	client := &mockChainClient{}
	client.On("TransactionReceipt", mock.Anything, txHash).Return(nil, ethereum.NotFound).Twice()
	client.On("TransactionReceipt", mock.Anything, txHash).Return(&types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		BlockNumber: big.NewInt(7),
	}, nil).Once()

	waiter := NewReceiptWaiter(client, time.Millisecond, time.Second, 3, quietLogger())
	receipt, err := waiter.Wait(context.Background(), txHash)

	require.NoError(t, err)
	assert.Equal(t, uint64(7), receipt.BlockNumber.Uint64())
	client.AssertNumberOfCalls(t, "TransactionReceipt", 3)
}

func TestReceiptWaiter_Timeout(t *testing.T) {
	txHash := common.HexToHash("0x02")
	client := &mockChainClient{}
	client.On("TransactionReceipt", mock.Anything, txHash).Return(nil, ethereum.NotFound)

	waiter := NewReceiptWaiter(client, 5*time.Millisecond, 30*time.Millisecond, 3, quietLogger())
	_, err := waiter.Wait(context.Background(), txHash)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfirmationTimeout)
	assert.Equal(t, TimeoutError, KindOf(err))
}

func TestReceiptWaiter_ConsecutiveErrors(t *testing.T) {
	txHash := common.HexToHash("0x03")
	boom := errors.New("503 service unavailable")
	client := &mockChainClient{}
	client.On("TransactionReceipt", mock.Anything, txHash).Return(nil, boom)

	waiter := NewReceiptWaiter(client, time.Millisecond, time.Second, 3, quietLogger())
	_, err := waiter.Wait(context.Background(), txHash)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, NetworkError, KindOf(err))
	client.AssertNumberOfCalls(t, "TransactionReceipt", 3)
}

func TestReceiptWaiter_ParentCancelled(t *testing.T) {
	txHash := common.HexToHash("0x04")
	client := &mockChainClient{}
	client.On("TransactionReceipt", mock.Anything, txHash).Return(nil, ethereum.NotFound)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	waiter := NewReceiptWaiter(client, time.Millisecond, time.Second, 3, quietLogger())
	_, err := waiter.Wait(ctx, txHash)
	assert.ErrorIs(t, err, context.Canceled)
}
