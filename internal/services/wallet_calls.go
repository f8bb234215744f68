package services

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"go-eoa-upgrade/internal/clients"
	"go-eoa-upgrade/internal/config"
)

// CallData ABI-encodes a call to one of the wallet functions.
func CallData(method string, args ...interface{}) ([]byte, error) {
	walletABI, err := config.SimpleWalletABI()
	if err != nil {
		return nil, err
	}
	data, err := walletABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	return data, nil
}

// callUint256 performs a read-only call of a no-argument uint256 getter on address.
func callUint256(ctx context.Context, client clients.ChainClient, address common.Address, method string) (*big.Int, error) {
	data, err := CallData(method)
	if err != nil {
		return nil, err
	}
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s() call failed: %w", method, err)
	}

	walletABI, err := config.SimpleWalletABI()
	if err != nil {
		return nil, err
	}
	values, err := walletABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s() result: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s() returned %d values", method, len(values))
	}
	value, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s() returned %T", method, values[0])
	}
	return value, nil
}
