package services

import (
	"context"
	"fmt"
	"math/big"

	"go-eoa-upgrade/internal/clients"
)

// TransferGas gas limit of a plain value transfer
const TransferGas = 21000

// FeeQuote EIP-1559 fee caps for one transaction
type FeeQuote struct {
	TipCap *big.Int
	FeeCap *big.Int
}

// MaxCost returns gas * feeCap + value.
func (q *FeeQuote) MaxCost(gas uint64, value *big.Int) *big.Int {
	cost := new(big.Int).Mul(new(big.Int).SetUint64(gas), q.FeeCap)
	if value != nil {
		cost.Add(cost, value)
	}
	return cost
}

// suggestFees tip = node suggestion, feeCap = 2 * latest base fee + tip
func suggestFees(ctx context.Context, client clients.ChainClient) (*FeeQuote, error) {
	tip, err := client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas tip cap: %w", err)
	}
	head, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest header: %w", err)
	}

	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}
	return &FeeQuote{TipCap: tip, FeeCap: feeCap}, nil
}
