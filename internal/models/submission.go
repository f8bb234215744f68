package models

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// SubmissionResult 链上交易确认结果
type SubmissionResult struct {
	TxHash      common.Hash    `json:"tx_hash"`
	From        common.Address `json:"from"`
	To          common.Address `json:"to"`
	Success     bool           `json:"success"`
	GasUsed     uint64         `json:"gas_used"`
	BlockNumber uint64         `json:"block_number"`
}

// NewSubmissionResult builds a result from a confirmed receipt.
func NewSubmissionResult(receipt *types.Receipt, from, to common.Address) *SubmissionResult {
	result := &SubmissionResult{
		TxHash:  receipt.TxHash,
		From:    from,
		To:      to,
		Success: receipt.Status == types.ReceiptStatusSuccessful,
		GasUsed: receipt.GasUsed,
	}
	if receipt.BlockNumber != nil {
		result.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return result
}

// StatusText returns "success" or "reverted".
func (r *SubmissionResult) StatusText() string {
	if r == nil {
		return "unknown"
	}
	if r.Success {
		return "success"
	}
	return "reverted"
}
