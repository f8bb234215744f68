package models

import (
	"bytes"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// AccountCodeSnapshot 某一时刻地址上的字节码
type AccountCodeSnapshot struct {
	Address     common.Address `json:"address"`
	Code        []byte         `json:"code"`
	BlockNumber uint64         `json:"block_number"`
	CapturedAt  time.Time      `json:"captured_at"`
}

// IsEmpty reports whether no code is deployed or delegated at the address.
func (s *AccountCodeSnapshot) IsEmpty() bool {
	return s == nil || len(s.Code) == 0
}

// SameCode reports whether both snapshots hold identical bytecode.
func (s *AccountCodeSnapshot) SameCode(other *AccountCodeSnapshot) bool {
	if s == nil || other == nil {
		return s.IsEmpty() && other.IsEmpty()
	}
	return bytes.Equal(s.Code, other.Code)
}

// DelegatedTo parses an EIP-7702 delegation designator (0xef0100 || address).
func (s *AccountCodeSnapshot) DelegatedTo() (common.Address, bool) {
	if s.IsEmpty() {
		return common.Address{}, false
	}
	return types.ParseDelegation(s.Code)
}
