package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Designator who is allowed to submit the transaction carrying the authorization
type Designator string

const (
	DesignatorSelf    Designator = "self"    // 账户自己提交升级交易
	DesignatorRelayer Designator = "relayer" // 由 relayer 代为提交
)

// Valid reports whether d is a known designator.
func (d Designator) Valid() bool {
	return d == DesignatorSelf || d == DesignatorRelayer
}

// AuthorizationNonce returns the nonce an authorization must carry when the
// account's transaction count is accountNonce. A self-executed upgrade bumps the
// account nonce before the authorization list is processed.
func (d Designator) AuthorizationNonce(accountNonce uint64) uint64 {
	if d == DesignatorSelf {
		return accountNonce + 1
	}
	return accountNonce
}

// DelegationAuthorization 已签名的委托授权（EIP-7702）
type DelegationAuthorization struct {
	ChainID        *big.Int       `json:"chain_id"`
	Implementation common.Address `json:"implementation"`
	Nonce          uint64         `json:"nonce"`         // 授权中的 nonce
	AccountNonce   uint64         `json:"account_nonce"` // 签名时账户的交易计数
	Designator     Designator     `json:"designator"`
	Signer         common.Address `json:"signer"`
	V              uint8          `json:"y_parity"`
	R              *big.Int       `json:"r"`
	S              *big.Int       `json:"s"`

	signed types.SetCodeAuthorization
}

// NewDelegationAuthorization wraps a signed go-ethereum authorization.
func NewDelegationAuthorization(signed types.SetCodeAuthorization, signer common.Address, accountNonce uint64, designator Designator) *DelegationAuthorization {
	return &DelegationAuthorization{
		ChainID:        signed.ChainID.ToBig(),
		Implementation: signed.Address,
		Nonce:          signed.Nonce,
		AccountNonce:   accountNonce,
		Designator:     designator,
		Signer:         signer,
		V:              signed.V,
		R:              signed.R.ToBig(),
		S:              signed.S.ToBig(),
		signed:         signed,
	}
}

// SetCode returns the wire form placed in a set-code transaction's authorization list.
func (a *DelegationAuthorization) SetCode() types.SetCodeAuthorization {
	return a.signed
}
