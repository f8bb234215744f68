package models

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
)

// Account 签名身份（EOA）
// PrivateKey 只保存在内存中，不参与序列化
type Account struct {
	Address    common.Address    `json:"address"`
	PrivateKey *ecdsa.PrivateKey `json:"-"`
	Ephemeral  bool              `json:"ephemeral"` // 本次运行生成的临时账户
}

// Label returns a short printable name for logs.
func (a *Account) Label() string {
	if a == nil {
		return "<nil>"
	}
	if a.Ephemeral {
		return "ephemeral:" + a.Address.Hex()
	}
	return a.Address.Hex()
}
