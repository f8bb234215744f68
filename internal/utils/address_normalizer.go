package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	hexKeyPattern  = regexp.MustCompile("^[0-9a-fA-F]{64}$")
	hexAddrPattern = regexp.MustCompile("^[0-9a-fA-F]{40}$")
)

// NormalizePrivateKeyHex strips whitespace and an optional 0x prefix and checks
// the key is 32 bytes of hex.
func NormalizePrivateKeyHex(key string) (string, error) {
	key = strings.TrimSpace(key)
	key = strings.TrimPrefix(strings.TrimPrefix(key, "0x"), "0X")
	if !hexKeyPattern.MatchString(key) {
		return "", fmt.Errorf("private key must be 32 bytes of hex")
	}
	return key, nil
}

// IsEvmAddress checkwhetherEVMaddress (20 bytes)
func IsEvmAddress(address string) bool {
	address = strings.TrimSpace(address)
	if strings.HasPrefix(strings.ToLower(address), "0x") {
		address = address[2:]
	}
	return hexAddrPattern.MatchString(address)
}

// ParseAddress parses a hex address and rejects malformed or zero addresses.
func ParseAddress(address string) (common.Address, error) {
	if !IsEvmAddress(address) {
		return common.Address{}, fmt.Errorf("invalid EVM address: %q", address)
	}
	addr := common.HexToAddress(strings.TrimSpace(address))
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("zero address is not allowed")
	}
	return addr, nil
}
