// SimpleWallet contract interface used by the delegated account
package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// SimpleWallet function names
const (
	FunctionExecute    = "execute"
	FunctionGetBalance = "getBalance"
	FunctionNonce      = "nonce"
)

// SimpleWalletABIJSON execute / getBalance / nonce
const SimpleWalletABIJSON = `[
  {
    "type": "function",
    "name": "execute",
    "inputs": [
      { "name": "target", "type": "address" },
      { "name": "value", "type": "uint256" },
      { "name": "data", "type": "bytes" }
    ],
    "outputs": [],
    "stateMutability": "payable"
  },
  {
    "type": "function",
    "name": "getBalance",
    "inputs": [],
    "outputs": [{ "name": "", "type": "uint256" }],
    "stateMutability": "view"
  },
  {
    "type": "function",
    "name": "nonce",
    "inputs": [],
    "outputs": [{ "name": "", "type": "uint256" }],
    "stateMutability": "view"
  }
]`

var (
	simpleWalletABI    abi.ABI
	simpleWalletABIErr error
	once               sync.Once
)

// SimpleWalletABI returns the parsed contract interface.
func SimpleWalletABI() (abi.ABI, error) {
	once.Do(func() {
		simpleWalletABI, simpleWalletABIErr = abi.JSON(strings.NewReader(SimpleWalletABIJSON))
		if simpleWalletABIErr != nil {
			simpleWalletABIErr = fmt.Errorf("failed to parse SimpleWallet ABI: %w", simpleWalletABIErr)
		}
	})
	return simpleWalletABI, simpleWalletABIErr
}
