package services

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"go-eoa-upgrade/internal/clients"
	"go-eoa-upgrade/internal/config"
	"go-eoa-upgrade/internal/metrics"
	"go-eoa-upgrade/internal/models"
)

// Classification result of comparing two code snapshots
type Classification struct {
	Outcome  models.Outcome `json:"outcome"`
	Delegate common.Address `json:"delegate"` // 委托目标，未解析出时为零地址
	Notes    []string       `json:"notes,omitempty"`
}

// Classify compares the code before and after a submission.
//   - failed submission: Reverted, code is not inspected
//   - empty post code: SilentFailure
//   - non-empty post code differing from pre: Upgraded
//
// Unchanged non-empty code is a SilentFailure as well. A delegate other than
// implementation leaves the result Upgraded and adds a note.
func Classify(pre, post *models.AccountCodeSnapshot, result *models.SubmissionResult, implementation common.Address) Classification {
	if result == nil || !result.Success {
		return Classification{Outcome: models.OutcomeReverted}
	}
	if post.IsEmpty() {
		return Classification{
			Outcome: models.OutcomeSilentFailure,
			Notes:   []string{"transaction succeeded but account code is still empty"},
		}
	}
	if post.SameCode(pre) {
		return Classification{
			Outcome: models.OutcomeSilentFailure,
			Notes:   []string{"account code unchanged by the upgrade transaction"},
		}
	}

	c := Classification{Outcome: models.OutcomeUpgraded}
	delegate, ok := post.DelegatedTo()
	if !ok {
		c.Notes = append(c.Notes, "account code is not a delegation designator")
		return c
	}
	c.Delegate = delegate
	if delegate != implementation {
		c.Notes = append(c.Notes, fmt.Sprintf("account delegates to %s, expected %s", delegate.Hex(), implementation.Hex()))
	}
	return c
}

// StateVerifier observes account code and wallet behaviour. Apart from the
// optional execute call it never writes to the chain.
type StateVerifier struct {
	client   clients.ChainClient
	waiter   *ReceiptWaiter
	gasLimit uint64
	logger   *logrus.Logger
}

// NewStateVerifier creates a verifier.
func NewStateVerifier(client clients.ChainClient, waiter *ReceiptWaiter, gasLimit uint64, logger *logrus.Logger) *StateVerifier {
	if gasLimit == 0 {
		gasLimit = DefaultUpgradeGasLimit
	}
	return &StateVerifier{client: client, waiter: waiter, gasLimit: gasLimit, logger: logger}
}

// Snapshot reads the code at address as of the latest block.
func (v *StateVerifier) Snapshot(ctx context.Context, address common.Address) (*models.AccountCodeSnapshot, error) {
	blockNumber, err := v.client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get block number: %w", err)
	}
	code, err := v.client.CodeAt(ctx, address, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return nil, fmt.Errorf("failed to get code at %s: %w", address.Hex(), err)
	}
	return &models.AccountCodeSnapshot{
		Address:     address,
		Code:        code,
		BlockNumber: blockNumber,
		CapturedAt:  time.Now(),
	}, nil
}

// FunctionalCheck calls getBalance() and nonce() on the upgraded address and
// compares getBalance() with the native balance. When executor is non-nil it
// also sends execute(self, 0, 0x) from the executor to its own address.
func (v *StateVerifier) FunctionalCheck(ctx context.Context, address common.Address, executor *models.Account) *models.FunctionalCheckResult {
	result := &models.FunctionalCheckResult{}
	entry := v.logger.WithField("wallet", address.Hex())

	contractBalance, err := callUint256(ctx, v.client, address, config.FunctionGetBalance)
	if err != nil {
		result.Error = err.Error()
		entry.WithError(err).Warn("⚠️  Functional check failed")
		return result
	}
	result.ContractBalance = contractBalance

	nativeBalance, err := v.client.BalanceAt(ctx, address, nil)
	if err != nil {
		result.Error = fmt.Sprintf("failed to get native balance: %v", err)
		return result
	}
	result.NativeBalance = nativeBalance
	result.BalancesMatch = contractBalance.Cmp(nativeBalance) == 0

	walletNonce, err := callUint256(ctx, v.client, address, config.FunctionNonce)
	if err != nil {
		result.Error = err.Error()
		entry.WithError(err).Warn("⚠️  Functional check failed")
		return result
	}
	result.WalletNonce = walletNonce

	if executor != nil {
		txHash, err := v.execute(ctx, executor)
		result.ExecuteTxHash = txHash
		if err != nil {
			result.Error = err.Error()
			entry.WithError(err).Warn("⚠️  execute() check failed")
			return result
		}
	}

	result.Passed = result.BalancesMatch
	if !result.BalancesMatch {
		result.Error = fmt.Sprintf("getBalance() returned %s, native balance is %s", contractBalance, nativeBalance)
	}
	entry.WithFields(logrus.Fields{
		"contract_balance": contractBalance.String(),
		"native_balance":   nativeBalance.String(),
		"wallet_nonce":     walletNonce.String(),
		"passed":           result.Passed,
	}).Info("🔍 Functional check finished")
	return result
}

// execute sends execute(self, 0, 0x) from the account to itself.
func (v *StateVerifier) execute(ctx context.Context, account *models.Account) (*common.Hash, error) {
	data, err := CallData(config.FunctionExecute, account.Address, big.NewInt(0), []byte{})
	if err != nil {
		return nil, err
	}
	chainID, err := v.client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	nonce, err := v.client.PendingNonceAt(ctx, account.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	fees, err := suggestFees(ctx, v.client)
	if err != nil {
		return nil, err
	}

	to := account.Address
	tx, err := types.SignNewTx(account.PrivateKey, types.LatestSignerForChainID(chainID), &types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: fees.TipCap,
		GasFeeCap: fees.FeeCap,
		Gas:       v.gasLimit,
		To:        &to,
		Data:      data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign execute transaction: %w", err)
	}
	txHash := tx.Hash()
	if err := v.client.SendTransaction(ctx, tx); err != nil {
		return &txHash, fmt.Errorf("failed to send execute transaction: %w", err)
	}
	metrics.TransactionsSent.WithLabelValues("execute").Inc()

	receipt, err := v.waiter.Wait(ctx, txHash)
	if err != nil {
		return &txHash, err
	}
	metrics.TransactionGasUsed.WithLabelValues("execute").Observe(float64(receipt.GasUsed))
	if receipt.Status != types.ReceiptStatusSuccessful {
		return &txHash, fmt.Errorf("%w: execute transaction %s", ErrTransactionReverted, txHash.Hex())
	}
	return &txHash, nil
}

// Diagnose collects the authorization parameters next to what the chain
// currently reports. Read failures become notes.
func (v *StateVerifier) Diagnose(ctx context.Context, account common.Address, auth *models.DelegationAuthorization, expectedChainID *big.Int) *models.Diagnostics {
	d := &models.Diagnostics{ExpectedChainID: expectedChainID}
	if auth != nil {
		d.AuthorizationChainID = auth.ChainID
		d.AuthorizationNonce = auth.Nonce
		d.AuthorizationAddress = auth.Implementation
		d.Designator = auth.Designator
		if want := auth.Designator.AuthorizationNonce(auth.AccountNonce); auth.Nonce != want {
			d.Notes = append(d.Notes, fmt.Sprintf("authorization nonce %d does not match %d expected for a %s designator at account nonce %d",
				auth.Nonce, want, auth.Designator, auth.AccountNonce))
		}
	}

	if chainID, err := v.client.ChainID(ctx); err != nil {
		d.Notes = append(d.Notes, fmt.Sprintf("chain id unavailable: %v", err))
	} else {
		d.ObservedChainID = chainID
		if auth != nil && auth.ChainID.Sign() != 0 && auth.ChainID.Cmp(chainID) != 0 {
			d.Notes = append(d.Notes, fmt.Sprintf("authorization chain id %s differs from endpoint chain id %s", auth.ChainID, chainID))
		}
	}

	if nonce, err := v.client.NonceAt(ctx, account, nil); err != nil {
		d.Notes = append(d.Notes, fmt.Sprintf("account nonce unavailable: %v", err))
	} else {
		d.AccountNonce = nonce
		if auth != nil && auth.Designator == models.DesignatorSelf && nonce != auth.AccountNonce+1 {
			d.Notes = append(d.Notes, fmt.Sprintf("account nonce is %d, expected %d after the upgrade transaction", nonce, auth.AccountNonce+1))
		}
	}

	if code, err := v.client.CodeAt(ctx, account, nil); err != nil {
		d.Notes = append(d.Notes, fmt.Sprintf("account code unavailable: %v", err))
	} else if delegate, ok := types.ParseDelegation(code); ok {
		d.ObservedDelegate = delegate
	}

	v.logger.WithFields(logrus.Fields{
		"account":             account.Hex(),
		"auth_chain_id":       d.AuthorizationChainID,
		"auth_nonce":          d.AuthorizationNonce,
		"auth_implementation": d.AuthorizationAddress.Hex(),
		"expected_chain_id":   d.ExpectedChainID,
		"observed_chain_id":   d.ObservedChainID,
		"account_nonce":       d.AccountNonce,
		"notes":               d.Notes,
	}).Warn("🩺 Upgrade diagnostics")
	return d
}

// WalletInspection current state of an address expected to be upgraded
type WalletInspection struct {
	Address    common.Address                `json:"address"`
	Code       *models.AccountCodeSnapshot   `json:"code"`
	Delegated  bool                          `json:"delegated"`
	Delegate   common.Address                `json:"delegate,omitempty"`
	Functional *models.FunctionalCheckResult `json:"functional,omitempty"`
}

// InspectWallet reads the code at address and, when code is present, runs the
// read-only functional check.
func (v *StateVerifier) InspectWallet(ctx context.Context, address common.Address) (*WalletInspection, error) {
	snapshot, err := v.Snapshot(ctx, address)
	if err != nil {
		return nil, err
	}
	inspection := &WalletInspection{Address: address, Code: snapshot}
	if snapshot.IsEmpty() {
		v.logger.WithField("wallet", address.Hex()).Warn("⚠️  No code at address, wallet is not upgraded")
		return inspection, nil
	}
	inspection.Delegate, inspection.Delegated = snapshot.DelegatedTo()
	inspection.Functional = v.FunctionalCheck(ctx, address, nil)
	return inspection, nil
}

// UpgradeTxInspection receipt and resulting code of a past upgrade transaction
type UpgradeTxInspection struct {
	Result         *models.SubmissionResult    `json:"result"`
	Code           *models.AccountCodeSnapshot `json:"code"`
	Classification Classification              `json:"classification"`
}

// InspectUpgradeTx classifies a past upgrade transaction of account. The
// account is assumed to have had no code before it.
func (v *StateVerifier) InspectUpgradeTx(ctx context.Context, txHash common.Hash, account, implementation common.Address) (*UpgradeTxInspection, error) {
	receipt, err := v.client.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt for %s: %w", txHash.Hex(), err)
	}
	snapshot, err := v.Snapshot(ctx, account)
	if err != nil {
		return nil, err
	}
	result := models.NewSubmissionResult(receipt, common.Address{}, account)
	return &UpgradeTxInspection{
		Result:         result,
		Code:           snapshot,
		Classification: Classify(nil, snapshot, result, implementation),
	}, nil
}
