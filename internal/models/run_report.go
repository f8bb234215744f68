package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RunState 一次升级流程的状态机
type RunState string

const (
	RunStateStart         RunState = "start"
	RunStateProvisioned   RunState = "provisioned"
	RunStateAuthorized    RunState = "authorized"
	RunStateSubmitted     RunState = "submitted"
	RunStateUpgraded      RunState = "upgraded"
	RunStateReverted      RunState = "reverted"
	RunStateSilentFailure RunState = "silent_failure"
	RunStateFailed        RunState = "failed"
)

// Terminal reports whether no further transition is possible.
func (s RunState) Terminal() bool {
	switch s {
	case RunStateUpgraded, RunStateReverted, RunStateSilentFailure, RunStateFailed:
		return true
	}
	return false
}

// Outcome 最终分类结果
type Outcome string

const (
	OutcomeUpgraded      Outcome = "upgraded"
	OutcomeReverted      Outcome = "reverted"
	OutcomeSilentFailure Outcome = "silent_failure"
	OutcomeFailed        Outcome = "failed"
)

// State maps an outcome onto its terminal run state.
func (o Outcome) State() RunState {
	switch o {
	case OutcomeUpgraded:
		return RunStateUpgraded
	case OutcomeReverted:
		return RunStateReverted
	case OutcomeSilentFailure:
		return RunStateSilentFailure
	default:
		return RunStateFailed
	}
}

// StepName 流程步骤名
type StepName string

const (
	StepConfigure StepName = "configure"
	StepProvision StepName = "provision"
	StepAuthorize StepName = "authorize"
	StepSubmit    StepName = "submit"
	StepVerify    StepName = "verify"
)

// UpgradeAttempt 已完成资金准备和授权签名、等待提交的一次尝试
type UpgradeAttempt struct {
	Account       *Account
	Sender        *Account // self 模式下等于 Account，relayer 模式下为 relayer
	Authorization *DelegationAuthorization
	Funding       *SubmissionResult
}

// Diagnostics 升级未生效时输出的诊断信息
type Diagnostics struct {
	AuthorizationChainID *big.Int       `json:"authorization_chain_id"`
	AuthorizationNonce   uint64         `json:"authorization_nonce"`
	AuthorizationAddress common.Address `json:"authorization_address"`
	Designator           Designator     `json:"designator"`
	ExpectedChainID      *big.Int       `json:"expected_chain_id"`
	ObservedChainID      *big.Int       `json:"observed_chain_id,omitempty"`
	AccountNonce         uint64         `json:"account_nonce"`
	ObservedDelegate     common.Address `json:"observed_delegate,omitempty"`
	Notes                []string       `json:"notes,omitempty"`
}

// FunctionalCheckResult 升级后合约行为检查结果，与升级分类相互独立
type FunctionalCheckResult struct {
	Passed          bool         `json:"passed"`
	ContractBalance *big.Int     `json:"contract_balance,omitempty"`
	NativeBalance   *big.Int     `json:"native_balance,omitempty"`
	BalancesMatch   bool         `json:"balances_match"`
	WalletNonce     *big.Int     `json:"wallet_nonce,omitempty"`
	ExecuteTxHash   *common.Hash `json:"execute_tx_hash,omitempty"`
	Error           string       `json:"error,omitempty"`
}

// RunReport 一次流程运行的完整记录
type RunReport struct {
	RunID          string                   `json:"run_id"`
	Network        string                   `json:"network"`
	ChainID        *big.Int                 `json:"chain_id"`
	Implementation common.Address           `json:"implementation"`
	State          RunState                 `json:"state"`
	Outcome        Outcome                  `json:"outcome,omitempty"`
	FailedStep     StepName                 `json:"failed_step,omitempty"`
	FailureKind    string                   `json:"failure_kind,omitempty"`
	Error          string                   `json:"error,omitempty"`
	Account        common.Address           `json:"account"`
	Deployer       common.Address           `json:"deployer"`
	Funding        *SubmissionResult        `json:"funding,omitempty"`
	Authorization  *DelegationAuthorization `json:"authorization,omitempty"`
	Upgrade        *SubmissionResult        `json:"upgrade,omitempty"`
	CodeBefore     *AccountCodeSnapshot     `json:"code_before,omitempty"`
	CodeAfter      *AccountCodeSnapshot     `json:"code_after,omitempty"`
	Diagnostics    *Diagnostics             `json:"diagnostics,omitempty"`
	Functional     *FunctionalCheckResult   `json:"functional,omitempty"`
	StartedAt      time.Time                `json:"started_at"`
	FinishedAt     time.Time                `json:"finished_at"`
}

// Advance moves the report to the next state. A finished report keeps its state.
func (r *RunReport) Advance(state RunState) {
	if r.State.Terminal() {
		return
	}
	r.State = state
}

// Finish records the terminal classification. The first classification wins.
func (r *RunReport) Finish(outcome Outcome) {
	if r.State.Terminal() {
		return
	}
	r.Outcome = outcome
	r.State = outcome.State()
	r.FinishedAt = time.Now()
}

// Fail records a fatal failure at the given step.
func (r *RunReport) Fail(step StepName, kind string, err error) {
	if r.State.Terminal() {
		return
	}
	r.FailedStep = step
	r.FailureKind = kind
	if err != nil {
		r.Error = err.Error()
	}
	r.Finish(OutcomeFailed)
}
