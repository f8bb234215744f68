package services

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"go-eoa-upgrade/internal/clients"
	"go-eoa-upgrade/internal/config"
	"go-eoa-upgrade/internal/metrics"
	"go-eoa-upgrade/internal/models"
	"go-eoa-upgrade/internal/utils"
)

// EventPublisher receives every finished run report.
type EventPublisher interface {
	PublishRun(report *models.RunReport) error
}

// WorkflowSettings parsed inputs of one upgrade run
type WorkflowSettings struct {
	Network             string
	ExpectedChainID     uint64
	Implementation      common.Address
	FundingAmount       *big.Int
	Designator          models.Designator
	UpgradeFunction     string
	GasLimit            uint64
	ExecuteCheck        bool
	PollInterval        time.Duration
	ConfirmationTimeout time.Duration
	MaxReceiptErrors    int
}

// NewWorkflowSettings converts configuration into workflow settings.
func NewWorkflowSettings(cfg *config.Config) (WorkflowSettings, error) {
	implementation, err := utils.ParseAddress(cfg.Workflow.ImplementationAddress)
	if err != nil {
		return WorkflowSettings{}, NewStepError(models.StepConfigure, ConfigurationError, fmt.Errorf("implementation address: %w", err))
	}
	amount, err := utils.ParseEther(cfg.Workflow.FundingAmountEth)
	if err != nil {
		return WorkflowSettings{}, NewStepError(models.StepConfigure, ConfigurationError, fmt.Errorf("funding amount: %w", err))
	}
	designator := models.Designator(cfg.Workflow.Designator)
	if !designator.Valid() {
		return WorkflowSettings{}, NewStepError(models.StepConfigure, ConfigurationError, fmt.Errorf("unknown designator %q", designator))
	}
	executeCheck := true
	if cfg.Workflow.ExecuteCheck != nil {
		executeCheck = *cfg.Workflow.ExecuteCheck
	}

	return WorkflowSettings{
		Network:             cfg.Network.Name,
		ExpectedChainID:     cfg.Network.ChainID,
		Implementation:      implementation,
		FundingAmount:       amount,
		Designator:          designator,
		UpgradeFunction:     cfg.Workflow.UpgradeFunction,
		GasLimit:            cfg.Workflow.GasLimit,
		ExecuteCheck:        executeCheck,
		PollInterval:        cfg.Workflow.PollIntervalDuration(),
		ConfirmationTimeout: cfg.Workflow.ConfirmationTimeoutDuration(),
		MaxReceiptErrors:    cfg.Workflow.MaxReceiptErrors,
	}, nil
}

// UpgradeWorkflow runs provision → authorize → submit → verify strictly in order.
type UpgradeWorkflow struct {
	provisioner *AccountProvisioner
	signer      *AuthorizationSigner
	submitter   *UpgradeSubmitter
	verifier    *StateVerifier
	registry    *utils.ChainRegistry
	publisher   EventPublisher
	deployer    *models.Account
	settings    WorkflowSettings
	logger      *logrus.Logger
}

// NewUpgradeWorkflow wires the four components around one chain client.
func NewUpgradeWorkflow(client clients.ChainClient, deployer *models.Account, settings WorkflowSettings, logger *logrus.Logger) *UpgradeWorkflow {
	if settings.UpgradeFunction == "" {
		settings.UpgradeFunction = config.FunctionGetBalance
	}
	if settings.Designator == "" {
		settings.Designator = models.DesignatorSelf
	}
	waiter := NewReceiptWaiter(client, settings.PollInterval, settings.ConfirmationTimeout, settings.MaxReceiptErrors, logger)
	return &UpgradeWorkflow{
		provisioner: NewAccountProvisioner(client, waiter, logger),
		signer:      NewAuthorizationSigner(client, settings.ExpectedChainID, logger),
		submitter:   NewUpgradeSubmitter(client, waiter, settings.GasLimit, logger),
		verifier:    NewStateVerifier(client, waiter, settings.GasLimit, logger),
		registry:    utils.GlobalChainRegistry,
		deployer:    deployer,
		settings:    settings,
		logger:      logger,
	}
}

// SetPublisher sets where finished reports are published. nil disables publishing.
func (w *UpgradeWorkflow) SetPublisher(publisher EventPublisher) {
	w.publisher = publisher
}

// Verifier returns the state verifier used by the workflow.
func (w *UpgradeWorkflow) Verifier() *StateVerifier {
	return w.verifier
}

// NewReport starts a report for one run.
func (w *UpgradeWorkflow) NewReport() *models.RunReport {
	return &models.RunReport{
		RunID:          uuid.NewString(),
		Network:        w.settings.Network,
		Implementation: w.settings.Implementation,
		Deployer:       w.deployer.Address,
		State:          models.RunStateStart,
		StartedAt:      time.Now(),
	}
}

// Run executes the whole workflow. The returned error is non-nil only when the
// run ends in Failed; Upgraded, Reverted and SilentFailure are classifications.
func (w *UpgradeWorkflow) Run(ctx context.Context) (*models.RunReport, error) {
	report := w.NewReport()
	w.logger.WithFields(logrus.Fields{
		"run_id":         report.RunID,
		"network":        report.Network,
		"implementation": report.Implementation.Hex(),
		"designator":     w.settings.Designator,
	}).Info("🚀 Starting EOA upgrade workflow")

	attempt, err := w.Prepare(ctx, report)
	if err == nil {
		err = w.Complete(ctx, report, attempt)
	}
	w.finish(report)
	return report, err
}

// Prepare provisions the account and signs its authorization.
func (w *UpgradeWorkflow) Prepare(ctx context.Context, report *models.RunReport) (*models.UpgradeAttempt, error) {
	attempt := &models.UpgradeAttempt{}

	start := time.Now()
	account, funding, err := w.provision(ctx)
	observeStep(models.StepProvision, start)
	if account != nil {
		report.Account = account.Address
	}
	report.Funding = funding
	if err != nil {
		return nil, w.fail(ctx, report, models.StepProvision, err)
	}
	attempt.Account = account
	attempt.Funding = funding
	attempt.Sender = account
	if w.settings.Designator == models.DesignatorRelayer {
		attempt.Sender = w.deployer
	}
	report.Advance(models.RunStateProvisioned)

	start = time.Now()
	auth, err := w.signer.Sign(ctx, account, w.settings.Implementation, w.settings.Designator)
	observeStep(models.StepAuthorize, start)
	if err != nil {
		return nil, w.fail(ctx, report, models.StepAuthorize, err)
	}
	attempt.Authorization = auth
	report.Authorization = auth
	report.ChainID = auth.ChainID
	report.Advance(models.RunStateAuthorized)
	return attempt, nil
}

func (w *UpgradeWorkflow) provision(ctx context.Context) (*models.Account, *models.SubmissionResult, error) {
	if w.settings.Designator == models.DesignatorRelayer {
		// relayer 支付 gas，新账户无需注资
		account, err := w.provisioner.GenerateAccount()
		return account, nil, err
	}
	return w.provisioner.Provision(ctx, w.deployer, w.settings.FundingAmount)
}

// Complete submits a prepared attempt and classifies the result.
func (w *UpgradeWorkflow) Complete(ctx context.Context, report *models.RunReport, attempt *models.UpgradeAttempt) error {
	account := attempt.Account
	auth := attempt.Authorization

	pre, err := w.verifier.Snapshot(ctx, account.Address)
	if err != nil {
		return w.fail(ctx, report, models.StepVerify, NewStepError(models.StepVerify, NetworkError, err))
	}
	report.CodeBefore = pre

	call, err := CallData(w.settings.UpgradeFunction)
	if err != nil {
		return w.fail(ctx, report, models.StepSubmit, NewStepError(models.StepSubmit, ConfigurationError, err))
	}

	start := time.Now()
	result, err := w.submitter.Submit(ctx, attempt.Sender, auth, call)
	observeStep(models.StepSubmit, start)
	if err != nil {
		if KindOf(err) == SubmissionRevert {
			report.FailedStep = models.StepSubmit
			report.FailureKind = string(SubmissionRevert)
			report.Error = err.Error()
			report.Diagnostics = w.verifier.Diagnose(ctx, account.Address, auth, w.expectedChainID(report))
			report.Finish(models.OutcomeReverted)
			w.logger.WithError(err).WithField("run_id", report.RunID).Warn("⚠️  Upgrade submission reverted")
			return nil
		}
		return w.fail(ctx, report, models.StepSubmit, err)
	}
	report.Upgrade = result
	report.Advance(models.RunStateSubmitted)

	start = time.Now()
	defer observeStep(models.StepVerify, start)

	post, err := w.verifier.Snapshot(ctx, account.Address)
	if err != nil {
		return w.fail(ctx, report, models.StepVerify, NewStepError(models.StepVerify, NetworkError, err))
	}
	report.CodeAfter = post

	classification := Classify(pre, post, result, w.settings.Implementation)
	switch classification.Outcome {
	case models.OutcomeUpgraded:
		if len(classification.Notes) > 0 {
			report.Diagnostics = &models.Diagnostics{
				AuthorizationChainID: auth.ChainID,
				AuthorizationNonce:   auth.Nonce,
				AuthorizationAddress: auth.Implementation,
				Designator:           auth.Designator,
				ObservedDelegate:     classification.Delegate,
				Notes:                classification.Notes,
			}
		}
		var executor *models.Account
		// relayer 模式下账户没有余额，无法自己发送 execute
		if w.settings.ExecuteCheck && w.settings.Designator != models.DesignatorRelayer {
			executor = account
		}
		report.Functional = w.verifier.FunctionalCheck(ctx, account.Address, executor)
	default:
		report.Diagnostics = w.verifier.Diagnose(ctx, account.Address, auth, w.expectedChainID(report))
		report.Diagnostics.Notes = append(classification.Notes, report.Diagnostics.Notes...)
		if classification.Outcome == models.OutcomeReverted {
			report.FailureKind = string(SubmissionRevert)
		} else {
			report.FailureKind = string(SilentFailureError)
		}
	}

	report.Finish(classification.Outcome)
	w.logger.WithFields(logrus.Fields{
		"run_id":   report.RunID,
		"account":  account.Address.Hex(),
		"tx_hash":  result.TxHash.Hex(),
		"outcome":  classification.Outcome,
		"delegate": classification.Delegate.Hex(),
	}).Info("📋 Upgrade classified")
	return nil
}

func (w *UpgradeWorkflow) expectedChainID(report *models.RunReport) *big.Int {
	if w.settings.ExpectedChainID != 0 {
		return new(big.Int).SetUint64(w.settings.ExpectedChainID)
	}
	return report.ChainID
}

// fail records a fatal failure and returns the classified error.
func (w *UpgradeWorkflow) fail(ctx context.Context, report *models.RunReport, step models.StepName, err error) error {
	err = NewStepError(step, KindOf(err), err)
	if attributed, ok := StepOf(err); ok {
		step = attributed
	}
	kind := KindOf(err)
	report.Fail(step, string(kind), err)
	metrics.WorkflowStepFailures.WithLabelValues(string(step), string(kind)).Inc()

	if report.Authorization != nil && step != models.StepAuthorize {
		report.Diagnostics = w.verifier.Diagnose(ctx, report.Account, report.Authorization, w.expectedChainID(report))
	}
	w.logger.WithError(err).WithFields(logrus.Fields{
		"run_id": report.RunID,
		"step":   step,
		"kind":   kind,
	}).Error("❌ Upgrade workflow failed")
	return err
}

func (w *UpgradeWorkflow) finish(report *models.RunReport) {
	if report.FinishedAt.IsZero() {
		report.FinishedAt = time.Now()
	}
	metrics.WorkflowRunsTotal.WithLabelValues(report.Network, string(report.Outcome)).Inc()

	if w.publisher == nil {
		return
	}
	if err := w.publisher.PublishRun(report); err != nil {
		w.logger.WithError(err).WithField("run_id", report.RunID).Warn("⚠️  Failed to publish run report")
	}
}

func observeStep(step models.StepName, start time.Time) {
	metrics.WorkflowStepDuration.WithLabelValues(string(step)).Observe(time.Since(start).Seconds())
}

// Summary renders the human readable run summary with explorer links.
func (w *UpgradeWorkflow) Summary(report *models.RunReport) []string {
	var chainID uint64
	if report.ChainID != nil {
		chainID = report.ChainID.Uint64()
	}
	addressLine := func(label string, addr common.Address) string {
		line := fmt.Sprintf("%s: %s", label, addr.Hex())
		if url := w.registry.AddressURL(chainID, addr.Hex()); url != "" {
			line += " (" + url + ")"
		}
		return line
	}
	txLine := func(label string, result *models.SubmissionResult) string {
		line := fmt.Sprintf("%s: %s [%s, gas %d, block %d]", label, result.TxHash.Hex(), result.StatusText(), result.GasUsed, result.BlockNumber)
		if url := w.registry.TxURL(chainID, result.TxHash.Hex()); url != "" {
			line += " (" + url + ")"
		}
		return line
	}

	lines := []string{
		fmt.Sprintf("Run: %s", report.RunID),
		fmt.Sprintf("Network: %s (chain %d)", report.Network, chainID),
		fmt.Sprintf("Outcome: %s", strings.ToUpper(string(report.Outcome))),
	}
	if report.Deployer != (common.Address{}) {
		lines = append(lines, addressLine("Deployer", report.Deployer))
	}
	if report.Account != (common.Address{}) {
		lines = append(lines, addressLine("Account", report.Account))
	}
	lines = append(lines, addressLine("Implementation", report.Implementation))
	if report.Funding != nil {
		lines = append(lines, txLine("Funding tx", report.Funding))
	}
	if report.Upgrade != nil {
		lines = append(lines, txLine("Upgrade tx", report.Upgrade))
	}
	if report.CodeAfter != nil {
		if delegate, ok := report.CodeAfter.DelegatedTo(); ok {
			lines = append(lines, fmt.Sprintf("Delegated to: %s", delegate.Hex()))
		} else {
			lines = append(lines, fmt.Sprintf("Code after: %d bytes", len(report.CodeAfter.Code)))
		}
	}
	if f := report.Functional; f != nil {
		status := "passed"
		if !f.Passed {
			status = "failed: " + f.Error
		}
		lines = append(lines, fmt.Sprintf("Functional check: %s", status))
		if f.ContractBalance != nil {
			lines = append(lines, fmt.Sprintf("  getBalance(): %s %s", utils.FormatEther(f.ContractBalance), w.registry.Symbol(chainID)))
		}
		if f.WalletNonce != nil {
			lines = append(lines, fmt.Sprintf("  nonce(): %s", f.WalletNonce))
		}
		if f.ExecuteTxHash != nil {
			line := fmt.Sprintf("  execute tx: %s", f.ExecuteTxHash.Hex())
			if url := w.registry.TxURL(chainID, f.ExecuteTxHash.Hex()); url != "" {
				line += " (" + url + ")"
			}
			lines = append(lines, line)
		}
	}
	if report.FailedStep != "" {
		lines = append(lines, fmt.Sprintf("Failed step: %s (%s)", report.FailedStep, report.FailureKind))
	}
	if report.Error != "" {
		lines = append(lines, fmt.Sprintf("Error: %s", report.Error))
	}
	if d := report.Diagnostics; d != nil {
		lines = append(lines, "Diagnostics:",
			fmt.Sprintf("  authorization chain id: %v", d.AuthorizationChainID),
			fmt.Sprintf("  authorization nonce: %d", d.AuthorizationNonce),
			fmt.Sprintf("  authorization address: %s", d.AuthorizationAddress.Hex()),
			fmt.Sprintf("  expected chain id: %v", d.ExpectedChainID),
			fmt.Sprintf("  account nonce: %d", d.AccountNonce),
		)
		for _, note := range d.Notes {
			lines = append(lines, "  - "+note)
		}
	}
	return lines
}
