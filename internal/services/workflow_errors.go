package services

import (
	"context"
	"errors"
	"fmt"

	"go-eoa-upgrade/internal/config"
	"go-eoa-upgrade/internal/models"
)

// ErrorKind 错误分类
type ErrorKind string

const (
	ConfigurationError ErrorKind = "ConfigurationError"
	FundingError       ErrorKind = "FundingError"
	SigningError       ErrorKind = "SigningError"
	SubmissionRevert   ErrorKind = "SubmissionRevert"
	SilentFailureError ErrorKind = "SilentFailureError"
	NetworkError       ErrorKind = "NetworkError"
	TimeoutError       ErrorKind = "TimeoutError"
)

var (
	ErrMissingConfig       = config.ErrMissingConfig
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrStaleNonce          = errors.New("authorization nonce is stale")
	ErrChainIDMismatch     = errors.New("chain id mismatch")
	ErrConfirmationTimeout = errors.New("confirmation timeout")
	ErrInvalidKey          = errors.New("invalid private key")
	ErrTransactionReverted = errors.New("transaction reverted")
)

// StepError a classified failure attributed to one workflow step
type StepError struct {
	Step models.StepName
	Kind ErrorKind
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Step, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// NewStepError wraps err. An err that already is a StepError keeps its own
// classification.
func NewStepError(step models.StepName, kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return err
	}
	return &StepError{Step: step, Kind: kind, Err: err}
}

// KindOf returns the classification of err.
func KindOf(err error) ErrorKind {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Kind
	}
	switch {
	case errors.Is(err, ErrMissingConfig), errors.Is(err, ErrInvalidKey):
		return ConfigurationError
	case errors.Is(err, ErrInsufficientFunds):
		return FundingError
	case errors.Is(err, ErrChainIDMismatch):
		return SigningError
	case errors.Is(err, ErrStaleNonce), errors.Is(err, ErrTransactionReverted):
		return SubmissionRevert
	case errors.Is(err, ErrConfirmationTimeout), errors.Is(err, context.DeadlineExceeded):
		return TimeoutError
	default:
		return NetworkError
	}
}

// StepOf returns the step err is attributed to, if any.
func StepOf(err error) (models.StepName, bool) {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step, true
	}
	return "", false
}
