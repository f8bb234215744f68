package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"go-eoa-upgrade/internal/models"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"missing config", fmt.Errorf("%w: DEPLOYER_PRIVATE_KEY", ErrMissingConfig), ConfigurationError},
		{"invalid key", ErrInvalidKey, ConfigurationError},
		{"insufficient funds", ErrInsufficientFunds, FundingError},
		{"chain id mismatch", ErrChainIDMismatch, SigningError},
		{"stale nonce", ErrStaleNonce, SubmissionRevert},
		{"confirmation timeout", ErrConfirmationTimeout, TimeoutError},
		{"deadline", context.DeadlineExceeded, TimeoutError},
		{"anything else", errors.New("connection reset"), NetworkError},
		{"step error wins", NewStepError(models.StepVerify, SilentFailureError, ErrStaleNonce), SilentFailureError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestStepError(t *testing.T) {
	cause := fmt.Errorf("wrapped: %w", ErrInsufficientFunds)
	err := NewStepError(models.StepProvision, FundingError, cause)

	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, "provision failed (FundingError): wrapped: insufficient funds", err.Error())

	step, ok := StepOf(fmt.Errorf("outer: %w", err))
	assert.True(t, ok)
	assert.Equal(t, models.StepProvision, step)

	// re-wrapping keeps the original attribution
	again := NewStepError(models.StepSubmit, NetworkError, err)
	step, _ = StepOf(again)
	assert.Equal(t, models.StepProvision, step)
	assert.Equal(t, FundingError, KindOf(again))

	assert.Nil(t, NewStepError(models.StepSubmit, NetworkError, nil))
	_, ok = StepOf(errors.New("plain"))
	assert.False(t, ok)
}
