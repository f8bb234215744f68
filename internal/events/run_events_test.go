package events

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go-eoa-upgrade/internal/models"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(subject string, payload interface{}) error {
	args := m.Called(subject, payload)
	return args.Error(0)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRunEventPublisher_Subject(t *testing.T) {
	p := NewRunEventPublisher(&mockPublisher{}, "", quietLogger())

	report := &models.RunReport{Network: "Sepolia", Outcome: models.OutcomeSilentFailure}
	assert.Equal(t, "eoa.upgrade.sepolia.silent_failure", p.Subject(report))

	report = &models.RunReport{State: models.RunStateSubmitted}
	assert.Equal(t, "eoa.upgrade.unknown.submitted", p.Subject(report))
}

func TestRunEventPublisher_PublishRun(t *testing.T) {
	pub := &mockPublisher{}
	p := NewRunEventPublisher(pub, "test.prefix", quietLogger())
	report := &models.RunReport{RunID: "r1", Network: "dev", Outcome: models.OutcomeUpgraded}

	pub.On("PublishJSON", "test.prefix.dev.upgraded", report).Return(nil).Once()

	require.NoError(t, p.PublishRun(report))
	pub.AssertExpectations(t)
}

func TestRunEventPublisher_PublishError(t *testing.T) {
	pub := &mockPublisher{}
	p := NewRunEventPublisher(pub, "", quietLogger())
	report := &models.RunReport{RunID: "r2", Network: "dev", Outcome: models.OutcomeReverted}

	boom := errors.New("connection closed")
	pub.On("PublishJSON", mock.Anything, mock.Anything).Return(boom)

	err := p.PublishRun(report)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "r2")
}

func TestRunEventPublisher_NilReport(t *testing.T) {
	p := NewRunEventPublisher(&mockPublisher{}, "", quietLogger())
	assert.Error(t, p.PublishRun(nil))
}
