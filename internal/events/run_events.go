package events

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go-eoa-upgrade/internal/clients"
	"go-eoa-upgrade/internal/config"
	"go-eoa-upgrade/internal/metrics"
	"go-eoa-upgrade/internal/models"
)

// Publisher is the transport a RunEventPublisher writes to.
type Publisher interface {
	PublishJSON(subject string, payload interface{}) error
}

// RunEventPublisher publishes finished run reports on
// <prefix>.<network>.<outcome>.
type RunEventPublisher struct {
	publisher Publisher
	prefix    string
	logger    *logrus.Logger
}

// NewRunEventPublisher wraps a publisher. An empty prefix uses the default.
func NewRunEventPublisher(publisher Publisher, prefix string, logger *logrus.Logger) *RunEventPublisher {
	if prefix == "" {
		prefix = config.DefaultSubjectPrefix
	}
	return &RunEventPublisher{publisher: publisher, prefix: prefix, logger: logger}
}

// Subject returns the subject a report is published on.
func (p *RunEventPublisher) Subject(report *models.RunReport) string {
	network := strings.ToLower(strings.TrimSpace(report.Network))
	if network == "" {
		network = "unknown"
	}
	outcome := string(report.Outcome)
	if outcome == "" {
		outcome = string(report.State)
	}
	return fmt.Sprintf("%s.%s.%s", p.prefix, network, outcome)
}

// PublishRun publishes the report.
func (p *RunEventPublisher) PublishRun(report *models.RunReport) error {
	if report == nil {
		return fmt.Errorf("run report is nil")
	}
	subject := p.Subject(report)
	if err := p.publisher.PublishJSON(subject, report); err != nil {
		return fmt.Errorf("failed to publish run %s: %w", report.RunID, err)
	}
	metrics.NATSEventsPublished.WithLabelValues(string(report.Outcome)).Inc()
	p.logger.WithFields(logrus.Fields{
		"run_id":  report.RunID,
		"subject": subject,
	}).Info("📨 Run report published")
	return nil
}

var (
	natsClient   *clients.NATSClient
	runPublisher *RunEventPublisher
	natsOnce     sync.Once
	natsInitErr  error
)

// InitRunEvents connects to NATS when configured. It returns nil, nil when
// NATS is not configured.
func InitRunEvents(cfg config.NATSConfig, logger *logrus.Logger) (*RunEventPublisher, error) {
	natsOnce.Do(func() {
		if cfg.URL == "" {
			logger.Info("NATS not configured, skipping run event publishing")
			return
		}

		client, err := clients.NewNATSClient(cfg.URL, time.Duration(cfg.Timeout)*time.Second, logger)
		if err != nil {
			natsInitErr = fmt.Errorf("failed to create NATS client: %w", err)
			return
		}

		natsClient = client
		runPublisher = NewRunEventPublisher(client, cfg.SubjectPrefix, logger)
		logger.Info("✅ NATS run event publisher initialized")
	})
	return runPublisher, natsInitErr
}

// CloseRunEvents closes the NATS connection opened by InitRunEvents.
func CloseRunEvents() {
	if natsClient != nil {
		natsClient.Close()
	}
}
