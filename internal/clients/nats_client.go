package clients

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"go-eoa-upgrade/internal/metrics"
)

// NATSClient NATS client
type NATSClient struct {
	conn   *nats.Conn
	logger *logrus.Logger
}

// NewNATSClient CreateNATS client
func NewNATSClient(url string, connectTimeout time.Duration, logger *logrus.Logger) (*NATSClient, error) {
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	logger.WithField("timeout", connectTimeout).Info("🔌 Connecting to NATS")

	conn, err := nats.Connect(url,
		nats.Name("go-eoa-upgrade"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(5),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.WithError(err).Warn("NATS disconnected")
			metrics.NATSConnectionStatus.Set(0)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected")
			metrics.NATSConnectionStatus.Set(1)
		}),
	)
	if err != nil {
		metrics.NATSConnectionStatus.Set(0)
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	metrics.NATSConnectionStatus.Set(1)

	return &NATSClient{conn: conn, logger: logger}, nil
}

// PublishJSON marshals payload and publishes it, then flushes so a short-lived
// process does not exit with the message still buffered.
func (c *NATSClient) PublishJSON(subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	if err := c.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("failed to flush NATS connection: %w", err)
	}
	c.logger.WithFields(logrus.Fields{"subject": subject, "bytes": len(data)}).Debug("📨 Published NATS message")
	return nil
}

// Close closes the connection
func (c *NATSClient) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
