package services

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/sirupsen/logrus"

	"go-eoa-upgrade/internal/clients"
	"go-eoa-upgrade/internal/metrics"
)

// MonitoringService 监控服务，记录账户余额并把本次运行的指标推送到 Pushgateway
type MonitoringService struct {
	client         clients.ChainClient
	network        string
	pushgatewayURL string
	job            string
	gatherer       prometheus.Gatherer
	logger         *logrus.Logger
}

// NewMonitoringService 创建监控服务，pushgatewayURL 为空时不推送
func NewMonitoringService(client clients.ChainClient, network, pushgatewayURL, job string, logger *logrus.Logger) *MonitoringService {
	return &MonitoringService{
		client:         client,
		network:        network,
		pushgatewayURL: pushgatewayURL,
		job:            job,
		gatherer:       prometheus.DefaultGatherer,
		logger:         logger,
	}
}

// RecordBalances 更新余额指标，role -> address
func (m *MonitoringService) RecordBalances(ctx context.Context, accounts map[string]common.Address) {
	for role, address := range accounts {
		if address == (common.Address{}) {
			continue
		}
		balance, err := m.client.BalanceAt(ctx, address, nil)
		if err != nil {
			m.logger.WithError(err).WithFields(logrus.Fields{
				"role":    role,
				"address": address.Hex(),
			}).Warn("⚠️  Failed to get balance")
			continue
		}
		wei, _ := new(big.Float).SetInt(balance).Float64()
		metrics.AccountBalance.WithLabelValues(m.network, role, address.Hex()).Set(wei)
	}
}

// Push 推送指标到 Pushgateway
func (m *MonitoringService) Push(runID string) error {
	if m.pushgatewayURL == "" {
		return nil
	}
	pusher := push.New(m.pushgatewayURL, m.job).
		Gatherer(m.gatherer).
		Grouping("network", m.network)
	if runID != "" {
		pusher = pusher.Grouping("run_id", runID)
	}
	if err := pusher.Push(); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", m.pushgatewayURL, err)
	}
	m.logger.WithField("pushgateway", m.pushgatewayURL).Info("📈 Metrics pushed")
	return nil
}
