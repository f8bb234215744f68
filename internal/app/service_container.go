package app

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"go-eoa-upgrade/internal/clients"
	"go-eoa-upgrade/internal/config"
	"go-eoa-upgrade/internal/events"
	"go-eoa-upgrade/internal/logger"
	"go-eoa-upgrade/internal/models"
	"go-eoa-upgrade/internal/services"
	"go-eoa-upgrade/internal/utils"
)

// ServiceContainer 命令行工具共用的依赖
type ServiceContainer struct {
	Config *config.Config
	Logger *logrus.Logger

	// Chain
	Client  *ethclient.Client
	ChainID *big.Int

	// Upgrade workflow (nil for read-only tools)
	Deployer *models.Account
	Workflow *services.UpgradeWorkflow

	Verifier   *services.StateVerifier
	Monitoring *services.MonitoringService
	RunEvents  *events.RunEventPublisher
}

// Mode selects what a tool needs from configuration.
type Mode int

const (
	// ModeInspect needs only an RPC endpoint.
	ModeInspect Mode = iota
	// ModeWorkflow also needs the deployer key and implementation address.
	ModeWorkflow
)

// InitializeContainer loads configuration, validates it for mode and dials the chain.
// Configuration problems are returned before any network access.
func InitializeContainer(ctx context.Context, mode Mode) (*ServiceContainer, error) {
	if err := config.LoadConfig(""); err != nil {
		return nil, services.NewStepError(models.StepConfigure, services.ConfigurationError, err)
	}
	cfg := config.AppConfig
	c := &ServiceContainer{
		Config: cfg,
		Logger: logger.Init(cfg.Log),
	}

	var settings services.WorkflowSettings
	if mode == ModeWorkflow {
		if err := cfg.Validate(); err != nil {
			return nil, services.NewStepError(models.StepConfigure, services.ConfigurationError, err)
		}
		var err error
		if settings, err = services.NewWorkflowSettings(cfg); err != nil {
			return nil, err
		}
		if c.Deployer, err = services.LoadAccount(cfg.Deployer.PrivateKey); err != nil {
			return nil, err
		}
	} else if err := cfg.ValidateEndpoint(); err != nil {
		return nil, services.NewStepError(models.StepConfigure, services.ConfigurationError, err)
	}

	client, chainID, err := clients.DialChainClient(ctx, cfg.Network.RPCEndpoints, cfg.Network.ChainID,
		time.Duration(cfg.Network.DialTimeout)*time.Second, c.Logger)
	if err != nil {
		return nil, services.NewStepError(models.StepConfigure, services.NetworkError, fmt.Errorf("failed to connect to %s: %w", cfg.Network.Name, err))
	}
	c.Client = client
	c.ChainID = chainID
	if info, ok := utils.GlobalChainRegistry.GetByID(chainID.Uint64()); ok && !info.Testnet {
		c.Logger.WithField("chain", info.Name).Warn("⚠️  Connected to a mainnet chain, transactions spend real funds")
	}
	c.Monitoring = services.NewMonitoringService(client, cfg.Network.Name, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, c.Logger)

	if mode != ModeWorkflow {
		c.Verifier = services.NewStateVerifier(client, nil, cfg.Workflow.GasLimit, c.Logger)
		return c, nil
	}

	c.Workflow = services.NewUpgradeWorkflow(client, c.Deployer, settings, c.Logger)
	c.Verifier = c.Workflow.Verifier()

	publisher, err := events.InitRunEvents(cfg.NATS, c.Logger)
	if err != nil {
		c.Logger.WithError(err).Warn("⚠️  Run events disabled")
	} else if publisher != nil {
		c.RunEvents = publisher
		c.Workflow.SetPublisher(publisher)
	}
	return c, nil
}

// Close releases the chain and NATS connections.
func (c *ServiceContainer) Close() {
	if c.RunEvents != nil {
		events.CloseRunEvents()
	}
	if c.Client != nil {
		c.Client.Close()
	}
}
