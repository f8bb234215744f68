package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"go-eoa-upgrade/internal/app"
	"go-eoa-upgrade/internal/models"
)

func main() {
	os.Exit(run())
}

func run() int {
	fmt.Println("🚀 EIP-7702 EOA upgrade demo")
	fmt.Println(strings.Repeat("=", 60))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := app.InitializeContainer(ctx, app.ModeWorkflow)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return 1
	}
	defer container.Close()

	cfg := container.Config
	fmt.Printf("📋 Network:        %s (chain %s)\n", cfg.Network.Name, container.ChainID)
	fmt.Printf("📋 Deployer:       %s\n", container.Deployer.Address.Hex())
	fmt.Printf("📋 Implementation: %s\n", cfg.Workflow.ImplementationAddress)
	fmt.Printf("📋 Designator:     %s\n", cfg.Workflow.Designator)
	fmt.Println()

	report, runErr := container.Workflow.Run(ctx)

	container.Monitoring.RecordBalances(ctx, map[string]common.Address{
		"deployer": container.Deployer.Address,
		"account":  report.Account,
	})
	if err := container.Monitoring.Push(report.RunID); err != nil {
		container.Logger.WithError(err).Warn("⚠️  Failed to push metrics")
	}

	fmt.Println()
	fmt.Println(strings.Repeat("=", 60))
	for _, line := range container.Workflow.Summary(report) {
		fmt.Println(line)
	}
	fmt.Println(strings.Repeat("=", 60))

	switch report.Outcome {
	case models.OutcomeUpgraded:
		fmt.Println("🎉 EOA upgraded to smart wallet")
	case models.OutcomeReverted:
		fmt.Println("❌ Upgrade transaction reverted")
	case models.OutcomeSilentFailure:
		fmt.Println("⚠️  Upgrade transaction succeeded but the account has no code")
	default:
		fmt.Printf("❌ Workflow failed: %v\n", runErr)
	}

	if runErr != nil {
		return 1
	}
	return 0
}
