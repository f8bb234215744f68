package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"go-eoa-upgrade/internal/app"
	"go-eoa-upgrade/internal/utils"
)

func main() {
	fmt.Println("🔍 Checking upgrade transaction...")
	fmt.Println(strings.Repeat("=", 60))

	ctx := context.Background()
	container, err := app.InitializeContainer(ctx, app.ModeInspect)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	defer container.Close()
	cfg := container.Config

	txHashHex := strings.TrimSpace(cfg.Inspect.UpgradeTxHash)
	if len(common.FromHex(txHashHex)) != common.HashLength {
		fmt.Printf("❌ UPGRADE_TX_HASH is missing or malformed: %q\n", txHashHex)
		container.Close()
		os.Exit(1)
	}
	account, err := utils.ParseAddress(cfg.Inspect.WalletAddress)
	if err != nil {
		fmt.Printf("❌ SMART_WALLET_ADDRESS: %v\n", err)
		container.Close()
		os.Exit(1)
	}
	implementation, err := utils.ParseAddress(cfg.Workflow.ImplementationAddress)
	if err != nil {
		fmt.Printf("❌ SIMPLE_WALLET_ADDRESS: %v\n", err)
		container.Close()
		os.Exit(1)
	}

	txHash := common.HexToHash(txHashHex)
	inspection, err := container.Verifier.InspectUpgradeTx(ctx, txHash, account, implementation)
	if err != nil {
		container.Close()
		log.Fatalf("Failed to inspect transaction: %v", err)
	}

	fmt.Printf("📋 Transaction: %s\n", txHash.Hex())
	if url := utils.GlobalChainRegistry.TxURL(container.ChainID.Uint64(), txHash.Hex()); url != "" {
		fmt.Printf("🔗 %s\n", url)
	}
	fmt.Printf("📋 Status: %s\n", inspection.Result.StatusText())
	fmt.Printf("📋 Block: %d\n", inspection.Result.BlockNumber)
	fmt.Printf("📋 Gas used: %d\n", inspection.Result.GasUsed)
	fmt.Printf("📋 Account: %s\n", account.Hex())
	fmt.Printf("📋 Code at account: 0x%x\n", inspection.Code.Code)
	fmt.Printf("📋 Classification: %s\n", strings.ToUpper(string(inspection.Classification.Outcome)))
	for _, note := range inspection.Classification.Notes {
		fmt.Printf("   - %s\n", note)
	}
}
