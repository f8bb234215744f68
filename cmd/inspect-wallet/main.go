package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"go-eoa-upgrade/internal/app"
	"go-eoa-upgrade/internal/utils"
)

func main() {
	fmt.Println("🔍 Inspecting upgraded wallet...")
	fmt.Println(strings.Repeat("=", 60))

	ctx := context.Background()
	container, err := app.InitializeContainer(ctx, app.ModeInspect)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	defer container.Close()

	wallet, err := utils.ParseAddress(container.Config.Inspect.WalletAddress)
	if err != nil {
		fmt.Printf("❌ SMART_WALLET_ADDRESS: %v\n", err)
		container.Close()
		os.Exit(1)
	}

	inspection, err := container.Verifier.InspectWallet(ctx, wallet)
	if err != nil {
		container.Close()
		log.Fatalf("Failed to inspect wallet: %v", err)
	}

	chainID := container.ChainID.Uint64()
	symbol := utils.GlobalChainRegistry.Symbol(chainID)
	fmt.Printf("📋 Wallet: %s\n", wallet.Hex())
	if url := utils.GlobalChainRegistry.AddressURL(chainID, wallet.Hex()); url != "" {
		fmt.Printf("🔗 %s\n", url)
	}
	fmt.Printf("📋 Code size: %d bytes (block %d)\n", len(inspection.Code.Code), inspection.Code.BlockNumber)

	if inspection.Code.IsEmpty() {
		fmt.Println("❌ No code at address, the wallet is not upgraded")
		return
	}
	if inspection.Delegated {
		fmt.Printf("✅ Delegated to: %s\n", inspection.Delegate.Hex())
	} else {
		fmt.Println("⚠️  Code is not a delegation designator")
	}

	f := inspection.Functional
	if f.ContractBalance != nil {
		fmt.Printf("💰 getBalance(): %s %s\n", utils.FormatEther(f.ContractBalance), symbol)
	}
	if f.NativeBalance != nil {
		fmt.Printf("💰 Native balance: %s %s\n", utils.FormatEther(f.NativeBalance), symbol)
	}
	if f.WalletNonce != nil {
		fmt.Printf("🔢 nonce(): %s\n", f.WalletNonce)
	}
	if f.Passed {
		fmt.Println("✅ Wallet responds like the implementation")
	} else {
		fmt.Printf("❌ Functional check failed: %s\n", f.Error)
	}
}
