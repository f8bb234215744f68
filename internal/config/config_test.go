package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvVars = []string{
	"NETWORK", "CHAIN_ID", "RPC_URL", "SEPOLIA_RPC_URL", "SEPOLIA_RPC_ENDPOINTS", "HOLESKY_RPC_URL",
	"DEPLOYER_PRIVATE_KEY", "SIMPLE_WALLET_ADDRESS", "FUNDING_AMOUNT_ETH", "DESIGNATOR",
	"UPGRADE_GAS_LIMIT", "CONFIRMATION_TIMEOUT", "EXECUTE_CHECK", "SMART_WALLET_ADDRESS",
	"UPGRADE_TX_HASH", "LOG_LEVEL", "LOG_FORMAT", "NATS_URL", "NATS_TIMEOUT", "PUSHGATEWAY_URL",
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, name := range configEnvVars {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearConfigEnv(t)
	path := writeConfig(t, "log:\n  level: debug\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sepolia", cfg.Network.Name)
	assert.Equal(t, uint64(11155111), cfg.Network.ChainID)
	assert.Equal(t, []string{DefaultRPCEndpoint}, cfg.Network.RPCEndpoints)
	assert.Equal(t, "0.01", cfg.Workflow.FundingAmountEth)
	assert.Equal(t, "self", cfg.Workflow.Designator)
	assert.Equal(t, uint64(120000), cfg.Workflow.GasLimit)
	assert.Equal(t, 3*time.Minute, cfg.Workflow.ConfirmationTimeoutDuration())
	assert.Equal(t, 2*time.Second, cfg.Workflow.PollIntervalDuration())
	require.NotNil(t, cfg.Workflow.ExecuteCheck)
	assert.True(t, *cfg.Workflow.ExecuteCheck)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "eoa.upgrade", cfg.NATS.SubjectPrefix)
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	path := writeConfig(t, `
network:
  name: holesky
  chainId: 17000
  rpcEndpoints:
    - https://holesky.example
workflow:
  implementationAddress: "0x1111111111111111111111111111111111111111"
  fundingAmountEth: "0.05"
  designator: relayer
`)
	t.Setenv("HOLESKY_RPC_URL", "https://override.example")
	t.Setenv("DEPLOYER_PRIVATE_KEY", "0xabc")
	t.Setenv("FUNDING_AMOUNT_ETH", "0.02")
	t.Setenv("CONFIRMATION_TIMEOUT", "30")
	t.Setenv("EXECUTE_CHECK", "false")
	t.Setenv("NATS_URL", "nats://localhost:4222")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "holesky", cfg.Network.Name)
	assert.Equal(t, uint64(17000), cfg.Network.ChainID)
	assert.Equal(t, []string{"https://override.example"}, cfg.Network.RPCEndpoints)
	assert.Equal(t, "0xabc", cfg.Deployer.PrivateKey)
	assert.Equal(t, "0.02", cfg.Workflow.FundingAmountEth)
	assert.Equal(t, "relayer", cfg.Workflow.Designator)
	assert.Equal(t, 30*time.Second, cfg.Workflow.ConfirmationTimeoutDuration())
	assert.False(t, *cfg.Workflow.ExecuteCheck)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
}

func TestLoad_RPCPrecedence(t *testing.T) {
	clearConfigEnv(t)
	path := writeConfig(t, "")
	t.Setenv("SEPOLIA_RPC_ENDPOINTS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Network.RPCEndpoints)

	t.Setenv("RPC_URL", "https://direct.example")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://direct.example"}, cfg.Network.RPCEndpoints)
}

func TestLoad_RegistryEndpointsForKnownNetwork(t *testing.T) {
	clearConfigEnv(t)
	path := writeConfig(t, "network:\n  name: holesky\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://ethereum-holesky-rpc.publicnode.com"}, cfg.Network.RPCEndpoints)

	path = writeConfig(t, "network:\n  name: devnet-42\n")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Network.RPCEndpoints)
	assert.ErrorIs(t, cfg.ValidateEndpoint(), ErrMissingConfig)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	clearConfigEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearConfigEnv(t)
	_, err := Load(writeConfig(t, "network: [unclosed"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearConfigEnv(t)
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingConfig)
	assert.Contains(t, err.Error(), "DEPLOYER_PRIVATE_KEY")
	assert.Contains(t, err.Error(), "SIMPLE_WALLET_ADDRESS")
	assert.NotContains(t, err.Error(), "RPC endpoint")

	cfg.Deployer.PrivateKey = "0x01"
	cfg.Workflow.ImplementationAddress = "0x1111111111111111111111111111111111111111"
	require.NoError(t, cfg.Validate())

	cfg.Workflow.Designator = "sponsor"
	assert.Error(t, cfg.Validate())

	cfg.Network.RPCEndpoints = nil
	assert.ErrorIs(t, cfg.ValidateEndpoint(), ErrMissingConfig)
}

func TestSimpleWalletABI(t *testing.T) {
	parsed, err := SimpleWalletABI()
	require.NoError(t, err)

	for _, name := range []string{FunctionExecute, FunctionGetBalance, FunctionNonce} {
		_, ok := parsed.Methods[name]
		assert.True(t, ok, name)
	}
	assert.Len(t, parsed.Methods[FunctionGetBalance].Outputs, 1)
}
