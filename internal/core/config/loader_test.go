package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/txguard/internal/core/domain"
	"github.com/vietddude/txguard/internal/escalation"
	"github.com/vietddude/txguard/internal/feeoracle"
)

func TestLoad_EnvSubstitution(t *testing.T) {
	t.Setenv("TEST_PRIVATE_KEY", "0xabc")
	t.Setenv("TEST_RPC_URL", "https://polygon-rpc.example")

	configContent := `
network:
  chain_id: 137
rpc:
  providers:
    - url: ${TEST_RPC_URL}
wallet:
  private_key: ${TEST_PRIVATE_KEY}
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configContent), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0xabc", cfg.Wallet.PrivateKey)
	require.Len(t, cfg.RPC.Providers, 1)
	assert.Equal(t, "https://polygon-rpc.example", cfg.RPC.Providers[0].URL)
	assert.Equal(t, "rpc-0", cfg.RPC.Providers[0].Name)
	assert.NoError(t, cfg.Validate())
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("network:\n  chain_id: 137\n"))
	require.NoError(t, err)

	assert.Equal(t, domain.ChainIDPolygon, cfg.Network.ChainID)
	assert.Equal(t, domain.DefaultDevChainIDs, cfg.Network.DevChainIDs)
	assert.Equal(t, 30*time.Second, cfg.RPC.Timeout)
	assert.Equal(t, 3, cfg.RPC.MaxAttempts)
	assert.Equal(t, escalation.DefaultFactor, cfg.Escalation.Factor)
	assert.Equal(t, 4*time.Second, cfg.Escalation.PollInterval)
	assert.Equal(t, uint64(50), cfg.Escalation.ReplacementScan)
	assert.Zero(t, cfg.Escalation.AutoInterval)
	assert.Zero(t, cfg.Escalation.MaxTransientRetries)
	assert.Equal(t, feeoracle.DefaultURL, cfg.FeeOracle.URL)
	assert.Equal(t, feeoracle.DefaultQuery, cfg.FeeOracle.Query)
	assert.Equal(t, feeoracle.DefaultTimeout, cfg.FeeOracle.Timeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Zero(t, cfg.Metrics.Port)
}

func TestParse_Durations(t *testing.T) {
	cfg, err := Parse([]byte(`
escalation:
  factor: "1.5"
  auto_interval: 45s
  max_transient_retries: 5
network:
  dev_chain_ids: [31337]
`))
	require.NoError(t, err)

	assert.Equal(t, "1.5", cfg.Escalation.Factor)
	assert.Equal(t, 45*time.Second, cfg.Escalation.AutoInterval)
	assert.Equal(t, 5, cfg.Escalation.MaxTransientRetries)
	assert.Equal(t, []domain.ChainID{31337}, cfg.Network.DevChainIDs)
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg, err := Parse([]byte(`
rpc:
  providers:
    - name: broken
escalation:
  factor: "0.9"
  max_transient_retries: -1
logging:
  level: verbose
`))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"network.chain_id",
		"rpc.providers[0].url",
		"escalation.factor",
		"escalation.max_transient_retries",
		"logging.level",
	} {
		assert.Contains(t, err.Error(), want)
	}
	assert.ErrorIs(t, err, escalation.ErrInvalidFactor)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
