package cli

import (
	"bytes"
	"context"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEther(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"1", "1000000000000000000"},
		{"0.01", "10000000000000000"},
		{"1.000000000000000001", "1000000000000000001"},
	}
	for _, tt := range tests {
		got, err := parseEther(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got.String(), tt.in)
	}

	for _, bad := range []string{"", "abc", "-1", "0.0000000000000000001"} {
		_, err := parseEther(bad)
		assert.ErrorIs(t, err, errInvalidAmount, bad)
	}
}

func TestFormatAmounts(t *testing.T) {
	assert.Equal(t, "0.010000000000000000", formatEther(big.NewInt(10_000_000_000_000_000)))
	assert.Equal(t, "40.123456789", gwei(big.NewInt(40_123_456_789)))
	assert.Equal(t, "-", orDash(nil))
	assert.Equal(t, "7", orDash(big.NewInt(7)))
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, logLevel("warn"))
	assert.Equal(t, slog.LevelInfo, logLevel("bogus"))

	isDebug = true
	defer func() { isDebug = false }()
	assert.Equal(t, slog.LevelDebug, logLevel("error"))
}

func TestSendRequest(t *testing.T) {
	defer func() { sendTo, sendValue, sendData = "", "0", "" }()

	sendTo, sendValue, sendData = "not-an-address", "1", ""
	_, err := sendRequest()
	assert.Error(t, err)

	sendTo, sendValue, sendData = "0x00000000000000000000000000000000000000bb", "0.5", "0xabcd"
	req, err := sendRequest()
	require.NoError(t, err)
	assert.Equal(t, "500000000000000000", req.Value.String())
	assert.Equal(t, []byte{0xab, 0xcd}, req.Data)

	sendData = "zz"
	_, err = sendRequest()
	assert.Error(t, err)
}

func execute(t *testing.T, configContent string, args ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configContent), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--config", path))
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	return out.String()
}

const devConfig = `
network:
  chain_id: 80002
rpc:
  providers:
    - url: http://127.0.0.1:1
`

func TestFeesCommand_DevNetwork(t *testing.T) {
	out := execute(t, devConfig, "fees")
	assert.Contains(t, out, "POLYGON_AMOY is a dev network")
}

func TestHistoryCommand_Empty(t *testing.T) {
	from := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	out := execute(t, devConfig, "history", from.Hex(), "3")
	assert.Contains(t, out, "No submissions recorded for "+from.Hex()+" nonce 3")
}
