package config

import (
	"time"

	"github.com/vietddude/txguard/internal/core/domain"
	redisclient "github.com/vietddude/txguard/internal/infra/redis"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Network    NetworkConfig      `yaml:"network"`
	RPC        RPCConfig          `yaml:"rpc"`
	Wallet     WalletConfig       `yaml:"wallet"`
	Escalation EscalationConfig   `yaml:"escalation"`
	FeeOracle  FeeOracleConfig    `yaml:"fee_oracle"`
	Redis      redisclient.Config `yaml:"redis"`
	Logging    LoggingConfig      `yaml:"logging"`
	Metrics    MetricsConfig      `yaml:"metrics"`
}

// NetworkConfig selects the chain. Fee suggestions are skipped on dev chains.
type NetworkConfig struct {
	ChainID     domain.ChainID   `yaml:"chain_id"`
	DevChainIDs []domain.ChainID `yaml:"dev_chain_ids"`
}

// RPCConfig lists the redundant read endpoints, queried in random order.
type RPCConfig struct {
	Providers   []ProviderConfig `yaml:"providers"`
	Timeout     time.Duration    `yaml:"timeout"`
	MaxAttempts int              `yaml:"max_attempts"` // per provider, per read
}

// ProviderConfig holds settings for an RPC provider.
type ProviderConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type WalletConfig struct {
	PrivateKey string `yaml:"private_key"` // hex, usually ${TXGUARD_PRIVATE_KEY}
}

// EscalationConfig drives the gas escalation controller.
type EscalationConfig struct {
	Factor              string        `yaml:"factor"`
	AutoInterval        time.Duration `yaml:"auto_interval"`         // 0 = prompt on stdin
	MaxTransientRetries int           `yaml:"max_transient_retries"` // 0 = unlimited
	PollInterval        time.Duration `yaml:"poll_interval"`
	ReplacementScan     uint64        `yaml:"replacement_scan_blocks"`
}

type FeeOracleConfig struct {
	URL     string        `yaml:"url"`
	Query   string        `yaml:"query"`
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// MetricsConfig enables the metrics server when Port is set.
type MetricsConfig struct {
	Port int `yaml:"port"`
}
