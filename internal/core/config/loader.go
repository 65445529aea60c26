package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/txguard/internal/core/domain"
	"github.com/vietddude/txguard/internal/escalation"
	"github.com/vietddude/txguard/internal/feeoracle"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML after expanding environment variables and applies defaults.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Network.DevChainIDs == nil {
		c.Network.DevChainIDs = slices.Clone(domain.DefaultDevChainIDs)
	}
	if c.RPC.Timeout == 0 {
		c.RPC.Timeout = 30 * time.Second
	}
	if c.RPC.MaxAttempts == 0 {
		c.RPC.MaxAttempts = 3
	}
	for i := range c.RPC.Providers {
		if c.RPC.Providers[i].Name == "" {
			c.RPC.Providers[i].Name = fmt.Sprintf("rpc-%d", i)
		}
	}
	if c.Escalation.Factor == "" {
		c.Escalation.Factor = escalation.DefaultFactor
	}
	if c.Escalation.PollInterval == 0 {
		c.Escalation.PollInterval = 4 * time.Second
	}
	if c.Escalation.ReplacementScan == 0 {
		c.Escalation.ReplacementScan = 50
	}
	if c.FeeOracle.URL == "" {
		c.FeeOracle.URL = feeoracle.DefaultURL
	}
	if c.FeeOracle.Query == "" {
		c.FeeOracle.Query = feeoracle.DefaultQuery
	}
	if c.FeeOracle.Timeout == 0 {
		c.FeeOracle.Timeout = feeoracle.DefaultTimeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate reports every configuration problem at once.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Network.ChainID == 0 {
		errs = append(errs, errors.New("network.chain_id is required"))
	}
	if len(c.RPC.Providers) == 0 {
		errs = append(errs, errors.New("rpc.providers must list at least one endpoint"))
	}
	for i, p := range c.RPC.Providers {
		if p.URL == "" {
			errs = append(errs, fmt.Errorf("rpc.providers[%d].url is required", i))
		}
	}
	if c.RPC.MaxAttempts < 0 {
		errs = append(errs, errors.New("rpc.max_attempts must not be negative"))
	}
	if _, err := escalation.ParseFactor(c.Escalation.Factor); err != nil {
		errs = append(errs, fmt.Errorf("escalation.factor: %w", err))
	}
	if c.Escalation.MaxTransientRetries < 0 {
		errs = append(errs, errors.New("escalation.max_transient_retries must not be negative"))
	}
	if c.Escalation.AutoInterval < 0 {
		errs = append(errs, errors.New("escalation.auto_interval must not be negative"))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	return errors.Join(errs...)
}
