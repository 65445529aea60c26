// Package feeoracle fetches suggested EIP-1559 fees from an external gas station.
package feeoracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"slices"
	"time"

	"github.com/itchyny/gojq"

	"github.com/vietddude/txguard/internal/core/domain"
	"github.com/vietddude/txguard/internal/metrics"
)

const (
	DefaultURL     = "https://gasstation.polygon.technology/v2"
	DefaultQuery   = ".fast"
	DefaultTimeout = 10 * time.Second
)

var (
	ErrUnexpectedStatus = errors.New("fee oracle: unexpected status")
	ErrMalformedTier    = errors.New("fee oracle: malformed fee tier")
)

// Fees are suggested fee values in wei.
type Fees struct {
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// Config holds oracle settings.
type Config struct {
	URL         string
	Query       string // gojq expression selecting the tier object, e.g. ".fast"
	Timeout     time.Duration
	ChainID     domain.ChainID
	DevChainIDs []domain.ChainID
}

// Oracle reads the gas station. It never calls out on dev networks.
type Oracle struct {
	url         string
	tier        *gojq.Code
	client      *http.Client
	chainID     domain.ChainID
	devChainIDs []domain.ChainID
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// New creates an Oracle. A nil client gets one with cfg.Timeout.
func New(cfg Config, client *http.Client, m *metrics.Metrics, logger *slog.Logger) (*Oracle, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Query == "" {
		cfg.Query = DefaultQuery
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.DevChainIDs == nil {
		cfg.DevChainIDs = domain.DefaultDevChainIDs
	}

	query, err := gojq.Parse(cfg.Query)
	if err != nil {
		return nil, fmt.Errorf("parse fee tier query %q: %w", cfg.Query, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("compile fee tier query %q: %w", cfg.Query, err)
	}

	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Oracle{
		url:         cfg.URL,
		tier:        code,
		client:      client,
		chainID:     cfg.ChainID,
		devChainIDs: cfg.DevChainIDs,
		metrics:     m,
		logger:      logger,
	}, nil
}

// IsDevNetwork reports whether fee suggestions are skipped for this chain.
func (o *Oracle) IsDevNetwork() bool {
	return slices.Contains(o.devChainIDs, o.chainID)
}

// CurrentFastFee returns the suggested fees, or nil on a dev network.
// Fetch and decode failures are returned as is; callers fall back to letting
// the signer choose.
func (o *Oracle) CurrentFastFee(ctx context.Context) (*Fees, error) {
	if o.IsDevNetwork() {
		o.metrics.RecordFeeOracleRequest("skipped")
		return nil, nil
	}

	fees, err := o.fetch(ctx)
	if err != nil {
		o.metrics.RecordFeeOracleRequest("error")
		o.logger.Warn("Error fetching gas station fees", "url", o.url, "error", err)
		return nil, err
	}

	o.metrics.RecordFeeOracleRequest("ok")
	return fees, nil
}

// FastPriorityIfMainNet returns the fast priority fee, or nil meaning
// "no override" on dev networks and on any oracle failure.
func (o *Oracle) FastPriorityIfMainNet(ctx context.Context) *big.Int {
	fees, err := o.CurrentFastFee(ctx)
	if err != nil || fees == nil {
		return nil
	}
	return fees.MaxPriorityFeePerGas
}

func (o *Oracle) fetch(ctx context.Context) (*Fees, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch fees: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, string(body))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode fees: %w", err)
	}

	return o.selectTier(ctx, doc)
}

func (o *Oracle) selectTier(ctx context.Context, doc any) (*Fees, error) {
	iter := o.tier.RunWithContext(ctx, doc)
	v, ok := iter.Next()
	if !ok {
		return nil, fmt.Errorf("%w: query produced no value", ErrMalformedTier)
	}
	if err, isErr := v.(error); isErr {
		return nil, fmt.Errorf("run fee tier query: %w", err)
	}

	tier, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected object, got %T", ErrMalformedTier, v)
	}

	maxFee, err := fieldToWei(tier, "maxFee")
	if err != nil {
		return nil, err
	}
	maxPriorityFee, err := fieldToWei(tier, "maxPriorityFee")
	if err != nil {
		return nil, err
	}

	return &Fees{MaxFeePerGas: maxFee, MaxPriorityFeePerGas: maxPriorityFee}, nil
}

func fieldToWei(tier map[string]any, key string) (*big.Int, error) {
	raw, ok := tier[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", ErrMalformedTier, key)
	}
	wei, err := GweiToWei(numberString(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformedTier, key, err)
	}
	return wei, nil
}
