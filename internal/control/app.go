// Package control wires configuration into the running components.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/txguard/internal/core/config"
	"github.com/vietddude/txguard/internal/core/domain"
	"github.com/vietddude/txguard/internal/errclass"
	"github.com/vietddude/txguard/internal/escalation"
	"github.com/vietddude/txguard/internal/feeoracle"
	"github.com/vietddude/txguard/internal/infra/chain/evm"
	redisclient "github.com/vietddude/txguard/internal/infra/redis"
	"github.com/vietddude/txguard/internal/infra/rpc"
	"github.com/vietddude/txguard/internal/infra/storage/memory"
	"github.com/vietddude/txguard/internal/metrics"
)

var (
	ErrNoWallet      = errors.New("wallet.private_key is not configured")
	ErrChainMismatch = errors.New("RPC endpoint serves a different chain")
)

// Journal records replacement chains and reads them back.
type Journal interface {
	escalation.Journal
	Members(ctx context.Context, chainID domain.ChainID, from common.Address, nonce uint64) ([]*domain.PendingTransaction, error)
}

// App owns every long-lived component of a txguard process.
type App struct {
	cfg           *config.AppConfig
	providers     []*rpc.HTTPProvider
	reader        *evm.Reader
	waiter        *evm.Waiter
	oracle        *feeoracle.Oracle
	journal       Journal
	redisClient   *redisclient.Client
	metrics       *metrics.Metrics
	metricsServer *metrics.Server
	log           *slog.Logger
}

// NewApp builds the components described by cfg. It performs no chain
// reads; Redis is contacted only when configured.
func NewApp(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	// 1. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry)

	var metricsServer *metrics.Server
	if cfg.Metrics.Port != 0 {
		metricsServer = metrics.NewServer(cfg.Metrics.Port, registry)
	}

	// 2. Redundant RPC reads
	retry := rpc.DefaultRetryConfig
	retry.MaxAttempts = cfg.RPC.MaxAttempts

	providers := make([]*rpc.HTTPProvider, 0, len(cfg.RPC.Providers))
	clients := make([]*evm.Client, 0, len(cfg.RPC.Providers))
	for _, p := range cfg.RPC.Providers {
		provider := rpc.NewHTTPProvider(p.Name, p.URL, cfg.RPC.Timeout)
		providers = append(providers, provider)
		clients = append(clients, evm.NewClient(provider, retry))
	}
	reader := evm.NewReader(clients, m)

	waiter := evm.NewWaiter(reader, evm.WaiterConfig{
		PollInterval: cfg.Escalation.PollInterval,
		ScanBlocks:   cfg.Escalation.ReplacementScan,
	}, logger)

	// 3. Fee oracle
	oracle, err := feeoracle.New(feeoracle.Config{
		URL:         cfg.FeeOracle.URL,
		Query:       cfg.FeeOracle.Query,
		Timeout:     cfg.FeeOracle.Timeout,
		ChainID:     cfg.Network.ChainID,
		DevChainIDs: cfg.Network.DevChainIDs,
	}, &http.Client{Timeout: cfg.FeeOracle.Timeout}, m, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init fee oracle: %w", err)
	}

	// 4. Journal
	var (
		journal     Journal
		redisClient *redisclient.Client
	)
	if cfg.Redis.URL != "" {
		redisClient, err = redisclient.NewClient(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("Failed to connect to Redis, using memory journal", "error", err)
		} else {
			journal = redisclient.NewJournal(redisClient, cfg.Redis.TTL)
			logger.Debug("Using Redis journal")
		}
	}
	if journal == nil {
		journal = memory.NewJournal()
	}

	return &App{
		cfg:           cfg,
		providers:     providers,
		reader:        reader,
		waiter:        waiter,
		oracle:        oracle,
		journal:       journal,
		redisClient:   redisClient,
		metrics:       m,
		metricsServer: metricsServer,
		log:           logger,
	}, nil
}

func (a *App) Reader() *evm.Reader       { return a.reader }
func (a *App) Oracle() *feeoracle.Oracle { return a.oracle }
func (a *App) Journal() Journal          { return a.journal }
func (a *App) Metrics() *metrics.Metrics { return a.metrics }
func (a *App) ChainID() domain.ChainID   { return a.cfg.Network.ChainID }
func (a *App) Config() *config.AppConfig { return a.cfg }
func (a *App) Waiter() *evm.Waiter       { return a.waiter }
func (a *App) Logger() *slog.Logger      { return a.log }

// VerifyChain checks that the endpoints serve the configured chain.
func (a *App) VerifyChain(ctx context.Context) error {
	got, err := a.reader.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("read chain id: %w", err)
	}
	if got != a.cfg.Network.ChainID {
		return fmt.Errorf("%w: configured %d, endpoint reports %d", ErrChainMismatch, a.cfg.Network.ChainID, got)
	}
	return nil
}

// Wallet loads the signing key.
func (a *App) Wallet() (*evm.Wallet, error) {
	if a.cfg.Wallet.PrivateKey == "" {
		return nil, ErrNoWallet
	}
	factor, err := escalation.ParseFactor(a.cfg.Escalation.Factor)
	if err != nil {
		return nil, err
	}
	return evm.NewWallet(evm.WalletConfig{
		PrivateKey: a.cfg.Wallet.PrivateKey,
		ChainID:    a.cfg.Network.ChainID,
		Factor:     factor,
	}, a.reader, a.log)
}

// Controller builds an escalation controller signing with wallet. A nil
// accelerator never requests a speed-up.
func (a *App) Controller(wallet *evm.Wallet, accelerator escalation.Accelerator) (*escalation.Controller, error) {
	factor, err := escalation.ParseFactor(a.cfg.Escalation.Factor)
	if err != nil {
		return nil, err
	}
	opts := []escalation.Option{
		escalation.WithFactor(factor),
		escalation.WithJournal(a.journal),
		escalation.WithMaxTransientRetries(a.cfg.Escalation.MaxTransientRetries),
		escalation.WithMetrics(a.metrics),
		escalation.WithLogger(a.log),
	}
	if accelerator != nil {
		opts = append(opts, escalation.WithAccelerator(accelerator))
	}
	return escalation.NewController(wallet, a.waiter, opts...), nil
}

// Advisor classifies failures; balance reads go through wallet when set.
func (a *App) Advisor(wallet *evm.Wallet) *errclass.Advisor {
	var balance errclass.BalanceFunc
	if wallet != nil {
		balance = wallet.Balance
	}
	return errclass.NewAdvisor(balance, a.metrics, a.log)
}

// Run executes fn next to the metrics server and stops the server when fn
// returns.
func (a *App) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	if a.metricsServer != nil {
		g.Go(a.metricsServer.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return a.metricsServer.Stop(shutdownCtx)
		})
		a.log.Info("Metrics server started", "port", a.cfg.Metrics.Port)
	}
	g.Go(func() error {
		defer cancel()
		return fn(gctx)
	})
	return g.Wait()
}

// ProviderHealth reports the health of every RPC endpoint.
func (a *App) ProviderHealth() map[string]rpc.HealthStatus {
	health := make(map[string]rpc.HealthStatus, len(a.providers))
	for _, p := range a.providers {
		health[p.Name()] = p.Health()
	}
	return health
}

// Close releases connections.
func (a *App) Close() error {
	var errs []error
	for _, p := range a.providers {
		errs = append(errs, p.Close())
	}
	if a.redisClient != nil {
		errs = append(errs, a.redisClient.Close())
	}
	return errors.Join(errs...)
}
