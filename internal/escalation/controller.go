// Package escalation drives one logical transaction to a terminal outcome,
// replacing it with higher-fee copies whenever acceleration is requested.
//
// A run owns a replacement chain: every member shares the sender and nonce
// of the initial transaction and only differs in fees. All members are
// awaited concurrently; the first receipt or fatal error ends the run.
package escalation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/vietddude/txguard/internal/core/domain"
	"github.com/vietddude/txguard/internal/metrics"
)

var (
	ErrNilTransaction = errors.New("escalation: nil transaction")
	ErrBrokenChain    = errors.New("escalation: replacement does not share sender and nonce")
)

// Signer resubmits a pending transaction with the same nonce and new fees.
type Signer interface {
	Resubmit(ctx context.Context, prev *domain.PendingTransaction, fees domain.FeeOverride) (*domain.PendingTransaction, error)
}

// Provider waits for a transaction to be mined. When the transaction is
// superseded it returns a *domain.TxError with code TRANSACTION_REPLACED
// and the replacement attached.
type Provider interface {
	WaitForTransaction(ctx context.Context, hash common.Hash) (*domain.Receipt, error)
}

// Accelerator blocks until acceleration of tx is requested (nil) or the
// prompt can no longer fire (error).
type Accelerator interface {
	Await(ctx context.Context, tx *domain.PendingTransaction) error
}

// Journal records chain members. Failures never change a run's outcome.
type Journal interface {
	Record(ctx context.Context, member *domain.PendingTransaction) error
}

// Controller is safe for concurrent use; each KeepEscalating call is an
// independent run.
type Controller struct {
	signer              Signer
	provider            Provider
	accelerator         Accelerator
	journal             Journal
	factor              *big.Rat
	maxTransientRetries int
	metrics             *metrics.Metrics
	log                 *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

func WithFactor(factor *big.Rat) Option {
	return func(c *Controller) { c.factor = factor }
}

func WithAccelerator(a Accelerator) Option {
	return func(c *Controller) { c.accelerator = a }
}

func WithJournal(j Journal) Option {
	return func(c *Controller) { c.journal = j }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithMaxTransientRetries caps immediate retries of an underpriced
// replacement. 0 means unlimited.
func WithMaxTransientRetries(n int) Option {
	return func(c *Controller) { c.maxTransientRetries = n }
}

// NewController creates a Controller that never accelerates unless an
// Accelerator is supplied.
func NewController(signer Signer, provider Provider, opts ...Option) *Controller {
	c := &Controller{
		signer:      signer,
		provider:    provider,
		accelerator: NoAccelerator{},
		factor:      mustParseFactor(DefaultFactor),
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "escalation")
	return c
}

type outcome struct {
	receipt *domain.Receipt
	err     error
}

// run is the state of one KeepEscalating call.
type run struct {
	c   *Controller
	ctx context.Context
	log *slog.Logger

	// mu guards done. A Resubmit in flight when done is set is cancelled
	// through ctx and its result dropped.
	mu   sync.Mutex
	done bool

	outcomes chan outcome
	wg       sync.WaitGroup
}

// KeepEscalating waits for initial to be mined and replaces it with a
// higher-fee copy each time the accelerator fires. It returns the receipt
// of whichever chain member was mined, or the first fatal error. Every
// goroutine it started has exited when it returns.
func (c *Controller) KeepEscalating(ctx context.Context, initial *domain.PendingTransaction) (*domain.Receipt, error) {
	if initial == nil {
		return nil, ErrNilTransaction
	}

	start := time.Now()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := &run{
		c:   c,
		ctx: runCtx,
		log: c.log.With(
			"run_id", uuid.NewString(),
			"from", initial.From.Hex(),
			"nonce", initial.Nonce,
		),
		outcomes: make(chan outcome, 1),
	}

	r.log.Info("Waiting for transaction", "tx_hash", initial.Hash.Hex(), "fee_model", initial.FeeModel())
	r.record(initial)
	r.wait(initial)
	r.escalate(initial)

	var res outcome
	select {
	case res = <-r.outcomes:
	case <-ctx.Done():
		res = outcome{err: ctx.Err()}
	}

	cancel()
	r.mu.Lock()
	r.done = true
	r.mu.Unlock()
	r.wg.Wait()

	c.finish(r.log, res, time.Since(start))
	return res.receipt, res.err
}

func (c *Controller) finish(log *slog.Logger, res outcome, elapsed time.Duration) {
	switch {
	case errors.Is(res.err, context.Canceled), errors.Is(res.err, context.DeadlineExceeded):
		c.metrics.RecordOutcome("cancelled", elapsed)
		log.Warn("Escalation stopped before an outcome", "error", res.err)
	case res.err != nil:
		c.metrics.RecordOutcome("failed", elapsed)
		log.Error("Escalation failed", "error", res.err)
	case res.receipt.Succeeded():
		c.metrics.RecordOutcome("confirmed", elapsed)
		log.Info("Transaction mined", "tx_hash", res.receipt.TxHash.Hex(), "block", res.receipt.BlockNumber, "elapsed", elapsed)
	default:
		c.metrics.RecordOutcome("reverted", elapsed)
		log.Warn("Transaction reverted", "tx_hash", res.receipt.TxHash.Hex(), "block", res.receipt.BlockNumber)
	}
}

// finished reports whether an outcome was delivered or the run was cancelled.
func (r *run) finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done || r.ctx.Err() != nil
}

// deliver hands the first outcome to KeepEscalating. Later ones are dropped.
func (r *run) deliver(o outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return
	}
	r.done = true
	r.outcomes <- o
}

func (r *run) record(member *domain.PendingTransaction) {
	if r.c.journal == nil {
		return
	}
	if err := r.c.journal.Record(r.ctx, member); err != nil {
		r.log.Warn("Failed to record chain member", "tx_hash", member.Hash.Hex(), "error", err)
	}
}

// wait awaits one chain member. A replacement notice switches to the
// replacement's hash, whose result is terminal either way.
func (r *run) wait(tx *domain.PendingTransaction) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		receipt, err := r.c.provider.WaitForTransaction(r.ctx, tx.Hash)
		if err != nil && r.ctx.Err() != nil {
			return
		}
		if notice, ok := replacementOf(err); ok {
			r.log.Info("Transaction superseded, waiting for replacement",
				"tx_hash", tx.Hash.Hex(),
				"replacement", notice.Hash.Hex(),
				"reason", notice.Reason,
			)
			receipt, err = r.c.provider.WaitForTransaction(r.ctx, notice.Hash)
			if err != nil && r.ctx.Err() != nil {
				return
			}
		}

		r.deliver(outcome{receipt: receipt, err: err})
	}()
}

// escalate runs the acceleration loop until the run ends, the prompt
// closes, or the nonce turns out to be used.
func (r *run) escalate(initial *domain.PendingTransaction) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		current := initial
		for {
			if err := r.c.accelerator.Await(r.ctx, current); err != nil {
				if r.ctx.Err() == nil {
					r.c.metrics.RecordPrompt("closed")
					r.log.Debug("Acceleration prompt closed", "error", err)
				}
				return
			}
			r.c.metrics.RecordPrompt("accepted")

			next, err := r.replace(current)
			if err != nil {
				r.deliver(outcome{err: err})
				return
			}
			if next == nil {
				return
			}

			r.record(next)
			r.wait(next)
			current = next
		}
	}()
}

// replace submits the next chain member. A nil member with a nil error means
// escalation is over while the pending waits continue.
func (r *run) replace(prev *domain.PendingTransaction) (*domain.PendingTransaction, error) {
	fees, err := bumpFees(prev, r.c.factor)
	if err != nil {
		return nil, err
	}

	retries := 0
	for {
		if r.finished() {
			return nil, nil
		}
		next, err := r.c.signer.Resubmit(r.ctx, prev, fees)
		if r.finished() {
			if err == nil && next != nil {
				r.log.Warn("Replacement submitted after the chain ended", "tx_hash", next.Hash.Hex())
			}
			return nil, nil
		}

		switch {
		case err == nil && !prev.SameLogical(next):
			r.c.metrics.RecordReplacement("failed")
			return nil, fmt.Errorf("%w: %s nonce %d replaced by %s nonce %d",
				ErrBrokenChain, prev.From.Hex(), prev.Nonce, next.From.Hex(), next.Nonce)

		case err == nil:
			r.c.metrics.RecordReplacement("submitted")
			r.log.Info("Submitted replacement",
				"tx_hash", next.Hash.Hex(),
				"replaces", prev.Hash.Hex(),
				"max_priority_fee_per_gas", next.MaxPriorityFeePerGas,
				"max_fee_per_gas", next.MaxFeePerGas,
				"gas_price", next.GasPrice,
			)
			return next, nil

		case isNonceUsed(err):
			r.c.metrics.RecordReplacement("nonce_used")
			r.log.Info("Nonce already used, no further replacements", "tx_hash", prev.Hash.Hex())
			return nil, nil

		case isUnderpriced(err):
			retries++
			r.c.metrics.RecordReplacement("transient")
			r.c.metrics.RecordTransientRetry()
			if r.c.maxTransientRetries > 0 && retries > r.c.maxTransientRetries {
				return nil, errors.Join(ErrTransientRetriesExhausted, err)
			}
			r.log.Debug("Replacement underpriced, retrying", "tx_hash", prev.Hash.Hex(), "attempt", retries, "error", err)

		default:
			r.c.metrics.RecordReplacement("failed")
			return nil, err
		}
	}
}
