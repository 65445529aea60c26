package evm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/txguard/internal/core/domain"
)

// ErrReplacementNotFound is returned when a transaction's nonce was consumed
// but no same-nonce transaction appears in the scanned blocks.
var ErrReplacementNotFound = errors.New("nonce consumed by an unseen transaction")

// WaiterConfig holds polling settings.
type WaiterConfig struct {
	PollInterval time.Duration // default: 4s
	ScanBlocks   uint64        // blocks searched for a replacement (default: 50)
}

// DefaultWaiterConfig returns default waiter configuration.
func DefaultWaiterConfig() WaiterConfig {
	return WaiterConfig{
		PollInterval: 4 * time.Second,
		ScanBlocks:   50,
	}
}

// Waiter polls for receipts and detects same-nonce replacements.
type Waiter struct {
	reader *Reader
	cfg    WaiterConfig
	log    *slog.Logger
}

func NewWaiter(reader *Reader, cfg WaiterConfig, logger *slog.Logger) *Waiter {
	def := DefaultWaiterConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.ScanBlocks == 0 {
		cfg.ScanBlocks = def.ScanBlocks
	}
	return &Waiter{
		reader: reader,
		cfg:    cfg,
		log:    logger.With("component", "waiter"),
	}
}

// WaitForTransaction blocks until hash is mined and returns its receipt.
// When another transaction from the same sender took the nonce, it returns
// a TRANSACTION_REPLACED *domain.TxError naming that transaction.
func (w *Waiter) WaitForTransaction(ctx context.Context, hash common.Hash) (*domain.Receipt, error) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	var tx *rpcTransaction
	for {
		receipt, err := w.reader.Receipt(ctx, hash)
		switch {
		case err == nil:
			return receipt, nil
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case !isNotFound(err):
			w.log.Warn("Receipt lookup failed", "tx_hash", hash.Hex(), "error", err)
		}

		if tx == nil {
			tx, err = w.reader.Transaction(ctx, hash)
			if err != nil {
				tx = nil
				if !isNotFound(err) && ctx.Err() == nil {
					w.log.Debug("Transaction lookup failed", "tx_hash", hash.Hex(), "error", err)
				}
			}
		}

		if tx != nil {
			receipt, err := w.checkNonce(ctx, tx)
			if receipt != nil || err != nil {
				return receipt, err
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// checkNonce returns (nil, nil) while tx's nonce is still open. Once the
// nonce is consumed it returns tx's own receipt or a replacement notice.
func (w *Waiter) checkNonce(ctx context.Context, tx *rpcTransaction) (*domain.Receipt, error) {
	mined, err := w.reader.Nonce(ctx, tx.From, false)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Debug("Nonce lookup failed", "from", tx.From.Hex(), "error", err)
		}
		return nil, nil
	}
	if mined <= uint64(tx.Nonce) {
		return nil, nil
	}

	// The nonce moved between the receipt and nonce reads.
	if receipt, err := w.reader.Receipt(ctx, tx.Hash); err == nil {
		return receipt, nil
	}

	replacement, err := w.findReplacement(ctx, tx)
	if err != nil {
		return nil, err
	}
	reason := replacementReason(tx, replacement)
	w.log.Info("Transaction replaced",
		"tx_hash", tx.Hash.Hex(),
		"replacement", replacement.Hash.Hex(),
		"reason", reason,
	)
	return nil, domain.NewReplacedError(replacement.Hash, reason)
}

// findReplacement scans the most recent blocks for another transaction with
// tx's sender and nonce.
// scanBatchSize is the number of blocks fetched per batch request.
const scanBatchSize = 10

func matchReplacement(block *rpcBlock, tx *rpcTransaction) *rpcTransaction {
	for i := range block.Transactions {
		candidate := &block.Transactions[i]
		if candidate.From == tx.From && candidate.Nonce == tx.Nonce && candidate.Hash != tx.Hash {
			return candidate
		}
	}
	return nil
}

func (w *Waiter) findReplacement(ctx context.Context, tx *rpcTransaction) (*rpcTransaction, error) {
	head, err := w.reader.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("read head: %w", err)
	}
	from := uint64(0)
	if head > w.cfg.ScanBlocks {
		from = head - w.cfg.ScanBlocks
	}

	found := make([]*rpcTransaction, head-from+1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(3) // Max 3 concurrent batches
	for lo := from; lo <= head; lo += scanBatchSize {
		hi := min(lo+scanBatchSize-1, head)
		numbers := make([]uint64, 0, hi-lo+1)
		for n := lo; n <= hi; n++ {
			numbers = append(numbers, n)
		}
		g.Go(func() error {
			blocks, err := w.reader.Blocks(gctx, numbers)
			if err != nil {
				return fmt.Errorf("scan blocks %d-%d: %w", lo, hi, err)
			}
			for i, block := range blocks {
				found[numbers[i]-from] = matchReplacement(block, tx)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, candidate := range found {
		if candidate != nil {
			return candidate, nil
		}
	}
	return nil, fmt.Errorf("%w: %s nonce %d, searched blocks %d-%d",
		ErrReplacementNotFound, tx.From.Hex(), tx.Nonce, from, head)
}

// replacementReason compares the replacement with the original: same call
// is a reprice, a zero-value self transfer is a cancellation.
func replacementReason(orig, repl *rpcTransaction) domain.ReplacementReason {
	if sameAddress(orig.To, repl.To) && valueOf(orig).Cmp(valueOf(repl)) == 0 && bytes.Equal(orig.Input, repl.Input) {
		return domain.ReasonRepriced
	}
	if repl.To != nil && *repl.To == repl.From && valueOf(repl).Sign() == 0 && len(repl.Input) == 0 {
		return domain.ReasonCancelled
	}
	return domain.ReasonReplaced
}

func valueOf(tx *rpcTransaction) *big.Int {
	if tx.Value == nil {
		return new(big.Int)
	}
	return tx.Value.ToInt()
}

func sameAddress(a, b *common.Address) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
