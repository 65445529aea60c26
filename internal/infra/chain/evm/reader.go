package evm

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/txguard/internal/core/domain"
	"github.com/vietddude/txguard/internal/infra/rpc"
	"github.com/vietddude/txguard/internal/metrics"
	"github.com/vietddude/txguard/internal/redundancy"
)

// Reader spreads each read over every binding and accepts the first answer.
type Reader struct {
	bindings []*Client
	opts     []redundancy.Option
}

// NewReader creates a Reader. Extra options are applied to every read.
func NewReader(bindings []*Client, m *metrics.Metrics, opts ...redundancy.Option) *Reader {
	return &Reader{
		bindings: bindings,
		opts:     append([]redundancy.Option{redundancy.WithMetrics(m)}, opts...),
	}
}

// Bindings returns the underlying clients.
func (r *Reader) Bindings() []*Client {
	return r.bindings
}

// available returns the bindings whose provider reports itself usable, or
// all of them when none does.
func (r *Reader) available() []*Client {
	healthy := make([]*Client, 0, len(r.bindings))
	for _, c := range r.bindings {
		if c.IsAvailable() {
			healthy = append(healthy, c)
		}
	}
	if len(healthy) == 0 {
		return r.bindings
	}
	return healthy
}

func query[T any](ctx context.Context, r *Reader, call func(context.Context, *Client) (T, error)) (T, error) {
	return redundancy.QueryAllReadonlyContracts(ctx, call, r.available(), r.opts...)
}

func (r *Reader) ChainID(ctx context.Context) (domain.ChainID, error) {
	return query(ctx, r, func(ctx context.Context, c *Client) (domain.ChainID, error) {
		return c.ChainID(ctx)
	})
}

func (r *Reader) BlockNumber(ctx context.Context) (uint64, error) {
	return query(ctx, r, func(ctx context.Context, c *Client) (uint64, error) {
		return c.BlockNumber(ctx)
	})
}

func (r *Reader) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	return query(ctx, r, func(ctx context.Context, c *Client) (*big.Int, error) {
		return c.Balance(ctx, addr)
	})
}

func (r *Reader) Nonce(ctx context.Context, addr common.Address, pending bool) (uint64, error) {
	return query(ctx, r, func(ctx context.Context, c *Client) (uint64, error) {
		return c.Nonce(ctx, addr, pending)
	})
}

func (r *Reader) GasPrice(ctx context.Context) (*big.Int, error) {
	return query(ctx, r, func(ctx context.Context, c *Client) (*big.Int, error) {
		return c.GasPrice(ctx)
	})
}

func (r *Reader) SuggestTip(ctx context.Context) (*big.Int, error) {
	return query(ctx, r, func(ctx context.Context, c *Client) (*big.Int, error) {
		return c.SuggestTip(ctx)
	})
}

func (r *Reader) BaseFee(ctx context.Context) (*big.Int, error) {
	return query(ctx, r, func(ctx context.Context, c *Client) (*big.Int, error) {
		return c.BaseFee(ctx)
	})
}

func (r *Reader) Blocks(ctx context.Context, numbers []uint64) ([]*rpcBlock, error) {
	return query(ctx, r, func(ctx context.Context, c *Client) ([]*rpcBlock, error) {
		return c.Blocks(ctx, numbers)
	})
}

func (r *Reader) Transaction(ctx context.Context, hash common.Hash) (*rpcTransaction, error) {
	return query(ctx, r, func(ctx context.Context, c *Client) (*rpcTransaction, error) {
		return c.Transaction(ctx, hash)
	})
}

// Receipt asks each binding in turn; a node that has not seen the receipt
// yet counts as a failed attempt, so a lagging node cannot hide it.
func (r *Reader) Receipt(ctx context.Context, hash common.Hash) (*domain.Receipt, error) {
	return query(ctx, r, func(ctx context.Context, c *Client) (*domain.Receipt, error) {
		return c.Receipt(ctx, hash)
	})
}

// EstimateGas returns the first estimate. Node rejections are deterministic,
// so the first error is as good as any.
func (r *Reader) EstimateGas(ctx context.Context, msg callMsg) (uint64, error) {
	return query(ctx, r, func(ctx context.Context, c *Client) (uint64, error) {
		return c.EstimateGas(ctx, msg)
	})
}

// Broadcast sends the raw transaction through the bindings until one
// accepts it. "already known" means an earlier attempt got through. When
// every binding fails, a node's rejection is reported over transport
// errors, since only the rejection says what is wrong with the transaction.
func (r *Reader) Broadcast(ctx context.Context, raw []byte, hash common.Hash) (common.Hash, error) {
	var rejection error
	got, err := query(ctx, r, func(ctx context.Context, c *Client) (common.Hash, error) {
		got, err := c.SendRawTransaction(ctx, raw)
		if err != nil && isAlreadyKnown(err) {
			return hash, nil
		}
		var rpcErr *rpc.RPCError
		if rejection == nil && errors.As(err, &rpcErr) {
			rejection = err
		}
		return got, err
	})
	if err != nil && rejection != nil && ctx.Err() == nil {
		return got, rejection
	}
	return got, err
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
