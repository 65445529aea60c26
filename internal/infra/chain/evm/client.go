// Package evm adapts EVM JSON-RPC nodes to the transaction engine: redundant
// reads, signing and resubmission, receipt waiting and error normalization.
package evm

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/vietddude/txguard/internal/core/domain"
	"github.com/vietddude/txguard/internal/infra/rpc"
)

// Client is one read-only binding over a single node. Reads are retried
// with backoff on transient transport errors.
type Client struct {
	provider rpc.Provider
	retry    rpc.RetryConfig
}

// NewClient creates a Client over p.
func NewClient(p rpc.Provider, retry rpc.RetryConfig) *Client {
	return &Client{provider: p, retry: retry}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.provider.Name()
}

// IsAvailable reports whether the provider is healthy enough to ask.
func (c *Client) IsAvailable() bool {
	return c.provider.IsAvailable()
}

func (c *Client) read(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	raw, err := rpc.CallWithRetry(ctx, c.provider, method, params, c.retry)
	if err != nil {
		return nil, fmt.Errorf("%s via %s: %w", method, c.provider.Name(), err)
	}
	return raw, nil
}

func (c *Client) readUint(ctx context.Context, method string, params ...any) (uint64, error) {
	raw, err := c.read(ctx, method, params...)
	if err != nil {
		return 0, err
	}
	v, err := decode[hexutil.Uint64](raw)
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", method, err)
	}
	return uint64(v), nil
}

func (c *Client) readBig(ctx context.Context, method string, params ...any) (*big.Int, error) {
	raw, err := c.read(ctx, method, params...)
	if err != nil {
		return nil, err
	}
	v, err := decode[hexutil.Big](raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", method, err)
	}
	return v.ToInt(), nil
}

func (c *Client) ChainID(ctx context.Context) (domain.ChainID, error) {
	id, err := c.readUint(ctx, "eth_chainId")
	return domain.ChainID(id), err
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.readUint(ctx, "eth_blockNumber")
}

func (c *Client) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	return c.readBig(ctx, "eth_getBalance", addr, "latest")
}

// Nonce returns the mined nonce, or the pending one when pending is set.
func (c *Client) Nonce(ctx context.Context, addr common.Address, pending bool) (uint64, error) {
	tag := "latest"
	if pending {
		tag = "pending"
	}
	return c.readUint(ctx, "eth_getTransactionCount", addr, tag)
}

func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	return c.readBig(ctx, "eth_gasPrice")
}

func (c *Client) SuggestTip(ctx context.Context) (*big.Int, error) {
	return c.readBig(ctx, "eth_maxPriorityFeePerGas")
}

// BaseFee returns the latest block's base fee, or nil before London.
func (c *Client) BaseFee(ctx context.Context) (*big.Int, error) {
	raw, err := c.read(ctx, "eth_getBlockByNumber", "latest", false)
	if err != nil {
		return nil, err
	}
	h, err := decode[rpcHeader](raw)
	if err != nil {
		return nil, fmt.Errorf("decode latest block: %w", err)
	}
	return toBig(h.BaseFee), nil
}

// Blocks fetches several blocks with full transactions in one batch request.
// Any missing or failed block fails the whole batch.
func (c *Client) Blocks(ctx context.Context, numbers []uint64) ([]*rpcBlock, error) {
	reqs := make([]rpc.BatchRequest, len(numbers))
	for i, n := range numbers {
		reqs[i] = rpc.BatchRequest{Method: "eth_getBlockByNumber", Params: []any{blockTag(n), true}}
	}
	resps, err := c.provider.BatchCall(ctx, reqs)
	if err != nil {
		return nil, fmt.Errorf("eth_getBlockByNumber batch via %s: %w", c.provider.Name(), err)
	}
	if len(resps) != len(numbers) {
		return nil, fmt.Errorf("eth_getBlockByNumber batch via %s: %d responses for %d blocks",
			c.provider.Name(), len(resps), len(numbers))
	}

	blocks := make([]*rpcBlock, len(numbers))
	for i, resp := range resps {
		if resp.Error != nil {
			return nil, fmt.Errorf("block %d via %s: %w", numbers[i], c.provider.Name(), resp.Error)
		}
		b, err := decode[rpcBlock](resp.Result)
		if err != nil {
			return nil, fmt.Errorf("decode block %d: %w", numbers[i], err)
		}
		blocks[i] = &b
	}
	return blocks, nil
}

func (c *Client) Transaction(ctx context.Context, hash common.Hash) (*rpcTransaction, error) {
	raw, err := c.read(ctx, "eth_getTransactionByHash", hash)
	if err != nil {
		return nil, err
	}
	tx, err := decode[rpcTransaction](raw)
	if err != nil {
		return nil, fmt.Errorf("decode transaction %s: %w", hash.Hex(), err)
	}
	return &tx, nil
}

// Receipt returns the receipt, or ErrNotFound while the transaction is pending.
func (c *Client) Receipt(ctx context.Context, hash common.Hash) (*domain.Receipt, error) {
	raw, err := c.read(ctx, "eth_getTransactionReceipt", hash)
	if err != nil {
		return nil, err
	}
	r, err := decode[rpcReceipt](raw)
	if err != nil {
		return nil, err
	}
	return r.receipt(), nil
}

// EstimateGas is a read but its failures carry meaning, so they are
// returned without the provider prefix for normalization.
func (c *Client) EstimateGas(ctx context.Context, msg callMsg) (uint64, error) {
	raw, err := rpc.CallWithRetry(ctx, c.provider, "eth_estimateGas", []any{msg}, c.retry)
	if err != nil {
		return 0, err
	}
	v, err := decode[hexutil.Uint64](raw)
	if err != nil {
		return 0, fmt.Errorf("decode eth_estimateGas: %w", err)
	}
	return uint64(v), nil
}

// SendRawTransaction broadcasts once; submissions are never retried here.
func (c *Client) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	res, err := c.provider.Call(ctx, "eth_sendRawTransaction", []any{hexutil.Bytes(raw)})
	if err != nil {
		return common.Hash{}, err
	}
	return decode[common.Hash](res)
}
