package evm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/txguard/internal/core/domain"
)

var (
	sender    = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	recipient = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	origHash  = common.HexToHash("0x01")
	replHash  = common.HexToHash("0x02")
)

func rawTx(hash common.Hash, to common.Address, value, input string) map[string]any {
	return map[string]any{
		"hash":     hash.Hex(),
		"from":     sender.Hex(),
		"to":       to.Hex(),
		"nonce":    "0x3",
		"value":    value,
		"input":    input,
		"gas":      "0x5208",
		"gasPrice": "0x64",
	}
}

func fastWaiter(mock *MockProvider) *Waiter {
	return NewWaiter(newTestReader(mock), WaiterConfig{PollInterval: time.Millisecond, ScanBlocks: 4}, discardLogger())
}

func TestWaiter_ReturnsReceiptOnceMined(t *testing.T) {
	var polls atomic.Int32
	mock := &MockProvider{
		CallFunc: func(ctx context.Context, method string, params []any) (any, error) {
			switch method {
			case "eth_getTransactionReceipt":
				if polls.Add(1) < 3 {
					return nil, nil
				}
				return map[string]any{"transactionHash": origHash.Hex(), "blockNumber": "0x9", "status": "0x1"}, nil
			case "eth_getTransactionByHash":
				return rawTx(origHash, recipient, "0x1", "0x"), nil
			case "eth_getTransactionCount":
				return "0x3", nil // nonce still open
			}
			return nil, errors.New("unexpected " + method)
		},
	}

	receipt, err := fastWaiter(mock).WaitForTransaction(context.Background(), origHash)
	require.NoError(t, err)
	assert.Equal(t, origHash, receipt.TxHash)
	assert.Equal(t, int32(3), polls.Load())
}

func TestWaiter_DetectsReplacement(t *testing.T) {
	tests := []struct {
		name        string
		replacement map[string]any
		reason      domain.ReplacementReason
	}{
		{"repriced", rawTx(replHash, recipient, "0x1", "0x"), domain.ReasonRepriced},
		{"cancelled", rawTx(replHash, sender, "0x0", "0x"), domain.ReasonCancelled},
		{"replaced", rawTx(replHash, recipient, "0x5", "0xabcd"), domain.ReasonReplaced},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockProvider{
				CallFunc: func(ctx context.Context, method string, params []any) (any, error) {
					switch method {
					case "eth_getTransactionReceipt":
						return nil, nil
					case "eth_getTransactionByHash":
						return rawTx(origHash, recipient, "0x1", "0x"), nil
					case "eth_getTransactionCount":
						return "0x4", nil // nonce consumed
					case "eth_blockNumber":
						return "0x10", nil
					case "eth_getBlockByNumber":
						txs := []any{}
						if params[0] == "0xe" {
							txs = append(txs, tt.replacement)
						}
						return map[string]any{"number": params[0], "hash": common.Hash{}.Hex(), "transactions": txs}, nil
					}
					return nil, errors.New("unexpected " + method)
				},
			}

			_, err := fastWaiter(mock).WaitForTransaction(context.Background(), origHash)
			txErr, ok := domain.AsTxError(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, domain.CodeTransactionReplaced, txErr.Code)
			require.NotNil(t, txErr.Replacement)
			assert.Equal(t, replHash, txErr.Replacement.Hash)
			assert.Equal(t, tt.reason, txErr.Replacement.Reason)
		})
	}
}

func TestWaiter_NonceConsumedWithoutVisibleReplacement(t *testing.T) {
	mock := &MockProvider{
		CallFunc: func(ctx context.Context, method string, params []any) (any, error) {
			switch method {
			case "eth_getTransactionReceipt":
				return nil, nil
			case "eth_getTransactionByHash":
				return rawTx(origHash, recipient, "0x1", "0x"), nil
			case "eth_getTransactionCount":
				return "0x4", nil
			case "eth_blockNumber":
				return "0x10", nil
			case "eth_getBlockByNumber":
				return map[string]any{"number": params[0], "hash": common.Hash{}.Hex(), "transactions": []any{}}, nil
			}
			return nil, errors.New("unexpected " + method)
		},
	}

	_, err := fastWaiter(mock).WaitForTransaction(context.Background(), origHash)
	assert.ErrorIs(t, err, ErrReplacementNotFound)
}

func TestWaiter_ScansReplacementWindowInBatches(t *testing.T) {
	mock := &MockProvider{
		CallFunc: func(ctx context.Context, method string, params []any) (any, error) {
			switch method {
			case "eth_getTransactionReceipt":
				return nil, nil
			case "eth_getTransactionByHash":
				return rawTx(origHash, recipient, "0x1", "0x"), nil
			case "eth_getTransactionCount":
				return "0x4", nil
			case "eth_blockNumber":
				return "0x30", nil
			case "eth_getBlockByNumber":
				txs := []any{}
				if params[0] == "0x2f" {
					txs = append(txs, rawTx(replHash, recipient, "0x1", "0x"))
				}
				return map[string]any{"number": params[0], "hash": common.Hash{}.Hex(), "transactions": txs}, nil
			}
			return nil, errors.New("unexpected " + method)
		},
	}

	waiter := NewWaiter(newTestReader(mock), WaiterConfig{PollInterval: time.Millisecond, ScanBlocks: 25}, discardLogger())
	_, err := waiter.WaitForTransaction(context.Background(), origHash)
	txErr, ok := domain.AsTxError(err)
	require.True(t, ok, "got %v", err)
	require.NotNil(t, txErr.Replacement)
	assert.Equal(t, replHash, txErr.Replacement.Hash)
	// blocks 0x17-0x30 in batches of 10
	assert.Equal(t, int32(3), mock.batches.Load())
}

func TestWaiter_StopsOnContextCancel(t *testing.T) {
	mock := &MockProvider{
		CallFunc: func(ctx context.Context, method string, params []any) (any, error) {
			switch method {
			case "eth_getTransactionCount":
				return "0x0", nil
			}
			return nil, nil // never mined, unknown to the node
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := fastWaiter(mock).WaitForTransaction(ctx, origHash)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaiter_KeepsPollingThroughReadErrors(t *testing.T) {
	var calls atomic.Int32
	mock := &MockProvider{
		CallFunc: func(ctx context.Context, method string, params []any) (any, error) {
			if method != "eth_getTransactionReceipt" {
				return nil, errors.New("connection refused")
			}
			if calls.Add(1) == 1 {
				return nil, errors.New("connection refused")
			}
			return map[string]any{"transactionHash": origHash.Hex(), "blockNumber": "0x9", "status": "0x0"}, nil
		},
	}

	receipt, err := fastWaiter(mock).WaitForTransaction(context.Background(), origHash)
	require.NoError(t, err)
	assert.False(t, receipt.Succeeded())
}
