package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/url"
	"strings"
	"testing"

	"github.com/vietddude/txguard/internal/core/domain"
	"github.com/vietddude/txguard/internal/infra/rpc/provider"
)

func TestNormalize(t *testing.T) {
	tx := &domain.PendingTransaction{MaxFeePerGas: big.NewInt(500), MaxPriorityFeePerGas: big.NewInt(5)}

	tests := []struct {
		name      string
		err       error
		code      domain.ErrorCode
		maxFeeSet bool
	}{
		{"insufficient funds", &provider.RPCError{Code: -32000, Message: "insufficient funds for gas * price + value"}, domain.CodeInsufficientFunds, false},
		{"reverted code", &provider.RPCError{Code: 3, Message: "execution reverted: ERC20: transfer amount exceeds balance"}, domain.CodeUnpredictableGasLimit, true},
		{"gas required exceeds", &provider.RPCError{Code: -32000, Message: "gas required exceeds allowance (30000000)"}, domain.CodeUnpredictableGasLimit, true},
		{"underpriced", &provider.RPCError{Code: -32000, Message: "replacement transaction underpriced"}, domain.CodeReplacementUnderpriced, false},
		{"fee too low", errors.New("replacement fee too low"), domain.CodeReplacementUnderpriced, false},
		{"nonce too low", &provider.RPCError{Code: -32000, Message: "nonce too low: next nonce 8, tx nonce 7"}, domain.CodeNonceExpired, false},
		{"nonce used", errors.New("nonce has already been used"), domain.CodeNonceExpired, false},
		{"missing revert data", errors.New("missing revert data"), domain.CodeCallException, false},
		{"connection refused", fmt.Errorf("rpc call: %w", &url.Error{Op: "Post", URL: "http://127.0.0.1:8545", Err: errors.New("dial tcp: connect: connection refused")}), domain.CodeNetworkError, false},
		{"net error", &net.OpError{Op: "dial", Err: errors.New("i/o timeout")}, domain.CodeNetworkError, false},
		{"throttled", fmt.Errorf("%w: rate limited (429)", provider.ErrThrottled), domain.CodeNetworkError, false},
		{"bad gateway", &provider.HTTPError{StatusCode: 502, Body: "bad gateway"}, domain.CodeNetworkError, false},
		{"unknown", errors.New("something odd"), domain.CodeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Normalize(tt.err, tx)
			txErr, ok := domain.AsTxError(err)
			if !ok {
				t.Fatalf("expected *domain.TxError, got %T", err)
			}
			if txErr.Code != tt.code {
				t.Errorf("code = %s, want %s (message %q)", txErr.Code, tt.code, txErr.Message)
			}
			if tt.maxFeeSet != (txErr.MaxFeePerGas != nil) {
				t.Errorf("MaxFeePerGas = %v, want set=%v", txErr.MaxFeePerGas, tt.maxFeeSet)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("original error lost from chain")
			}
		})
	}
}

func TestNormalize_MissingRevertDataMessage(t *testing.T) {
	txErr, _ := domain.AsTxError(Normalize(errors.New("missing revert data"), nil))
	if txErr == nil || !strings.HasPrefix(txErr.Message, domain.MsgMissingRevertData) {
		t.Errorf("expected message to start with %q, got %+v", domain.MsgMissingRevertData, txErr)
	}
}

func TestNormalize_PassThrough(t *testing.T) {
	if Normalize(nil, nil) != nil {
		t.Error("nil must stay nil")
	}
	already := &domain.TxError{Code: domain.CodeNonceExpired}
	if Normalize(already, nil) != already {
		t.Error("normalized errors pass through")
	}
	if err := Normalize(context.Canceled, nil); err != context.Canceled {
		t.Errorf("context errors pass through, got %v", err)
	}
}

func TestNormalizeEstimate_NestsNetworkCause(t *testing.T) {
	tx := &domain.PendingTransaction{GasPrice: big.NewInt(7)}
	err := normalizeEstimate(&provider.HTTPError{StatusCode: 503, Body: "unavailable"}, tx)

	txErr, ok := domain.AsTxError(err)
	if !ok {
		t.Fatalf("expected TxError, got %v", err)
	}
	if txErr.Code != domain.CodeUnpredictableGasLimit || txErr.ReasonCode != domain.CodeNetworkError {
		t.Errorf("got code=%s reason=%s", txErr.Code, txErr.ReasonCode)
	}
	if !txErr.HasCode(domain.CodeNetworkError) {
		t.Error("reason code must be visible to HasCode")
	}
	if txErr.MaxFeePerGas.Int64() != 7 {
		t.Errorf("expected fee cap from gas price, got %v", txErr.MaxFeePerGas)
	}
}
