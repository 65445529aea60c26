package errclass

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/txguard/internal/core/domain"
)

func fixedBalance(v int64, calls *int) BalanceFunc {
	return func(context.Context) (*big.Int, error) {
		*calls++
		return big.NewInt(v), nil
	}
}

func TestTxFilters_InsufficientFunds(t *testing.T) {
	tests := []struct {
		name      string
		err       *domain.TxError
		balance   int64
		wantKind  Kind
		wantOK    bool
		wantReads int
	}{
		{
			name:      "direct code",
			err:       &domain.TxError{Code: domain.CodeInsufficientFunds},
			balance:   0,
			wantKind:  KindInsufficientFunds,
			wantOK:    true,
			wantReads: 0,
		},
		{
			name:      "unpredictable gas with low balance",
			err:       &domain.TxError{Code: domain.CodeUnpredictableGasLimit, MaxFeePerGas: big.NewInt(500)},
			balance:   100,
			wantKind:  KindInsufficientFunds,
			wantOK:    true,
			wantReads: 1,
		},
		{
			name:      "unpredictable gas with enough balance",
			err:       &domain.TxError{Code: domain.CodeUnpredictableGasLimit, MaxFeePerGas: big.NewInt(500)},
			balance:   1000,
			wantOK:    false,
			wantReads: 1,
		},
		{
			name:      "unpredictable gas without max fee",
			err:       &domain.TxError{Code: domain.CodeUnpredictableGasLimit},
			balance:   0,
			wantOK:    false,
			wantReads: 0,
		},
		{
			name:      "other code never reads balance",
			err:       &domain.TxError{Code: domain.CodeNetworkError, MaxFeePerGas: big.NewInt(500)},
			balance:   0,
			wantOK:    false,
			wantReads: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reads int
			kind, ok, err := Classify(context.Background(), TxFilters(fixedBalance(tt.balance, &reads)), tt.err)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantKind, kind)
			}
			assert.Equal(t, tt.wantReads, reads)
		})
	}
}

func TestTxFilters_BalanceErrorIsFatal(t *testing.T) {
	boom := errors.New("all endpoints down")
	balance := func(context.Context) (*big.Int, error) { return nil, boom }
	txErr := &domain.TxError{Code: domain.CodeUnpredictableGasLimit, MaxFeePerGas: big.NewInt(1)}

	_, ok, err := Classify(context.Background(), TxFilters(balance), txErr)
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
}

func TestGeneralFilters_NoNetwork(t *testing.T) {
	tests := []struct {
		name   string
		err    *domain.TxError
		wantOK bool
	}{
		{"direct code", &domain.TxError{Code: domain.CodeNetworkError}, true},
		{"reason code", &domain.TxError{Code: domain.CodeUnknown, ReasonCode: domain.CodeNetworkError}, true},
		{"missing revert data", &domain.TxError{Code: domain.CodeCallException, Message: "missing revert data in call exception; Transaction reverted without a reason string"}, true},
		{"unrelated", &domain.TxError{Code: domain.CodeCallException, Message: "execution reverted"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok, err := Classify(context.Background(), GeneralFilters(), tt.err)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, KindNoNetwork, kind)
			}
		})
	}
}

func TestAdvisor_Advise(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var reads int
	advisor := NewAdvisor(fixedBalance(10, &reads), nil, logger)

	original := &domain.TxError{Code: domain.CodeInsufficientFunds, Message: "insufficient funds for gas * price + value"}
	kind, err := advisor.Advise(context.Background(), original)
	assert.Equal(t, KindInsufficientFunds, kind)

	var advised *AdvisedError
	require.ErrorAs(t, err, &advised)
	assert.Contains(t, err.Error(), "wallet balance")
	assert.ErrorIs(t, err, original)
}

func TestAdvisor_PlainErrorsFallThroughToGeneralFilters(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	advisor := NewAdvisor(nil, nil, logger)

	kind, err := advisor.Advise(context.Background(), errors.New("call failed: missing revert data in call exception"))
	assert.Equal(t, KindNoNetwork, kind)
	assert.Contains(t, err.Error(), "RPC URL")
}

func TestAdvisor_UnclassifiedReturnsOriginal(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	advisor := NewAdvisor(nil, nil, logger)
	original := errors.New("something else")

	kind, err := advisor.Advise(context.Background(), original)
	assert.Equal(t, KindUnclassified, kind)
	assert.Same(t, original, err)
}

func TestAdvisor_ClassificationFailureReturnsOriginal(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	balance := func(context.Context) (*big.Int, error) { return nil, errors.New("down") }
	advisor := NewAdvisor(balance, nil, logger)
	original := &domain.TxError{Code: domain.CodeUnpredictableGasLimit, MaxFeePerGas: big.NewInt(1)}

	kind, err := advisor.Advise(context.Background(), original)
	assert.Equal(t, KindUnclassified, kind)
	assert.Same(t, error(original), err)
}
