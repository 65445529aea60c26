package errclass

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/vietddude/txguard/internal/core/domain"
)

// Kind names a known failure.
type Kind string

const (
	KindUnclassified      Kind = ""
	KindInsufficientFunds Kind = "INSUFFICIENT_FUNDS"
	KindNoNetwork         Kind = "NO_NETWORK"
)

// BalanceFunc reads the current balance of the sending wallet.
type BalanceFunc func(ctx context.Context) (*big.Int, error)

// TxFilters recognizes failures of a submitted transaction.
//
// Some providers answer UNPREDICTABLE_GAS_LIMIT where INSUFFICIENT_FUNDS is
// meant, so the second arm confirms it with a live balance read. The read
// only happens once the code check passed.
func TxFilters(balance BalanceFunc) Filters[Kind, *domain.TxError] {
	return Filters[Kind, *domain.TxError]{
		{
			Kind: KindInsufficientFunds,
			Match: Or(
				Is(func(e *domain.TxError) bool { return e.Code == domain.CodeInsufficientFunds }),
				And(
					Is(func(e *domain.TxError) bool { return e.Code == domain.CodeUnpredictableGasLimit }),
					balanceBelowMaxFee(balance),
				),
			),
		},
	}
}

// GeneralFilters recognizes failures that are not tied to one transaction.
func GeneralFilters() Filters[Kind, *domain.TxError] {
	return Filters[Kind, *domain.TxError]{
		{
			Kind: KindNoNetwork,
			Match: Or(
				Is(func(e *domain.TxError) bool { return e.HasCode(domain.CodeNetworkError) }),
				Is(func(e *domain.TxError) bool {
					return strings.Contains(e.Message, domain.MsgMissingRevertData)
				}),
			),
		},
	}
}

func balanceBelowMaxFee(balance BalanceFunc) Predicate[*domain.TxError] {
	return func(ctx context.Context, e *domain.TxError) (bool, error) {
		if e.MaxFeePerGas == nil || balance == nil {
			return false, nil
		}
		bal, err := balance(ctx)
		if err != nil {
			return false, fmt.Errorf("read balance: %w", err)
		}
		return bal.Cmp(e.MaxFeePerGas) < 0, nil
	}
}
