package escalation

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/vietddude/txguard/internal/core/domain"
)

// DefaultFactor is the fee multiplier applied on every acceleration.
const DefaultFactor = "1.2"

var (
	ErrInvalidFactor = errors.New("escalation factor must be a decimal greater than 1")
	ErrNoFeeToBump   = errors.New("transaction carries no fee field to bump")
)

// ParseFactor parses a decimal multiplier such as "1.2" exactly.
func ParseFactor(s string) (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFactor, s)
	}
	if r.Cmp(big.NewRat(1, 1)) <= 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFactor, s)
	}
	return r, nil
}

func mustParseFactor(s string) *big.Rat {
	r, err := ParseFactor(s)
	if err != nil {
		panic(err)
	}
	return r
}

// BumpFee returns fee * factor rounded half up. 100 -> 120 -> 144 with 1.2.
func BumpFee(fee *big.Int, factor *big.Rat) *big.Int {
	r := new(big.Rat).Mul(new(big.Rat).SetInt(fee), factor)
	num := new(big.Int).Mul(r.Num(), big.NewInt(2))
	num.Add(num, r.Denom())
	den := new(big.Int).Mul(r.Denom(), big.NewInt(2))
	return num.Quo(num, den)
}

// nextFee bumps fee and keeps the result strictly above it, so tiny or zero
// fees still move.
func nextFee(fee *big.Int, factor *big.Rat) *big.Int {
	next := BumpFee(fee, factor)
	if next.Cmp(fee) <= 0 {
		next.Add(fee, big.NewInt(1))
	}
	return next
}

// bumpFees derives the override for the next chain member. Only the fee
// field of the transaction's own model moves; the dynamic cap is left for
// the signer to recompute.
func bumpFees(prev *domain.PendingTransaction, factor *big.Rat) (domain.FeeOverride, error) {
	switch prev.FeeModel() {
	case domain.FeeModelDynamic:
		return domain.FeeOverride{MaxPriorityFeePerGas: nextFee(prev.MaxPriorityFeePerGas, factor)}, nil
	default:
		if prev.GasPrice == nil {
			return domain.FeeOverride{}, fmt.Errorf("%w: %s", ErrNoFeeToBump, prev.Hash.Hex())
		}
		return domain.FeeOverride{GasPrice: nextFee(prev.GasPrice, factor)}, nil
	}
}
