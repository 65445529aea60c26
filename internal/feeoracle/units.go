package feeoracle

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/params"
)

var gwei = new(big.Rat).SetInt64(params.GWei)

// GweiToWei converts a decimal gwei amount to wei exactly, rounding half up
// below one wei.
func GweiToWei(amount string) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(amount)
	if !ok {
		return nil, fmt.Errorf("invalid decimal %q", amount)
	}
	if r.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %q", amount)
	}
	return roundHalfUp(r.Mul(r, gwei)), nil
}

// roundHalfUp rounds a non-negative rational to the nearest integer, ties up.
func roundHalfUp(r *big.Rat) *big.Int {
	num := new(big.Int).Mul(r.Num(), big.NewInt(2))
	num.Add(num, r.Denom())
	den := new(big.Int).Mul(r.Denom(), big.NewInt(2))
	return num.Quo(num, den)
}

func numberString(v any) string {
	switch n := v.(type) {
	case json.Number:
		return n.String()
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int:
		return strconv.Itoa(n)
	case *big.Int:
		return n.String()
	case string:
		return n
	default:
		return fmt.Sprint(v)
	}
}
