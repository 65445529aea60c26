package evm

import (
	"context"
	"errors"
	"math/big"
	"net"
	"net/url"
	"strings"

	"github.com/vietddude/txguard/internal/core/domain"
	"github.com/vietddude/txguard/internal/infra/rpc/provider"
)

// messageRule maps a fragment of a node message to a code.
type messageRule struct {
	fragment string
	code     domain.ErrorCode
}

// Ordered: the first matching fragment wins.
var messageRules = []messageRule{
	{"insufficient funds", domain.CodeInsufficientFunds},
	{"replacement transaction underpriced", domain.CodeReplacementUnderpriced},
	{domain.MsgReplacementFeeTooLow, domain.CodeReplacementUnderpriced},
	{domain.MsgCouldNotReplace, domain.CodeReplacementUnderpriced},
	{"nonce too low", domain.CodeNonceExpired},
	{domain.MsgNonceUsed, domain.CodeNonceExpired},
	{"missing revert data", domain.CodeCallException},
	{"execution reverted", domain.CodeUnpredictableGasLimit},
	{"gas required exceeds", domain.CodeUnpredictableGasLimit},
	{"always failing transaction", domain.CodeUnpredictableGasLimit},
	{"connection refused", domain.CodeNetworkError},
	{"no such host", domain.CodeNetworkError},
	{"connection reset", domain.CodeNetworkError},
}

// Normalize turns a node or transport error into a *domain.TxError. tx, when
// known, supplies the fee cap attached to gas-limit failures. Context
// errors and errors that are already normalized pass through.
func Normalize(err error, tx *domain.PendingTransaction) error {
	if err == nil {
		return nil
	}
	if _, ok := domain.AsTxError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	txErr := &domain.TxError{Code: domain.CodeUnknown, Message: err.Error(), Err: err}

	var rpcErr *provider.RPCError
	if errors.As(err, &rpcErr) {
		txErr.Message = rpcErr.Message
		if rpcErr.Code == provider.CodeExecutionReverted {
			txErr.Code = domain.CodeUnpredictableGasLimit
		}
	}

	msg := strings.ToLower(txErr.Message)
	for _, rule := range messageRules {
		if strings.Contains(msg, rule.fragment) {
			txErr.Code = rule.code
			break
		}
	}

	if txErr.Code == domain.CodeUnknown && isNetworkError(err) {
		txErr.Code = domain.CodeNetworkError
	}

	switch txErr.Code {
	case domain.CodeUnpredictableGasLimit:
		txErr.MaxFeePerGas = feeCap(tx)
	case domain.CodeCallException:
		txErr.Message = domain.MsgMissingRevertData + ": " + txErr.Message
	}

	return txErr
}

// normalizeEstimate reports every gas estimation failure as
// UNPREDICTABLE_GAS_LIMIT, keeping a more specific cause as the reason.
// Insufficient funds stays a top-level code.
func normalizeEstimate(err error, tx *domain.PendingTransaction) error {
	norm := Normalize(err, tx)
	txErr, ok := domain.AsTxError(norm)
	if !ok {
		return norm
	}
	switch txErr.Code {
	case domain.CodeUnpredictableGasLimit, domain.CodeInsufficientFunds:
		return txErr
	}
	return &domain.TxError{
		Code:         domain.CodeUnpredictableGasLimit,
		ReasonCode:   txErr.Code,
		Message:      "cannot estimate gas: " + txErr.Message,
		MaxFeePerGas: feeCap(tx),
		Err:          txErr,
	}
}

func isNetworkError(err error) bool {
	if errors.Is(err, provider.ErrThrottled) || errors.Is(err, provider.ErrBlocked) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var httpErr *provider.HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode >= 500
}

func isAlreadyKnown(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already known") || strings.Contains(msg, "known transaction")
}

func feeCap(tx *domain.PendingTransaction) *big.Int {
	if tx == nil {
		return nil
	}
	if tx.MaxFeePerGas != nil {
		return new(big.Int).Set(tx.MaxFeePerGas)
	}
	if tx.GasPrice != nil {
		return new(big.Int).Set(tx.GasPrice)
	}
	return nil
}
