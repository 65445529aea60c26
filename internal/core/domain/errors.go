package domain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrorCode is the normalized code of a provider or contract error.
type ErrorCode string

const (
	CodeInsufficientFunds      ErrorCode = "INSUFFICIENT_FUNDS"
	CodeUnpredictableGasLimit  ErrorCode = "UNPREDICTABLE_GAS_LIMIT"
	CodeNetworkError           ErrorCode = "NETWORK_ERROR"
	CodeReplacementUnderpriced ErrorCode = "REPLACEMENT_UNDERPRICED"
	CodeNonceExpired           ErrorCode = "NONCE_EXPIRED"
	CodeTransactionReplaced    ErrorCode = "TRANSACTION_REPLACED"
	CodeCallException          ErrorCode = "CALL_EXCEPTION"
	CodeUnknown                ErrorCode = "UNKNOWN_ERROR"
)

// Messages the escalation and classification layers match on.
const (
	MsgReplacementFeeTooLow = "replacement fee too low"
	MsgCouldNotReplace      = "could not replace existing"
	MsgNonceUsed            = "nonce has already been used"
	MsgTransactionReplaced  = "transaction was replaced"
	MsgRepriced             = "repriced"
	MsgMissingRevertData    = "missing revert data in call exception"
)

// ReplacementReason says how a pending transaction was superseded.
type ReplacementReason string

const (
	ReasonReplaced  ReplacementReason = "replaced"
	ReasonRepriced  ReplacementReason = "repriced"
	ReasonCancelled ReplacementReason = "cancelled"
)

// ReplacementNotice points at the transaction that took over a nonce.
type ReplacementNotice struct {
	Hash   common.Hash
	Reason ReplacementReason
}

// TxError is the normalized shape of every error crossing the provider boundary.
type TxError struct {
	Code ErrorCode
	// ReasonCode is the code of a nested cause, when the provider wrapped one.
	ReasonCode   ErrorCode
	Message      string
	MaxFeePerGas *big.Int
	Replacement  *ReplacementNotice
	Err          error
}

func (e *TxError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Replacement != nil {
		return fmt.Sprintf("%s (%s): %s by %s", msg, e.Code, e.Replacement.Reason, e.Replacement.Hash.Hex())
	}
	return fmt.Sprintf("%s (%s)", msg, e.Code)
}

func (e *TxError) Unwrap() error {
	return e.Err
}

// HasCode matches the direct code or, failing that, the nested reason code.
func (e *TxError) HasCode(code ErrorCode) bool {
	return e.Code == code || e.ReasonCode == code
}

// AsTxError finds a TxError anywhere in err's chain.
func AsTxError(err error) (*TxError, bool) {
	var txErr *TxError
	if errors.As(err, &txErr) {
		return txErr, true
	}
	return nil, false
}

// NewReplacedError builds the notice a wait returns when its transaction was superseded.
func NewReplacedError(replacement common.Hash, reason ReplacementReason) *TxError {
	msg := MsgTransactionReplaced
	if reason == ReasonRepriced {
		msg = "transaction was " + MsgRepriced
	}
	return &TxError{
		Code:        CodeTransactionReplaced,
		Message:     msg,
		Replacement: &ReplacementNotice{Hash: replacement, Reason: reason},
	}
}
