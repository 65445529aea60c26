package escalation

import (
	"errors"
	"strings"

	"github.com/vietddude/txguard/internal/core/domain"
)

// ErrTransientRetriesExhausted is joined with the last rejection when the
// retry cap is hit.
var ErrTransientRetriesExhausted = errors.New("replacement still underpriced after max retries")

// isUnderpriced reports a replacement rejected because its fee did not
// clear the node's bump threshold. Retrying the same step can succeed once
// the signer re-reads the base fee.
func isUnderpriced(err error) bool {
	if txErr, ok := domain.AsTxError(err); ok && txErr.HasCode(domain.CodeReplacementUnderpriced) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, domain.MsgReplacementFeeTooLow) ||
		strings.Contains(msg, domain.MsgCouldNotReplace)
}

// isNonceUsed reports that some transaction already took the nonce.
func isNonceUsed(err error) bool {
	if txErr, ok := domain.AsTxError(err); ok && txErr.HasCode(domain.CodeNonceExpired) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), domain.MsgNonceUsed)
}

// replacementOf extracts the notice a wait returns when its transaction was
// superseded by another one with the same nonce.
func replacementOf(err error) (*domain.ReplacementNotice, bool) {
	txErr, ok := domain.AsTxError(err)
	if !ok || txErr.Replacement == nil || !txErr.HasCode(domain.CodeTransactionReplaced) {
		return nil, false
	}
	return txErr.Replacement, true
}
