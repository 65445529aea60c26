package errclass

import (
	"context"
	"log/slog"

	"github.com/vietddude/txguard/internal/core/domain"
	"github.com/vietddude/txguard/internal/metrics"
)

var suggestions = map[Kind]string{
	KindInsufficientFunds: "check that the wallet balance covers the transaction fee",
	KindNoNetwork:         "check that the RPC URL is correct and the network is reachable",
}

// AdvisedError attaches a human readable suggestion to the original error.
type AdvisedError struct {
	Kind       Kind
	Suggestion string
	Err        error
}

func (e *AdvisedError) Error() string {
	return e.Err.Error() + " (" + e.Suggestion + ")"
}

func (e *AdvisedError) Unwrap() error {
	return e.Err
}

// Advisor classifies failures surfaced to the user and suggests a fix.
// It never hides the original error.
type Advisor struct {
	txFilters      Filters[Kind, *domain.TxError]
	generalFilters Filters[Kind, *domain.TxError]
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

// NewAdvisor creates an Advisor. balance may be nil, in which case the
// balance-confirmed arm of INSUFFICIENT_FUNDS never matches.
func NewAdvisor(balance BalanceFunc, m *metrics.Metrics, logger *slog.Logger) *Advisor {
	return &Advisor{
		txFilters:      TxFilters(balance),
		generalFilters: GeneralFilters(),
		logger:         logger,
		metrics:        m,
	}
}

// Classify runs the transaction filters, then the general ones.
func (a *Advisor) Classify(ctx context.Context, err error) (Kind, error) {
	txErr := asRecord(err)

	kind, ok, cerr := Classify(ctx, a.txFilters, txErr)
	if cerr != nil {
		return KindUnclassified, cerr
	}
	if ok {
		return kind, nil
	}

	kind, _, cerr = Classify(ctx, a.generalFilters, txErr)
	if cerr != nil {
		return KindUnclassified, cerr
	}
	return kind, nil
}

// Advise classifies err, logs a suggestion for known kinds and returns err
// wrapped with it. Unknown kinds and classification failures return err as is.
func (a *Advisor) Advise(ctx context.Context, err error) (Kind, error) {
	if err == nil {
		return KindUnclassified, nil
	}

	kind, cerr := a.Classify(ctx, err)
	if cerr != nil {
		a.logger.Debug("Could not classify error", "error", err, "classify_error", cerr)
		a.metrics.RecordClassification("error")
		return KindUnclassified, err
	}

	if kind == KindUnclassified {
		a.metrics.RecordClassification("unclassified")
		return kind, err
	}

	a.metrics.RecordClassification(string(kind))
	suggestion := suggestions[kind]
	a.logger.Error("Known error", "kind", kind, "suggestion", suggestion, "error", err)
	return kind, &AdvisedError{Kind: kind, Suggestion: suggestion, Err: err}
}

func asRecord(err error) *domain.TxError {
	if txErr, ok := domain.AsTxError(err); ok {
		return txErr
	}
	return &domain.TxError{Code: domain.CodeUnknown, Message: err.Error(), Err: err}
}
