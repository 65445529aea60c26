// Package routing decides how failed RPC calls are handled and retries the
// idempotent ones.
package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/vietddude/txguard/internal/infra/rpc/provider"
)

// RetryConfig defines retry behavior.
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig provides sensible defaults.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     5,
	InitialDelay:    1 * time.Second,
	MaxDelay:        60 * time.Second,
	BackoffMultiple: 2.0,
}

// ErrorAction determines how to handle an error.
type ErrorAction int

const (
	ActionRetry ErrorAction = iota
	ActionFailover
	ActionFatal
)

func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFailover:
		return "failover"
	case ActionFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Caller is anything that can issue a JSON-RPC call.
type Caller interface {
	Call(ctx context.Context, method string, params []any) (json.RawMessage, error)
}

// ClassifyError determines the action for a given error.
//
// Node-side rejections (a decoded *provider.RPCError) are deterministic and
// therefore fatal, except for the limit-exceeded code. Throttling and
// blocking move on to another provider. Everything else (network, 5xx) is
// retried.
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionRetry // Should not happen
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ActionFatal
	}
	if errors.Is(err, provider.ErrThrottled) || errors.Is(err, provider.ErrBlocked) {
		return ActionFailover
	}

	var rpcErr *provider.RPCError
	if errors.As(err, &rpcErr) {
		if rpcErr.Code == provider.CodeLimitExceeded {
			return ActionFailover
		}
		return ActionFatal
	}

	var httpErr *provider.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == 401 || httpErr.StatusCode == 403 || httpErr.StatusCode == 429:
			return ActionFailover
		case httpErr.StatusCode >= 400 && httpErr.StatusCode < 500:
			return ActionFatal
		}
	}

	s := err.Error()
	sLower := strings.ToLower(s)

	// -32700: Parse error, -32600: Invalid Request, -32601: Method not found, -32602: Invalid params
	if strings.Contains(s, "-32700") || strings.Contains(s, "-32600") ||
		strings.Contains(s, "-32601") || strings.Contains(s, "-32602") {
		return ActionFatal
	}

	if strings.Contains(s, "429") || strings.Contains(sLower, "too many requests") ||
		strings.Contains(s, "403") || strings.Contains(sLower, "forbidden") ||
		strings.Contains(sLower, "quota") || strings.Contains(sLower, "plan limit") ||
		strings.Contains(sLower, "unauthorized") ||
		strings.Contains(sLower, "rate limit") ||
		strings.Contains(sLower, "count exceeded") {
		return ActionFailover
	}

	return ActionRetry
}

// CallWithRetry executes an idempotent RPC call with exponential backoff.
// Fatal and failover errors are returned at once, unwrapped.
func CallWithRetry(
	ctx context.Context,
	p Caller,
	method string,
	params []any,
	config RetryConfig,
) (json.RawMessage, error) {
	attempts := max(config.MaxAttempts, 1)
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		result, err := p.Call(ctx, method, params)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if action := ClassifyError(err); action != ActionRetry {
			return nil, err
		}

		if attempt == attempts-1 {
			break
		}

		timer := time.NewTimer(calculateBackoff(attempt, config))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.BackoffMultiple, float64(attempt))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	return time.Duration(delay)
}
