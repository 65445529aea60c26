// Package rpc provides JSON-RPC connectivity to EVM nodes.
//
// # Quick Start
//
//	import "github.com/vietddude/txguard/internal/infra/rpc"
//
//	p := rpc.NewHTTPProvider("local", "http://127.0.0.1:8545", 30*time.Second)
//	raw, err := rpc.CallWithRetry(ctx, p, "eth_blockNumber", nil, rpc.DefaultRetryConfig)
//
// # Package Structure
//
//   - provider/ - HTTPProvider, health monitoring, RPCError
//   - routing/  - error classification and retry logic
//
// Most types are re-exported at the root level for convenience.
package rpc

import (
	"time"

	"github.com/vietddude/txguard/internal/infra/rpc/provider"
	"github.com/vietddude/txguard/internal/infra/rpc/routing"
)

// Provider is the core interface for RPC endpoints.
type Provider = provider.Provider

// HTTPProvider implements Provider for JSON-RPC over HTTP.
type HTTPProvider = provider.HTTPProvider

// HealthStatus represents the health state of a provider.
type HealthStatus = provider.HealthStatus

// RPCError is the error object returned by a node.
type RPCError = provider.RPCError

// BatchRequest represents a single request in a batch call.
type BatchRequest = provider.BatchRequest

// BatchResponse represents a single response from a batch call.
type BatchResponse = provider.BatchResponse

// NewHTTPProvider creates a new HTTP-based RPC provider.
func NewHTTPProvider(name, endpoint string, timeout time.Duration) *HTTPProvider {
	return provider.NewHTTPProvider(name, endpoint, timeout)
}

// RetryConfig defines retry behavior.
type RetryConfig = routing.RetryConfig

// DefaultRetryConfig provides sensible retry defaults.
var DefaultRetryConfig = routing.DefaultRetryConfig

// CallWithRetry executes an RPC call with exponential backoff.
var CallWithRetry = routing.CallWithRetry
