// Package provider implements JSON-RPC endpoints for EVM nodes.
//
// This package contains:
//   - Provider interface: one node endpoint with health tracking
//   - HTTPProvider: JSON-RPC 2.0 over HTTP
//   - ProviderMonitor: latency, usage and throttle tracking
//   - RPCError: the error object returned by a node
package provider

import (
	"context"
	"encoding/json"
	"time"
)

// Provider is a single JSON-RPC endpoint.
type Provider interface {
	// Name returns the provider identifier (e.g., "alchemy", "local")
	Name() string

	// Health returns current health metrics
	Health() HealthStatus

	// IsAvailable checks if the provider is healthy enough to use
	IsAvailable() bool

	// Call makes a single RPC request and returns the raw result
	Call(ctx context.Context, method string, params []any) (json.RawMessage, error)

	// BatchCall makes multiple RPC calls in one request
	BatchCall(ctx context.Context, requests []BatchRequest) ([]BatchResponse, error)

	// Close cleans up resources
	Close() error
}

// BatchRequest represents a single request in a batch call.
type BatchRequest struct {
	Method string
	Params []any
}

// BatchResponse represents a single response from a batch call.
type BatchResponse struct {
	Result json.RawMessage
	Error  error
}

// HealthStatus represents the health state of a provider.
type HealthStatus struct {
	Available     bool
	Latency       time.Duration
	ErrorRate     float64
	LastSuccessAt time.Time
	LastFailureAt time.Time
	MonitorStats  *MonitorStats `json:"monitor_stats,omitempty"`
}
