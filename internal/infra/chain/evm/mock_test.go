package evm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/vietddude/txguard/internal/infra/rpc"
	"github.com/vietddude/txguard/internal/redundancy"
)

// MockProvider implements rpc.Provider for testing
type MockProvider struct {
	name        string
	unavailable bool
	CallFunc    func(ctx context.Context, method string, params []any) (any, error)
	batches     atomic.Int32
}

func (m *MockProvider) Call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	if m.CallFunc == nil {
		return json.RawMessage("null"), nil
	}
	result, err := m.CallFunc(ctx, method, params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(result)
}

func (m *MockProvider) BatchCall(
	ctx context.Context,
	requests []rpc.BatchRequest,
) ([]rpc.BatchResponse, error) {
	m.batches.Add(1)
	responses := make([]rpc.BatchResponse, len(requests))
	for i, req := range requests {
		responses[i].Result, responses[i].Error = m.Call(ctx, req.Method, req.Params)
	}
	return responses, nil
}

func (m *MockProvider) Name() string {
	if m.name == "" {
		return "mock"
	}
	return m.name
}
func (m *MockProvider) Health() rpc.HealthStatus { return rpc.HealthStatus{Available: true} }
func (m *MockProvider) IsAvailable() bool        { return !m.unavailable }
func (m *MockProvider) Close() error             { return nil }

var noRetry = rpc.RetryConfig{MaxAttempts: 1}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestReader builds an ordered Reader over the given mocks.
func newTestReader(mocks ...*MockProvider) *Reader {
	clients := make([]*Client, len(mocks))
	for i, m := range mocks {
		clients[i] = NewClient(m, noRetry)
	}
	return NewReader(clients, nil, redundancy.WithShuffle(redundancy.KeepOrder))
}
