package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// HTTPProvider implements Provider for JSON-RPC 2.0 over HTTP.
type HTTPProvider struct {
	*BaseProvider

	endpoint   string
	httpClient *http.Client
	nextID     atomic.Uint64
}

// NewHTTPProvider creates a new HTTP-based RPC provider.
func NewHTTPProvider(name, endpoint string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		BaseProvider: NewBaseProvider(name),
		endpoint:     endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func (p *HTTPProvider) request(method string, params []any) rpcRequest {
	if params == nil {
		params = []any{}
	}
	return rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: p.nextID.Add(1)}
}

// Call makes a single JSON-RPC call. A node-side error comes back as *RPCError.
func (p *HTTPProvider) Call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	start := time.Now()

	body, err := p.post(ctx, p.request(method, params))
	if err != nil {
		return nil, err
	}

	var resp rpcResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		p.RecordFailure()
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if resp.Error != nil {
		if p.Monitor.DetectThrottlePattern(resp.Error.Message) {
			p.RecordFailure()
			return nil, fmt.Errorf("%w: %w", ErrThrottled, resp.Error)
		}
		// The node answered; the request itself was rejected.
		p.RecordSuccess(time.Since(start))
		return nil, resp.Error
	}

	p.RecordSuccess(time.Since(start))
	return resp.Result, nil
}

// BatchCall makes multiple RPC calls in one request. Responses are matched
// to requests by id.
func (p *HTTPProvider) BatchCall(ctx context.Context, requests []BatchRequest) ([]BatchResponse, error) {
	start := time.Now()

	batch := make([]rpcRequest, len(requests))
	index := make(map[uint64]int, len(requests))
	for i, req := range requests {
		batch[i] = p.request(req.Method, req.Params)
		index[batch[i].ID] = i
	}

	body, err := p.post(ctx, batch)
	if err != nil {
		return nil, err
	}

	var batchResp []rpcResponse
	if err := json.Unmarshal(body, &batchResp); err != nil {
		p.RecordFailure()
		return nil, fmt.Errorf("parse batch response: %w", err)
	}

	responses := make([]BatchResponse, len(requests))
	for i := range responses {
		responses[i].Error = fmt.Errorf("no response for %s", requests[i].Method)
	}
	for _, r := range batchResp {
		i, ok := index[r.ID]
		if !ok {
			continue
		}
		if r.Error != nil {
			responses[i] = BatchResponse{Error: r.Error}
		} else {
			responses[i] = BatchResponse{Result: r.Result}
		}
	}

	p.RecordSuccess(time.Since(start))
	return responses, nil
}

func (p *HTTPProvider) post(ctx context.Context, payload any) ([]byte, error) {
	// Pre-call checks
	switch p.Monitor.CheckProviderStatus() {
	case StatusThrottled:
		return nil, fmt.Errorf("%w, retry after: %v", ErrThrottled, p.Monitor.GetRetryAfter())
	case StatusBlocked:
		return nil, fmt.Errorf("%w, retry after: %v", ErrBlocked, p.Monitor.GetRetryAfter())
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.RecordFailure()
		return nil, fmt.Errorf("rpc call: %w", err)
	}
	defer resp.Body.Close()

	// Rate limit detection
	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := resp.Header.Get("Retry-After")
		p.Monitor.RecordThrottle(resp.StatusCode, retryAfter)
		p.RecordFailure()
		return nil, fmt.Errorf("%w: rate limited (429), retry after: %s", ErrThrottled, retryAfter)
	}

	// IP blocked detection
	if resp.StatusCode == http.StatusForbidden {
		p.Monitor.RecordThrottle(resp.StatusCode, "")
		p.RecordFailure()
		return nil, fmt.Errorf("%w: ip blocked (403)", ErrBlocked)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.RecordFailure()
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		p.RecordFailure()
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
		if p.Monitor.DetectThrottlePattern(httpErr.Body) {
			return nil, fmt.Errorf("%w: %w", ErrThrottled, httpErr)
		}
		return nil, httpErr
	}

	return body, nil
}

// Close cleans up resources.
func (p *HTTPProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}
