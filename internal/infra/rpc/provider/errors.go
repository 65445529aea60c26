package provider

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrThrottled = errors.New("provider throttled")
	ErrBlocked   = errors.New("provider blocked this client")
)

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	// CodeServerError is what geth uses for most transaction rejections.
	CodeServerError   = -32000
	CodeLimitExceeded = -32005
	// CodeExecutionReverted carries revert data in Data.
	CodeExecutionReverted = 3
)

// RPCError is the error object of a JSON-RPC response.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// HTTPError is a non-200 response from the endpoint.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}
