package network

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

// RPCClient is a JSON-RPC 1.0 client for a Dogecoin Core node.
// All high-level methods are built on top of Call.
type RPCClient struct {
	url    string
	user   string
	pass   string
	client *http.Client
	nextID atomic.Int64
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// maxResponseBytes bounds how much of a node reply is read.
const maxResponseBytes = 64 << 20

// NewRPCClient creates a new JSON-RPC client with the given configuration.
// The client uses HTTP Basic Auth when User is non-empty.
func NewRPCClient(cfg RPCConfig) *RPCClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RPCClient{
		url:  cfg.URL,
		user: cfg.User,
		pass: cfg.Password,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
	}
}

// Call invokes a JSON-RPC method on the node and decodes the result into
// result. A nil params sends an empty array; a nil result discards it.
//
// Transport failures wrap ErrConnectionFailed (ErrAuthFailed for HTTP 401
// and 403), undecodable bodies wrap ErrInvalidResponse, and node-reported
// errors are returned as *RPCError.
func (c *RPCClient) Call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	id := c.nextID.Add(1)
	status, raw, err := c.post(ctx, rpcRequest{JSONRPC: "1.0", ID: id, Method: method, Params: params})
	if err != nil {
		return err
	}
	payload, err := decodeResponse(method, id, status, raw)
	if err != nil {
		return err
	}
	if result == nil || payload == nil {
		return nil
	}
	if err := json.Unmarshal(payload, result); err != nil {
		return fmt.Errorf("%w: unmarshal %s result: %w", ErrInvalidResponse, method, err)
	}
	return nil
}

// post sends one request and returns the HTTP status with the raw body.
func (c *RPCClient) post(ctx context.Context, body rpcRequest) (int, []byte, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("network: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(buf))
	if err != nil {
		return 0, nil, fmt.Errorf("network: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return resp.StatusCode, nil, fmt.Errorf("%w: HTTP %d", ErrAuthFailed, resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%w: read response: %w", ErrConnectionFailed, err)
	}
	return resp.StatusCode, raw, nil
}

// decodeResponse extracts the result of call id from raw. Dogecoin Core
// answers RPC errors with HTTP 500 and a JSON body, so the status code only
// matters when the body is not a response envelope.
func decodeResponse(method string, id int64, status int, raw []byte) (json.RawMessage, error) {
	var resp rpcResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		if status < 200 || status >= 300 {
			return nil, fmt.Errorf("%w: HTTP %d: %s", ErrConnectionFailed, status, truncate(raw, 1024))
		}
		return nil, fmt.Errorf("%w: decode response: %w", ErrInvalidResponse, err)
	}
	if resp.Error != nil {
		return nil, &RPCError{Method: method, Code: resp.Error.Code, Message: resp.Error.Message}
	}
	if resp.ID != id {
		return nil, fmt.Errorf("%w: response ID mismatch: expected %d, got %d", ErrInvalidResponse, id, resp.ID)
	}
	return resp.Result, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
