package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"
)

// rpcClient speaks the server's newline-delimited JSON-RPC dialect
// over the configured unix socket.
type rpcClient struct {
	socket      string
	dialTimeout time.Duration
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int    `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcRespError   `json:"error"`
	ID      any             `json:"id"`
}

type rpcRespError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Server-assigned application error codes, mirrored here so the CLI
// can render them without leaking raw code numbers at the user.
const (
	rpcCodeNotFound        = 40400
	rpcCodeSchemaViolation = 42200
)

func newRPCClient(cfg cliConfig) *rpcClient {
	timeout := time.Duration(cfg.DialTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultDialTimeoutSeconds * time.Second
	}
	return &rpcClient{socket: cfg.Socket, dialTimeout: timeout}
}

func (c *rpcClient) call(ctx context.Context, method string, params any, out any) error {
	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socket)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.socket, err)
	}
	defer func() { _ = conn.Close() }()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	req := rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return err
	}

	var resp rpcResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return err
	}
	if resp.Error != nil {
		switch resp.Error.Code {
		case rpcCodeNotFound, rpcCodeSchemaViolation:
			// The server already phrases these for people.
			return errors.New(resp.Error.Message)
		}
		return fmt.Errorf("rpc error (%d): %s", resp.Error.Code, resp.Error.Message)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(resp.Result, out)
}
