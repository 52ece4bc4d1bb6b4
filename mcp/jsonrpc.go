package mcp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Minimal JSON-RPC 2.0 types, NDJSON framed.

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// readNDJSON reads one JSON value per line. A line that is not valid
// JSON is returned as a frame error so the caller can answer with a
// parse error instead of dropping the connection.
func readNDJSON(r *bufio.Reader) (*Request, error) {
	for {
		line, err := r.ReadBytes('\n')
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			if err != nil {
				return nil, err
			}
			continue
		}
		var req Request
		if uerr := json.Unmarshal(trimmed, &req); uerr != nil {
			return nil, &frameError{err: fmt.Errorf("invalid json-rpc frame: %w", uerr)}
		}
		return &req, nil
	}
}

type frameError struct {
	err error
}

func (e *frameError) Error() string { return e.err.Error() }
func (e *frameError) Unwrap() error { return e.err }

func writeNDJSON(w io.Writer, resp *Response) error {
	resp.JSONRPC = "2.0"
	enc, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(enc, '\n')); err != nil {
		return err
	}
	return nil
}
