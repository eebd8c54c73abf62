// Package jsonrpc implements JSON-RPC 2.0 messages with Content-Length
// framing over byte streams, as used by MCP stdio transports. This
// package is importable by external tooling that speaks to the server.
package jsonrpc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// maxFrameBytes bounds a single framed message.
const maxFrameBytes = 16 << 20

// ErrMalformedFrame reports an unrecoverable transport error: a broken
// header block means the byte stream can no longer be resynchronized.
var ErrMalformedFrame = errors.New("malformed frame header")

// Message is a JSON-RPC 2.0 request, response, or notification. A nil ID
// with a method set means notification.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *ErrorShape     `json:"error,omitempty"`
}

// ErrorShape is the JSON-RPC error member.
type ErrorShape struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// IsNotification reports whether the message expects no response.
func (m *Message) IsNotification() bool {
	return m.Method != "" && len(m.ID) == 0
}

// NewResult creates a success response for the given request id.
func NewResult(id json.RawMessage, result any) *Message {
	return &Message{JSONRPC: "2.0", ID: id, Result: result}
}

// NewError creates an error response for the given request id.
func NewError(id json.RawMessage, code int, message string) *Message {
	return &Message{JSONRPC: "2.0", ID: id, Error: &ErrorShape{Code: code, Message: message}}
}

// Reader decodes Content-Length framed messages from a byte stream.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r for frame decoding.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 64*1024)}
}

// Read returns the next framed message. io.EOF signals a clean end of
// stream between frames; ErrMalformedFrame wraps header violations.
func (r *Reader) Read() (*Message, error) {
	contentLength := -1
	sawHeader := false

	for {
		line, err := r.r.ReadString('\n')
		if err != nil {
			if err == io.EOF && !sawHeader && line == "" {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		sawHeader = true

		name, value, found := strings.Cut(line, ":")
		if !found {
			return nil, fmt.Errorf("%w: header %q", ErrMalformedFrame, line)
		}
		if strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("%w: content length %q", ErrMalformedFrame, value)
			}
			contentLength = n
		}
	}

	if contentLength < 0 {
		return nil, fmt.Errorf("%w: missing Content-Length", ErrMalformedFrame)
	}
	if contentLength > maxFrameBytes {
		return nil, fmt.Errorf("%w: frame of %d bytes exceeds limit", ErrMalformedFrame, contentLength)
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(r.r, body); err != nil {
		return nil, fmt.Errorf("%w: truncated body: %v", ErrMalformedFrame, err)
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		// A parse error is recoverable: framing stays intact.
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return &msg, nil
}

// Writer encodes Content-Length framed messages onto a byte stream.
type Writer struct {
	w io.Writer
}

// NewWriter wraps w for frame encoding.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write frames and sends one message.
func (w *Writer) Write(msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if _, err := fmt.Fprintf(w.w, "Content-Length: %d\r\n\r\n", len(body)); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.w.Write(body); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	return nil
}
