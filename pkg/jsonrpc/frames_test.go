package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	req := &Message{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "initialize"}
	if err := w.Write(req); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "Content-Length: ") {
		t.Fatalf("missing header: %q", buf.String())
	}

	r := NewReader(&buf)
	got, err := r.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Method != "initialize" || string(got.ID) != "1" {
		t.Fatalf("round trip: %+v", got)
	}

	if _, err := r.Read(); err != io.EOF {
		t.Fatalf("expected EOF after last frame, got %v", err)
	}
}

func TestReadMultipleFrames(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, method := range []string{"ping", "tools/list", "shutdown"} {
		if err := w.Write(&Message{JSONRPC: "2.0", ID: json.RawMessage(`"x"`), Method: method}); err != nil {
			t.Fatalf("Write %s: %v", method, err)
		}
	}

	r := NewReader(&buf)
	for _, want := range []string{"ping", "tools/list", "shutdown"} {
		msg, err := r.Read()
		if err != nil {
			t.Fatalf("Read %s: %v", want, err)
		}
		if msg.Method != want {
			t.Fatalf("method = %q, want %q", msg.Method, want)
		}
	}
}

func TestReadExtraHeadersIgnored(t *testing.T) {
	raw := "Content-Type: application/json\r\nContent-Length: 27\r\n\r\n" +
		`{"jsonrpc":"2.0","id":"a7"}`
	msg, err := NewReader(strings.NewReader(raw)).Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(msg.ID) != `"a7"` {
		t.Fatalf("id = %s", msg.ID)
	}
}

func TestReadMalformedHeader(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"no colon", "garbage header\r\n\r\n{}"},
		{"bad length", "Content-Length: many\r\n\r\n{}"},
		{"missing length", "Content-Type: application/json\r\n\r\n{}"},
		{"truncated body", "Content-Length: 50\r\n\r\n{}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewReader(strings.NewReader(tc.raw)).Read()
			if !errors.Is(err, ErrMalformedFrame) {
				t.Fatalf("expected ErrMalformedFrame, got %v", err)
			}
		})
	}
}

func TestReadInvalidJSONBodyIsNotFatal(t *testing.T) {
	raw := "Content-Length: 8\r\n\r\nnot json"
	_, err := NewReader(strings.NewReader(raw)).Read()
	if err == nil {
		t.Fatal("expected decode error")
	}
	if errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("decode error must not be a framing error: %v", err)
	}
}

func TestIsNotification(t *testing.T) {
	note := &Message{JSONRPC: "2.0", Method: "notifications/initialized"}
	if !note.IsNotification() {
		t.Fatal("notification not detected")
	}
	req := &Message{JSONRPC: "2.0", ID: json.RawMessage(`3`), Method: "ping"}
	if req.IsNotification() {
		t.Fatal("request misread as notification")
	}
}

func TestErrorHelpers(t *testing.T) {
	id := json.RawMessage(`5`)
	resp := NewError(id, CodeMethodNotFound, "unknown method")
	if resp.Error == nil || resp.Error.Code != -32601 {
		t.Fatalf("error response: %+v", resp)
	}
	ok := NewResult(id, map[string]string{"pong": "true"})
	if ok.Error != nil || ok.Result == nil {
		t.Fatalf("result response: %+v", ok)
	}
}
