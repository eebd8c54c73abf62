package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/openclaw/control-room/pkg/jsonrpc"
)

// ProtocolVersion is the MCP revision this server speaks.
const ProtocolVersion = "2025-03-26"

// Server identity reported during initialize.
const (
	ServerName    = "control-room-mcp"
	ServerVersion = "0.1.0"
)

// Server answers MCP requests over a framed byte stream.
type Server struct {
	reader *jsonrpc.Reader
	writer *jsonrpc.Writer
	tools  []ToolDef
	byName map[string]ToolDef
}

// New creates a server over the given streams with the given tool set.
func New(in io.Reader, out io.Writer, tools []ToolDef) *Server {
	byName := make(map[string]ToolDef, len(tools))
	for _, def := range tools {
		byName[def.Tool.Name] = def
	}
	return &Server{
		reader: jsonrpc.NewReader(in),
		writer: jsonrpc.NewWriter(out),
		tools:  tools,
		byName: byName,
	}
}

// Serve processes requests until shutdown, EOF, or a transport failure.
// A framing error is returned to the caller; once headers are broken the
// stream cannot be trusted again.
func (s *Server) Serve(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		msg, err := s.reader.Read()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			if errors.Is(err, jsonrpc.ErrMalformedFrame) {
				return err
			}
			// The frame was intact but the body was not valid JSON-RPC.
			if writeErr := s.writer.Write(jsonrpc.NewError(nil, jsonrpc.CodeParseError, err.Error())); writeErr != nil {
				return writeErr
			}
			continue
		}

		done, err := s.dispatch(ctx, msg)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// dispatch handles one message. The bool result is true when the client
// requested shutdown.
func (s *Server) dispatch(ctx context.Context, msg *jsonrpc.Message) (bool, error) {
	if msg.IsNotification() {
		switch msg.Method {
		case "notifications/initialized":
			// Expected after initialize; nothing to do.
		default:
			slog.Debug("ignoring notification", "method", msg.Method)
		}
		return false, nil
	}

	switch msg.Method {
	case "initialize":
		return false, s.writer.Write(jsonrpc.NewResult(msg.ID, map[string]any{
			"protocolVersion": ProtocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": ServerName, "version": ServerVersion},
		}))

	case "ping":
		return false, s.writer.Write(jsonrpc.NewResult(msg.ID, map[string]any{}))

	case "tools/list":
		list := make([]mcpgo.Tool, 0, len(s.tools))
		for _, def := range s.tools {
			list = append(list, def.Tool)
		}
		return false, s.writer.Write(jsonrpc.NewResult(msg.ID, map[string]any{"tools": list}))

	case "tools/call":
		return false, s.handleToolCall(ctx, msg)

	case "shutdown":
		return true, s.writer.Write(jsonrpc.NewResult(msg.ID, map[string]any{}))

	default:
		return false, s.writer.Write(jsonrpc.NewError(msg.ID, jsonrpc.CodeMethodNotFound,
			fmt.Sprintf("method %q not found", msg.Method)))
	}
}

func (s *Server) handleToolCall(ctx context.Context, msg *jsonrpc.Message) error {
	var params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.writer.Write(jsonrpc.NewError(msg.ID, jsonrpc.CodeInvalidParams, err.Error()))
	}

	def, ok := s.byName[params.Name]
	if !ok {
		return s.writer.Write(jsonrpc.NewError(msg.ID, jsonrpc.CodeInvalidParams,
			fmt.Sprintf("unknown tool %q", params.Name)))
	}

	args := params.Arguments
	if args == nil {
		args = map[string]any{}
	}

	slog.Info("tool call", "tool", params.Name)
	result, callErr := def.Handler(ctx, args)
	if callErr != nil {
		slog.Warn("tool call failed", "tool", params.Name, "error", callErr)
	}
	return s.writer.Write(jsonrpc.NewResult(msg.ID, callResult(params.Name, result, callErr)))
}
