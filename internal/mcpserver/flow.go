package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"syscall"
	"time"

	"github.com/openclaw/control-room/pkg/jsonrpc"
)

// flowKillGrace is how long a child server gets to exit after its stdin
// closes before it is killed.
const flowKillGrace = 2 * time.Second

// FlowStep is one request/response exchange from a flow run.
type FlowStep struct {
	Method string `json:"method"`
	Tool   string `json:"tool,omitempty"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// RunFlow spawns the server command as a child process and drives a full
// client exchange against it over stdio: initialize, the initialized
// notification, tools/list, one tools/call per listed tool name in
// callTools, and shutdown. It reports one step per exchange.
func RunFlow(ctx context.Context, serverCmd []string, callTools map[string]map[string]any) ([]FlowStep, error) {
	if len(serverCmd) == 0 {
		return nil, fmt.Errorf("no server command")
	}

	cmd := exec.CommandContext(ctx, serverCmd[0], serverCmd[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start server: %w", err)
	}
	defer reapChild(cmd, stdin)

	writer := jsonrpc.NewWriter(stdin)
	reader := jsonrpc.NewReader(stdout)
	nextID := 0
	call := func(method string, params any) (*jsonrpc.Message, error) {
		nextID++
		id := json.RawMessage(fmt.Sprintf("%d", nextID))
		var raw json.RawMessage
		if params != nil {
			data, err := json.Marshal(params)
			if err != nil {
				return nil, err
			}
			raw = data
		}
		if err := writer.Write(&jsonrpc.Message{JSONRPC: "2.0", ID: id, Method: method, Params: raw}); err != nil {
			return nil, err
		}
		return reader.Read()
	}

	var steps []FlowStep
	record := func(method, tool string, resp *jsonrpc.Message, err error) error {
		step := FlowStep{Method: method, Tool: tool, OK: err == nil && resp != nil && resp.Error == nil}
		if err != nil {
			step.Detail = err.Error()
		} else if resp != nil && resp.Error != nil {
			step.Detail = resp.Error.Message
		}
		steps = append(steps, step)
		if err != nil {
			return err
		}
		return nil
	}

	resp, err := call("initialize", map[string]any{
		"protocolVersion": ProtocolVersion,
		"clientInfo":      map[string]any{"name": "control-room-flow", "version": ServerVersion},
	})
	if err := record("initialize", "", resp, err); err != nil {
		return steps, err
	}

	if err := writer.Write(&jsonrpc.Message{JSONRPC: "2.0", Method: "notifications/initialized"}); err != nil {
		return steps, fmt.Errorf("send initialized: %w", err)
	}

	resp, err = call("tools/list", nil)
	if err := record("tools/list", "", resp, err); err != nil {
		return steps, err
	}

	for tool, args := range callTools {
		resp, err = call("tools/call", map[string]any{"name": tool, "arguments": args})
		if err := record("tools/call", tool, resp, err); err != nil {
			return steps, err
		}
	}

	resp, err = call("shutdown", nil)
	if err := record("shutdown", "", resp, err); err != nil {
		return steps, err
	}
	return steps, nil
}

// reapChild closes the child's stdin and waits for exit, escalating to
// SIGKILL after the grace period.
func reapChild(cmd *exec.Cmd, stdin io.WriteCloser) {
	stdin.Close()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-done:
		return
	case <-time.After(flowKillGrace):
	}

	slog.Warn("mcp server did not exit, killing", "pid", cmd.Process.Pid)
	_ = cmd.Process.Signal(syscall.SIGKILL)
	<-done
}
