package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/slush-dev/pushclient/messaging"
)

const (
	defaultWaitTimeout = 60 * time.Second
	maxWaitTimeout     = 10 * time.Minute
)

func (g *PushMCPServer) registerTools() {
	g.server.AddTool(requestTokenTool(), g.handleRequestToken)
	g.server.AddTool(waitMessageTool(), g.handleWaitMessage)

	// Listen tools
	g.server.AddTool(listenTool(), g.handleListen)
	g.server.AddTool(stopTool(), g.handleStop)
}

func requestTokenTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "request_token",
		Description: "Request an FCM registration token using the configured VAPID key. Returns status (available, not_yet_available, permission_denied, transport_error) and the token when available.",
		InputSchema: json.RawMessage(`{"type": "object"}`),
	}
}

func (g *PushMCPServer) handleRequestToken(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res := g.messaging.RequestToken(ctx)
	g.setTokenStatus(res.Status)
	g.notifyStatus(ctx)

	row := map[string]any{"status": res.Status.String()}
	if token, ok := res.Value(); ok {
		row["token"] = token
	}
	if res.Err != nil {
		row["error"] = res.Err.Error()
	}
	out, err := jsonResult(row)
	if err != nil {
		return nil, err
	}
	out.IsError = res.Status == messaging.TokenPermissionDenied || res.Status == messaging.TokenTransportError
	return out, nil
}

func waitMessageTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "wait_message",
		Description: "Wait for the next foreground message and return it. Connects to FCM if needed and replaces a running listen stream.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"timeout_seconds": {"type": "integer", "description": "Seconds to wait before giving up (default: 60, max: 600)"}
			}
		}`),
	}
}

func (g *PushMCPServer) handleWaitMessage(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		TimeoutSeconds int `json:"timeout_seconds"`
	}
	if req.Params.Arguments != nil {
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return errorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
	}
	timeout := defaultWaitTimeout
	if args.TimeoutSeconds > 0 {
		timeout = min(time.Duration(args.TimeoutSeconds)*time.Second, maxWaitTimeout)
	}

	g.listenMu.Lock()
	streamClosed := g.closeStreamLocked()
	waitOne := g.messaging.ArmListener()
	g.ensureLoopLocked()
	g.listenMu.Unlock()
	if streamClosed {
		g.notifyStatus(ctx)
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	p, err := waitOne(waitCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return jsonResult(map[string]any{"received": false, "timed_out": true})
		}
		return errorResult(fmt.Sprintf("waiting for message: %v", err)), nil
	}

	g.recordMessage(p)
	return jsonResult(map[string]any{"received": true, "message": p})
}
