package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/slush-dev/pushclient/messaging"
)

func listenTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "listen",
		Description: "Start receiving foreground messages in the background. Returns immediately; messages arrive as push://messages resource updates.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"buffer": {"type": "integer", "description": "Messages held before new ones are dropped (default: 16)"}
			}
		}`),
	}
}

func (g *PushMCPServer) handleListen(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Buffer int `json:"buffer"`
	}
	if req.Params.Arguments != nil {
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return errorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
	}

	g.listenMu.Lock()
	if g.sub != nil {
		g.listenMu.Unlock()
		return jsonResult(map[string]any{"listening": true, "message": "already listening"})
	}
	// Subscribe before connecting so nothing arrives without a handler.
	sub := g.messaging.Subscribe(args.Buffer)
	g.sub = sub
	g.ensureLoopLocked()
	g.listenMu.Unlock()

	go g.forward(sub)
	g.notifyStatus(ctx)

	return jsonResult(map[string]any{"listening": true, "subscription": sub.ID()})
}

func stopTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "stop",
		Description: "Stop receiving messages and disconnect from FCM.",
		InputSchema: json.RawMessage(`{"type": "object"}`),
	}
}

func (g *PushMCPServer) handleStop(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !g.stopListening() {
		return jsonResult(map[string]any{"listening": false, "message": "not listening"})
	}
	g.notifyStatus(ctx)
	return jsonResult(map[string]any{"listening": false})
}

// ensureLoopLocked starts the transport loop unless it is running.
// listenMu must be held.
func (g *PushMCPServer) ensureLoopLocked() {
	if g.listening {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	g.listening, g.listenCancel, g.listenDone = true, cancel, done

	go func() {
		defer close(done)
		if err := g.messaging.Listen(ctx); err != nil {
			g.logger.Error("Push listener stopped", "error", err)
		}

		g.listenMu.Lock()
		current := g.listenDone == done
		if current {
			g.listening, g.listenCancel, g.listenDone = false, nil, nil
			g.closeStreamLocked()
		}
		g.listenMu.Unlock()
		cancel()
		if current {
			g.notifyStatus(context.Background())
		}
	}()
}

// closeStreamLocked ends the listen stream, if any. listenMu must be held.
func (g *PushMCPServer) closeStreamLocked() bool {
	if g.sub == nil {
		return false
	}
	g.sub.Close()
	g.sub = nil
	return true
}

// stopListening ends the stream and the transport loop and waits for the loop
// to return. It reports whether anything was running.
func (g *PushMCPServer) stopListening() bool {
	g.listenMu.Lock()
	streamClosed := g.closeStreamLocked()
	if !g.listening {
		g.listenMu.Unlock()
		return streamClosed
	}
	cancel, done := g.listenCancel, g.listenDone
	g.listening, g.listenCancel, g.listenDone = false, nil, nil
	g.listenMu.Unlock()

	cancel()
	<-done
	return true
}

// forward publishes every message of sub as a push://messages update until
// sub is closed.
func (g *PushMCPServer) forward(sub *messaging.Subscription) {
	for p := range sub.C() {
		g.recordMessage(p)
		meta := mcp.Meta{
			"type":       "message",
			"message_id": p.MessageID,
		}
		if msgJSON, err := json.Marshal(p); err == nil {
			meta["message"] = json.RawMessage(msgJSON)
		}
		g.server.ResourceUpdated(context.Background(), &mcp.ResourceUpdatedNotificationParams{
			URI:  messagesURI,
			Meta: meta,
		})
	}
	if n := sub.Dropped(); n > 0 {
		g.logger.Warn("Messages dropped from listen stream", "subscription", sub.ID(), "count", n)
	}
}
