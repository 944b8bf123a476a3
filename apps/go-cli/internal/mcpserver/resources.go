package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/slush-dev/pushclient/messaging"
)

func (g *PushMCPServer) registerResources() {
	g.server.AddResource(&mcp.Resource{
		URI:         statusURI,
		Name:        "Client Status",
		Description: "Last token request outcome, listening state and message count",
		MIMEType:    "application/json",
	}, g.handleStatusResource)

	g.server.AddResource(&mcp.Resource{
		URI:         messagesURI,
		Name:        "Last Message",
		Description: "Most recent foreground message; subscribe for updates while listening",
		MIMEType:    "application/json",
	}, g.handleMessagesResource)
}

func (g *PushMCPServer) handleStatusResource(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	g.mu.RLock()
	tokenStatus := g.tokenStatus
	received := g.received
	lastAt := g.lastAt
	g.mu.RUnlock()

	g.listenMu.Lock()
	listening := g.listening
	streaming := g.sub != nil
	g.listenMu.Unlock()

	cfg := g.messaging.App().Config()
	status := map[string]any{
		"app":               g.messaging.App().Name(),
		"project_id":        cfg.ProjectID,
		"listening":         listening,
		"streaming":         streaming,
		"messages_received": received,
	}
	if tokenStatus != 0 {
		status["token_status"] = tokenStatus.String()
	}
	if !lastAt.IsZero() {
		status["last_message_at"] = lastAt.UTC().Format(time.RFC3339)
	}
	return jsonResource(req.Params.URI, status)
}

func (g *PushMCPServer) handleMessagesResource(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	g.mu.RLock()
	last := g.lastMessage
	g.mu.RUnlock()

	result := map[string]any{"message": last}
	return jsonResource(req.Params.URI, result)
}

// jsonResource marshals v to JSON and wraps it in a ReadResourceResult.
func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// setTokenStatus records the outcome of the last request_token call.
func (g *PushMCPServer) setTokenStatus(s messaging.TokenStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokenStatus = s
}
