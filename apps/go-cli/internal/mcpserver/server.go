package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/slush-dev/pushclient"
	"github.com/slush-dev/pushclient/messaging"
)

const (
	statusURI   = "push://status"
	messagesURI = "push://messages"
)

// PushMCPServer wraps an MCP server exposing a messaging client as tools and
// resources.
type PushMCPServer struct {
	server    *mcp.Server
	messaging *messaging.Messaging
	logger    *slog.Logger

	mu          sync.RWMutex
	tokenStatus messaging.TokenStatus
	lastMessage *pushclient.MessagePayload
	lastAt      time.Time
	received    int

	listenMu     sync.Mutex
	listening    bool
	listenCancel context.CancelFunc
	listenDone   chan struct{}
	sub          *messaging.Subscription
}

// New creates a PushMCPServer for m.
func New(m *messaging.Messaging, version string, logger *slog.Logger) *PushMCPServer {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "pushclient",
		Version: version,
	}, &mcp.ServerOptions{
		SubscribeHandler:   func(context.Context, *mcp.SubscribeRequest) error { return nil },
		UnsubscribeHandler: func(context.Context, *mcp.UnsubscribeRequest) error { return nil },
	})

	g := &PushMCPServer{
		server:    s,
		messaging: m,
		logger:    logger,
	}
	g.registerResources()
	g.registerTools()
	return g
}

// Run starts the MCP server on stdio and blocks until done. The listener, if
// running, is stopped on return.
func (g *PushMCPServer) Run(ctx context.Context) error {
	defer g.stopListening()
	return g.server.Run(ctx, &mcp.StdioTransport{})
}

// RunWithTransport starts the MCP server on a custom transport (for testing).
func (g *PushMCPServer) RunWithTransport(ctx context.Context, t mcp.Transport) error {
	_, err := g.server.Connect(ctx, t, nil)
	return err
}

// recordMessage stores p as the most recent message.
func (g *PushMCPServer) recordMessage(p pushclient.MessagePayload) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastMessage = &p
	g.lastAt = time.Now()
	g.received++
}

func (g *PushMCPServer) notifyStatus(ctx context.Context) {
	g.server.ResourceUpdated(ctx, &mcp.ResourceUpdatedNotificationParams{URI: statusURI})
}

// jsonResult marshals v to JSON and returns it as a text CallToolResult.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil
}

// errorResult returns a CallToolResult with IsError=true.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}
