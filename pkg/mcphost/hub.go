// Package mcphost runs the external tool servers (messaging, calendar, maps) as
// stdio MCP clients and exposes their tools under one namespace.
package mcphost

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotConnected = errors.New("mcp server not connected")
	ErrTimeout      = errors.New("mcp tool call timed out")
	ErrRemoteTool   = errors.New("mcp tool reported an error")
	ErrUnknownTool  = errors.New("mcp tool not found")
)

// Session is the subset of an MCP client the hub needs.
type Session interface {
	ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

var _ Session = (*client.Client)(nil)

// Dialer starts and initialises one server.
type Dialer func(ctx context.Context, cfg ServerConfig) (Session, error)

// StdioDialer spawns the server command and performs the MCP handshake.
func StdioDialer(clientName, version string) Dialer {
	return func(ctx context.Context, cfg ServerConfig) (Session, error) {
		env := make([]string, 0, len(cfg.Env))
		for k, v := range cfg.Env {
			env = append(env, k+"="+v)
		}
		sort.Strings(env)

		c, err := client.NewStdioMCPClient(cfg.Command, env, cfg.Args...)
		if err != nil {
			return nil, fmt.Errorf("spawn %s: %w", cfg.Command, err)
		}

		var req mcp.InitializeRequest
		req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
		req.Params.ClientInfo = mcp.Implementation{Name: clientName, Version: version}
		if _, err := c.Initialize(ctx, req); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("initialize: %w", err)
		}
		return c, nil
	}
}

// RemoteTool is one tool advertised by a connected server. Name is the
// name agents see; Remote is the name on the server.
type RemoteTool struct {
	Server      string
	Name        string
	Remote      string
	Description string
	InputSchema mcp.ToolInputSchema
}

type ServerStatus struct {
	Name      string   `json:"name"`
	Connected bool     `json:"connected"`
	Tools     []string `json:"tools"`
	LastError string   `json:"last_error,omitempty"`
}

type server struct {
	name    string
	session Session
	tools   []mcp.Tool
	lastErr string
}

type Hub struct {
	dial    Dialer
	timeout time.Duration

	mu      sync.RWMutex
	servers map[string]*server
	order   []string
}

func NewHub(dial Dialer, toolTimeout time.Duration) *Hub {
	return &Hub{
		dial:    dial,
		timeout: toolTimeout,
		servers: make(map[string]*server),
	}
}

// Connect starts one server and discovers its tools. A failed server is
// remembered for status reporting and its tools are simply absent.
func (h *Hub) Connect(ctx context.Context, cfg ServerConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("mcp: server name is required")
	}

	s := &server{name: cfg.Name}
	h.mu.Lock()
	if _, exists := h.servers[cfg.Name]; exists {
		h.mu.Unlock()
		return fmt.Errorf("mcp: server %s already connected", cfg.Name)
	}
	h.servers[cfg.Name] = s
	h.order = append(h.order, cfg.Name)
	h.mu.Unlock()

	session, err := h.dial(ctx, cfg)
	if err != nil {
		h.fail(s, err)
		return fmt.Errorf("mcp: start %s: %w", cfg.Name, err)
	}

	listed, err := session.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		_ = session.Close()
		h.fail(s, err)
		return fmt.Errorf("mcp: list tools on %s: %w", cfg.Name, err)
	}

	h.mu.Lock()
	s.session = session
	s.tools = listed.Tools
	h.mu.Unlock()

	log.Info().Str("server", cfg.Name).Int("tools", len(listed.Tools)).Msg("mcp server connected")
	return nil
}

func (h *Hub) fail(s *server, err error) {
	h.mu.Lock()
	s.lastErr = err.Error()
	h.mu.Unlock()
}

// Connected reports whether the named server finished its handshake.
func (h *Hub) Connected(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.servers[name]
	return ok && s.session != nil
}

// Tools lists every discovered tool. Names stay as the server advertises them
// unless two servers share a name, in which case both become server__tool.
func (h *Hub) Tools() []RemoteTool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	counts := make(map[string]int)
	for _, name := range h.order {
		for _, t := range h.servers[name].tools {
			counts[t.Name]++
		}
	}

	out := make([]RemoteTool, 0)
	for _, name := range h.order {
		s := h.servers[name]
		for _, t := range s.tools {
			exposed := t.Name
			if counts[t.Name] > 1 {
				exposed = s.name + "__" + t.Name
				log.Warn().Str("server", s.name).Str("tool", t.Name).Str("exposed_as", exposed).Msg("mcp tool name collision")
			}
			out = append(out, RemoteTool{
				Server:      s.name,
				Name:        exposed,
				Remote:      t.Name,
				Description: t.Description,
				InputSchema: t.InputSchema,
			})
		}
	}
	return out
}

// Call invokes a tool under the hub's tool timeout and returns the
// concatenated text content of the result.
func (h *Hub) Call(ctx context.Context, serverName, toolName string, args map[string]any) (string, error) {
	h.mu.RLock()
	s, ok := h.servers[serverName]
	var session Session
	if ok {
		session = s.session
	}
	h.mu.RUnlock()

	if session == nil {
		return "", fmt.Errorf("%w: %s", ErrNotConnected, serverName)
	}

	callCtx := ctx
	if h.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	if args == nil {
		args = map[string]any{}
	}

	var req mcp.CallToolRequest
	req.Params.Name = toolName
	req.Params.Arguments = args

	res, err := session.CallTool(callCtx, req)
	if err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %s/%s after %s", ErrTimeout, serverName, toolName, h.timeout)
		}
		return "", fmt.Errorf("mcp: call %s/%s: %w", serverName, toolName, err)
	}

	text := TextContent(res)
	if res.IsError {
		return text, fmt.Errorf("%w: %s/%s: %s", ErrRemoteTool, serverName, toolName, text)
	}
	return text, nil
}

// TextContent joins the text parts of a tool result.
func TextContent(res *mcp.CallToolResult) string {
	if res == nil {
		return ""
	}
	parts := make([]string, 0, len(res.Content))
	for _, c := range res.Content {
		switch v := c.(type) {
		case mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func (h *Hub) Status() []ServerStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]ServerStatus, 0, len(h.order))
	for _, name := range h.order {
		s := h.servers[name]
		names := make([]string, len(s.tools))
		for i, t := range s.tools {
			names[i] = t.Name
		}
		out = append(out, ServerStatus{
			Name:      s.name,
			Connected: s.session != nil,
			Tools:     names,
			LastError: s.lastErr,
		})
	}
	return out
}

// Close shuts down every server process.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var errs []error
	for _, name := range h.order {
		s := h.servers[name]
		if s.session == nil {
			continue
		}
		if err := s.session.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
		s.session = nil
	}
	return errors.Join(errs...)
}
