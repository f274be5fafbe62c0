// Package mcp exposes the actguard control plane as MCP tools so an agent
// host can route sensitive browser actions through the gate. The server is a
// thin adapter: all gating, auditing, and state live in the dispatcher.
package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/okume/actguard/internal/approval"
	"github.com/okume/actguard/internal/dispatch"
)

// Config holds MCP server wiring.
type Config struct {
	Dispatcher *dispatch.Dispatcher
	Approvals  *approval.Store
	Version    string
}

// Server wraps the MCP SDK server around one dispatcher.
type Server struct {
	mcpServer  *mcpsdk.Server
	dispatcher *dispatch.Dispatcher
	approvals  *approval.Store
}

// New creates an MCP server with all actguard tools registered.
func New(cfg Config) (*Server, error) {
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("mcp: dispatcher is required")
	}
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}

	s := &Server{
		dispatcher: cfg.Dispatcher,
		approvals:  cfg.Approvals,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "actguard",
			Version: cfg.Version,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// registerTools adds all actguard tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "actguard_dispatch",
		Description: "Route a sensitive browser action through the actguard gate. Denied or cancelled actions return the structured reason.",
	}, s.handleDispatch)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "actguard_check",
		Description: "Predict the gate decision for an action without performing it, prompting, or writing audit events (dry-run).",
	}, s.handleCheck)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "actguard_risk",
		Description: "Report the risk score, level, and per-setting contributions for the current configuration.",
	}, s.handleRisk)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "actguard_pending",
		Description: "List confirmation requests waiting for a decision.",
	}, s.handlePending)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "actguard_approve",
		Description: "Approve a pending confirmation request by key.",
	}, s.handleApprove)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "actguard_deny",
		Description: "Deny a pending confirmation request by key.",
	}, s.handleDeny)
}
