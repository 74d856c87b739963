// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the provenance ledger as tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/othala/internal/registrar"
	"github.com/starford/othala/internal/reward"
)

// Server wraps the MCP server with Othala tools.
type Server struct {
	mcp       *server.MCPServer
	registrar *registrar.Service
	rewards   *reward.Service
}

// New creates a new MCP server with all ledger tools registered.
func New(reg *registrar.Service, rwd *reward.Service) *Server {
	s := &Server{registrar: reg, rewards: rwd}

	s.mcp = server.NewMCPServer(
		"Othala",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("register_work",
		mcp.WithDescription("Register a creative work: mints its ownership token, records provenance, "+
			"attaches license terms, and pays the caller the per-event reward when funded."),
		mcp.WithString("caller", mcp.Required(), mcp.Description("Account credited as creator")),
		mcp.WithString("work_id", mcp.Required(), mcp.Description("Externally assigned work identifier")),
		mcp.WithString("metadata_pointer", mcp.Description("Optional pointer to the work's metadata (URI, CID)")),
	), s.registerWork)

	s.mcp.AddTool(mcp.NewTool("get_work",
		mcp.WithDescription("Look up a registered work by its external identifier."),
		mcp.WithString("work_id", mcp.Required(), mcp.Description("Work identifier")),
	), s.getWork)

	s.mcp.AddTool(mcp.NewTool("create_derivative",
		mcp.WithDescription("Register a work as a derivative (remix) of an existing parent work. "+
			"The parent must already be registered; a child can have at most one parent edge."),
		mcp.WithString("caller", mcp.Required(), mcp.Description("Account credited as creator of the child")),
		mcp.WithString("parent_work_id", mcp.Required(), mcp.Description("Work identifier of the parent")),
		mcp.WithString("child_work_id", mcp.Required(), mcp.Description("Work identifier for the new child")),
		mcp.WithString("metadata_pointer", mcp.Description("Optional pointer to the child's metadata")),
		mcp.WithString("category", mcp.Description("Free-form derivation category (e.g. remix, translation)")),
	), s.createDerivative)

	s.mcp.AddTool(mcp.NewTool("list_children",
		mcp.WithDescription("List the child work ids of a parent work in creation order."),
		mcp.WithString("parent_work_id", mcp.Required(), mcp.Description("Work identifier of the parent")),
	), s.listChildren)

	s.mcp.AddTool(mcp.NewTool("get_derivative",
		mcp.WithDescription("Look up the derivative edge owned by a child work."),
		mcp.WithString("child_work_id", mcp.Required(), mcp.Description("Work identifier of the child")),
	), s.getDerivative)

	s.mcp.AddTool(mcp.NewTool("balance_of",
		mcp.WithDescription("Return the reward balance of an account."),
		mcp.WithString("holder", mcp.Required(), mcp.Description("Account identifier")),
	), s.balanceOf)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) registerWork(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	caller, err := req.RequireString("caller")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	workID, err := req.RequireString("work_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	metadata := ""
	if m, err := req.RequireString("metadata_pointer"); err == nil {
		metadata = m
	}

	work, err := s.registrar.RegisterWork(ctx, caller, workID, metadata)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(work, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getWork(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workID, err := req.RequireString("work_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	work, err := s.registrar.GetWork(ctx, workID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", workID)), nil
	}
	out, _ := json.MarshalIndent(work, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createDerivative(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	caller, err := req.RequireString("caller")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	parentID, err := req.RequireString("parent_work_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	childID, err := req.RequireString("child_work_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	metadata := ""
	if m, err := req.RequireString("metadata_pointer"); err == nil {
		metadata = m
	}
	category := ""
	if c, err := req.RequireString("category"); err == nil {
		category = c
	}

	work, edge, err := s.registrar.CreateDerivative(ctx, caller, parentID, childID, metadata, category)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{"work": work, "edge": edge}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listChildren(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	parentID, err := req.RequireString("parent_work_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	children, err := s.registrar.GetChildren(ctx, parentID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(children) == 0 {
		return mcp.NewToolResultText("no children found"), nil
	}
	return mcp.NewToolResultText(strings.Join(children, "\n")), nil
}

func (s *Server) getDerivative(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	childID, err := req.RequireString("child_work_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	edge, err := s.registrar.GetDerivativeEdge(ctx, childID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("no derivative edge for: %s", childID)), nil
	}
	out, _ := json.MarshalIndent(edge, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) balanceOf(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	holder, err := req.RequireString("holder")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	balance, err := s.rewards.BalanceOf(ctx, holder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d", balance)), nil
}
