// Package mcpserver exposes registered tools over the Model Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"searchforge/internal/domain"
)

// ServerName is reported to MCP clients during initialization.
const ServerName = "searchforge"

// Server serves a fixed set of tools to one MCP client.
type Server struct {
	mcp    *server.MCPServer
	logger *slog.Logger
}

// New builds an MCP server advertising every tool in tools.
func New(tools []domain.Tool, version string, logger *slog.Logger) *Server {
	s := server.NewMCPServer(ServerName, version, server.WithToolCapabilities(false))
	for _, t := range tools {
		schema := t.Schema()
		s.AddTool(mcp.NewToolWithRawSchema(schema.Name, schema.Description, schema.Parameters), toolHandler(t, logger))
	}
	return &Server{mcp: s, logger: logger}
}

// ServeStdio speaks MCP over the given streams until ctx ends or in is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	s.logger.Info("mcp server listening on stdio")
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp stdio: %w", err)
	}
	return nil
}

// HandleMessage processes one JSON-RPC message. Used for in-process transports.
func (s *Server) HandleMessage(ctx context.Context, msg json.RawMessage) mcp.JSONRPCMessage {
	return s.mcp.HandleMessage(ctx, msg)
}

// toolHandler adapts a domain.Tool to the mcp-go handler signature. Tool
// failures become error results; only transport problems return a Go error.
func toolHandler(t domain.Tool, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(req.Params.Arguments)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if string(args) == "null" {
			args = []byte("{}")
		}

		res, err := t.Execute(ctx, args)
		if err != nil {
			logger.Error("mcp tool call failed", "tool", t.Name(), "error", err)
			return nil, err
		}
		if res.IsError {
			return mcp.NewToolResultError(res.Content), nil
		}
		return mcp.NewToolResultText(res.Content), nil
	}
}
