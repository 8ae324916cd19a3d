// Package mcp provides an MCP (Model Context Protocol) server exposing
// the stoch simulators, estimators, and calibrator as tools.
package mcp

import (
	"context"
	"fmt"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/quantforge/stoch/internal/ensemble"
	"github.com/quantforge/stoch/internal/ratelimit"
)

// Server wraps the MCP SDK server and provides stoch-specific tools.
type Server struct {
	server   *sdk.Server
	engine   *ensemble.Engine
	limiters ratelimit.ToolLimiters
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "stoch")
	Version string // Server version
	Workers int    // Ensemble parallelism (0 = one per CPU)
}

// NewServer creates a new MCP server with the stoch tools registered.
func NewServer(cfg *Config) (*Server, error) {
	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			// Client initialized, ready to serve
		},
	})

	s := &Server{
		server:   mcpServer,
		engine:   ensemble.New(cfg.Workers),
		limiters: ratelimit.NewToolLimiters(),
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)

	go func() {
		<-sigChan
		cancel()
	}()

	return s.server.Run(ctx, &sdk.StdioTransport{})
}
