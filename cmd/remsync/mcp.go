package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/alexjbarnes/remsync/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the device library to MCP clients over HTTP",
	Long: `Holds a connection to the device open and exposes the library to MCP
clients: listing the tree, fetching object metadata, and downloading
documents. Set REMSYNC_MCP_TOKEN to require a bearer token.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		ch, err := dial(ctx)
		if err != nil {
			return err
		}
		defer ch.Close()

		lib := mcpserver.NewLibrary(ch, logger)

		mcpServer := mcp.NewServer(
			&mcp.Implementation{Name: "remsync", Version: Version},
			nil,
		)
		mcpserver.RegisterTools(mcpServer, lib)

		mcpHandler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
			return mcpServer
		}, nil)

		var handler http.Handler = mcpHandler
		if cfg.MCPToken != "" {
			handler = mcpserver.RequireToken(cfg.MCPToken, mcpHandler)
		}

		mux := http.NewServeMux()
		mux.Handle("/mcp", handler)

		server := &http.Server{
			Addr:         cfg.MCPListenAddr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		logger.Info("starting MCP server",
			slog.String("listen", cfg.MCPListenAddr),
			slog.String("device", cfg.Host),
			slog.Bool("auth", cfg.MCPToken != ""),
		)

		// Shutdown when context is cancelled.
		go func() {
			<-ctx.Done()
			logger.Info("shutting down MCP server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("MCP server error: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
