package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/ironsheep/ihc-metrics-mcp/internal/server"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdin/stdout (default)",
		Long: `Serve the IHC metrics tools over the Model Context Protocol using stdio.

Configure it in your MCP client (e.g., Claude Desktop) as a stdio server. Logs go
to stderr; stdout carries the protocol.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger.Debug("starting", "version", Version, "build_time", BuildTime, "commit", GitCommit)

	srv := server.New(settings.Calibration, logger, Version)
	return srv.Run(cmd.Context(), &mcp.StdioTransport{})
}
