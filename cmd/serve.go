package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/docpilot/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing document listing, find/replace, edit plans and search as tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		mcpserver.Version = Version

		docs, err := a.service.List(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "docpilot MCP server started on stdio (documents=%d)\n", len(docs))

		return mcpserver.NewServer(a.service).Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
