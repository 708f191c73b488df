package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/internal/cli"
	"github.com/aretw0/chatflow/pkg/adapters/mcp"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes flow authoring as MCP tools: install, inspect, validate and diagram the flow, and
read back sessions and transcripts from the configured stores.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("sse-addr")
		baseURL, _ := cmd.Flags().GetString("base-url")

		logger, err := newLogger()
		if err != nil {
			return err
		}
		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		// The MCP surface never chats, so nothing is ever sent.
		app, err := cli.Build(sigCtx, cfg, ports.SenderFunc(func(ctx context.Context, sessionID, text string) error {
			return nil
		}), cli.WithLogger(logger))
		if err != nil {
			return err
		}
		defer app.Close()

		if cfg.FlowPath != "" {
			if _, err := cli.LoadFlow(sigCtx, app.Engine, cfg.FlowPath); err != nil {
				return err
			}
		} else if _, err := app.Engine.Restore(sigCtx); err != nil {
			logger.Warn("Flow snapshot restore failed", "err", err)
		}

		opts := []mcp.Option{
			mcp.WithSessions(app.Engine),
			mcp.WithVersion(strings.TrimSpace(chatflow.Version)),
			mcp.WithLogger(logger),
		}
		if app.Transcripts != nil {
			opts = append(opts, mcp.WithTranscripts(app.Transcripts))
		}
		srv := mcp.NewServer(app.Engine.Flows(), opts...)

		switch transport {
		case "stdio":
			// Ensure logs don't corrupt JSON-RPC on Stdout
			log.SetOutput(cmd.ErrOrStderr())
			logger.Info("Starting chatflow MCP Server (Stdio)")
			return srv.ServeStdio()
		case "sse":
			if baseURL == "" {
				baseURL = "http://localhost" + addr
			}
			if err := srv.ServeSSE(sigCtx, addr, baseURL); err != nil {
				return err
			}
			logger.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringP("transport", "t", "stdio", "Transport: stdio or sse")
	mcpCmd.Flags().String("sse-addr", ":8081", "Listen address of the SSE transport")
	mcpCmd.Flags().String("base-url", "", "Public base URL announced by the SSE transport")
}
