package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/botflow/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the bots to MCP clients through the send_message, inspect_session
and reset_session tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := buildApp(ctx, nil)
		if err != nil {
			return err
		}
		defer app.Close()
		if app.Recorder == nil {
			return errors.New("mcp returns replies to the caller: unset webhook.url")
		}

		srv := mcp.NewServer(app.Repo, app.Turns, app.Sessions, app.Recorder, mcp.WithLogger(logger))

		switch transport {
		case "stdio":
			// Logs go to stderr so they never corrupt JSON-RPC on stdout.
			logger.Info("starting mcp server (stdio)")
			return srv.ServeStdio()
		case "sse":
			addr := fmt.Sprintf(":%d", port)
			err := srv.ServeSSE(ctx, addr, fmt.Sprintf("http://localhost:%d", port))
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("mcp server stopped")
			return nil
		default:
			return fmt.Errorf("unknown transport %q (supported: stdio, sse)", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8081, "Port to listen on (only for SSE)")
}
