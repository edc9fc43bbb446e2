package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	internalmcp "ragprompt/internal/mcpserver"
)

// NewMCPCmd creates the MCP command.
func NewMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Runs ragprompt as an MCP (Model Context Protocol) server on stdio,
exposing the list_files and generate_document tools over the upload directory.`,
		Example: `  # claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "ragprompt": {"command": "ragprompt", "args": ["mcp"]}
  #   }
  # }`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(logger)
			if err != nil {
				return err
			}
			server := internalmcp.NewServer(versionInfo.Version, svc, svc.Uploads(), logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("mcp server starting on stdio", "upload_dir", appConfig.Server.UploadDir)
			serverErr := make(chan error, 1)
			go func() {
				serverErr <- mcpserver.ServeStdio(server)
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutdown signal received")
			case err := <-serverErr:
				if err != nil {
					return fmt.Errorf("server error: %w", err)
				}
			}
			return nil
		},
	}
}
