package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ragprompt/internal/httpapi"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var addr, uploadDir string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Serve POST /upload, GET /list-files and POST /process.

POST /process takes {"file_name", "document_type", "embedding_model_name",
"model_name", "additional_info"} and answers {"generated_text"}.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				appConfig.Server.Addr = addr
			}
			if uploadDir != "" {
				appConfig.Server.UploadDir = uploadDir
			}
			svc, err := newService(logger)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return httpapi.New(svc.Uploads(), svc, logger).ListenAndServe(ctx, appConfig.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config: :5000)")
	cmd.Flags().StringVar(&uploadDir, "upload-dir", "", "directory for uploaded files (default from config: uploads)")
	return cmd
}
