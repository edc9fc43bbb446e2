package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ragprompt/internal/config"
	"ragprompt/internal/logging"
	"ragprompt/internal/service"
)

var (
	cfgFile  string
	logLevel string

	appConfig *config.AppConfig
	logger    *slog.Logger
)

// NewRootCmd creates the command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ragprompt",
		Short: "Generate grounded documents from a single file",
		Long: `ragprompt indexes one document at a time, retrieves the passages most
relevant to the requested document type and asks a language model to write
it (an elevator pitch by default) from those passages only.

Each run builds a private vector index that is destroyed as soon as the
prompt has been built.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadConfig,
	}

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./config.yaml, then ~/.config/ragprompt/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")

	cmd.AddCommand(NewProcessCmd())
	cmd.AddCommand(NewPromptCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewTUICmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func loadConfig(cmd *cobra.Command, args []string) error {
	// .env is optional
	_ = godotenv.Load()

	var (
		cfg *config.AppConfig
		err error
	)
	if cfgFile == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgFile)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	l, err := logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return err
	}
	appConfig, logger = cfg, l
	return nil
}

func newService(l *slog.Logger) (*service.RAGService, error) {
	svc, err := service.FromConfig(appConfig, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	return svc, nil
}
