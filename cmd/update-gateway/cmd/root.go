package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/update-gateway/internal/logger"
	"github.com/oshokin/update-gateway/internal/service/server"
	"github.com/oshokin/update-gateway/internal/version"
)

var (
	// configPath to the configuration YAML file; empty means the default file if present.
	configPath string
	// listenAddress overrides the HTTP listen address.
	listenAddress string
	// logLevel overrides the configured log level.
	logLevel string

	// rootCmd represents the base command for running the gateway.
	rootCmd = &cobra.Command{
		Use:   "update-gateway",
		Short: "Serve update manifests and proxy release assets from private repositories.",
		Long: `Starts the update gateway.

Desktop applications ask whether a newer version exists for their product,
channel, platform and architecture. The gateway looks up the product's private
GitHub releases, answers with an update manifest or 204 No Content, and proxies
the installer download so the repository token never leaves the server.

Products come from the configuration file and from <PRODUCT>_TOKEN,
<PRODUCT>_OWNER and <PRODUCT>_REPO environment variables.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				LogLevel:      logLevel,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the update-gateway CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	ctx := context.Background()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		logger.Errorf(ctx, "update-gateway: %v", err)
	}

	logger.Sync()

	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file (default update-gateway.yaml if present)")
	rootCmd.Flags().StringVarP(&listenAddress, "listen", "l", "", "HTTP listen address, overrides config and ADDRESS/PORT")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(productsCmd, healthcheckCmd, initCmd)
}
