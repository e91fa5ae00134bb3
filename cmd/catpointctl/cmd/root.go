package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/catpoint/internal/config"
	"github.com/oshokin/catpoint/internal/service/client"
	"github.com/oshokin/catpoint/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// serverAddress overrides server_addr from the configuration.
	serverAddress string

	// rootCmd represents the base command of the control client.
	rootCmd = &cobra.Command{
		Use:   "catpointctl",
		Short: "Control a catpoint security server.",
		Long: `Arms and disarms the catpoint security system, manages sensors and sends camera images.

Every command prints the resulting status. The server address comes from the
configuration file or from --server; with --server the file is optional.`,
		SilenceUsage: true,
	}
)

// Execute runs the catpointctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// run executes action with a signal-aware context.
func run(cmd *cobra.Command, action client.Action) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	options := &client.Options{
		ConfigPath:    configPath,
		ServerAddress: serverAddress,
		Output:        cmd.OutOrStdout(),
	}

	if err := client.Run(ctx, options, action); err != nil {
		return fmt.Errorf("%s: %w", cmd.CommandPath(), err)
	}

	return nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&serverAddress, "server", "s", "", "server address, overrides server_addr")

	rootCmd.SetContext(context.Background())
}
