// Package cli provides the command-line interface for the revenue API
// client.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/operasoftware/revenueapi-go/internal/client"
	"github.com/operasoftware/revenueapi-go/internal/config"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	cfgFile string

	// Loaded in PersistentPreRunE, shared by all subcommands.
	cfg       config.Config
	apiClient *client.Client
	closeLog  = func() error { return nil }
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "opera-revenue",
	Short: "Client for the Opera revenue reporting API",
	Long: `opera-revenue pulls revenue reports from the Opera revenue API and
pushes locally produced CSV revenue data to it.

Uploads are asynchronous on the API side: a submission returns a job id
and the job is polled until it succeeds or fails. The upload command can
wait for the job itself, or submit now and check the status later.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Credentials are not needed to print the version or help.
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger, cleanup := config.SetupLogger(cfg.Log)
		slog.SetDefault(logger)
		closeLog = cleanup

		apiClient, err = client.New(client.Config{
			User:       cfg.User,
			Token:      cfg.Token,
			APIURL:     cfg.APIURL,
			APIVersion: cfg.APIVersion,
			Timeout:    cfg.Timeout,
		})
		if err != nil {
			return fmt.Errorf("create api client: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := closeLog(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
		}
	},
}

// Execute runs the root command with signal-aware cancellation so an
// interrupt stops an in-flight poll loop cleanly.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "path to config file (yaml)")
	pf.String("user", "", "API user name (or REVENUE_USER)")
	pf.String("token", "", "API token (or REVENUE_TOKEN)")
	pf.String("api-url", client.DefaultAPIURL, "API base URL")
	pf.String("api-version", client.DefaultAPIVersion, "API version")
	pf.Duration("timeout", client.DefaultTimeout, "timeout per HTTP request")
	pf.String("log-level", "info", "log level (debug/info/warn/error)")
	pf.String("log-file", "", "also write JSON logs to this file")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(uploadCmd)
}
