// Command registryctl is the operator CLI for the complaint registry.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"civicledger/internal/platform/config"
)

var (
	cfg       config.Config
	logLevel  string
	outputRaw bool
)

var rootCmd = &cobra.Command{
	Use:           "registryctl",
	Short:         "Operate the civic complaint registry",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL")
	rootCmd.PersistentFlags().BoolVar(&outputRaw, "compact", false, "print JSON without indentation")

	rootCmd.AddCommand(migrateCmd, classifyCmd, tokenCmd, syncCmd, summaryCmd, auditCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
