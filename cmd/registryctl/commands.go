package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"civicledger/internal/classifier"
	"civicledger/internal/complaint/adapters"
	"civicledger/internal/complaint/aggregate"
	complaintsync "civicledger/internal/complaint/sync"
	"civicledger/internal/complaint/store"
	jwttoken "civicledger/internal/jwt_token"
	"civicledger/internal/platform/logger"
	"civicledger/internal/platform/postgres"
	"civicledger/pkg/domain"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the ledger schema to DATABASE_URL",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		if db == nil {
			return errors.New("DATABASE_URL is not set")
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify <description>",
	Short: "Run the advisory triage classifier on a description",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res := classifier.New().Classify(strings.Join(args, " "))
		return printJSON(cmd, map[string]any{
			"category":   res.Category,
			"urgency":    res.Urgency.String(),
			"summary":    res.Summary,
			"confidence": res.Confidence,
		})
	},
}

var (
	tokenAddress string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a session token for an address",
	RunE: func(cmd *cobra.Command, _ []string) error {
		caller, err := domain.ParseAddress(tokenAddress)
		if err != nil {
			return fmt.Errorf("--address: %w", err)
		}
		svc := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
		token, err := svc.IssueSessionToken(caller, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var syncWindow int

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronise the newest complaints from the ledger and print them",
	RunE: func(cmd *cobra.Command, _ []string) error {
		snap, err := loadSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, snap)
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print dashboard statistics for the newest complaints",
	RunE: func(cmd *cobra.Command, _ []string) error {
		snap, err := loadSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, aggregate.Summarize(snap.Records))
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenAddress, "address", "", "caller address (0x-prefixed)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("address")

	for _, c := range []*cobra.Command{syncCmd, summaryCmd} {
		c.Flags().IntVar(&syncWindow, "window", 20, "number of newest complaints to read")
	}
}

func loadSnapshot(ctx context.Context) (*complaintsync.Snapshot, error) {
	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, errors.New("DATABASE_URL is not set")
	}
	defer db.Close()

	synchronizer := complaintsync.NewSynchronizer(
		adapters.NewLedgerSource(store.NewPostgres(db)),
		complaintsync.WithSyncLogger(logger.NewWithWriter(os.Stderr, cfg.LogLevel)),
		complaintsync.WithConcurrency(cfg.Sync.Concurrency),
		complaintsync.WithMaxWindow(cfg.Sync.MaxWindow),
		complaintsync.WithTokenDecimals(complaintsync.TokenDecimals(cfg.Registry.TokenDecimals)),
	)
	return synchronizer.Sync(ctx, syncWindow)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if !outputRaw {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
