package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"civicledger/internal/platform/kafka"
	"civicledger/internal/platform/logger"
	audit "civicledger/pkg/platform/audit"
	"civicledger/pkg/platform/audit/consumer"
)

var (
	auditGroup     string
	auditFromStart bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit log",
}

var auditTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Stream audit events from the broker as JSON lines",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if len(cfg.Kafka.Brokers) == 0 {
			return errors.New("KAFKA_BROKERS is not set")
		}
		log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel)

		c, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, auditGroup, auditFromStart, log)
		if err != nil {
			return err
		}
		defer c.Close()

		out := &lineWriter{w: cmd.OutOrStdout()}
		router := consumer.NewRouter(log, consumer.NewOpsHandler(out, log))
		router.Register(audit.CategoryCompliance, consumer.NewComplianceHandler(out, log))
		router.Register(audit.CategorySecurity, consumer.NewSecurityHandler(out, log))

		err = c.Run(cmd.Context(), func(ctx context.Context, topic string, key, value []byte) error {
			return router.Handle(ctx, consumer.Message{Topic: topic, Key: key, Value: value})
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	auditTailCmd.Flags().StringVar(&auditGroup, "group", "registryctl-tail", "consumer group")
	auditTailCmd.Flags().BoolVar(&auditFromStart, "from-start", false, "read from the oldest retained event")
	auditCmd.AddCommand(auditTailCmd)
}

// lineWriter is an audit.Store that prints each event as one JSON line.
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lineWriter) Append(_ context.Context, event audit.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return json.NewEncoder(l.w).Encode(audit.NewPayload(event))
}
