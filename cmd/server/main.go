package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"civicledger/internal/classifier"
	classifierhandler "civicledger/internal/classifier/handler"
	"civicledger/internal/complaint/adapters"
	"civicledger/internal/complaint/authority"
	complainthandler "civicledger/internal/complaint/handler"
	complaintmetrics "civicledger/internal/complaint/metrics"
	"civicledger/internal/complaint/service"
	"civicledger/internal/complaint/store"
	complaintsync "civicledger/internal/complaint/sync"
	jwttoken "civicledger/internal/jwt_token"
	"civicledger/internal/platform/config"
	"civicledger/internal/platform/httpserver"
	"civicledger/internal/platform/kafka"
	"civicledger/internal/platform/logger"
	"civicledger/internal/platform/metrics"
	"civicledger/internal/platform/middleware"
	"civicledger/internal/platform/postgres"
	platformredis "civicledger/internal/platform/redis"
	"civicledger/internal/ratelimit"
	"civicledger/pkg/platform/audit"
	"civicledger/pkg/platform/audit/publisher"
	kafkastore "civicledger/pkg/platform/audit/store/kafka"
	auditmemory "civicledger/pkg/platform/audit/store/memory"
	outboxstore "civicledger/pkg/platform/audit/store/postgres"
	"civicledger/pkg/platform/audit/worker"
	"civicledger/pkg/platform/circuit"
	"civicledger/pkg/platform/httputil"
	adminmw "civicledger/pkg/platform/middleware/admin"
	authmw "civicledger/pkg/platform/middleware/auth"
	"civicledger/pkg/platform/middleware/metadata"
	"civicledger/pkg/platform/middleware/requesttime"
)

const auditBuffer = 1024

// main loads configuration, wires the ledger, the read-side synchronizer and
// the audit pipeline, and serves HTTP until SIGINT or SIGTERM.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

type infra struct {
	db       *sql.DB
	redis    *platformredis.Client
	producer *kafka.Producer
}

func (i *infra) close() {
	if i.producer != nil {
		i.producer.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.db != nil {
		_ = i.db.Close()
	}
}

func connect(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	in := &infra{}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if db != nil {
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info("ledger backed by postgres")
	}
	in.db = db

	rc, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		in.close()
		return nil, err
	}
	in.redis = rc

	if len(cfg.Kafka.Brokers) > 0 {
		p, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			in.close()
			return nil, err
		}
		if err := p.EnsureTopic(ctx, 3, 1); err != nil {
			log.Warn("audit topic not ensured", "topic", p.Topic(), "error", err)
		}
		in.producer = p
	}
	return in, nil
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	in, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer in.close()

	httpMetrics := metrics.New()
	domainMetrics := complaintmetrics.New()

	var ledger service.Store = store.NewInMemory()
	if in.db != nil {
		ledger = store.NewPostgres(in.db)
	}

	g, gctx := errgroup.WithContext(ctx)

	// Audit sink: outbox when both postgres and kafka exist, kafka alone, or memory.
	var sink audit.Store = auditmemory.NewInMemoryStore()
	switch {
	case in.db != nil && in.producer != nil:
		outbox := outboxstore.New(in.db)
		sink = outbox
		relay := worker.NewRelay(outbox, in.producer, log, time.Second)
		g.Go(func() error { return ignoreCancel(relay.Run(gctx)) })
	case in.producer != nil:
		sink = kafkastore.New(in.producer)
	}
	auditPublisher := publisher.NewPublisher(sink,
		publisher.WithAsyncBuffer(auditBuffer),
		publisher.WithErrorHandler(func(e audit.Event, err error) {
			log.Warn("audit append failed", "action", e.Action, "subject", e.Subject, "error", err)
		}),
	)
	defer auditPublisher.Close()

	var cache complaintsync.Cache = complaintsync.NewMemoryCache()
	if in.redis != nil {
		cache = complaintsync.NewRedisCache(in.redis.Client)
	}
	decimals := complaintsync.TokenDecimals(cfg.Registry.TokenDecimals)
	synchronizer := complaintsync.NewSynchronizer(adapters.NewLedgerSource(ledger),
		complaintsync.WithSyncLogger(log),
		complaintsync.WithTokenDecimals(decimals),
		complaintsync.WithConcurrency(cfg.Sync.Concurrency),
		complaintsync.WithMaxWindow(cfg.Sync.MaxWindow),
	)
	snapshots := complaintsync.NewService(synchronizer,
		complaintsync.WithCache(cache),
		complaintsync.WithCacheTTL(cfg.Sync.CacheTTL),
		complaintsync.WithBreaker(circuit.New("registry", circuit.WithFailureThreshold(cfg.Sync.FailureThreshold))),
		complaintsync.WithMetrics(domainMetrics),
		complaintsync.WithLogger(log),
	)
	g.Go(func() error {
		return ignoreCancel(snapshots.Run(gctx, cfg.Sync.RefreshInterval, cfg.Sync.Window))
	})

	authorities := authority.NewAllowList(cfg.Registry.Authorities...)
	if authorities.Len() == 0 {
		log.Warn("no authority addresses configured; admin transitions will be refused")
	}
	triage := classifier.New()
	registry := service.New(ledger, authorities,
		service.WithLogger(log),
		service.WithMetrics(domainMetrics),
		service.WithAuditPublisher(auditPublisher),
		service.WithSnapshotInvalidator(snapshots),
		service.WithClassifier(triage),
		service.WithSlashSink(cfg.Registry.SlashSink),
	)

	defaultStake, ok := new(big.Int).SetString(cfg.Registry.DefaultStake, 10)
	if !ok || defaultStake.Sign() <= 0 {
		return fmt.Errorf("DEFAULT_STAKE_WEI must be a positive integer, got %q", cfg.Registry.DefaultStake)
	}

	var limits ratelimit.Store = ratelimit.NewInMemory()
	if in.redis != nil {
		limits = ratelimit.NewRedis(in.redis.Client)
	}

	sessions := jwttoken.NewSessionAdapter(jwttoken.NewJWTService(
		cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(middleware.Latency(httpMetrics))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", healthz(in))

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		complainthandler.New(registry, snapshots, log, domainMetrics,
			complainthandler.WithDefaultWindow(cfg.Sync.Window),
			complainthandler.WithDefaultStake(defaultStake),
			complainthandler.WithTokenDecimals(decimals),
			complainthandler.WithSessionMiddleware(authmw.RequireCaller(sessions, log)),
			complainthandler.WithAuthorityMiddleware(adminmw.RequireAuthority(authorities, log)),
			complainthandler.WithSubmitLimiter(ratelimit.PerCaller(limits, "submit",
				cfg.RateLimit.SubmitLimit, cfg.RateLimit.SubmitWindow, log)),
		).Register(r)
		classifierhandler.New(triage, log, domainMetrics).Register(r)
	})

	srv := httpserver.New(cfg.Server, r)
	g.Go(func() error {
		log.Info("starting civicledger", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func healthz(in *infra) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		if in.db != nil {
			if err := in.db.PingContext(ctx); err != nil {
				status["database"] = err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		if in.redis != nil {
			if err := in.redis.Health(ctx); err != nil {
				status["redis"] = err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		if in.producer != nil {
			if err := in.producer.Ping(ctx); err != nil {
				status["kafka"] = err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		if code != http.StatusOK {
			status["status"] = "degraded"
		}
		httputil.WriteJSON(w, code, status)
	}
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
