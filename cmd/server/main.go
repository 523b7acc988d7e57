package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"unify/internal/contact"
	contactlock "unify/internal/contact/lock"
	contactmetrics "unify/internal/contact/metrics"
	contactservice "unify/internal/contact/service"
	contactstore "unify/internal/contact/store"
	"unify/internal/platform/audit"
	"unify/internal/platform/config"
	"unify/internal/platform/httpserver"
	"unify/internal/platform/logger"
	platformredis "unify/internal/platform/redis"
	"unify/pkg/platform/middleware/requestid"
	"unify/pkg/platform/middleware/requesttime"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/contact.
func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, healthcheck, cleanup, err := buildStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	locker, err := buildLocker(cfg, log)
	if err != nil {
		return err
	}

	auditor, closeAudit, err := buildAuditor(cfg, log)
	if err != nil {
		return err
	}
	defer closeAudit()

	svc := contact.NewService(stores, locker, log,
		contactservice.WithMetrics(contactmetrics.New()),
		contactservice.WithAuditor(auditor),
	)
	h := contact.NewHandler(svc, log)

	router := chi.NewRouter()
	router.Use(requestid.Middleware)
	router.Use(requesttime.Middleware)
	h.Register(router)
	router.Get("/healthz", healthHandler(healthcheck))
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting unify", "addr", cfg.Addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildStores selects the Postgres store when a database URL is configured
// and falls back to the in-memory store otherwise.
func buildStores(ctx context.Context, cfg config.Server, log *slog.Logger) (contactservice.StoreTx, func(context.Context) error, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("no database configured, using in-memory contact store")
		mem := contactstore.NewInMemory()
		return contactstore.NewMemoryTx(mem), func(context.Context) error { return nil }, func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, nil, err
	}

	pg := contactstore.NewPostgres(db)
	if err := pg.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, nil, err
	}

	log.Info("contact store ready", "backend", "postgres")
	return newResolvePostgresTx(db, pg), db.PingContext, func() { db.Close() }, nil
}

// buildLocker returns the Redis-backed attribute lock when Redis is
// configured, otherwise the in-process keyed lock.
func buildLocker(cfg config.Server, log *slog.Logger) (contactservice.Locker, error) {
	client, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return contactlock.NewKeyed(), nil
	}
	log.Info("attribute lock ready", "backend", "redis", "ttl", cfg.LockTTL)
	return contactlock.NewRedis(client, cfg.LockTTL), nil
}

// buildAuditor publishes audit events to Kafka when brokers are configured,
// otherwise to the structured log.
func buildAuditor(cfg config.Server, log *slog.Logger) (*audit.Publisher, func(), error) {
	var sink audit.Sink = audit.NewLogSink(log)
	var closeSink func()
	if cfg.KafkaBrokers != "" {
		kafka, err := audit.NewKafkaSink(cfg.KafkaBrokers, "")
		if err != nil {
			return nil, nil, err
		}
		sink = kafka
		closeSink = kafka.Close
		log.Info("audit sink ready", "backend", "kafka")
	}

	pub := audit.NewPublisher(sink, audit.WithAsyncBuffer(256))
	cleanup := func() {
		pub.Close()
		if closeSink != nil {
			closeSink()
		}
	}
	return pub, cleanup, nil
}

func healthHandler(check func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := check(r.Context()); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
