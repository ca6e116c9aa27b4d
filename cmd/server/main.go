// Command server runs the verification decision engine: the tenant-facing
// verification API, the admin threshold API, the audit outbox relay, and
// the audit consumer that materializes events from Kafka.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"idswyft/internal/jwt_token"
	"idswyft/internal/ocr"
	"idswyft/internal/platform/config"
	"idswyft/internal/platform/httpserver"
	kafkaconsumer "idswyft/internal/platform/kafka/consumer"
	kafkaproducer "idswyft/internal/platform/kafka/producer"
	"idswyft/internal/platform/logger"
	"idswyft/internal/platform/metrics"
	"idswyft/internal/platform/middleware"
	platformredis "idswyft/internal/platform/redis"
	"idswyft/internal/ratelimit"
	thresholdcache "idswyft/internal/threshold/cache"
	thresholdhandler "idswyft/internal/threshold/handler"
	thresholdmetrics "idswyft/internal/threshold/metrics"
	thresholdservice "idswyft/internal/threshold/service"
	"idswyft/internal/threshold/store/thresholds"
	"idswyft/internal/verification/extraction"
	verifhandler "idswyft/internal/verification/handler"
	verifmetrics "idswyft/internal/verification/metrics"
	verifservice "idswyft/internal/verification/service"
	"idswyft/pkg/platform/audit"
	auditconsumer "idswyft/pkg/platform/audit/consumer"
	"idswyft/pkg/platform/audit/outbox"
	"idswyft/pkg/platform/audit/publisher"
	"idswyft/pkg/platform/audit/publishers"
	"idswyft/pkg/platform/audit/publishers/compliance"
	auditops "idswyft/pkg/platform/audit/publishers/ops"
	auditsecurity "idswyft/pkg/platform/audit/publishers/security"
	auditmemory "idswyft/pkg/platform/audit/store/memory"
	auditpostgres "idswyft/pkg/platform/audit/store/postgres"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Recognition collaborator. Required: the pipeline cannot extract
	// fields without it.
	ocrClient, err := ocr.New(cfg.OCR.ServiceURL, ocr.WithTimeout(cfg.OCR.Timeout))
	if err != nil {
		return fmt.Errorf("OCR_SERVICE_URL must be set: %w", err)
	}
	extractor, err := extraction.New(ocrClient, extraction.WithLogger(log))
	if err != nil {
		return err
	}

	// Storage. Without DATABASE_URL everything runs in memory, which is
	// only suitable for sandbox and local development.
	var (
		thresholdStore thresholdservice.Store
		auditDB        *sql.DB
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		thresholdStore = thresholds.NewPostgres(pool)

		auditDB, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open audit db: %w", err)
		}
		defer auditDB.Close()
	} else {
		log.Warn("DATABASE_URL not set, using in-memory storage")
		thresholdStore = thresholds.NewMemory()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	g, ctx := errgroup.WithContext(ctx)

	// Audit publishing. With postgres the events go through the
	// transactional outbox, split per category policy; in memory mode a
	// plain synchronous publisher suffices.
	var auditEmitter interface {
		Emit(ctx context.Context, event audit.Event) error
	}
	if auditDB != nil {
		auditStore := auditpostgres.New(auditDB)
		securityPub := auditsecurity.New(auditStore, auditsecurity.WithLogger(log))
		g.Go(func() error { return securityPub.Run(ctx) })
		auditEmitter = publishers.NewRouter(
			compliance.New(auditStore, compliance.WithLogger(log), compliance.WithMetrics(compliance.NewMetrics())),
			securityPub,
			auditops.New(auditStore, auditops.WithLogger(log), auditops.WithMetrics(auditops.NewMetrics())),
		)
	} else {
		memPublisher := publisher.NewPublisher(auditmemory.NewInMemoryStore())
		defer memPublisher.Close()
		auditEmitter = memPublisher
	}

	// Threshold resolution with an optional Redis tier for multi-instance
	// deployments.
	thresholdOpts := []thresholdservice.Option{
		thresholdservice.WithLogger(log),
		thresholdservice.WithAuditPublisher(auditEmitter),
		thresholdservice.WithMetrics(thresholdmetrics.New()),
	}
	if redisClient != nil {
		shared := thresholdcache.NewRedis(redisClient.Client, cfg.Redis.ThresholdTTL, log)
		thresholdOpts = append(thresholdOpts, thresholdservice.WithSharedCache(shared))
	}
	thresholdSvc, err := thresholdservice.New(thresholdStore, thresholdOpts...)
	if err != nil {
		return err
	}

	verifySvc, err := verifservice.New(thresholdSvc, extractor,
		verifservice.WithLogger(log),
		verifservice.WithAuditPublisher(auditEmitter),
		verifservice.WithMetrics(verifmetrics.New()),
	)
	if err != nil {
		return err
	}

	tokens := jwttoken.NewService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)

	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(metrics.Instrument)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Handle("/metrics", metrics.Handler())

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireTenantAuth(jwttoken.NewServiceAdapter(tokens), log))
		if cfg.VerifyRatePerMinute > 0 {
			var limiter ratelimit.Limiter
			if redisClient != nil {
				limiter = ratelimit.NewRedisLimiter(redisClient.Client, cfg.VerifyRatePerMinute)
			} else {
				limiter = ratelimit.NewMemoryLimiter(cfg.VerifyRatePerMinute)
			}
			r.Use(ratelimit.PerTenant(limiter, log))
		}
		verifhandler.New(verifySvc, log).Register(r)
	})
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(cfg.Auth.AdminToken, log))
		thresholdhandler.New(thresholdSvc, log).Register(r)
	})

	// Outbox relay and audit consumer only make sense with both postgres
	// and Kafka configured.
	if auditDB != nil && len(cfg.Kafka.Brokers) > 0 {
		prod, err := kafkaproducer.New(cfg.Kafka.Brokers)
		if err != nil {
			return fmt.Errorf("create kafka producer: %w", err)
		}
		defer prod.Close()
		relay := outbox.New(auditDB, prod, log)
		g.Go(func() error { return relay.Run(ctx) })

		auditStore := auditpostgres.New(auditDB)
		topicRouter := auditconsumer.NewRouter(log, nil)
		topicRouter.Register(audit.TopicCompliance, auditconsumer.NewComplianceHandler(auditStore, log))
		topicRouter.Register(audit.TopicSecurity, auditconsumer.NewSecurityHandler(auditStore, log))
		topicRouter.Register(audit.TopicOps, auditconsumer.NewOpsHandler(auditStore, log))

		consumer, err := kafkaconsumer.New(
			cfg.Kafka.Brokers,
			cfg.Kafka.ConsumerGroup,
			[]string{audit.TopicCompliance, audit.TopicSecurity, audit.TopicOps},
			topicRouter,
			log,
		)
		if err != nil {
			return fmt.Errorf("create kafka consumer: %w", err)
		}
		g.Go(func() error { return consumer.Run(ctx) })
	} else if len(cfg.Kafka.Brokers) == 0 {
		log.Warn("KAFKA_BROKERS not set, audit relay and consumer disabled")
	}

	srv := httpserver.New(cfg.Addr, router)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr, "sandbox_mode", cfg.SandboxMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
