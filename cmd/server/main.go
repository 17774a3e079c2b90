package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"metalab/internal/audit"
	"metalab/internal/cache"
	"metalab/internal/cluster"
	clusterhandler "metalab/internal/cluster/handler"
	clustermetrics "metalab/internal/cluster/metrics"
	"metalab/internal/jwttoken"
	"metalab/internal/platform/config"
	"metalab/internal/platform/httpserver"
	"metalab/internal/platform/logger"
	"metalab/internal/platform/middleware"
	platformredis "metalab/internal/platform/redis"
	"metalab/internal/template"
	"metalab/internal/variant"
	"metalab/internal/verify"
	verifyhandler "metalab/internal/verify/handler"
	verifymetrics "metalab/internal/verify/metrics"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()

	var templates template.Store
	var pgPool *pgxpool.Pool
	if cfg.Templates.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.Templates.DatabaseURL)
		if err != nil {
			log.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		pgPool = pool
		templates = template.NewPostgresStore(pgPool)
		log.Info("templates served from postgres")
	} else {
		templates = template.NewFSStore(cfg.Templates.Dir, template.WithTTL(cfg.Templates.TTL))
	}

	variants, err := variant.LoadRegistry(cfg.Variants.Path)
	if err != nil {
		log.Error("load variant rules", "path", cfg.Variants.Path, "error", err)
		os.Exit(1)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	var resultCache cache.Cache
	if redisClient != nil {
		resultCache = cache.NewRedis(redisClient.Client)
		log.Info("result cache backed by redis")
	} else {
		resultCache = cache.NewMemory()
		log.Info("result cache in memory, results are lost on restart")
	}

	var sink audit.Publisher = audit.Nop{}
	var kafkaSink *audit.KafkaPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err = audit.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		sink = kafkaSink
		log.Info("audit events published to kafka", "topic", cfg.Kafka.Topic)
	}

	verifySvc := verify.NewService(templates, variants,
		verify.WithLogger(log),
		verify.WithMetrics(verifymetrics.New()),
		verify.WithAudit(sink),
	)
	clusterSvc := cluster.NewService(resultCache,
		cluster.WithLogger(log),
		cluster.WithAudit(sink),
		cluster.WithMetrics(clustermetrics.New()),
		cluster.WithResultTTL(cfg.Cluster.ResultTTL),
	)

	router := chi.NewRouter()
	router.Use(chimw.RealIP)
	router.Use(middleware.RequestID)
	router.Use(chimw.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		if cfg.JWTSigningKey != "" {
			r.Use(middleware.RequireAuth(jwttoken.NewService(cfg.JWTSigningKey), log))
		} else {
			log.Warn("no JWT signing key configured, API is unauthenticated")
		}
		verifyhandler.New(verifySvc, log).Register(r)
		clusterhandler.New(clusterSvc, log).Register(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("starting metalab", "addr", cfg.Addr, "templates", cfg.Templates.Dir)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if kafkaSink != nil {
		if err := kafkaSink.Close(ctx); err != nil {
			log.Error("flush audit events failed", "error", err)
		}
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if pgPool != nil {
		pgPool.Close()
	}
}
