package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/cache"
	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/config"
	dbRedis "github.com/Lbridge2222/bridge-fullstack-sub000/internal/db/redis"
	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/domain"
	logpkg "github.com/Lbridge2222/bridge-fullstack-sub000/internal/logger"
	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/metrics"
	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/repository/embcache"
	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/repository/knowledge"
	chiTransport "github.com/Lbridge2222/bridge-fullstack-sub000/internal/transport/chi"
	openaiTransport "github.com/Lbridge2222/bridge-fullstack-sub000/internal/transport/openai"
	embeddinguc "github.com/Lbridge2222/bridge-fullstack-sub000/internal/usecase/embedding"
	expansionuc "github.com/Lbridge2222/bridge-fullstack-sub000/internal/usecase/expansion"
	retrievaluc "github.com/Lbridge2222/bridge-fullstack-sub000/internal/usecase/retrieval"
	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting retrieval API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register retrieval metrics explicitly (no init())
	metrics.RegisterRetrievalMetrics()

	embedder := buildEmbedder(cfg, store, logger)

	rewriter := openaiTransport.NewRewriter(&openaiTransport.RewriterConfig{
		APIKey:  cfg.Generation.APIKey,
		BaseURL: cfg.Generation.BaseURL,
		Model:   cfg.Generation.Model,
		Timeout: time.Duration(cfg.Generation.TimeoutSec) * time.Second,
		Logger:  logger,
	})
	expansionSvc := expansionuc.New(
		rewriter, store, cfg.Retrieval.BlocklistExtra,
		time.Duration(cfg.Retrieval.ExpansionCacheTTLSec)*time.Second,
		metrics.ExpansionDroppedTotal, metrics.ExpansionRoundsTotal,
		logger,
	)

	repo := knowledge.New(store, store, knowledge.Config{
		IndexName:  cfg.Retrieval.IndexName,
		KeyPrefix:  cfg.Retrieval.KeyPrefix,
		RelaxDelta: cfg.Retrieval.RelaxDelta,
		CacheTTL:   time.Duration(cfg.Retrieval.SearchCacheTTLSec) * time.Second,
	}, metrics.CacheTotal, metrics.SearchFallbackTotal, logger)

	retrievalSvc := retrievaluc.New(
		repo, embedder, expansionSvc,
		retrievaluc.Config{
			Lambda:           cfg.Retrieval.Lambda,
			OverlapThreshold: cfg.Retrieval.OverlapThreshold,
			CategoryPenalty:  cfg.Retrieval.CategoryPenalty,
		},
		metrics.RetrievalRequestsTotal, metrics.RetrievalDuration,
		logger,
	)

	server := chiTransport.NewServer(retrievalSvc, store, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuth(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Fallback.
// The cache driver picks the backing store; the fallback decorator is
// outermost so a provider outage degrades to deterministic pseudo-vectors
// instead of failing retrievals.
func buildEmbedder(cfg config.Config, store *dbRedis.Store, logger *zap.Logger) domain.Embedder {
	model := domain.ResolveModel(cfg.Embedding.Model)

	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:  cfg.Embedding.APIKey,
		BaseURL: cfg.Embedding.BaseURL,
		Model:   model,
		Timeout: time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Logger:  logger,
	})

	ttl := time.Duration(cfg.Embedding.Cache.TTLSec) * time.Second

	var cached domain.Embedder
	switch cfg.Embedding.Cache.Driver {
	case "redis":
		cached = embcache.New(base, store, model.Name, ttl, metrics.CacheTotal, logger)
	default:
		lru := cache.NewLRUStore(cfg.Embedding.Cache.Capacity)
		cached = embcache.New(base, lru, model.Name, ttl, metrics.CacheTotal, logger)
	}

	logger.Info("Embedder created",
		zap.String("model", model.Name),
		zap.Int("dimensions", model.Dimensions),
		zap.String("cache_driver", cfg.Embedding.Cache.Driver),
	)

	return embeddinguc.NewFallbackEmbedder(cached, model, metrics.EmbeddingFallbackTotal, logger)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
