package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"fileconv/classify"
	"fileconv/config"
	"fileconv/dispatch"
	"fileconv/encoder"
	"fileconv/job"
	"fileconv/limiter"
	"fileconv/logger"
	"fileconv/routes"
	"fileconv/storage"
	storebackends "fileconv/storeBackends"
)

func main() {
	sweepOnce := flag.Bool("sweep-once", false, "run one expiry pass over the store and exit")
	flag.Parse()

	cfg := config.Load()

	if err := logger.Init(cfg.Logging.File, true); err != nil {
		logger.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
		}); err != nil {
			logger.Fatalf("sentry.Init: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
		logger.EnableSentry(true)
		logger.Info("Sentry error reporting enabled")
	}

	logger.Info("Starting fileconv server initialization")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Debugf("Opening %s object store", cfg.Store.Backend)
	backend, closeStore, err := storebackends.Open(ctx, cfg.Store)
	if err != nil {
		logger.Fatalf("Failed to open object store: %v", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Errorf("Failed to close object store: %v", err)
		}
	}()
	store := storage.New(backend, storage.WithPrefixes(cfg.Store.OriginalPrefix, cfg.Store.ConvertedPrefix))
	logger.Infof("Object store %s ready (originals under %s/, conversions under %s/)",
		cfg.Store.Backend, cfg.Store.OriginalPrefix, cfg.Store.ConvertedPrefix)

	conv := encoder.New(encoder.ExecRunner{}, cfg.Render)
	for strategy, ok := range conv.RegisterDefaults() {
		if !ok {
			logger.Warnf("Strategy %s is disabled until its tool is installed", strategy)
		}
	}

	svc := job.NewService(
		store,
		classify.New(cfg.Upload.MaxSize, cfg.Upload.AllowedTypes),
		dispatch.New(conv),
	)

	if *sweepOnce {
		n, err := svc.Sweep(ctx, cfg.Sweep.Retention)
		if err != nil {
			logger.Fatalf("Sweep failed after removing %d objects: %v", n, err)
		}
		logger.Infof("Sweep completed, removed %d objects older than %s", n, cfg.Sweep.Retention)
		return
	}

	var lim limiter.Limiter = limiter.NewMemory(cfg.Limit.RequestsPerMinute)
	if cfg.Limit.RedisAddr != "" {
		rc, err := limiter.Dial(ctx, cfg.Limit.RedisAddr, cfg.Limit.RedisPassword, cfg.Limit.RedisDB)
		if err != nil {
			logger.Warnf("Redis unavailable, rate limiting per process: %v", err)
		} else {
			defer rc.Close()
			lim = limiter.NewRedis(rc, "fileconv:ratelimit", cfg.Limit.RequestsPerMinute)
			logger.Infof("Rate limiting through Redis at %s", cfg.Limit.RedisAddr)
		}
	}

	logger.Infof("Starting sweep routine (every %s, retention %s)", cfg.Sweep.Interval, cfg.Sweep.Retention)
	go svc.SweepRoutine(ctx, cfg.Sweep.Interval, cfg.Sweep.Retention)

	router := routes.NewRouter(routes.NewHandler(svc, store), routes.RouterConfig{
		CORSOrigins:   cfg.Server.CORSOrigins,
		Limiter:       lim,
		RatePerMinute: cfg.Limit.RequestsPerMinute,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("fileconv server starting on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}
	logger.Info("Server stopped")
}
