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

	"mysqlredisd/internal/admin"
	"mysqlredisd/internal/config"
	"mysqlredisd/internal/executor"
	"mysqlredisd/internal/metrics"
	"mysqlredisd/internal/ratelimit"
	"mysqlredisd/internal/security"
	"mysqlredisd/internal/store"
	"mysqlredisd/internal/wire"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	version   = "1.0.0"
	buildTime = "development"
	gitCommit = "unknown"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	var configPath string

	rootCmd := &cobra.Command{
		Use:   "mysqlredisd",
		Short: "MySQL wire protocol adapter backed by Redis",
		Long: `mysqlredisd speaks the MySQL client/server wire protocol on its
front end and translates a whitelisted subset of SQL into GET, GETDEL,
SCAN, INCR, and EXPIRE calls against a Redis-shaped backing store.`,
		Version: fmt.Sprintf("%s (built: %s, commit: %s)", version, buildTime, gitCommit),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, logger)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		logger.WithError(err).Fatal("failed to start mysqlredisd")
	}
}

func run(configPath string, logger *logrus.Logger) error {
	logger.WithFields(logrus.Fields{
		"version":    version,
		"build_time": buildTime,
		"commit":     gitCommit,
	}).Info("starting mysqlredisd")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithField("log_level", cfg.LogLevel).Warn("unrecognised log level, defaulting to info")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backendTimeout := time.Duration(cfg.BackendTimeoutSeconds) * time.Second

	startupCtx, startupCancel := context.WithTimeout(ctx, backendTimeout)
	redisClient, err := store.NewRedisClient(startupCtx, store.Options{
		URL:      cfg.RedisURL,
		PoolSize: cfg.WorkerPoolSize,
		Logger:   logger,
	})
	startupCancel()
	if err != nil {
		return fmt.Errorf("backing store startup probe failed: %w", err)
	}
	defer redisClient.Close()
	logger.WithField("redis_url", cfg.RedisURL).Info("backing store connected")

	checker := security.NewChecker(logger)
	limiter := ratelimit.New(redisClient, cfg.RateLimit, cfg.RateWindow, logger)
	exec := executor.New(redisClient, cfg.ScanLimit, logger)

	pipeline := &wire.Pipeline{
		Limiter:   limiter,
		AllowScan: cfg.AllowScan,
		Executor:  exec,
		Checker:   checker,
		Logger:    logger,
	}

	server := wire.NewServer(wire.Options{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Pipeline:          pipeline,
		Logger:            logger,
		ConnRatePerSecond: cfg.ConnRatePerSecond,
		WorkerPoolSize:    cfg.WorkerPoolSize,
		BackendTimeout:    backendTimeout,
	})

	go func() {
		logger.WithField("port", cfg.Port).Info("MySQL wire listener starting")
		if err := server.ListenAndServe(ctx); err != nil {
			logger.WithError(err).Error("wire server stopped")
		}
	}()

	adminService := admin.NewAdapterService(
		server.Stats,
		func() map[string]interface{} { return checker.GetStats() },
		redisClient.Ping,
		cancel,
		logger,
	)
	adminServer := admin.NewServer(cfg.AdminAddr, adminService, logger)

	go func() {
		if err := adminServer.Start(); err != nil {
			logger.WithError(err).Error("admin server error")
		}
	}()
	logger.WithField("address", cfg.AdminAddr).Info("admin gRPC server started")

	metricsMux := http.NewServeMux()
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := redisClient.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("backing store unreachable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsMux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		status, _ := adminService.GetStatus(r.Context())
		body := map[string]interface{}{
			"version": version,
			"status":  status,
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(body); err != nil {
			logger.WithError(err).Error("failed to encode status response")
		}
	})

	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: metricsMux,
	}

	go func() {
		logger.WithField("addr", cfg.MetricsAddr).Info("starting metrics/health server")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("metrics server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
		logger.Info("shutdown requested via admin plane")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("metrics server shutdown error")
	}

	if err := adminServer.Stop(); err != nil {
		logger.WithError(err).Error("admin server shutdown error")
	}

	if err := server.Close(); err != nil {
		logger.WithError(err).Error("wire server shutdown error")
	}

	logger.Info("shutdown complete")
	return nil
}
