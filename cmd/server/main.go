/*
main.go - Compliance tracker server entry point

STARTUP SEQUENCE:
  1. Load .env if present, then parse command-line flags (environment
     variables provide defaults)
  2. Configure logging
  3. Initialize SQLite store
  4. Build service, metrics, handler and router
  5. Start the scheduler and the HTTP server
  6. Graceful shutdown on SIGINT/SIGTERM

FLAGS / ENVIRONMENT:
  -port                PORT                 HTTP port (default: 8080)
  -db                  DATABASE_PATH        SQLite path, ":memory:" allowed (default: compliance.db)
  -log-level           LOG_LEVEL            debug|info|warn|error (default: info)
  -log-format          LOG_FORMAT           text|json (default: text)
  -auto-generate       AUTO_GENERATE        Generate current month's checks on each tick
  -scheduler-interval  SCHEDULER_INTERVAL   Scheduler tick (default: 1h)
  -due-soon-days       DUE_SOON_DAYS        Due-soon window in days (default: 7)
  -allowed-origins     ALLOWED_ORIGINS      Comma-separated CORS origins

EXAMPLES:
  ./server -db="./data/compliance.db" -auto-generate
  LOG_FORMAT=json ./server -port=3000
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/warp/compliance-tracker/api"
	"github.com/warp/compliance-tracker/compliance"
	"github.com/warp/compliance-tracker/metrics"
	"github.com/warp/compliance-tracker/store/sqlite"
)

type config struct {
	port              int
	dbPath            string
	logLevel          string
	logFormat         string
	autoGenerate      bool
	schedulerInterval time.Duration
	dueSoonDays       int
	allowedOrigins    string
}

func parseConfig() config {
	var cfg config
	flag.IntVar(&cfg.port, "port", envInt("PORT", 8080), "HTTP server port")
	flag.StringVar(&cfg.dbPath, "db", envString("DATABASE_PATH", "compliance.db"), "SQLite database path")
	flag.StringVar(&cfg.logLevel, "log-level", envString("LOG_LEVEL", "info"), "Log level")
	flag.StringVar(&cfg.logFormat, "log-format", envString("LOG_FORMAT", "text"), "Log format (text|json)")
	flag.BoolVar(&cfg.autoGenerate, "auto-generate", envBool("AUTO_GENERATE", false), "Generate the current month's checks on every scheduler tick")
	flag.DurationVar(&cfg.schedulerInterval, "scheduler-interval", envDuration("SCHEDULER_INTERVAL", time.Hour), "Scheduler tick interval")
	flag.IntVar(&cfg.dueSoonDays, "due-soon-days", envInt("DUE_SOON_DAYS", compliance.DefaultDueSoonDays), "Days before the due date a check is due soon")
	flag.StringVar(&cfg.allowedOrigins, "allowed-origins", envString("ALLOWED_ORIGINS", ""), "Comma-separated CORS origins")
	flag.Parse()
	return cfg
}

func newLogger(cfg config) *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.logFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

func main() {
	// A missing .env is fine; the real environment still applies.
	_ = godotenv.Load()
	cfg := parseConfig()
	logger := newLogger(cfg)

	store, err := sqlite.New(cfg.dbPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	collectors := metrics.New()

	svc := compliance.NewService(store, logger.WithField("component", "service"))
	svc.Observer = collectors
	svc.DueSoonDays = cfg.dueSoonDays

	handler := api.NewHandler(svc, logger.WithField("component", "http"))
	router := api.NewRouter(handler, api.RouterConfig{
		AllowedOrigins: splitList(cfg.allowedOrigins),
		Metrics:        collectors,
	})

	scheduler := api.NewScheduler(svc, logger.WithField("component", "scheduler"))
	scheduler.CheckInterval = cfg.schedulerInterval
	scheduler.AutoGenerate = cfg.autoGenerate
	scheduler.Start()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
	logger.Info("server stopped")
}

// =============================================================================
// ENVIRONMENT DEFAULTS
// =============================================================================

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
