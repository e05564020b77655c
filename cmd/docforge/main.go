package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/aescanero/docforge/internal/application/budget"
	"github.com/aescanero/docforge/internal/application/cache"
	"github.com/aescanero/docforge/internal/application/engine"
	"github.com/aescanero/docforge/internal/application/fallback"
	"github.com/aescanero/docforge/internal/application/registry"
	"github.com/aescanero/docforge/internal/config"
	"github.com/aescanero/docforge/pkg/adapters/backend"
	memorycache "github.com/aescanero/docforge/pkg/adapters/cache/memory"
	rediscache "github.com/aescanero/docforge/pkg/adapters/cache/redis"
	"github.com/aescanero/docforge/pkg/adapters/events"
	eventsmem "github.com/aescanero/docforge/pkg/adapters/events/memory"
	eventsredis "github.com/aescanero/docforge/pkg/adapters/events/redis"
	"github.com/aescanero/docforge/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/docforge/pkg/api/http"
	"github.com/aescanero/docforge/pkg/api/websocket"
	"github.com/aescanero/docforge/pkg/domain"
	"github.com/aescanero/docforge/pkg/ports"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	contextPath := flag.String("context", "", "run once over the given project context file and exit")
	slowThreshold := flag.Duration("slow-threshold", 0, "override the slow-task threshold")
	maxConcurrency := flag.Int("max-concurrency", 0, "override the worker pool size")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *slowThreshold > 0 {
		cfg.Engine.SlowThreshold = *slowThreshold
	}
	if *maxConcurrency > 0 {
		cfg.Engine.MaxConcurrency = *maxConcurrency
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting docforge",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	// Load the processor registry document
	raw, err := os.ReadFile(cfg.RegistryPath)
	if err != nil {
		logger.Fatal("failed to read registry document",
			zap.String("path", cfg.RegistryPath),
			zap.Error(err))
	}

	reg, err := registry.Load(raw)
	if err != nil {
		logger.Fatal("invalid registry document",
			zap.String("path", cfg.RegistryPath),
			zap.Error(err))
	}
	logger.Info("registry loaded",
		zap.String("version", reg.Version()),
		zap.Int("processors", reg.Len()))

	// Initialize Redis when any component needs it
	var redisClient *goredis.Client
	if cfg.Cache.Backend == "redis" || cfg.Redis.Events {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})

		ctx := context.Background()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// Result cache store
	var store ports.CacheStore
	switch cfg.Cache.Backend {
	case "redis":
		store = rediscache.NewStore(redisClient, cfg.Cache.TTL, logger)
	default:
		store, err = memorycache.NewStore(cfg.Cache.MaxSize)
		if err != nil {
			logger.Fatal("failed to create memory cache", zap.Error(err))
		}
	}

	metricsCollector := prometheus.NewCollector()
	resultCache := cache.New(store, reg.Version(), metricsCollector, logger)

	// Generation backends
	profiles, generators, err := backend.BuildRoster(&cfg.LLM, logger)
	if err != nil {
		logger.Fatal("failed to build backend roster", zap.Error(err))
	}

	// Budget validation and fallback
	estimator := budget.NewEstimator(cfg.Engine.TokenEncoding, logger)
	validator := budget.NewValidator(estimator, cfg.Engine.SafetyMargin)
	chain := fallback.NewChain(validator, profiles, logger)

	// Event sinks: in-process fan-out always, Redis stream when enabled
	fanOut := eventsmem.NewFanOut()
	var sink ports.TelemetrySink = fanOut
	if cfg.Redis.Events {
		sink = events.NewMulti(fanOut, eventsredis.NewStreamsSink(redisClient, logger))
	}

	// Execution engine
	eng, err := engine.New(
		reg,
		validator,
		chain,
		resultCache,
		profiles,
		generators,
		sink,
		metricsCollector,
		logger,
		engine.Config{
			MaxConcurrency: cfg.Engine.MaxConcurrency,
			SlowThreshold:  cfg.Engine.SlowThreshold,
			SlowestN:       cfg.Engine.SlowestN,
			MaxRetries:     cfg.Engine.MaxRetries,
			RetryBaseDelay: cfg.Engine.RetryBaseDelay,
			RetryMaxDelay:  cfg.Engine.RetryMaxDelay,
			CallTimeout:    cfg.Engine.CallTimeout,
		},
	)
	if err != nil {
		logger.Fatal("failed to build execution engine", zap.Error(err))
	}
	logger.Info("execution order resolved", zap.Strings("order", eng.Order()))

	runManager := engine.NewManager(eng, metricsCollector, logger, cfg.Engine.RunTimeout)

	// One-shot mode: execute a single run over the given context file and
	// exit 0 only when no task failed.
	if *contextPath != "" {
		os.Exit(runOnce(eng, *contextPath, cfg.Engine.RunTimeout, logger))
	}

	// Initialize API server
	httpServer := http.NewServer(&http.Config{
		Port:   cfg.HTTPPort,
		Runs:   runManager,
		Logger: logger,
	})

	wsHandler := websocket.NewHandler(fanOut, logger)
	httpServer.SetupWebSocket(wsHandler)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	logger.Info("docforge started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("max_concurrency", cfg.Engine.MaxConcurrency),
		zap.Int("backends", len(profiles)))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Engine.CallTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := runManager.Shutdown(shutdownCtx); err != nil {
		logger.Error("run manager shutdown error", zap.Error(err))
	}

	if err := fanOut.Close(); err != nil {
		logger.Error("event fan-out close error", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}

	logger.Info("docforge shut down complete")
}

// runOnce executes one run over a project context file and writes the
// report to stdout. Returns the process exit code.
func runOnce(eng *engine.Engine, path string, timeout time.Duration, logger *zap.Logger) int {
	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Error("failed to read context file", zap.String("path", path), zap.Error(err))
		return 1
	}

	var pc domain.ProjectContext
	if err := yaml.Unmarshal(raw, &pc); err != nil {
		logger.Error("invalid context file", zap.String("path", path), zap.Error(err))
		return 1
	}

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	report, err := eng.Run(ctx, &pc)
	if err != nil {
		logger.Error("run failed", zap.Error(err))
		return 1
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.Error("failed to encode report", zap.Error(err))
		return 1
	}
	fmt.Println(string(out))

	if !report.Success() {
		return 1
	}
	return 0
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
