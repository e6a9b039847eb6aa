package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/route-beacon/bgp-synth/internal/config"
	"github.com/route-beacon/bgp-synth/internal/db"
	synthhttp "github.com/route-beacon/bgp-synth/internal/http"
	"github.com/route-beacon/bgp-synth/internal/kafka"
	"github.com/route-beacon/bgp-synth/internal/maintenance"
	"github.com/route-beacon/bgp-synth/internal/metrics"
	"github.com/route-beacon/bgp-synth/internal/service"
	"github.com/route-beacon/bgp-synth/internal/store"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe()
	case "synth":
		runSynth()
	case "migrate":
		runMigrate()
	case "maintenance":
		runMaintenance()
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: bgp-synth <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve         Start the synthesis service")
	fmt.Println("  synth         Run one synthesis job from a request file (no database)")
	fmt.Println("  migrate       Run database migrations")
	fmt.Println("  maintenance   Prune stored runs past the retention window")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config <path>   Path to configuration YAML file")
	fmt.Println("  --request <path>  Request JSON file for synth (default: stdin)")
	fmt.Println("  --log-level <lvl> Override log level (debug, info, warn, error)")
}

func parseFlags(args []string) (configPath, requestPath, logLevel string) {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			if i+1 < len(args) {
				configPath = args[i+1]
				i++
			}
		case "--request":
			if i+1 < len(args) {
				requestPath = args[i+1]
				i++
			}
		case "--log-level":
			if i+1 < len(args) {
				logLevel = args[i+1]
				i++
			}
		}
	}
	return
}

func loadConfig(args []string) (*config.Config, string, *zap.Logger) {
	configPath, requestPath, logLevelOverride := parseFlags(args)

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if logLevelOverride != "" {
		cfg.Service.LogLevel = logLevelOverride
	}

	logger := initLogger(cfg.Service.LogLevel)
	return cfg, requestPath, logger
}

func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zap.DebugLevel
	case "warn":
		zapLevel = zap.WarnLevel
	case "error":
		zapLevel = zap.ErrorLevel
	default:
		zapLevel = zap.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zapLevel)
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// migrationsDir returns the path to the migrations directory relative to the binary.
func migrationsDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "migrations"
	}
	return filepath.Join(filepath.Dir(exe), "migrations")
}

func runServe() {
	cfg, _, logger := loadConfig(os.Args[2:])
	defer logger.Sync()

	metrics.Register()

	logger.Info("starting bgp-synth",
		zap.String("instance_id", cfg.Service.InstanceID),
		zap.String("http_listen", cfg.Service.HTTPListen),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	st := store.New(pool, logger.Named("store"), cfg.Synth.CompressResults)
	runner := service.NewRunner(st, cfg.Synth, logger.Named("runner"))
	runTimeout := time.Duration(cfg.Synth.TimeoutSeconds) * time.Second

	var wg sync.WaitGroup
	var commitWg sync.WaitGroup
	var jobsConsumer *kafka.JobsConsumer

	// The Kafka jobs pipeline is optional; with no brokers configured the
	// service answers HTTP only.
	if len(cfg.Kafka.Brokers) > 0 {
		tlsCfg, err := cfg.Kafka.BuildTLSConfig()
		if err != nil {
			logger.Fatal("failed to build TLS config", zap.Error(err))
		}
		saslMech := cfg.Kafka.BuildSASLMechanism()

		jobsConsumer, err = kafka.NewJobsConsumer(
			cfg.Kafka.Brokers, cfg.Kafka.Jobs.GroupID, cfg.Kafka.Jobs.Topics,
			cfg.Kafka.ClientID+"-jobs", cfg.Kafka.FetchMaxBytes, tlsCfg, saslMech, logger.Named("kafka.jobs"),
		)
		if err != nil {
			logger.Fatal("failed to create jobs consumer", zap.Error(err))
		}
		defer jobsConsumer.Close()

		pipeline := service.NewPipeline(runner, runTimeout, logger.Named("jobs.pipeline"))
		records := make(chan []*kgo.Record, 16)
		flushed := make(chan []*kgo.Record, 16)

		wg.Add(2)
		go func() { defer wg.Done(); jobsConsumer.Run(ctx, records, flushed, &commitWg) }()
		go func() {
			defer wg.Done()
			pipeline.Run(ctx, records, flushed)
			close(flushed)
		}()

		logger.Info("jobs pipeline started",
			zap.Strings("topics", cfg.Kafka.Jobs.Topics),
			zap.String("group_id", cfg.Kafka.Jobs.GroupID),
		)
	}

	var consumerStatus synthhttp.ConsumerStatus
	if jobsConsumer != nil {
		consumerStatus = jobsConsumer
	}
	httpServer := synthhttp.NewServer(
		cfg.Service.HTTPListen, pool, consumerStatus, runner,
		runTimeout, int64(cfg.Synth.MaxRequestBytes), logger.Named("http"),
	)
	if err := httpServer.Start(); err != nil {
		logger.Fatal("failed to start HTTP server", zap.Error(err))
	}

	logger.Info("service started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownTimeout := time.Duration(cfg.Service.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Stop accepting HTTP traffic first.
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		commitWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all pipelines stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout reached, some goroutines may not have finished")
	}

	logger.Info("bgp-synth stopped")
}

func runSynth() {
	cfg, requestPath, logger := loadConfig(os.Args[2:])
	defer logger.Sync()

	var body []byte
	var err error
	if requestPath == "" {
		body, err = readAllStdin()
	} else {
		body, err = os.ReadFile(requestPath)
	}
	if err != nil {
		logger.Fatal("failed to read request", zap.Error(err))
	}

	runner := service.NewRunner(nil, cfg.Synth, logger.Named("runner"))
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Synth.TimeoutSeconds)*time.Second)
	defer cancel()

	resp, err := runner.Run(ctx, body, "cli")
	if err != nil {
		logger.Fatal("synthesis failed", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		logger.Fatal("failed to encode response", zap.Error(err))
	}
}

func readAllStdin() ([]byte, error) {
	info, err := os.Stdin.Stat()
	if err != nil {
		return nil, err
	}
	if info.Mode()&os.ModeCharDevice != 0 {
		return nil, fmt.Errorf("no --request file and stdin is a terminal")
	}
	return io.ReadAll(os.Stdin)
}

func runMigrate() {
	cfg, _, logger := loadConfig(os.Args[2:])
	defer logger.Sync()

	logger.Info("running migrations",
		zap.String("dsn", redactDSN(cfg.Postgres.DSN)),
	)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, migrationsDir(), logger); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	logger.Info("migrations complete")
}

func runMaintenance() {
	cfg, _, logger := loadConfig(os.Args[2:])
	defer logger.Sync()

	logger.Info("running retention maintenance",
		zap.Int("retention_days", cfg.Retention.Days),
		zap.String("timezone", cfg.Retention.Timezone),
	)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	pruner := maintenance.NewPruner(pool, cfg.Retention.Days, cfg.Retention.Timezone, logger)
	if err := pruner.Run(ctx); err != nil {
		logger.Fatal("maintenance failed", zap.Error(err))
	}

	logger.Info("retention maintenance complete")
}

func redactDSN(dsn string) string {
	if !strings.Contains(dsn, "://") {
		// keyword=value format - redact password=... portion
		re := regexp.MustCompile(`password\s*=\s*\S+`)
		return re.ReplaceAllString(dsn, "password=***")
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
