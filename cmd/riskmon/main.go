package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/supplier-risk/internal/adapters/ai"
	"github.com/selivandex/supplier-risk/internal/adapters/config"
	"github.com/selivandex/supplier-risk/internal/adapters/news"
	redisAdapter "github.com/selivandex/supplier-risk/internal/adapters/redis"
	"github.com/selivandex/supplier-risk/internal/adapters/telegram"
	"github.com/selivandex/supplier-risk/internal/adapters/worldbank"
	"github.com/selivandex/supplier-risk/internal/health"
	"github.com/selivandex/supplier-risk/internal/indicators"
	"github.com/selivandex/supplier-risk/internal/roster"
	"github.com/selivandex/supplier-risk/internal/scoring"
	"github.com/selivandex/supplier-risk/internal/sentiment"
	"github.com/selivandex/supplier-risk/internal/workers"
	"github.com/selivandex/supplier-risk/pkg/logger"
	"github.com/selivandex/supplier-risk/pkg/models"
	"github.com/selivandex/supplier-risk/pkg/worker"
)

const usage = `usage: riskmon <command> [flags]

commands:
  score   score the roster once and print the ranked table
  serve   re-score periodically and serve /health, /ready, /metrics and /scores
`

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("missing command")
	}

	cfg, err := initConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	switch args[0] {
	case "score":
		return runScore(ctx, cfg, args[1:])
	case "serve":
		return runServe(ctx, cfg, args[1:])
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func initConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, nil
}

// app holds the wired scoring components
type app struct {
	pipeline *scoring.Pipeline
	caches   []*indicators.Cache
	redis    *redisAdapter.Client
}

func (a *app) Close() {
	if a.redis == nil {
		return
	}
	if err := a.redis.Close(); err != nil {
		logger.Error("redis close error", zap.Error(err))
	}
}

func buildApp(cfg *config.Config) (*app, error) {
	a := &app{}

	var cacheOpts []indicators.Option
	cacheOpts = append(cacheOpts, indicators.WithTTL(cfg.Indicators.CacheTTL))

	if cfg.Redis.Enabled {
		client, err := redisAdapter.New(&cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		a.redis = client

		// the lock must outlive one fetch; peers wait a little longer than that
		lockTTL := cfg.Indicators.Timeout + 10*time.Second
		cacheOpts = append(cacheOpts,
			indicators.WithStore(client.SnapshotStore()),
			indicators.WithLock(client.RefreshLock(lockTTL), cfg.Indicators.Timeout+5*time.Second),
		)
	}

	wb := worldbank.NewClient(cfg.Indicators.BaseURL, cfg.Indicators.Timeout)
	geo := indicators.NewCache(wb, cfg.Indicators.GeoCode, "RiskGeo", cacheOpts...)
	reg := indicators.NewCache(wb, cfg.Indicators.RegCode, "RiskReg", cacheOpts...)
	a.caches = []*indicators.Cache{geo, reg}

	var scorer sentiment.Scorer
	switch cfg.Sentiment.Provider {
	case "openai":
		scorer = ai.NewPolarityScorer(cfg.Sentiment.OpenAIAPIKey, cfg.Sentiment.OpenAIModel)
	default:
		scorer = sentiment.NewAnalyzer()
	}

	var headlines news.Provider = news.NewGoogleNewsProvider(&cfg.News)

	a.pipeline = scoring.NewPipeline(
		headlines,
		sentiment.NewExtractor(scorer),
		scoring.NewEngine(geo, reg),
	)

	logger.Info("scoring pipeline ready",
		zap.String("headline_provider", headlines.GetName()),
		zap.String("sentiment_provider", cfg.Sentiment.Provider),
		zap.String("geo_indicator", cfg.Indicators.GeoCode),
		zap.String("reg_indicator", cfg.Indicators.RegCode),
		zap.Bool("shared_cache", cfg.Redis.Enabled),
	)

	return a, nil
}

func runScore(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("score", flag.ContinueOnError)
	var (
		rosterPath = fs.String("roster", cfg.Scoring.RosterPath, "Supplier roster CSV (supplier,country)")
		days       = fs.Int("days", cfg.Scoring.LookbackDays, "Headline look-back window in days (30-180)")
		headlines  = fs.Int("headlines", 10, "Number of recent headlines to print (0 for none)")
		quiet      = fs.Bool("quiet", false, "Suppress per-supplier progress")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *days < 30 || *days > 180 {
		return fmt.Errorf("days must be between 30 and 180, got %d", *days)
	}

	suppliers, err := roster.LoadFile(*rosterPath)
	if err != nil {
		return err
	}

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var progress scoring.ProgressFunc
	if !*quiet {
		progress = func(done, total int, supplier string) {
			fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", done, total, supplier)
		}
	}

	report, err := a.pipeline.Run(ctx, suppliers, *days, cfg.Scoring.Weights(), progress)
	if err != nil {
		return err
	}

	return renderReport(os.Stdout, report, *headlines)
}

func runServe(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	var (
		rosterPath = fs.String("roster", cfg.Scoring.RosterPath, "Supplier roster CSV (supplier,country)")
		interval   = fs.Duration("interval", cfg.Scoring.Interval, "Re-scoring interval")
		port       = fs.String("port", cfg.Health.Port, "HTTP port")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var alerter workers.Alerter
	if cfg.Telegram.Enabled {
		notifier, err := telegram.NewNotifier(&cfg.Telegram)
		if err != nil {
			return fmt.Errorf("failed to initialize telegram: %w", err)
		}
		alerter = notifier
	}

	scoringWorker := workers.NewScoringWorker(
		a.pipeline,
		func() ([]models.SupplierRecord, error) { return roster.LoadFile(*rosterPath) },
		alerter,
		cfg.Scoring.LookbackDays,
		cfg.Scoring.Weights(),
	)

	group := worker.NewWorkerGroup(ctx)
	scoringHandle := group.Add(scoringWorker, *interval)
	group.Add(workers.NewIndicatorWorker(a.caches[0], a.caches[1]), cfg.Indicators.CacheTTL)

	opts := []health.Option{
		health.WithWorkers(group),
		health.WithRefresh(scoringHandle.Trigger),
	}
	if a.redis != nil {
		opts = append(opts, health.WithCheck("redis", a.redis))
	}
	healthServer := health.NewServer(*port, scoringWorker, opts...)

	go func() {
		if err := healthServer.Start(); err != nil {
			logger.Error("health server failed", zap.Error(err))
		}
	}()

	group.Start()
	healthServer.SetReady(true)

	logger.Info("🚀 supplier risk monitor running",
		zap.String("roster", *rosterPath),
		zap.Duration("interval", *interval),
		zap.Bool("telegram_alerts", alerter != nil),
	)

	<-ctx.Done()

	return shutdown(healthServer, group)
}

func shutdown(healthServer *health.Server, group *worker.WorkerGroup) error {
	logger.Info("🛑 Shutdown signal received, starting graceful shutdown...")

	healthServer.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer shutdownCancel()

	group.Stop(20 * time.Second)

	if err := healthServer.Stop(shutdownCtx); err != nil {
		logger.Error("health server stop error", zap.Error(err))
	}

	select {
	case <-shutdownCtx.Done():
		logger.Warn("⚠️ shutdown timeout exceeded")
		return fmt.Errorf("graceful shutdown timeout")
	default:
		logger.Info("✅ shutdown completed successfully")
	}

	return nil
}
