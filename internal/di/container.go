// Package di assembles the application object graph by hand. The wiring is
// small enough that explicit construction order reads better than a
// framework: config, logger, metrics, domain graph, application services,
// durable log, tracing, HTTP.
package di

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tripmind-backend/internal/application/builder"
	"tripmind-backend/internal/application/query"
	"tripmind-backend/internal/application/scorer"
	"tripmind-backend/internal/config"
	"tripmind-backend/internal/domain/journey"
	"tripmind-backend/internal/infrastructure/observability"
	"tripmind-backend/internal/infrastructure/signallog"
	"tripmind-backend/internal/infrastructure/tracing"
	apihttp "tripmind-backend/internal/interfaces/http"
	"tripmind-backend/internal/interfaces/http/handlers"

	nethttp "net/http"
)

// Container holds every long-lived component of the service.
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Collector

	Graph   *journey.Graph
	Builder *builder.Builder
	Scorer  *scorer.Scorer
	Engine  *query.Engine

	SignalLog *signallog.Store
	Tracer    *tracing.TracerProvider

	Router nethttp.Handler

	logLevel      zap.AtomicLevel
	shutdownHooks []func(context.Context) error
}

// NewContainer builds the full object graph from configuration.
func NewContainer(cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}

	logger, level, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	c.Logger = logger
	c.logLevel = level
	c.onShutdown(func(context.Context) error {
		_ = logger.Sync()
		return nil
	})

	c.Metrics = observability.NewCollector(cfg.Metrics.Namespace)

	c.Graph = journey.NewGraph()
	c.Builder = builder.New(c.Graph)
	c.Scorer = scorer.New(c.Graph).WithHooks(observability.CacheHooks{Collector: c.Metrics})
	c.Engine = query.NewEngine(c.Builder, c.Scorer).WithDefaultLimit(cfg.Query.DefaultLimit)

	if cfg.SignalLog.Enabled {
		db, err := signallog.Open(cfg.SignalLog.Path)
		if err != nil {
			return nil, fmt.Errorf("open signal log: %w", err)
		}
		store, err := signallog.New(db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("initialize signal log: %w", err)
		}
		c.SignalLog = store
		c.onShutdown(func(context.Context) error { return db.Close() })
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracing("tripmind-api", string(cfg.Environment), cfg.Tracing.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("initialize tracing: %w", err)
		}
		c.Tracer = tp
		c.onShutdown(tp.Shutdown)
	}

	analytics := handlers.NewAnalyticsHandler(c.Engine, c.Metrics, c.SignalLog, c.Tracer, c.Logger, cfg.Query.MaxLimit)
	health := handlers.NewHealthHandler(c.Engine, string(cfg.Environment))
	c.Router = apihttp.NewRouter(cfg, c.Logger, c.Metrics, analytics, health)

	return c, nil
}

// ReplaySignalLog rebuilds the in-memory graph from the durable log. Signals
// that no longer apply, for example a conversion whose session log entry was
// lost, are skipped rather than aborting the replay.
func (c *Container) ReplaySignalLog(ctx context.Context) error {
	if c.SignalLog == nil {
		return nil
	}

	var applied int
	var err error
	replay := func(ctx context.Context) int {
		applied, err = c.SignalLog.Replay(ctx, c.Builder.ProcessSignal)
		return applied
	}
	if c.Tracer != nil {
		c.Tracer.TraceReplay(ctx, replay)
	} else {
		replay(ctx)
	}
	if err != nil {
		return fmt.Errorf("replay signal log: %w", err)
	}
	c.Logger.Info("signal log replayed",
		zap.Int("applied", applied),
		zap.Uint64("generation", c.Builder.Generation()),
	)
	return nil
}

// Shutdown releases resources in reverse construction order.
func (c *Container) Shutdown(ctx context.Context) error {
	var firstErr error
	for i := len(c.shutdownHooks) - 1; i >= 0; i-- {
		if err := c.shutdownHooks[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Container) onShutdown(fn func(context.Context) error) {
	c.shutdownHooks = append(c.shutdownHooks, fn)
}

// SetLogLevel adjusts the logger's level at runtime; wired to configuration
// hot reload. An unparseable level is logged and ignored.
func (c *Container) SetLogLevel(level string) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		c.Logger.Warn("invalid log level, keeping current",
			zap.String("level", level), zap.Error(err))
		return
	}
	c.logLevel.SetLevel(parsed)
}

func newLogger(cfg *config.Config) (*zap.Logger, zap.AtomicLevel, error) {
	var zcfg zap.Config
	if cfg.IsDevelopment() {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	if level, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
		zcfg.Level = level
	}
	logger, err := zcfg.Build()
	return logger, zcfg.Level, err
}
