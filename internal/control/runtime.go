package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/vietddude/safely/internal/core/config"
	"github.com/vietddude/safely/internal/core/worker"
	"github.com/vietddude/safely/internal/guard"
	"github.com/vietddude/safely/internal/guard/report"
	"github.com/vietddude/safely/internal/guard/throttle"
	redisclient "github.com/vietddude/safely/internal/infra/redis"
	"github.com/vietddude/safely/internal/infra/storage"
	"github.com/vietddude/safely/internal/infra/storage/memory"
	"github.com/vietddude/safely/internal/infra/storage/postgres"
)

// Runtime is a Guard wired to the sinks and ledger named in the config,
// together with the connections it owns.
type Runtime struct {
	Guard   *guard.Guard
	Reports storage.ReportRepository

	cfg         *config.AppConfig
	db          *postgres.DB
	redisClient *redisclient.Client
	log         *slog.Logger
}

// Options adjust how a Runtime is built.
type Options struct {
	// Stderr receives FAIL-SAFE lines. Nil means os.Stderr.
	Stderr io.Writer
	// Reporter, when set, replaces the sinks listed in the config.
	Reporter report.Reporter
}

// NewRuntime connects the backends cfg needs and builds a Guard on them.
func NewRuntime(ctx context.Context, cfg *config.AppConfig, opts Options) (*Runtime, error) {
	rt := &Runtime{
		cfg: cfg,
		log: slog.Default().With("component", "control"),
	}

	if rt.needsRedis() {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		rt.redisClient = client
	}

	if rt.needsPostgres() {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		rt.db = db

		if err := db.Migrate(ctx); err != nil {
			rt.Close()
			return nil, err
		}
		rt.Reports = postgres.NewReportRepo(db)
	} else if cfg.HasSink(config.SinkMemory) {
		rt.Reports = memory.NewReportRepo(memory.NewMemoryStorage())
	}

	reporter := opts.Reporter
	if reporter == nil {
		reporter = rt.buildReporter()
	}

	var ledger throttle.Ledger
	switch cfg.Throttle.Backend {
	case config.BackendRedis:
		ledger = redisclient.NewThrottleLedger(rt.redisClient, slog.Default())
		rt.log.Info("Using Redis throttle ledger")
	default:
		ledger = throttle.NewMemoryLedger(cfg.ThrottleCeiling)
	}

	rt.Guard = guard.New(guard.Config{
		Environment:     cfg.Environment,
		RaiseEnvs:       cfg.RaiseEnvs,
		DefaultTag:      cfg.Tag,
		Reporter:        reporter,
		Ledger:          ledger,
		ThrottleCeiling: cfg.ThrottleCeiling,
		Stderr:          opts.Stderr,
	})

	rt.log.Debug("Guard ready",
		"env", cfg.Environment,
		"raises", rt.Guard.Raises(),
		"sinks", cfg.Reporter.Sinks,
	)
	return rt, nil
}

func (rt *Runtime) needsRedis() bool {
	return rt.cfg.Throttle.Backend == config.BackendRedis || rt.cfg.HasSink(config.SinkRedis)
}

func (rt *Runtime) needsPostgres() bool {
	return rt.cfg.HasSink(config.SinkPostgres)
}

// HealthChecks returns a check per backend connection the runtime holds.
func (rt *Runtime) HealthChecks() map[string]HealthCheck {
	checks := make(map[string]HealthCheck)
	if rt.redisClient != nil {
		checks["redis"] = rt.redisClient.Health
	}
	if rt.db != nil {
		checks["postgres"] = rt.db.Health
	}
	return checks
}

func (rt *Runtime) buildReporter() report.Reporter {
	var sinks report.Multi
	for _, sink := range rt.cfg.Reporter.Sinks {
		switch sink {
		case config.SinkLog:
			sinks = append(sinks, report.NewLogReporter(slog.Default(), rt.cfg.Environment))
		case config.SinkRedis:
			sinks = append(sinks, redisclient.NewStreamReporter(rt.redisClient, rt.cfg.Reporter.Stream, rt.cfg.Environment))
		case config.SinkPostgres, config.SinkMemory:
			sinks = append(sinks, report.NewStoreReporter(rt.Reports, rt.cfg.Environment))
		}
	}
	if len(sinks) == 1 {
		return sinks[0]
	}
	return sinks
}

// Start launches the background workers the config asks for and returns
// immediately. They stop when ctx is done.
func (rt *Runtime) Start(ctx context.Context) {
	if rt.Reports != nil && rt.cfg.Reporter.Retention > 0 {
		pruner := worker.NewPruner(rt.cfg.Reporter.Retention, rt.Reports)
		go pruner.Start(ctx)
		rt.log.Debug("Report pruner started", "retention", rt.cfg.Reporter.Retention)
	}
}

// Close releases the connections the runtime opened.
func (rt *Runtime) Close() error {
	var errs []error
	if rt.redisClient != nil {
		if err := rt.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if rt.db != nil {
		if err := rt.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
	}
	return errors.Join(errs...)
}
