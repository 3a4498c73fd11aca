package control

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/vietddude/safely/internal/core/config"
	"github.com/vietddude/safely/internal/core/domain"
	"github.com/vietddude/safely/internal/guard"
	"github.com/vietddude/safely/internal/guard/report"
	"github.com/vietddude/safely/internal/infra/storage"
	"github.com/vietddude/safely/internal/infra/storage/memory"
)

func TestNewRuntime_Defaults(t *testing.T) {
	cfg := config.Default()
	cfg.Environment = "production"

	rt, err := NewRuntime(context.Background(), cfg, Options{Stderr: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("NewRuntime failed: %v", err)
	}
	defer rt.Close()

	if rt.Guard == nil {
		t.Fatal("Guard is nil")
	}
	if rt.Guard.Raises() {
		t.Error("production must not raise")
	}
	if rt.Reports != nil {
		t.Error("no postgres sink configured, Reports should be nil")
	}
	if checks := rt.HealthChecks(); len(checks) != 0 {
		t.Errorf("no backends configured, got checks %v", checks)
	}
	if _, ok := rt.buildReporter().(*report.LogReporter); !ok {
		t.Errorf("default sink = %T, want *report.LogReporter", rt.buildReporter())
	}
}

func TestNewRuntime_ReporterOverride(t *testing.T) {
	cfg := config.Default()
	cfg.Environment = "production"
	cfg.Tag = domain.Label("cron")

	var got []string
	rt, err := NewRuntime(context.Background(), cfg, Options{
		Stderr: &bytes.Buffer{},
		Reporter: report.ReporterFunc(func(_ context.Context, err error) error {
			got = append(got, err.Error())
			return nil
		}),
	})
	if err != nil {
		t.Fatalf("NewRuntime failed: %v", err)
	}
	defer rt.Close()

	err = guard.Run(context.Background(), rt.Guard, guard.Options{}, func() error {
		return errors.New("job failed")
	})
	if err != nil {
		t.Errorf("Run() = %v", err)
	}
	if len(got) != 1 || got[0] != "[cron] job failed" {
		t.Errorf("reports = %q", got)
	}
}

func TestNewRuntime_RedisUnreachable(t *testing.T) {
	cfg := config.Default()
	cfg.Throttle.Backend = config.BackendRedis
	cfg.Redis.URL = "redis://127.0.0.1:1/0"

	if _, err := NewRuntime(context.Background(), cfg, Options{}); err == nil {
		t.Error("expected error for unreachable redis")
	}
}

func TestRuntime_Needs(t *testing.T) {
	cfg := config.Default()
	cfg.Reporter.Sinks = []string{config.SinkLog, config.SinkPostgres}
	rt := &Runtime{cfg: cfg}

	if rt.needsRedis() {
		t.Error("memory backend with log/postgres sinks needs no redis")
	}
	if !rt.needsPostgres() {
		t.Error("postgres sink needs postgres")
	}

	cfg.Reporter.Sinks = []string{config.SinkRedis}
	if !rt.needsRedis() {
		t.Error("redis sink needs redis")
	}
}

func TestRuntime_StartPrunesReports(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := memory.NewReportRepo(memory.NewMemoryStorage())
	repo.Save(ctx, &domain.ReportRecord{ID: "old", CreatedAt: time.Now().Add(-48 * time.Hour)})
	repo.Save(ctx, &domain.ReportRecord{ID: "new", CreatedAt: time.Now()})

	cfg := config.Default()
	cfg.Reporter.Retention = 24 * time.Hour
	rt := &Runtime{Reports: repo, cfg: cfg, log: slog.Default()}
	rt.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := repo.GetByID(ctx, "old"); errors.Is(err, storage.ErrReportNotFound) {
			if _, err := repo.GetByID(ctx, "new"); err != nil {
				t.Fatalf("recent report was pruned: %v", err)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("old report was not pruned")
}

func TestNewRuntime_MemorySink(t *testing.T) {
	cfg := config.Default()
	cfg.Environment = "production"
	cfg.Reporter.Sinks = []string{config.SinkMemory}

	rt, err := NewRuntime(context.Background(), cfg, Options{Stderr: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("NewRuntime failed: %v", err)
	}
	defer rt.Close()

	if _, ok := rt.Reports.(*memory.ReportRepo); !ok {
		t.Fatalf("Reports = %T, want *memory.ReportRepo", rt.Reports)
	}
	guard.Run(context.Background(), rt.Guard, guard.Options{}, func() error {
		return errors.New("job failed")
	})

	reports, _ := rt.Reports.ListRecent(context.Background(), 0)
	if len(reports) != 1 || reports[0].Message != "job failed" {
		t.Errorf("stored reports = %v", reports)
	}
}
