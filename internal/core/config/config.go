package config

import (
	"slices"
	"time"

	"github.com/vietddude/safely/internal/core/domain"
	redisclient "github.com/vietddude/safely/internal/infra/redis"
	"github.com/vietddude/safely/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Environment     string             `yaml:"environment"`
	RaiseEnvs       []string           `yaml:"raise_envs"`
	Tag             domain.Tag         `yaml:"tag"`
	ThrottleCeiling int                `yaml:"throttle_ceiling"`
	Throttle        ThrottleConfig     `yaml:"throttle"`
	Reporter        ReporterConfig     `yaml:"reporter"`
	Redis           redisclient.Config `yaml:"redis"`
	Logging         LoggingConfig      `yaml:"logging"`
	Database        postgres.Config    `yaml:"database"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ThrottleConfig selects where throttle counts live.
type ThrottleConfig struct {
	Backend string `yaml:"backend"` // memory, redis
}

// ReporterConfig lists the sinks failures are reported to.
type ReporterConfig struct {
	Sinks     []string      `yaml:"sinks"`     // log, redis, postgres, memory
	Stream    string        `yaml:"stream"`    // redis stream name
	Retention time.Duration `yaml:"retention"` // stored reports older than this are pruned; 0 keeps all
}

// Sink names accepted in ReporterConfig.Sinks.
const (
	SinkLog      = "log"
	SinkRedis    = "redis"
	SinkPostgres = "postgres"
	// SinkMemory keeps reports in process; the CLI prints them on exit.
	SinkMemory = "memory"
)

// HasSink reports whether sink is listed in Reporter.Sinks.
func (c *AppConfig) HasSink(sink string) bool {
	return slices.Contains(c.Reporter.Sinks, sink)
}

// Throttle backends accepted in ThrottleConfig.Backend.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)
