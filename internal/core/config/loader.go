package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Environment == "" {
		cfg.Environment = DetectEnvironment()
	}
	// An explicit empty list in the file means "never re-raise"; only a
	// missing key gets the defaults.
	if cfg.RaiseEnvs == nil {
		cfg.RaiseEnvs = DefaultRaiseEnvs()
	}
	if cfg.ThrottleCeiling == 0 {
		cfg.ThrottleCeiling = DefaultThrottleCeiling
	}
	if cfg.Throttle.Backend == "" {
		cfg.Throttle.Backend = BackendMemory
	}
	if len(cfg.Reporter.Sinks) == 0 {
		cfg.Reporter.Sinks = []string{SinkLog}
	}
	if cfg.Reporter.Stream == "" {
		cfg.Reporter.Stream = "safely:reports"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate checks that sinks and backends are known and have what they need.
func (c *AppConfig) Validate() error {
	for _, sink := range c.Reporter.Sinks {
		switch sink {
		case SinkLog, SinkMemory:
		case SinkRedis:
			if c.Redis.URL == "" {
				return fmt.Errorf("reporter sink %q requires redis.url", sink)
			}
		case SinkPostgres:
			if c.Database.URL == "" {
				return fmt.Errorf("reporter sink %q requires database.url", sink)
			}
		default:
			return fmt.Errorf("unknown reporter sink %q", sink)
		}
	}

	if c.HasSink(SinkMemory) && c.HasSink(SinkPostgres) {
		return fmt.Errorf("reporter sinks %q and %q are exclusive", SinkMemory, SinkPostgres)
	}

	switch c.Throttle.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("throttle backend %q requires redis.url", c.Throttle.Backend)
		}
	default:
		return fmt.Errorf("unknown throttle backend %q", c.Throttle.Backend)
	}

	if c.ThrottleCeiling < 0 {
		return fmt.Errorf("throttle_ceiling must not be negative")
	}
	if c.Reporter.Retention < 0 {
		return fmt.Errorf("reporter.retention must not be negative")
	}
	return nil
}

// Raises reports whether the configured environment re-raises failures.
func (c *AppConfig) Raises() bool {
	for _, env := range c.RaiseEnvs {
		if env == c.Environment {
			return true
		}
	}
	return false
}
