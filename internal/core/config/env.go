package config

import "os"

// DefaultEnvironment is used when no environment variable names one.
const DefaultEnvironment = "development"

// DefaultThrottleCeiling is the number of distinct ledger keys after which
// the in-process throttle table is cleared.
const DefaultThrottleCeiling = 1000

// EnvVars are consulted in order by DetectEnvironment.
var EnvVars = []string{"SAFELY_ENV", "APP_ENV", "GO_ENV"}

// DefaultRaiseEnvs returns the environments in which matched failures are
// re-raised instead of intercepted.
func DefaultRaiseEnvs() []string {
	return []string{"development", "test"}
}

// DetectEnvironment returns the deployment mode of the process.
func DetectEnvironment() string {
	for _, name := range EnvVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return DefaultEnvironment
}

// Default returns the configuration used when no file is loaded.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}
