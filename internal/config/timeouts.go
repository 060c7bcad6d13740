package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds the tunable intervals of a run. Values come from
// environment variables with sensible defaults; the persisted config
// file deliberately does not carry them.
type Timeouts struct {
	RetryMaxAttempts  int           // attempts for network-dependent phases
	RetryInitialDelay time.Duration // backoff between retry attempts
	ServiceSettle     time.Duration // wait after service start before validation
	HealthProbe       time.Duration // HTTP liveness probe timeout
	PortProbe         time.Duration // per-port TCP listening probe timeout
}

// LoadTimeouts loads timeout configuration from the environment.
//
// Environment variables:
//   - STREAMPROV_RETRY_MAX_ATTEMPTS (default: 3)
//   - STREAMPROV_RETRY_INITIAL_DELAY (default: 5s)
//   - STREAMPROV_SERVICE_SETTLE (default: 3s)
//   - STREAMPROV_HEALTH_PROBE_TIMEOUT (default: 10s)
//   - STREAMPROV_PORT_PROBE_TIMEOUT (default: 2s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		RetryMaxAttempts:  parseInt("STREAMPROV_RETRY_MAX_ATTEMPTS", 3),
		RetryInitialDelay: parseDuration("STREAMPROV_RETRY_INITIAL_DELAY", 5*time.Second),
		ServiceSettle:     parseDuration("STREAMPROV_SERVICE_SETTLE", 3*time.Second),
		HealthProbe:       parseDuration("STREAMPROV_HEALTH_PROBE_TIMEOUT", 10*time.Second),
		PortProbe:         parseDuration("STREAMPROV_PORT_PROBE_TIMEOUT", 2*time.Second),
	}
}

func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
