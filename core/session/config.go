package session

import "time"

// Config controls session expiry. It is loaded from the environment with
// github.com/caarlos0/env, mirroring the rest of the container's
// ambient configuration.
type Config struct {
	// TimeoutSeconds is how long a session may sit idle before the
	// housekeeper expires it. Zero disables expiry entirely.
	TimeoutSeconds int `env:"RUSTLET_SESSION_TIMEOUT_SECONDS" envDefault:"1800"`

	// SweepInterval is how often the housekeeper scans the store.
	SweepInterval time.Duration `env:"RUSTLET_SESSION_SWEEP_INTERVAL" envDefault:"60s"`
}

// DefaultConfig returns the container's documented session defaults:
// a 1800 second (30 minute) timeout, swept every 60 seconds.
func DefaultConfig() Config {
	return Config{TimeoutSeconds: 1800, SweepInterval: 60 * time.Second}
}

// Timeout returns the configured idle timeout as a time.Duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
