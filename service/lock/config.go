package lock

import (
	"fmt"
	"time"
)

// Config controls the acquisition loop. Timeout and PollInterval share one
// unit (time.Duration); the number of poll attempts is
// ceil(Timeout/PollInterval), so with the defaults a contender polls six
// times over six seconds of real time before giving up.
type Config struct {
	// Timeout bounds the total wait for acquisition and doubles as the
	// lease duration written into DueAt on activation.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// PollInterval is the polling granularity between precedence checks.
	PollInterval time.Duration `json:"pollInterval" yaml:"pollInterval"`

	// Enabled bypasses locking entirely when false, for strictly
	// single-worker synchronous execution modes where contention cannot
	// arise.
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// DefaultConfig returns the default lock configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:      6 * time.Second,
		PollInterval: time.Second,
		Enabled:      true,
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("lock.timeout must be > 0")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("lock.pollInterval must be > 0")
	}
	return nil
}

// maxAttempts derives the attempt budget from the configured timeout.
func (c *Config) maxAttempts() int {
	attempts := int((c.Timeout + c.PollInterval - 1) / c.PollInterval)
	if attempts < 1 {
		attempts = 1
	}
	return attempts
}
