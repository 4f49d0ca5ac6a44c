package flowgate

import (
	"github.com/flowgate/flowgate/service/lock"
	"github.com/flowgate/flowgate/service/worker"
)

// Config is a serialisable representation of the core configuration. It can
// be populated from JSON or YAML; the zero-value of every nested field
// inherits its package defaults.
type Config struct {
	Lock   lock.Config   `json:"lock" yaml:"lock"`
	Worker worker.Config `json:"worker" yaml:"worker"`
}

// DefaultConfig returns a Config populated with the package defaults: a six
// second lock budget polled once a second, locking enabled, five workers.
func DefaultConfig() *Config {
	return &Config{
		Lock:   lock.DefaultConfig(),
		Worker: worker.DefaultConfig(),
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	return c.Lock.Validate()
}
