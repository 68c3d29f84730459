package minidb

import "time"

const (
	GCReclaimIntervalDefault = time.Minute * 5
	GCDiscardRatioDefault    = 0.5
)

// Config contains minidb configuration parameters
type Config struct {
	InMemory          bool
	GCReclaimInterval time.Duration
	GCDiscardRatio    float64
}

func defaultConfig() *Config {
	return &Config{
		InMemory:          false,
		GCReclaimInterval: GCReclaimIntervalDefault,
		GCDiscardRatio:    GCDiscardRatioDefault,
	}
}

func (c *Config) applyOptions(opts []Option) (*Config, error) {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Option is a function that takes a config struct and modifies it
type Option func(c *Config) error

// InMemoryMode allows to enable/disable in-memory mode.
func InMemoryMode(enable bool) Option {
	return func(c *Config) error {
		c.InMemory = enable
		return nil
	}
}

// WithGCReclaimInterval sets the interval of the badger value-log GC loop.
func WithGCReclaimInterval(interval time.Duration) Option {
	return func(c *Config) error {
		if interval <= 0 {
			return ErrInvalidArgument
		}
		c.GCReclaimInterval = interval
		return nil
	}
}

// WithGCDiscardRatio sets the discard ratio of the badger value-log GC loop.
func WithGCDiscardRatio(ratio float64) Option {
	return func(c *Config) error {
		if ratio <= 0 || ratio >= 1 {
			return ErrInvalidArgument
		}
		c.GCDiscardRatio = ratio
		return nil
	}
}
