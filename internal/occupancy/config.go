package occupancy

import "time"

// Config controls the occupancy snapshot worker loop.
type Config struct {
	BatchSize    int
	PollInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize:    100,
		PollInterval: 5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}

	if c.PollInterval <= 0 {
		c.PollInterval = defaults.PollInterval
	}
	return c
}
