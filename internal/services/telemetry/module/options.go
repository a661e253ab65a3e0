package module

import (
	"time"

	"cyberchecker/internal/platform/config"
)

// Options holds configuration settings for the telemetry module
type Options struct {
	FlushInterval time.Duration
	BatchSize     int
	Buffer        int
}

// FromConfig reads configuration settings from the config.Conf
func FromConfig(cfg config.Conf) Options {
	cf := cfg.Prefix("CORE_TELEMETRY_")
	return Options{
		FlushInterval: cf.MayDuration("FLUSH_INTERVAL", time.Second),
		BatchSize:     cf.MayInt("BATCH_SIZE", 200),
		Buffer:        cf.MayInt("BUFFER", 4096),
	}
}
