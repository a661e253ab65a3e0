package module

import "cyberchecker/internal/platform/config"

// Options holds configuration settings for the configs module
type Options struct {
	Dir string
}

// FromConfig reads configuration settings from the config.Conf
func FromConfig(cfg config.Conf) Options {
	cf := cfg.Prefix("CORE_CONFIGS_")
	return Options{
		Dir: cf.MayString("DIR", "configs"),
	}
}
