package module

import "cyberchecker/internal/platform/config"

// Options holds configuration settings for the results module
type Options struct {
	ExportDir string
	HardLimit int
}

// FromConfig reads configuration settings from the config.Conf
func FromConfig(cfg config.Conf) Options {
	cf := cfg.Prefix("CORE_RESULTS_")
	return Options{
		ExportDir: cf.MayString("EXPORT_DIR", "results"),
		HardLimit: cf.MayInt("HARD_LIMIT", 1000),
	}
}
