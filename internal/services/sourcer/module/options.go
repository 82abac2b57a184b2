package module

import "fieldday/internal/platform/config"

// Options holds configuration settings for the sourcer module
type Options struct {
	MaxItems int
}

// FromConfig extracts Options from the given config.Conf
func FromConfig(cfg config.Conf) Options {
	sf := cfg.Prefix("CORE_SOURCER_")
	return Options{
		MaxItems: sf.MayInt("MAX_ITEMS", 0),
	}
}
