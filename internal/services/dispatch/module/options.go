package module

import (
	"time"

	"fieldday/internal/platform/config"
)

// Options holds configuration settings for the dispatch module
type Options struct {
	MaxAttempts        int
	Workers            int
	IdleSleep          time.Duration
	RequestMissingDeps bool
}

// FromConfig extracts Options from the given config.Conf
func FromConfig(cfg config.Conf) Options {
	df := cfg.Prefix("CORE_DISPATCH_")
	return Options{
		MaxAttempts:        df.MayInt("MAX_ATTEMPTS", 10),
		Workers:            df.MayInt("WORKERS", 2),
		IdleSleep:          df.MayDuration("IDLE_SLEEP", 2*time.Second),
		RequestMissingDeps: df.MayBool("REQUEST_DEPS", false),
	}
}
