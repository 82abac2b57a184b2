package module

import (
	"time"

	"fieldday/internal/platform/config"
)

// Options holds configuration settings for the outbox module
type Options struct {
	Interval time.Duration
	LockTTL  time.Duration
}

// FromConfig extracts Options from the given config.Conf
func FromConfig(cfg config.Conf) Options {
	of := cfg.Prefix("CORE_OUTBOX_")
	return Options{
		Interval: of.MayDuration("INTERVAL", 10*time.Second),
		LockTTL:  of.MayDuration("LOCK_TTL", 15*time.Minute),
	}
}
