// Package common provides shared configuration, logging and utilities.
package common

import "time"

// Authoritative values for the tunables that gate retries, queue claiming
// and scheduling. Each has exactly one definition here; config may override
// the duration-valued ones, but no other literal copies exist.
const (
	// DefaultMaxRetries caps provider request attempts inside the AI client.
	DefaultMaxRetries = 3

	// DefaultMaxBackoff caps the exponential retry backoff.
	DefaultMaxBackoff = 60 * time.Second

	// DefaultStalenessWindow is the age past which a claimed-but-unfinished
	// queue topic is presumed abandoned and reclaimed.
	DefaultStalenessWindow = 30 * time.Minute

	// DefaultTopicMaxAttempts is the per-topic retry cap before a topic is
	// marked permanently failed.
	DefaultTopicMaxAttempts = 3

	// DefaultCooldownWindow blocks scheduled runs after a settings change.
	DefaultCooldownWindow = 10 * time.Minute

	// DefaultTimeTolerance is the window around the configured time-of-day
	// within which a non-hourly scheduled run is considered on time.
	DefaultTimeTolerance = 10 * time.Minute

	// DefaultMissedRunGrace is how far past an armed trigger a missed run
	// may still be recovered by an externally-triggered check.
	DefaultMissedRunGrace = 5 * time.Minute

	// DefaultGenerationLockTTL bounds the process-wide generation lock.
	// Must exceed the worst-case pipeline duration so a crash cannot wedge
	// scheduling forever.
	DefaultGenerationLockTTL = 30 * time.Minute

	// DefaultPlanningLockTTL bounds the short-lived next-trigger
	// computation lock.
	DefaultPlanningLockTTL = 30 * time.Second

	// DefaultJobTTL is how long job state survives between invocations
	// before an abandoned job expires.
	DefaultJobTTL = 24 * time.Hour

	// DefaultRequestTimeout is the per-request provider network timeout.
	DefaultRequestTimeout = 2 * time.Minute
)
