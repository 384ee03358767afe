package executor

import (
	"runtime"
	"time"

	"go.uber.org/zap"
)

// Config holds construction-time options for an Executor. All fields are
// enumerated; unknown options are not supported (spec.md §6).
type Config struct {
	// MinThreads is the floor below which the live worker count never
	// drops, even after idle timeouts.
	MinThreads int
	// MaxThreads is the hard ceiling on the live worker count.
	MaxThreads int
	// UseWorkStealing selects per-worker deques with stealing; when
	// false, a single global priority queue is used instead.
	UseWorkStealing bool
	// ThreadIdleTimeout is how long an idle worker above MinThreads
	// waits before exiting.
	ThreadIdleTimeout time.Duration
	// PinThreads requests runtime.LockOSThread for each worker goroutine.
	PinThreads bool
	// SetPriority requests OS thread-priority hints for workers.
	SetPriority bool
	// ThreadPriority is a best-effort niceness hint in [-100, 100].
	ThreadPriority int
	// StatsInterval, if positive, enables a periodic stats sampler that
	// logs queue/worker occupancy at Debug level.
	StatsInterval time.Duration
	// Logger receives lifecycle and diagnostic events. A nil Logger is
	// replaced with zap.NewNop() so the executor never dereferences nil.
	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults, mirroring the teacher's
// DefaultConfig() in workerpool.go.
func DefaultConfig() Config {
	procs := runtime.GOMAXPROCS(0)
	if procs < 1 {
		procs = 1
	}
	return Config{
		MinThreads:        1,
		MaxThreads:        procs,
		UseWorkStealing:   true,
		ThreadIdleTimeout: 30 * time.Second,
		PinThreads:        false,
		SetPriority:       false,
		ThreadPriority:    0,
		StatsInterval:     0,
		Logger:            zap.NewNop(),
	}
}

// normalize clamps and fills in fields the way NewWithConfig does for the
// teacher's Config, returning a ready-to-use copy.
func (c Config) normalize() Config {
	if c.MinThreads < 1 {
		c.MinThreads = 1
	}
	if c.MaxThreads < c.MinThreads {
		c.MaxThreads = c.MinThreads
	}
	if c.ThreadIdleTimeout <= 0 {
		c.ThreadIdleTimeout = 30 * time.Second
	}
	if c.ThreadPriority < -100 {
		c.ThreadPriority = -100
	}
	if c.ThreadPriority > 100 {
		c.ThreadPriority = 100
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}
