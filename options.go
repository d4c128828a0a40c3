// File: options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Functional options for driver initialization.

package winaio

import (
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

// Config collects driver tunables. New starts from the defaults and applies
// options on top of them.
type Config struct {
	// Capacity bounds the number of concurrently in-flight operations.
	Capacity int
	// MaxWorkers caps the blocking-operation worker pool. Zero disables
	// the pool; blocking operations then run inline on the caller.
	MaxWorkers int
	// WorkerIdleTimeout is how long an idle worker survives.
	WorkerIdleTimeout time.Duration
	// WorkerName labels pool workers in logs.
	WorkerName string
	// Logger receives debug-level lifecycle events.
	Logger zerolog.Logger
}

// Option customizes driver initialization.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		Capacity:          1024,
		MaxWorkers:        runtime.NumCPU(),
		WorkerIdleTimeout: 5 * time.Second,
		WorkerName:        "winaio",
		Logger:            zerolog.Nop(),
	}
}

// WithCapacity sets the in-flight operation limit.
func WithCapacity(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.Capacity = n
		}
	}
}

// WithMaxWorkers caps the worker pool. Zero disables it and runs blocking
// operations inline on the submitting thread.
func WithMaxWorkers(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.MaxWorkers = n
		}
	}
}

// WithWorkerIdleTimeout overrides the idle-retirement budget.
func WithWorkerIdleTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.WorkerIdleTimeout = d
		}
	}
}

// WithWorkerName labels pool workers.
func WithWorkerName(name string) Option {
	return func(c *Config) {
		if name != "" {
			c.WorkerName = name
		}
	}
}

// WithLogger attaches a logger; the default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Config) { c.Logger = log }
}
