package sandbox

import (
	"errors"
	"time"
)

var (
	// ErrHostClosed is returned by Mount after Close.
	ErrHostClosed = errors.New("sandbox host is closed")
	// ErrReleased is returned when a released handle is used.
	ErrReleased = errors.New("sandbox handle released")
)

// Execution results recorded in Report.Result and metrics.
const (
	ResultOK        = "ok"
	ResultError     = "error"
	ResultTimeout   = "timeout"
	ResultCancelled = "cancelled"
	ResultSkipped   = "skipped"
)

// Config defines sandbox limits.
type Config struct {
	Timeout          time.Duration // Execution budget per handle
	MaxCallStackSize int           // goja call stack bound
	MaxTimers        int           // setTimeout callbacks run per handle
	Headless         bool          // Execute mounted documents in goja
}

// DefaultConfig returns the production limits.
func DefaultConfig() Config {
	return Config{
		Timeout:          2 * time.Second,
		MaxCallStackSize: 1024,
		MaxTimers:        1000,
		Headless:         true,
	}
}

// Report summarises one headless execution.
type Report struct {
	Result    string        // ok, error, timeout, cancelled or skipped
	Duration  time.Duration // Wall time of scripts plus timers
	Errors    int           // Uncaught errors reported through onerror
	Timers    int           // Timer callbacks executed
	Listeners int           // Event listeners registered
	Body      string        // Body markup after execution
}

// Metrics receives host counters. Implemented by monitoring.Metrics.
type Metrics interface {
	HandleMounted()
	HandleReleased()
	RecordExecution(result string, duration time.Duration)
}
