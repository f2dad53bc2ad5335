package relay

import (
	"sync"

	"go.uber.org/zap"
)

// Drop reasons reported to the metrics hook.
const (
	DropNotConsole = "not_console"
	DropBadMethod  = "bad_method"
	DropStale      = "stale_handle"
	DropOrigin     = "other_origin"
)

// Metrics receives listener counters. Implemented by monitoring.Metrics.
type Metrics interface {
	RecordConsoleEntry(kind string)
	RecordConsoleDropped(reason string)
}

// ListenerConfig configures a Listener.
type ListenerConfig struct {
	// IsLive reports whether a handle may still post. Nil accepts every source.
	IsLive func(handle string) bool
	// Origin reports the origin that feeds a handle's log. Messages tagged
	// with another origin are dropped so one execution is never logged twice.
	// Nil, an empty result or an untagged message skip the check.
	Origin  func(handle string) Origin
	Logger  *zap.Logger
	Metrics Metrics
}

// Listener turns console messages on a Bus into Log entries.
type Listener struct {
	bus     *Bus
	log     *Log
	isLive  func(string) bool
	origin  func(string) Origin
	logger  *zap.Logger
	metrics Metrics

	mu          sync.Mutex
	unsubscribe func()
}

// NewListener creates a detached listener.
func NewListener(bus *Bus, log *Log, cfg ListenerConfig) *Listener {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{
		bus:     bus,
		log:     log,
		isLive:  cfg.IsLive,
		origin:  cfg.Origin,
		logger:  logger,
		metrics: cfg.Metrics,
	}
}

// Attach subscribes to the bus. Attaching twice is a no-op.
func (l *Listener) Attach() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unsubscribe != nil {
		return
	}
	l.unsubscribe = l.bus.Subscribe(l.handle)
	l.logger.Debug("relay listener attached")
}

// Detach unsubscribes from the bus.
func (l *Listener) Detach() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unsubscribe == nil {
		return
	}
	l.unsubscribe()
	l.unsubscribe = nil
	l.logger.Debug("relay listener detached")
}

// Attached reports whether the listener is subscribed.
func (l *Listener) Attached() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unsubscribe != nil
}

func (l *Listener) handle(msg Message) {
	switch {
	case msg.Type != TypeConsole:
		l.drop(DropNotConsole, msg)
		return
	case !msg.Method.Valid():
		l.drop(DropBadMethod, msg)
		return
	case l.isLive != nil && !l.isLive(msg.Source):
		l.drop(DropStale, msg)
		return
	case !l.fromOwner(msg):
		l.drop(DropOrigin, msg)
		return
	}

	l.log.Append(msg.Source, msg.Method, Format(msg.Method, msg.Args))
	if l.metrics != nil {
		l.metrics.RecordConsoleEntry(string(msg.Method))
	}
}

func (l *Listener) fromOwner(msg Message) bool {
	if l.origin == nil || msg.Origin == "" {
		return true
	}
	owner := l.origin(msg.Source)
	return owner == "" || owner == msg.Origin
}

func (l *Listener) drop(reason string, msg Message) {
	if l.metrics != nil {
		l.metrics.RecordConsoleDropped(reason)
	}
	l.logger.Debug("relay message dropped",
		zap.String("reason", reason),
		zap.String("type", msg.Type),
		zap.String("method", string(msg.Method)),
		zap.String("source", msg.Source),
		zap.String("origin", string(msg.Origin)))
}
