package sandbox

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/codeper/playground/internal/preview/relay"
	"github.com/codeper/playground/internal/shared/id"
)

// Handle is an opaque reference to one mounted document.
type Handle struct {
	id      id.HandleID
	digest  string
	created time.Time
	doc     []byte
	origin  relay.Origin

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	mu       sync.RWMutex
	released bool
	report   Report
	done     chan struct{}
}

// ID returns the handle identifier.
func (h *Handle) ID() id.HandleID { return h.id }

// Digest returns the hex SHA-256 of the mounted document.
func (h *Handle) Digest() string { return h.digest }

// Origin returns the execution whose console messages the handle accepts:
// headless when the host runs it in goja, bridge when a browser preview does.
func (h *Handle) Origin() relay.Origin { return h.origin }

// CreatedAt returns the mount time.
func (h *Handle) CreatedAt() time.Time { return h.created }

// Released reports whether the handle has been released.
func (h *Handle) Released() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.released
}

// Done is closed when the handle's execution has finished.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Report returns the execution summary. It is complete once Done is closed.
func (h *Handle) Report() Report {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.report
}

// release marks the handle released and interrupts its execution. It reports
// whether this call performed the release.
func (h *Handle) release() bool {
	first := false
	h.once.Do(func() {
		h.mu.Lock()
		h.released = true
		h.mu.Unlock()
		h.cancel()
		first = true
	})
	return first
}

func (h *Handle) finish(r Report) {
	h.mu.Lock()
	h.report = r
	h.mu.Unlock()
	close(h.done)
}

// Host owns the live handle and the executions behind it.
type Host struct {
	config  Config
	bus     *relay.Bus
	gen     *id.Generator
	logger  *zap.Logger
	metrics Metrics

	mu       sync.RWMutex
	current  *Handle
	previews int
	closed   bool
	wg       sync.WaitGroup
}

// NewHost creates a host that posts console traffic to bus. Zero config
// fields take their DefaultConfig values.
func NewHost(bus *relay.Bus, config Config, logger *zap.Logger, metrics Metrics) *Host {
	defaults := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxCallStackSize <= 0 {
		config.MaxCallStackSize = defaults.MaxCallStackSize
	}
	if config.MaxTimers <= 0 {
		config.MaxTimers = defaults.MaxTimers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if bus == nil {
		bus = relay.NewBus()
	}
	return &Host{
		config:  config,
		bus:     bus,
		gen:     id.Default(),
		logger:  logger,
		metrics: metrics,
	}
}

// Bus returns the bus executions post to.
func (h *Host) Bus() *relay.Bus { return h.bus }

// Mount installs document under a new handle, releasing the previous one
// before it returns. Identical documents still get distinct handles. The
// handle runs headless unless headless execution is off or a browser preview
// is attached.
func (h *Host) Mount(ctx context.Context, document string) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sandbox: mount: %w", err)
	}

	sum := sha256.Sum256([]byte(document))
	execCtx, cancel := context.WithCancel(context.Background())
	handle := &Handle{
		id:      h.gen.NewHandleID(),
		digest:  hex.EncodeToString(sum[:]),
		created: time.Now(),
		doc:     []byte(document),
		ctx:     execCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		cancel()
		return nil, ErrHostClosed
	}
	handle.origin = h.mountOriginLocked()
	previous := h.current
	if previous != nil {
		h.releaseLocked(previous)
	}
	h.current = handle
	h.wg.Add(1)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.HandleMounted()
	}
	h.logger.Debug("sandbox mounted",
		zap.String("handle", handle.id.String()),
		zap.String("digest", handle.digest[:12]),
		zap.String("origin", string(handle.origin)),
		zap.Int("bytes", len(document)))

	go h.run(handle)
	return handle, nil
}

// AttachPreview registers a browser preview. While one is attached new
// handles are bridged and not run headless. The returned func detaches; it is
// safe to call more than once.
func (h *Host) AttachPreview() func() {
	h.mu.Lock()
	h.previews++
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			h.previews--
			h.mu.Unlock()
		})
	}
}

// Previews returns the number of attached browser previews.
func (h *Host) Previews() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.previews
}

// MountOrigin returns the origin a handle mounted now would get.
func (h *Host) MountOrigin() relay.Origin {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.mountOriginLocked()
}

func (h *Host) mountOriginLocked() relay.Origin {
	if h.config.Headless && h.previews == 0 {
		return relay.OriginHeadless
	}
	return relay.OriginBridge
}

// Origin returns the origin of handle while it is live, or "".
func (h *Host) Origin(handle string) relay.Origin {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil || h.current.id.String() != handle {
		return ""
	}
	return h.current.origin
}

// Unmount releases the current handle, if any.
func (h *Host) Unmount() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current != nil {
		h.releaseLocked(h.current)
		h.current = nil
	}
}

// Close unmounts, refuses further mounts and waits for running executions.
func (h *Host) Close() error {
	h.mu.Lock()
	h.closed = true
	if h.current != nil {
		h.releaseLocked(h.current)
		h.current = nil
	}
	h.mu.Unlock()

	h.wg.Wait()
	return nil
}

// Current returns the live handle, or nil.
func (h *Host) Current() *Handle {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Live returns the number of live handles: zero or one.
func (h *Host) Live() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil {
		return 0
	}
	return 1
}

// IsLive reports whether handle names the live handle.
func (h *Host) IsLive(handle string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current != nil && h.current.id.String() == handle
}

// Document returns the bytes mounted under handle while it is live.
func (h *Host) Document(handle id.HandleID) ([]byte, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil || h.current.id != handle {
		return nil, fmt.Errorf("sandbox: document %s: %w", handle, ErrReleased)
	}
	return h.current.doc, nil
}

func (h *Host) releaseLocked(handle *Handle) {
	if !handle.release() {
		return
	}
	if h.metrics != nil {
		h.metrics.HandleReleased()
	}
	h.logger.Debug("sandbox released", zap.String("handle", handle.id.String()))
}

func (h *Host) run(handle *Handle) {
	defer h.wg.Done()

	if handle.origin != relay.OriginHeadless {
		handle.finish(Report{Result: ResultSkipped})
		return
	}

	ctx, cancel := context.WithTimeout(handle.ctx, h.config.Timeout)
	defer cancel()

	post := func(msg relay.Message) {
		msg.Source = handle.id.String()
		msg.Origin = relay.OriginHeadless
		h.bus.Post(msg)
	}
	logger := h.logger.With(zap.String("handle", handle.id.String()))

	rt := NewRuntime(h.config, post, logger)
	report := rt.Run(ctx, string(handle.doc))

	if h.metrics != nil {
		h.metrics.RecordExecution(report.Result, report.Duration)
	}
	switch report.Result {
	case ResultTimeout:
		logger.Warn("sandbox execution timed out", zap.Duration("timeout", h.config.Timeout))
	case ResultError:
		logger.Debug("sandbox execution reported errors", zap.Int("errors", report.Errors))
	}
	handle.finish(report)
}
