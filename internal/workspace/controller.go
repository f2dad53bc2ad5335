package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/codeper/playground/internal/preview/relay"
	"github.com/codeper/playground/internal/preview/sandbox"
	"github.com/codeper/playground/internal/store"
)

// DefaultAutosaveDelay is the quiet period after the last edit before an
// automatic save.
const DefaultAutosaveDelay = 1500 * time.Millisecond

var (
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("workspace already started")
	// ErrUnknownFragment is returned for fragment names other than html, css and js.
	ErrUnknownFragment = errors.New("unknown fragment")
)

// Sandbox is the subset of sandbox.Host the controller drives.
type Sandbox interface {
	Mount(ctx context.Context, document string) (*sandbox.Handle, error)
	Unmount()
	IsLive(handle string) bool
	Origin(handle string) relay.Origin
	MountOrigin() relay.Origin
	AttachPreview() func()
	Bus() *relay.Bus
}

// Metrics receives save outcomes. Implemented by monitoring.Metrics.
type Metrics interface {
	RecordSave(result string)
}

// Options configures a Controller.
type Options struct {
	Store         store.Store
	Sandbox       Sandbox
	Log           *relay.Log
	AutosaveDelay time.Duration
	Logger        *zap.Logger
	Metrics       Metrics
	// RelayMetrics receives console relay counters.
	RelayMetrics relay.Metrics
}

// Controller owns the project, the dirty flag and the autosave timer.
type Controller struct {
	store    store.Store
	sandbox  Sandbox
	log      *relay.Log
	listener *relay.Listener
	delay    time.Duration
	logger   *zap.Logger
	metrics  Metrics
	events   *broadcaster

	// Loop-owned state.
	ctx      context.Context
	project  Project
	state    State
	handle   string
	document string
	timer    *time.Timer
	armed    bool

	running  atomic.Bool
	reqs     chan func()
	quit     chan struct{}
	exited   chan struct{}
	startMu  sync.Mutex
	started  bool
	stopOnce sync.Once
}

// New creates a controller in the loading state. Call Start to load the
// project and mount the first document.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Store == nil {
		opts.Store = store.NewMemoryStore(0)
	}
	if opts.Log == nil {
		opts.Log = relay.NewLog()
	}
	if opts.Sandbox == nil {
		opts.Sandbox = sandbox.NewHost(relay.NewBus(), sandbox.DefaultConfig(), logger.Named("sandbox"), nil)
	}
	delay := opts.AutosaveDelay
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}

	c := &Controller{
		store:   opts.Store,
		sandbox: opts.Sandbox,
		log:     opts.Log,
		delay:   delay,
		logger:  logger,
		metrics: opts.Metrics,
		events:  newBroadcaster(logger),
		state:   StateLoading,
		reqs:    make(chan func()),
		quit:    make(chan struct{}),
		exited:  make(chan struct{}),
	}
	c.listener = relay.NewListener(opts.Sandbox.Bus(), opts.Log, relay.ListenerConfig{
		IsLive:  opts.Sandbox.IsLive,
		Origin:  opts.Sandbox.Origin,
		Logger:  logger.Named("relay"),
		Metrics: opts.RelayMetrics,
	})
	opts.Log.Observe(func(e relay.Entry, cleared bool) {
		if cleared {
			c.events.publish(Event{Type: EventConsoleCleared})
			return
		}
		entry := e
		c.events.publish(Event{Type: EventLog, Entry: &entry})
	})
	return c
}

// Listener returns the relay listener fed by the sandbox bus.
func (c *Controller) Listener() *relay.Listener { return c.listener }

// Start loads the project, mounts it once and starts the event loop. The loop
// stops when ctx is done or Stop is called.
func (c *Controller) Start(ctx context.Context) error {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	if c.started {
		return ErrAlreadyStarted
	}

	project, err := LoadProject(c.store)
	if err != nil {
		c.logger.Warn("project load incomplete, using defaults", zap.Error(err))
	}
	c.ctx = ctx
	c.project = project

	c.listener.Attach()
	if err := c.mount(); err != nil {
		c.listener.Detach()
		return fmt.Errorf("workspace: initial mount: %w", err)
	}

	c.timer = time.NewTimer(time.Hour)
	c.stopTimer()

	c.started = true
	c.setState(StateClean)
	c.running.Store(true)
	go c.loop(ctx)

	c.logger.Info("workspace started",
		zap.String("title", project.Title),
		zap.Duration("autosave_delay", c.delay))
	return nil
}

// Stop ends the loop, detaches the relay listener and unmounts the sandbox.
// Pending unsaved edits are not written.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		if !c.running.Load() {
			c.listener.Detach()
			c.events.closeAll()
			return
		}
		close(c.quit)
		<-c.exited
	})
}

// Subscribe returns a channel of controller events and a cancel function.
// The channel is closed on cancel or when the controller stops.
func (c *Controller) Subscribe() (<-chan Event, func()) {
	return c.events.subscribe()
}

// SetHTML replaces the markup fragment.
func (c *Controller) SetHTML(value string) bool { return c.SetFragment(FragmentHTML, value) }

// SetCSS replaces the stylesheet fragment.
func (c *Controller) SetCSS(value string) bool { return c.SetFragment(FragmentCSS, value) }

// SetJS replaces the script fragment.
func (c *Controller) SetJS(value string) bool { return c.SetFragment(FragmentJS, value) }

// SetFragment applies an edit. It reports false when the edit was ignored
// because the controller is not running.
func (c *Controller) SetFragment(f Fragment, value string) bool {
	return c.do(func() {
		c.project.set(f, value)
		if !c.differsFromStore() {
			return
		}
		c.setState(StateDirty)
		c.arm()
	})
}

// Save saves immediately. It is accepted only while dirty and not saving.
func (c *Controller) Save() bool {
	accepted := false
	c.do(func() {
		if c.state != StateDirty {
			return
		}
		accepted = true
		c.stopTimer()
		c.persist("manual")
	})
	return accepted
}

// SetTitle normalises and persists the title and returns the stored value.
func (c *Controller) SetTitle(title string) string {
	normalized := NormalizeTitle(title)
	c.do(func() {
		c.project.Title = normalized
		if err := c.store.Set(store.KeyTitle, normalized); err != nil {
			c.logger.Warn("title save failed", zap.Error(err))
			c.notify(NoticeError, MessageTitleFailed)
		}
		c.publishStatus()
	})
	return normalized
}

// AttachPreview registers a browser preview that will run the live document
// and bridge its console. If the live handle runs headless it is remounted
// bridged, so the returned handle is the one the preview should load. The
// detach func hands execution back the same way. ok is false when the
// controller is not running.
func (c *Controller) AttachPreview() (handle string, detach func(), ok bool) {
	var release func()
	ok = c.do(func() {
		release = c.sandbox.AttachPreview()
		c.syncOrigin()
		handle = c.handle
	})
	if !ok {
		return "", func() {}, false
	}
	var once sync.Once
	return handle, func() {
		once.Do(func() {
			if !c.do(func() {
				release()
				c.syncOrigin()
			}) {
				release()
			}
		})
	}, true
}

// ClearConsole empties the console log.
func (c *Controller) ClearConsole() {
	c.do(func() { c.log.Clear() })
}

// Snapshot returns the in-memory project.
func (c *Controller) Snapshot() Project {
	var p Project
	if !c.do(func() { p = c.project }) {
		return DefaultProject()
	}
	return p
}

// Status returns the current state.
func (c *Controller) Status() Status {
	s := Status{State: StateLoading, Title: DefaultTitle}
	c.do(func() { s = c.status() })
	return s
}

// Logs returns the console entries.
func (c *Controller) Logs() []relay.Entry {
	return c.log.Entries()
}

// Log returns the console log.
func (c *Controller) Log() *relay.Log { return c.log }

// do runs fn on the loop and waits for it.
func (c *Controller) do(fn func()) bool {
	if !c.running.Load() {
		return false
	}
	done := make(chan struct{})
	select {
	case c.reqs <- func() {
		defer close(done)
		fn()
	}:
	case <-c.exited:
		return false
	}
	<-done
	return true
}

func (c *Controller) loop(ctx context.Context) {
	defer close(c.exited)
	for {
		var fire <-chan time.Time
		if c.armed {
			fire = c.timer.C
		}
		select {
		case <-ctx.Done():
			c.shutdown()
			return
		case <-c.quit:
			c.shutdown()
			return
		case fn := <-c.reqs:
			fn()
		case <-fire:
			c.armed = false
			if c.state == StateDirty {
				c.persist("autosave")
			}
		}
	}
}

func (c *Controller) shutdown() {
	c.running.Store(false)
	c.stopTimer()
	c.listener.Detach()
	c.sandbox.Unmount()
	c.handle = ""
	c.events.closeAll()
	c.logger.Info("workspace stopped", zap.String("state", string(c.state)))
}

// arm restarts the debounce window. Never more than one timer is pending.
func (c *Controller) arm() {
	c.stopTimer()
	c.timer.Reset(c.delay)
	c.armed = true
}

func (c *Controller) stopTimer() {
	if !c.timer.Stop() {
		select {
		case <-c.timer.C:
		default:
		}
	}
	c.armed = false
}

// differsFromStore reports whether any fragment differs from its stored value.
func (c *Controller) differsFromStore() bool {
	for _, f := range []Fragment{FragmentHTML, FragmentCSS, FragmentJS} {
		stored, ok, err := c.store.Get(f.key())
		if err != nil || !ok || stored != c.project.Get(f) {
			return true
		}
	}
	return false
}

// persist writes all fields. Success remounts from the current fragments.
func (c *Controller) persist(trigger string) {
	c.setState(StateSaving)
	start := time.Now()

	if err := c.write(); err != nil {
		c.setState(StateDirty)
		c.record("failure")
		c.logger.Warn("save failed", zap.String("trigger", trigger), zap.Error(err))
		c.notify(NoticeError, MessageSaveFailed)
		return
	}

	c.setState(StateClean)
	c.record("success")
	c.logger.Debug("saved", zap.String("trigger", trigger), zap.Duration("took", time.Since(start)))
	if err := c.mount(); err != nil {
		c.logger.Error("remount after save failed", zap.Error(err))
	}
	c.notify(NoticeSuccess, MessageSaved)
}

func (c *Controller) write() error {
	for _, field := range []struct{ key, value string }{
		{store.KeyHTML, c.project.HTML},
		{store.KeyCSS, c.project.CSS},
		{store.KeyJS, c.project.JS},
		{store.KeyTitle, c.project.Title},
	} {
		if err := c.store.Set(field.key, field.value); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) mount() error {
	return c.mountDocument(c.project.Fragments().Compose())
}

func (c *Controller) mountDocument(document string) error {
	h, err := c.sandbox.Mount(c.ctx, document)
	if err != nil {
		return err
	}
	c.handle = h.ID().String()
	c.document = document
	c.events.publish(Event{Type: EventMounted, Handle: c.handle, Origin: h.Origin()})
	return nil
}

// syncOrigin remounts the last mounted document when the live handle's origin
// no longer matches the one a mount would get now.
func (c *Controller) syncOrigin() {
	if c.handle == "" || c.sandbox.Origin(c.handle) == c.sandbox.MountOrigin() {
		return
	}
	if err := c.mountDocument(c.document); err != nil {
		c.logger.Error("remount for preview change failed", zap.Error(err))
		return
	}
	c.publishStatus()
}

func (c *Controller) record(result string) {
	if c.metrics != nil {
		c.metrics.RecordSave(result)
	}
}

func (c *Controller) notify(level, message string) {
	c.events.publish(Event{Type: EventNotice, Notice: &Notice{Level: level, Message: message}})
}

func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	c.state = s
	c.publishStatus()
}

func (c *Controller) publishStatus() {
	s := c.status()
	c.events.publish(Event{Type: EventStatus, Status: &s})
}

func (c *Controller) status() Status {
	return Status{
		State:  c.state,
		Dirty:  c.state == StateDirty || c.state == StateSaving,
		Saving: c.state == StateSaving,
		Handle: c.handle,
		Origin: c.sandbox.Origin(c.handle),
		Title:  c.project.Title,
	}
}
