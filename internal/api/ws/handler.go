package ws

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/codeper/playground/internal/infrastructure/tracing"
	"github.com/codeper/playground/internal/preview/relay"
	"github.com/codeper/playground/internal/workspace"
)

// Inbound message types.
const (
	TypeConsole = relay.TypeConsole
	TypeAttach  = "attach"
	TypeEdit    = "edit"
	TypeSave    = "save"
	TypeClear   = "clear"
	TypePing    = "ping"
)

// Outbound message types not carried by workspace events.
const (
	TypeHello = "hello"
	TypeAck   = "ack"
	TypePong  = "pong"
	TypeError = "error"
)

// Message is a client frame.
type Message struct {
	Type     string `json:"type"`
	Handle   string `json:"handle,omitempty"`
	Method   string `json:"method,omitempty"`
	Args     []any  `json:"args,omitempty"`
	Fragment string `json:"fragment,omitempty"`
	Value    string `json:"value,omitempty"`
}

// Workspace is the controller surface the stream drives.
type Workspace interface {
	Subscribe() (<-chan workspace.Event, func())
	Status() workspace.Status
	AttachPreview() (handle string, detach func(), ok bool)
	SetFragment(f workspace.Fragment, value string) bool
	Save() bool
	ClearConsole()
}

// Poster receives bridged console messages. Implemented by relay.Bus.
type Poster interface {
	Post(msg relay.Message)
}

// Metrics records connection activity. Implemented by monitoring.Metrics.
type Metrics interface {
	IncWSConnections()
	DecWSConnections()
	RecordWSMessage(direction, msgType string)
}

// Options configures a Handler.
type Options struct {
	// ConsoleRate and ConsoleBurst bound bridged console messages per
	// connection. Excess messages are dropped.
	ConsoleRate  rate.Limit
	ConsoleBurst int

	WriteTimeout    time.Duration
	PingInterval    time.Duration
	MaxMessageBytes int64

	Logger  *zap.Logger
	Metrics Metrics
}

// DefaultOptions returns the limits used by the server.
func DefaultOptions() Options {
	return Options{
		ConsoleRate:     200,
		ConsoleBurst:    400,
		WriteTimeout:    10 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageBytes: 1 << 20,
	}
}

// Handler manages WebSocket connections
type Handler struct {
	workspace Workspace
	bus       Poster
	opts      Options
	logger    *zap.Logger
	metrics   Metrics
	upgrader  websocket.Upgrader
	active    atomic.Int64
}

// NewHandler creates a new WebSocket handler. Zero option fields take their
// defaults.
func NewHandler(ws Workspace, bus Poster, opts Options) *Handler {
	def := DefaultOptions()
	if opts.ConsoleRate <= 0 {
		opts.ConsoleRate = def.ConsoleRate
	}
	if opts.ConsoleBurst <= 0 {
		opts.ConsoleBurst = def.ConsoleBurst
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = def.WriteTimeout
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = def.PingInterval
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = def.MaxMessageBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		workspace: ws,
		bus:       bus,
		opts:      opts,
		logger:    logger,
		metrics:   opts.Metrics,
		upgrader: websocket.Upgrader{
			// Sandboxed documents and the editor page may be served from
			// different origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Connections returns the number of open connections.
func (h *Handler) Connections() int {
	return int(h.active.Load())
}

// client is one connection. gorilla connections allow a single writer, so
// every write holds mu.
type client struct {
	id      string
	conn    *websocket.Conn
	limiter *rate.Limiter
	logger  *zap.Logger
	mu      sync.Mutex

	// detach is set once the client claims the preview. Read loop only.
	detach func()
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	cl := &client{
		id:      uuid.NewString(),
		conn:    conn,
		limiter: rate.NewLimiter(h.opts.ConsoleRate, h.opts.ConsoleBurst),
	}
	cl.logger = h.logger.With(zap.String("client", cl.id))

	h.active.Add(1)
	defer h.active.Add(-1)
	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}
	cl.logger.Debug("websocket connected", zap.String("remote", c.ClientIP()))

	pongWait := 2 * h.opts.PingInterval
	conn.SetReadLimit(h.opts.MaxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Subscribe before the greeting so no event between the two is lost.
	events, cancel := h.workspace.Subscribe()
	defer cancel()

	hello := gin.H{
		"type":   TypeHello,
		"client": cl.id,
		"status": h.workspace.Status(),
	}
	trace := map[string]string{}
	tracing.InjectTraceContext(c.Request.Context(), trace)
	if len(trace) > 0 {
		hello["trace"] = trace
	}
	h.send(cl, TypeHello, hello)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.pump(cl, events, done)
	}()
	defer func() {
		close(done)
		wg.Wait()
		if cl.detach != nil {
			cl.detach()
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				cl.logger.Debug("websocket read error", zap.Error(err))
			}
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg Message
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.record("in", "invalid")
			h.sendError(cl, "invalid message")
			continue
		}
		h.record("in", label(msg.Type))

		switch msg.Type {
		case TypeConsole:
			h.handleConsole(cl, msg)
		case TypeAttach:
			h.handleAttach(cl)
		case TypeEdit:
			h.handleEdit(cl, msg)
		case TypeSave:
			h.ack(cl, TypeSave, h.workspace.Save())
		case TypeClear:
			h.workspace.ClearConsole()
			h.ack(cl, TypeClear, true)
		case TypePing:
			h.send(cl, TypePong, gin.H{"type": TypePong, "timestamp": time.Now().Unix()})
		default:
			h.sendError(cl, "unknown message type")
		}
	}
	cl.logger.Debug("websocket disconnected")
}

// pump forwards workspace events and keeps the connection alive. A closed
// event channel means the workspace stopped; the connection is closed so the
// read loop ends too.
func (h *Handler) pump(cl *client, events <-chan workspace.Event, done <-chan struct{}) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-events:
			if !ok {
				h.close(cl, websocket.CloseGoingAway, "workspace stopped")
				return
			}
			if err := h.send(cl, string(e.Type), e); err != nil {
				return
			}
		case <-ticker.C:
			cl.mu.Lock()
			err := cl.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.opts.WriteTimeout))
			cl.mu.Unlock()
			if err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// handleAttach makes the client the browser preview. The ack names the handle
// its iframe should load; later handles arrive as mounted events.
func (h *Handler) handleAttach(cl *client) {
	var handle string
	if cl.detach == nil {
		live, detach, ok := h.workspace.AttachPreview()
		if !ok {
			h.sendError(cl, "workspace is not running")
			return
		}
		handle, cl.detach = live, detach
		cl.logger.Debug("preview attached", zap.String("handle", handle))
	} else {
		handle = h.workspace.Status().Handle
	}
	h.send(cl, TypeAck, gin.H{
		"type":     TypeAck,
		"request":  TypeAttach,
		"accepted": true,
		"handle":   handle,
	})
}

// handleConsole forwards a bridged console message to the relay bus. The
// relay listener decides whether the handle is live and bridged.
func (h *Handler) handleConsole(cl *client, msg Message) {
	if !cl.limiter.Allow() {
		h.record("in", "console_throttled")
		return
	}
	h.bus.Post(relay.Message{
		Type:   relay.TypeConsole,
		Method: relay.Method(msg.Method),
		Args:   msg.Args,
		Source: msg.Handle,
		Origin: relay.OriginBridge,
	})
}

func (h *Handler) handleEdit(cl *client, msg Message) {
	fragment, err := workspace.ParseFragment(msg.Fragment)
	if err != nil {
		h.sendError(cl, err.Error())
		return
	}
	if !h.workspace.SetFragment(fragment, msg.Value) {
		h.sendError(cl, "workspace is not running")
		return
	}
	h.ack(cl, TypeEdit, true)
}

func (h *Handler) ack(cl *client, request string, accepted bool) {
	h.send(cl, TypeAck, gin.H{
		"type":     TypeAck,
		"request":  request,
		"accepted": accepted,
	})
}

func (h *Handler) send(cl *client, msgType string, data interface{}) error {
	payload, err := sonic.Marshal(data)
	if err != nil {
		cl.logger.Error("websocket encode failed", zap.String("type", msgType), zap.Error(err))
		return err
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()
	_ = cl.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
	if err := cl.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		cl.logger.Debug("websocket write failed", zap.String("type", msgType), zap.Error(err))
		return err
	}
	h.record("out", msgType)
	return nil
}

func (h *Handler) sendError(cl *client, message string) error {
	return h.send(cl, TypeError, gin.H{
		"type":      TypeError,
		"message":   message,
		"timestamp": time.Now().Unix(),
	})
}

func (h *Handler) close(cl *client, code int, reason string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	_ = cl.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(h.opts.WriteTimeout))
	_ = cl.conn.Close()
}

// label bounds the metric label set to the known inbound types.
func label(msgType string) string {
	switch msgType {
	case TypeConsole, TypeAttach, TypeEdit, TypeSave, TypeClear, TypePing:
		return msgType
	}
	return "unknown"
}

func (h *Handler) record(direction, msgType string) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage(direction, msgType)
	}
}
