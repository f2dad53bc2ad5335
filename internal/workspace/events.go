package workspace

import (
	"sync"

	"go.uber.org/zap"

	"github.com/codeper/playground/internal/preview/relay"
)

// State is the change/save state.
type State string

const (
	StateLoading State = "loading"
	StateClean   State = "clean"
	StateDirty   State = "dirty"
	StateSaving  State = "saving"
)

// Status is the externally visible controller state.
type Status struct {
	State  State        `json:"state"`
	Dirty  bool         `json:"dirty"`
	Saving bool         `json:"saving"`
	Handle string       `json:"handle,omitempty"`
	Origin relay.Origin `json:"origin,omitempty"`
	Title  string       `json:"title"`
}

// EventType classifies controller events.
type EventType string

const (
	EventStatus         EventType = "status"
	EventMounted        EventType = "mounted"
	EventLog            EventType = "log"
	EventConsoleCleared EventType = "console_cleared"
	EventNotice         EventType = "notice"
)

// Notice levels.
const (
	NoticeSuccess = "success"
	NoticeError   = "error"
)

// User-facing notice texts.
const (
	MessageSaved       = "Changes saved!"
	MessageSaveFailed  = "Failed to save changes"
	MessageTitleFailed = "Failed to save title"
)

// Notice is a transient user message.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Event is pushed to subscribers.
type Event struct {
	Type   EventType    `json:"type"`
	Status *Status      `json:"status,omitempty"`
	Handle string       `json:"handle,omitempty"`
	Origin relay.Origin `json:"origin,omitempty"`
	Entry  *relay.Entry `json:"entry,omitempty"`
	Notice *Notice      `json:"notice,omitempty"`
}

// subscriberBuffer bounds each subscriber channel. Slow subscribers lose
// events instead of blocking the loop.
const subscriberBuffer = 64

type broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
	closed bool
	logger *zap.Logger
}

func newBroadcaster(logger *zap.Logger) *broadcaster {
	return &broadcaster{subs: make(map[int]chan Event), logger: logger}
}

// subscribe registers a subscriber. After closeAll it returns a closed
// channel.
func (b *broadcaster) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}
	b.nextID++
	id := b.nextID
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

func (b *broadcaster) publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.logger.Debug("event dropped for slow subscriber", zap.Int("subscriber", id), zap.String("type", string(e.Type)))
		}
	}
}

func (b *broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
