package relay

import "sync"

// Entry is one display line in the console log.
type Entry struct {
	Seq    uint64 `json:"seq"`
	Handle string `json:"handle,omitempty"`
	Method Method `json:"method"`
	Style  Style  `json:"style"`
	Text   string `json:"text"`
}

// Log is the ordered, append-only console history. Only Clear removes
// entries. Observers run synchronously after each change, outside the lock.
type Log struct {
	mu        sync.RWMutex
	entries   []Entry
	seq       uint64
	observers []func(Entry, bool)
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append adds a line and returns the stored entry.
func (l *Log) Append(handle string, method Method, text string) Entry {
	l.mu.Lock()
	l.seq++
	e := Entry{Seq: l.seq, Handle: handle, Method: method, Style: Classify(text), Text: text}
	l.entries = append(l.entries, e)
	obs := l.observers
	l.mu.Unlock()

	for _, fn := range obs {
		fn(e, false)
	}
	return e
}

// Clear empties the log. Sequence numbers keep increasing across clears.
func (l *Log) Clear() {
	l.mu.Lock()
	l.entries = nil
	obs := l.observers
	l.mu.Unlock()

	for _, fn := range obs {
		fn(Entry{}, true)
	}
}

// Entries returns a copy of the current lines in append order.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Lines returns only the display text of the current entries.
func (l *Log) Lines() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Text
	}
	return out
}

// Len returns the number of current entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Observe registers fn to be called with each appended entry, or with
// cleared=true after Clear. Observers are never removed.
func (l *Log) Observe(fn func(e Entry, cleared bool)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := make([]func(Entry, bool), len(l.observers), len(l.observers)+1)
	copy(next, l.observers)
	l.observers = append(next, fn)
}
