package share

import (
	"context"
	"sync"
	"time"
)

// DefaultHistory is the number of entries a MemoryClipboard keeps.
const DefaultHistory = 20

// Entry is one clipboard copy.
type Entry struct {
	ID       uint64    `json:"id"`
	Text     string    `json:"text"`
	CopiedAt time.Time `json:"copied_at"`
}

// MemoryClipboard is a process-local clipboard with bounded history.
type MemoryClipboard struct {
	mu      sync.RWMutex
	limit   int
	nextID  uint64
	entries []Entry
}

// NewMemoryClipboard keeps up to limit entries; non-positive selects
// DefaultHistory.
func NewMemoryClipboard(limit int) *MemoryClipboard {
	if limit <= 0 {
		limit = DefaultHistory
	}
	return &MemoryClipboard{limit: limit}
}

// Copy implements Clipboard.
func (c *MemoryClipboard) Copy(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.entries = append(c.entries, Entry{ID: c.nextID, Text: text, CopiedAt: time.Now()})
	if over := len(c.entries) - c.limit; over > 0 {
		c.entries = append([]Entry(nil), c.entries[over:]...)
	}
	return nil
}

// Paste returns the most recent copy.
func (c *MemoryClipboard) Paste() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.entries) == 0 {
		return "", false
	}
	return c.entries[len(c.entries)-1].Text, true
}

// History returns up to limit entries, newest first. A non-positive limit
// returns everything.
func (c *MemoryClipboard) History(limit int) []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if limit <= 0 || limit > len(c.entries) {
		limit = len(c.entries)
	}
	out := make([]Entry, 0, limit)
	for i := len(c.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, c.entries[i])
	}
	return out
}

// Clear drops all entries.
func (c *MemoryClipboard) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
}
