package id

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	if id1.String() == id2.String() {
		t.Error("Generated IDs should be unique")
	}
	if id2.Compare(id1) <= 0 {
		t.Error("IDs from one generator should be monotonic")
	}
}

func TestNewHandleID(t *testing.T) {
	h := NewHandleID()

	if !strings.HasPrefix(h.String(), "sbx_") {
		t.Errorf("HandleID should start with 'sbx_', got: %s", h)
	}

	parsed, err := ParseHandle(h.String())
	if err != nil {
		t.Fatalf("ParseHandle(%s) error = %v", h, err)
	}
	if parsed != h {
		t.Errorf("ParseHandle() = %s, want %s", parsed, h)
	}
}

func TestParseHandleRejectsMalformed(t *testing.T) {
	tests := []string{
		"",
		"sbx",
		"sbx_",
		"app_01ARZ3NDEKTSV4RRFFQ69G5FAV",
		"sbx_not-a-ulid",
		"../../etc/passwd",
	}

	for _, input := range tests {
		if _, err := ParseHandle(input); err == nil {
			t.Errorf("ParseHandle(%q) should fail", input)
		}
	}
}

func TestHandleTimestamp(t *testing.T) {
	before := time.Now().Add(-time.Second)
	h := NewHandleID()

	ts, err := h.Timestamp()
	if err != nil {
		t.Fatalf("Timestamp() error = %v", err)
	}
	if ts.Before(before) || ts.After(time.Now().Add(time.Second)) {
		t.Errorf("Timestamp() = %v, outside expected window", ts)
	}
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()
	const workers, perWorker = 8, 100

	var mu sync.Mutex
	seen := make(map[HandleID]bool, workers*perWorker)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				h := gen.NewHandleID()
				mu.Lock()
				seen[h] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Errorf("expected %d unique IDs, got %d", workers*perWorker, len(seen))
	}
}
