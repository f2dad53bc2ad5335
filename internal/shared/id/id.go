// Package id provides ID generation for sandbox handles.
//
// Handles are prefixed ULIDs ("sbx_01J…"): lexicographically sortable by
// creation time, unguessable thanks to crypto entropy, and readable in logs.
package id

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// HandleID identifies a mounted sandbox document.
type HandleID string

// HandlePrefix marks sandbox handle IDs.
const HandlePrefix = "sbx"

// ErrMalformed is returned when a string is not a well-formed handle ID.
var ErrMalformed = errors.New("malformed handle id")

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// NewGeneratorWithEntropy creates a generator with custom entropy source
// Useful for testing with deterministic entropy
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewHandleID generates a new sandbox handle ID
func (g *Generator) NewHandleID() HandleID {
	return HandleID(g.GenerateWithPrefix(HandlePrefix))
}

// NewHandleID generates a handle ID from the default generator
func NewHandleID() HandleID {
	return Default().NewHandleID()
}

func (h HandleID) String() string { return string(h) }

// ParseHandle validates a handle ID received from outside the process.
func ParseHandle(s string) (HandleID, error) {
	prefix, rest, ok := strings.Cut(s, "_")
	if !ok || prefix != HandlePrefix {
		return "", fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	if _, err := ulid.ParseStrict(rest); err != nil {
		return "", fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	return HandleID(s), nil
}

// Timestamp extracts the creation time from a handle ID
func (h HandleID) Timestamp() (time.Time, error) {
	_, rest, ok := strings.Cut(string(h), "_")
	if !ok {
		return time.Time{}, ErrMalformed
	}
	parsed, err := ulid.Parse(rest)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
