// Package share publishes a project link, preferring a native share target
// and falling back to the clipboard.
package share

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrShareUnavailable is returned by a NativeSharer that cannot share on this
// client. It and any other rejection trigger the clipboard fallback.
var ErrShareUnavailable = errors.New("native share unavailable")

// Text accompanies every native share.
const Text = "Check out my code!"

// CopiedMessage is shown after the clipboard fallback succeeds.
const CopiedMessage = "URL copied to clipboard!"

// Payload is what a native share target receives.
type Payload struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url"`
}

// NativeSharer hands a payload to the platform share facility.
type NativeSharer interface {
	Share(ctx context.Context, p Payload) error
}

// Clipboard receives the fallback copy.
type Clipboard interface {
	Copy(ctx context.Context, text string) error
}

// Method reports how a share completed.
type Method string

const (
	MethodNative    Method = "native"
	MethodClipboard Method = "clipboard"
	MethodNone      Method = "none"
)

// Result describes a share attempt.
type Result struct {
	Method  Method  `json:"method"`
	Payload Payload `json:"payload"`
	Message string  `json:"message,omitempty"`
}

// Service shares project links.
type Service struct {
	native    NativeSharer
	clipboard Clipboard
	logger    *zap.Logger
}

// New creates a share service. native may be nil.
func New(native NativeSharer, clipboard Clipboard, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clipboard == nil {
		clipboard = NewMemoryClipboard(0)
	}
	return &Service{native: native, clipboard: clipboard, logger: logger}
}

// Share publishes url under title. Failures are logged, never returned.
func (s *Service) Share(ctx context.Context, title, url string) Result {
	payload := Payload{Title: title, Text: Text, URL: url}

	if s.native != nil {
		err := s.native.Share(ctx, payload)
		switch {
		case err == nil:
			return Result{Method: MethodNative, Payload: payload}
		case ctx.Err() != nil:
			s.logger.Debug("share abandoned", zap.Error(err))
			return Result{Method: MethodNone, Payload: payload}
		case !errors.Is(err, ErrShareUnavailable):
			s.logger.Warn("native share rejected, copying instead", zap.Error(err))
		}
	}

	if err := s.clipboard.Copy(ctx, url); err != nil {
		s.logger.Warn("clipboard copy failed", zap.Error(err))
		return Result{Method: MethodNone, Payload: payload}
	}
	return Result{Method: MethodClipboard, Payload: payload, Message: CopiedMessage}
}
