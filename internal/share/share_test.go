package share_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/codeper/playground/internal/share"
	"github.com/codeper/playground/internal/testutil"
)

const pageURL = "http://localhost:8080/"

func TestShareUsesNativeWhenAvailable(t *testing.T) {
	sharer := new(testutil.MockSharer)
	clip := new(testutil.MockClipboard)
	want := share.Payload{Title: "Demo", Text: "Check out my code!", URL: pageURL}
	sharer.On("Share", mock.Anything, want).Return(nil)

	res := share.New(sharer, clip, nil).Share(context.Background(), "Demo", pageURL)

	assert.Equal(t, share.MethodNative, res.Method)
	assert.Equal(t, want, res.Payload)
	sharer.AssertExpectations(t)
	clip.AssertNotCalled(t, "Copy", mock.Anything, mock.Anything)
}

func TestShareFallsBackToClipboard(t *testing.T) {
	sharer := new(testutil.MockSharer)
	clip := new(testutil.MockClipboard)
	sharer.On("Share", mock.Anything, mock.Anything).Return(share.ErrShareUnavailable)
	clip.On("Copy", mock.Anything, pageURL).Return(nil)

	res := share.New(sharer, clip, nil).Share(context.Background(), "Demo", pageURL)

	assert.Equal(t, share.MethodClipboard, res.Method)
	assert.Equal(t, share.CopiedMessage, res.Message)
	clip.AssertExpectations(t)
}

func TestShareWithoutNativeCopies(t *testing.T) {
	clip := share.NewMemoryClipboard(0)

	res := share.New(nil, clip, nil).Share(context.Background(), "Demo", pageURL)

	assert.Equal(t, share.MethodClipboard, res.Method)
	got, ok := clip.Paste()
	require.True(t, ok)
	assert.Equal(t, pageURL, got)
}

func TestShareFailuresAreSwallowed(t *testing.T) {
	clip := new(testutil.MockClipboard)
	clip.On("Copy", mock.Anything, pageURL).Return(errors.New("denied"))
	res := share.New(nil, clip, nil).Share(context.Background(), "Demo", pageURL)
	assert.Equal(t, share.MethodNone, res.Method)

	clip.AssertNumberOfCalls(t, "Copy", 1)
}

func TestShareRejectionFallsBackToClipboard(t *testing.T) {
	sharer := new(testutil.MockSharer)
	sharer.On("Share", mock.Anything, mock.Anything).Return(errors.New("user cancelled"))
	clip := share.NewMemoryClipboard(0)

	res := share.New(sharer, clip, nil).Share(context.Background(), "Demo", pageURL)
	assert.Equal(t, share.MethodClipboard, res.Method)
	assert.Equal(t, share.CopiedMessage, res.Message)
	got, ok := clip.Paste()
	require.True(t, ok)
	assert.Equal(t, pageURL, got)
	sharer.AssertExpectations(t)
}

func TestShareAbandonedWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sharer := new(testutil.MockSharer)
	sharer.On("Share", mock.Anything, mock.Anything).Return(context.Canceled)
	clip := new(testutil.MockClipboard)

	res := share.New(sharer, clip, nil).Share(ctx, "Demo", pageURL)
	assert.Equal(t, share.MethodNone, res.Method)
	clip.AssertNotCalled(t, "Copy", mock.Anything, mock.Anything)
}

func TestMemoryClipboardHistory(t *testing.T) {
	clip := share.NewMemoryClipboard(2)
	ctx := context.Background()

	_, ok := clip.Paste()
	assert.False(t, ok)

	require.NoError(t, clip.Copy(ctx, "a"))
	require.NoError(t, clip.Copy(ctx, "b"))
	require.NoError(t, clip.Copy(ctx, "c"))

	history := clip.History(0)
	require.Len(t, history, 2)
	assert.Equal(t, "c", history[0].Text)
	assert.Equal(t, "b", history[1].Text)
	assert.Greater(t, history[0].ID, history[1].ID)
	assert.Len(t, clip.History(1), 1)

	clip.Clear()
	assert.Empty(t, clip.History(0))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	require.ErrorIs(t, clip.Copy(cancelled, "x"), context.Canceled)
}
