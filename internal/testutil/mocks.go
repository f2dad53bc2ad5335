// Package testutil holds testify mocks shared by package tests.
package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/codeper/playground/internal/share"
)

// MockStore is a mock store.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(key string) (string, bool, error) {
	args := m.Called(key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockStore) Set(key, value string) error {
	args := m.Called(key, value)
	return args.Error(0)
}

// MockClipboard is a mock share.Clipboard.
type MockClipboard struct {
	mock.Mock
}

func (m *MockClipboard) Copy(ctx context.Context, text string) error {
	args := m.Called(ctx, text)
	return args.Error(0)
}

// MockSharer is a mock share.NativeSharer.
type MockSharer struct {
	mock.Mock
}

func (m *MockSharer) Share(ctx context.Context, p share.Payload) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}
