// Package storage persists the single run-state value between invocations.
package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("storage: object doesn't exist")

// IsNotFound checks if an error indicates the key was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Store is a minimal key-value interface over named slots.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// retryOptions builds the shared retry policy for backends that talk to a
// remote service. attempts of 1 means a single try.
func retryOptions(ctx context.Context, attempts uint, onRetry func(n uint, err error)) []retry.Option {
	if attempts == 0 {
		attempts = 1
	}
	return []retry.Option{
		retry.Attempts(attempts),
		retry.Delay(time.Second),
		retry.MaxDelay(2 * time.Minute),
		retry.MaxJitter(10 * time.Second),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(onRetry),
		retry.RetryIf(func(err error) bool {
			return !IsNotFound(err)
		}),
	}
}

// Memory is an in-process Store, used for tests and dry runs.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get returns a copy of the stored value.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Put replaces the stored value.
func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}
