// Package historytest provides an in-process list store for tests of code
// built on the request log.
package historytest

import (
	"context"
	"sync"

	"github.com/turtacn/nlp-inference-service/pkg/errors"
)

var errInvalidLimit = errors.New(errors.ErrCodeInvalidConfig, "list limit must be positive")

// MemoryBackend is an in-process history.ListBackend.  It keeps each key as a slice
// whose head is index 0 and is safe for concurrent use.  Contents are lost on
// restart.
type MemoryBackend struct {
	mu    sync.RWMutex
	lists map[string][]string
	down  error
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{lists: make(map[string][]string)}
}

// SetUnavailable makes every call fail with err until called with nil.
func (m *MemoryBackend) SetUnavailable(err error) {
	m.mu.Lock()
	m.down = err
	m.mu.Unlock()
}

func (m *MemoryBackend) PushFrontTrim(_ context.Context, key, value string, limit int64) error {
	if limit <= 0 {
		return errInvalidLimit
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down != nil {
		return m.down
	}
	list := append([]string{value}, m.lists[key]...)
	if int64(len(list)) > limit {
		list = list[:limit]
	}
	m.lists[key] = list
	return nil
}

func (m *MemoryBackend) Trim(_ context.Context, key string, limit int64) error {
	if limit <= 0 {
		return errInvalidLimit
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down != nil {
		return m.down
	}
	if list := m.lists[key]; int64(len(list)) > limit {
		m.lists[key] = list[:limit]
	}
	return nil
}

func (m *MemoryBackend) ReadRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.down != nil {
		return nil, m.down
	}
	list := m.lists[key]
	n := int64(len(list))
	if stop >= n {
		stop = n - 1
	}
	if start < 0 || start > stop {
		return []string{}, nil
	}
	return append([]string(nil), list[start:stop+1]...), nil
}

func (m *MemoryBackend) Ping(context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.down != nil {
		return false, m.down
	}
	return true, nil
}

// Len returns the number of entries under key.
func (m *MemoryBackend) Len(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lists[key])
}

// Raw returns a copy of the entries under key, head first.
func (m *MemoryBackend) Raw(key string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.lists[key]...)
}

//Personal.AI order the ending
