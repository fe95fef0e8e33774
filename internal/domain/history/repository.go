// Package history implements the bounded request log: a newest-first list of
// LogRecords capped at a fixed capacity and kept in an external list store.
package history

import "context"

// ListBackend is the list store the request log lives in.  The Redis client
// in internal/infrastructure/database/redis satisfies it; tests substitute
// historytest.MemoryBackend.
type ListBackend interface {
	// PushFrontTrim inserts value at the head of key and trims key to its
	// first limit entries as one atomic step.
	PushFrontTrim(ctx context.Context, key, value string, limit int64) error

	// Trim keeps the first limit entries of key.
	Trim(ctx context.Context, key string, limit int64) error

	// ReadRange returns entries start..stop inclusive, head first.
	ReadRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// Ping reports reachability.
	Ping(ctx context.Context) (bool, error)
}

// Metrics receives store outcomes.  A nil Metrics is replaced by a no-op.
type Metrics interface {
	ObserveAppend(ok bool)
	ObserveRead(ok bool, records int)
	IncCorruptEntries()
}

type noopMetrics struct{}

func (noopMetrics) ObserveAppend(bool)    {}
func (noopMetrics) ObserveRead(bool, int) {}
func (noopMetrics) IncCorruptEntries()    {}

//Personal.AI order the ending
