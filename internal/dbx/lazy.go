package dbx

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Lazy holds a process-wide handle (a *sql.DB, a Mongo client) that is opened
// on first use. Concurrent first callers share a single open attempt. A failed
// attempt is not remembered, so the next caller tries again.
type Lazy[T any] struct {
	open  func(ctx context.Context) (T, error)
	group singleflight.Group

	mu    sync.RWMutex
	value T
	ready bool
}

// NewLazy returns a Lazy that calls open at most once per successful
// initialisation.
func NewLazy[T any](open func(ctx context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{open: open}
}

// Get returns the handle, opening it if needed.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	if v, ok := l.Peek(); ok {
		return v, nil
	}

	v, err, _ := l.group.Do("open", func() (any, error) {
		// a caller that lost the race may arrive after the winner stored the value
		if v, ok := l.Peek(); ok {
			return v, nil
		}
		v, err := l.open(ctx)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.value, l.ready = v, true
		l.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Peek returns the handle without opening it.
func (l *Lazy[T]) Peek() (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.value, l.ready
}
