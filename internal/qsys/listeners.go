package qsys

import (
	"fmt"
	"sync"
)

// ListenerID identifies a listener added to a Listeners list.
// The zero value never identifies a live listener.
type ListenerID uint64

type listenerEntry[T any] struct {
	id ListenerID
	fn func(T)
}

// Listeners is an ordered observer list.
//
// Raise delivers to a snapshot of the list taken when the raise starts, so a
// listener added or removed by another listener during a raise neither skips
// nor duplicates anybody else. Each listener runs at most once per raise.
// A panicking listener is recovered and logged; delivery continues with the
// next listener.
//
// The zero value is ready to use and logs nowhere.
type Listeners[T any] struct {
	mu      sync.Mutex
	next    ListenerID
	entries []listenerEntry[T]

	name   string
	logger Logger
}

// NewListeners creates a named list whose listener panics are reported to logger.
func NewListeners[T any](name string, logger Logger) *Listeners[T] {
	return &Listeners[T]{name: name, logger: logger}
}

// Add appends fn and returns its ID for later removal.
// A nil fn is ignored and returns the zero ID.
func (l *Listeners[T]) Add(fn func(T)) ListenerID {
	if fn == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.next++
	l.entries = append(l.entries, listenerEntry[T]{id: l.next, fn: fn})
	return l.next
}

// Remove drops the listener with the given ID. It reports whether a
// listener was removed.
func (l *Listeners[T]) Remove(id ListenerID) bool {
	if id == 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, e := range l.entries {
		if e.id == id {
			// Copy rather than shift in place: an in-flight Raise may still
			// be iterating the old backing array.
			entries := make([]listenerEntry[T], 0, len(l.entries)-1)
			entries = append(entries, l.entries[:i]...)
			entries = append(entries, l.entries[i+1:]...)
			l.entries = entries
			return true
		}
	}
	return false
}

// Len returns the number of registered listeners.
func (l *Listeners[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Raise invokes every listener registered at the time of the call, in
// registration order, on the calling goroutine.
func (l *Listeners[T]) Raise(v T) {
	l.mu.Lock()
	snapshot := l.entries
	l.mu.Unlock()

	for _, e := range snapshot {
		l.invoke(e, v)
	}
}

func (l *Listeners[T]) invoke(e listenerEntry[T], v T) {
	defer func() {
		if r := recover(); r != nil {
			orNoop(l.logger).Error("event listener panic recovered",
				"event", l.name,
				"listener", uint64(e.id),
				"error", fmt.Errorf("%v", r),
			)
		}
	}()
	e.fn(v)
}
