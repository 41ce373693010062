package qsys

import "sync"

// Registry is a mutex-guarded map that remembers insertion order.
//
// It is the single locking primitive behind Component (controls by name),
// ComponentRegistry (components by name) and Directory (Cores by ID).
// Callbacks passed to GetOrCreate run under the guard and must only do
// in-memory work: no I/O, no event raising, no calls back into the Registry.
//
// The zero value is ready to use.
type Registry[K comparable, V any] struct {
	mu    sync.Mutex
	items map[K]V
	order []K
}

// Get returns the value stored under key.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.items[key]
	return v, ok
}

// GetOrCreate returns the value stored under key, calling create and
// storing its result if the key is absent. created reports which path ran.
func (r *Registry[K, V]) GetOrCreate(key K, create func() V) (v V, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.items[key]; ok {
		return existing, false
	}
	if r.items == nil {
		r.items = make(map[K]V)
	}
	v = create()
	r.items[key] = v
	r.order = append(r.order, key)
	return v, true
}

// Set stores value under key, replacing any previous value, and returns the
// value it replaced.
func (r *Registry[K, V]) Set(key K, value V) (previous V, replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.items == nil {
		r.items = make(map[K]V)
	}
	previous, replaced = r.items[key]
	r.items[key] = value
	if !replaced {
		r.order = append(r.order, key)
	}
	return previous, replaced
}

// Delete removes key and returns the value it held.
func (r *Registry[K, V]) Delete(key K) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.items[key]
	if !ok {
		return v, false
	}
	delete(r.items, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	return v, true
}

// Values returns a copy of all values in insertion order.
func (r *Registry[K, V]) Values() []V {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]V, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.items[k])
	}
	return out
}

// Keys returns a copy of all keys in insertion order.
func (r *Registry[K, V]) Keys() []K {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]K, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of stored entries.
func (r *Registry[K, V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
