package qsys

// Core is what a Binding needs from a Core session.
type Core interface {
	ID() string
	LazyLoadComponent(name string) *Component
}

// Directory tracks the Cores currently available, by ID, and tells
// watchers when the Core behind an ID appears, is replaced or goes away.
type Directory struct {
	logger   Logger
	cores    Registry[string, Core]
	watchers Registry[string, *Listeners[Core]]
}

// NewDirectory creates an empty Directory.
func NewDirectory(logger Logger) *Directory {
	return &Directory{logger: orNoop(logger)}
}

// Register makes core available under core.ID(), replacing any previous
// Core with that ID, and notifies its watchers.
func (d *Directory) Register(core Core) {
	id := core.ID()
	if previous, replaced := d.cores.Set(id, core); replaced && previous == core {
		return
	}
	d.logger.Info("core registered", "core_id", id)
	d.watchersFor(id).Raise(core)
}

// Unregister removes the Core with the given ID. Watchers are notified
// with a nil Core.
func (d *Directory) Unregister(id string) bool {
	if _, ok := d.cores.Delete(id); !ok {
		return false
	}
	d.logger.Info("core unregistered", "core_id", id)
	d.watchersFor(id).Raise(nil)
	return true
}

// Lookup returns the Core registered under id.
func (d *Directory) Lookup(id string) (Core, bool) {
	return d.cores.Get(id)
}

// Cores returns a snapshot of the registered Cores.
func (d *Directory) Cores() []Core {
	return d.cores.Values()
}

// Watch calls fn with the Core registered under coreID, now if one is
// already present and again on every change (nil when it goes away).
// The returned function stops the watch.
//
// Calls made from different goroutines are not ordered against each other,
// so the argument can already be superseded when fn runs. A watcher that
// needs the current Core must read it back with Lookup, as Binding does.
func (d *Directory) Watch(coreID string, fn func(Core)) (cancel func()) {
	watchers := d.watchersFor(coreID)
	id := watchers.Add(fn)

	if core, ok := d.cores.Get(coreID); ok {
		fn(core)
	}

	return func() { watchers.Remove(id) }
}

func (d *Directory) watchersFor(coreID string) *Listeners[Core] {
	l, _ := d.watchers.GetOrCreate(coreID, func() *Listeners[Core] {
		return NewListeners[Core]("directory.core_changed", d.logger)
	})
	return l
}
