package qsys

import "sync"

// Binding is the adapter base: it ties a device facade to the Component
// named componentName on the Core registered as coreID, and reports every
// change of that Component (including to nil) to the adapter.
type Binding struct {
	dir       *Directory
	onUpdated func(*Component)

	mu            sync.Mutex
	initialized   bool
	closed        bool
	coreID        string
	componentName string
	component     *Component
	cancel        func()

	// pending marks a directory change not yet resolved; resolving is set
	// while one goroutine runs the resolve loop.
	pending   bool
	resolving bool

	// updateMu serialises onUpdated so two rebinds never interleave.
	updateMu sync.Mutex
}

// NewBinding creates an uninitialised Binding that calls onUpdated on
// every Component change.
func NewBinding(dir *Directory, onUpdated func(*Component)) *Binding {
	return &Binding{dir: dir, onUpdated: onUpdated}
}

// Initialize starts tracking componentName on coreID. Only the first call
// has an effect; later calls return false.
func (b *Binding) Initialize(coreID, componentName string) bool {
	b.mu.Lock()
	if b.initialized {
		b.mu.Unlock()
		return false
	}
	b.initialized = true
	b.coreID = coreID
	b.componentName = componentName
	b.mu.Unlock()

	cancel := b.dir.Watch(coreID, b.handleCore)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		cancel()
		return true
	}
	b.cancel = cancel
	b.mu.Unlock()
	return true
}

// Initialized reports whether Initialize has run.
func (b *Binding) Initialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized
}

// CoreID returns the Core ID given to Initialize.
func (b *Binding) CoreID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.coreID
}

// ComponentName returns the component name given to Initialize.
func (b *Binding) ComponentName() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.componentName
}

// Component returns the currently bound Component, or nil.
func (b *Binding) Component() *Component {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.component
}

// HandleComponentUpdated records a new Component reference and passes it
// on to the adapter. Repeating the current reference does nothing. After
// Close only nil is accepted.
func (b *Binding) HandleComponentUpdated(component *Component) {
	b.updateMu.Lock()
	defer b.updateMu.Unlock()

	b.mu.Lock()
	if b.component == component || (b.closed && component != nil) {
		b.mu.Unlock()
		return
	}
	b.component = component
	b.mu.Unlock()

	if b.onUpdated != nil {
		b.onUpdated(component)
	}
}

// Close stops watching the directory and releases the Component.
func (b *Binding) Close() {
	b.mu.Lock()
	b.closed = true
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	b.HandleComponentUpdated(nil)
}

// handleCore treats a directory delivery as a signal only and resolves the
// Component from the directory's current state. Deliveries that arrive
// while a resolve is running, from another goroutine or re-entrantly from
// LazyLoadComponent, fold into that resolve, which runs again until it
// sees no newer change. A resolution overtaken by a change is discarded
// before it reaches the adapter.
func (b *Binding) handleCore(Core) {
	b.mu.Lock()
	b.pending = true
	if b.resolving {
		b.mu.Unlock()
		return
	}
	b.resolving = true
	b.mu.Unlock()

	finished := false
	defer func() {
		if !finished {
			b.mu.Lock()
			b.resolving = false
			b.mu.Unlock()
		}
	}()

	for {
		b.mu.Lock()
		if !b.pending || b.closed {
			b.resolving = false
			b.mu.Unlock()
			finished = true
			return
		}
		b.pending = false
		coreID, name := b.coreID, b.componentName
		b.mu.Unlock()

		var component *Component
		if core, ok := b.dir.Lookup(coreID); ok {
			component = core.LazyLoadComponent(name)
		}

		b.mu.Lock()
		stale := b.pending
		b.mu.Unlock()
		if stale {
			continue
		}
		b.HandleComponentUpdated(component)
	}
}

// RebindControl moves a subscription from old to next: unsubscribe runs on
// old strictly before subscribe runs on next, and neither runs for a nil
// Control. It returns next. Rebinding a Control to itself does nothing.
func RebindControl(old, next *Control, subscribe, unsubscribe func(*Control)) *Control {
	if old == next {
		return next
	}
	if old != nil {
		unsubscribe(old)
	}
	if next != nil {
		subscribe(next)
	}
	return next
}

// ControlSlot holds one Control for an adapter together with the adapter's
// state-changed subscription on it. At most one subscription is live at a
// time.
type ControlSlot struct {
	handler func(StateEvent)

	mu       sync.Mutex
	control  *Control
	listener ListenerID
}

// NewControlSlot creates an empty slot that subscribes handler to whichever
// Control it holds.
func NewControlSlot(handler func(StateEvent)) *ControlSlot {
	return &ControlSlot{handler: handler}
}

// Bind replaces the held Control, moving the subscription with it.
func (s *ControlSlot) Bind(next *Control) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.control = RebindControl(s.control, next,
		func(c *Control) { s.listener = c.StateChanged().Add(s.handler) },
		func(c *Control) {
			c.StateChanged().Remove(s.listener)
			s.listener = 0
		},
	)
}

// Control returns the held Control, or nil while unbound.
func (s *ControlSlot) Control() *Control {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.control
}
