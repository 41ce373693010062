package qsys

// ComponentRegistry holds the Components of one Core, keyed by name.
type ComponentRegistry struct {
	core   Enqueuer
	logger Logger

	components Registry[string, *Component]
	added      *Listeners[*Component]
}

// NewComponentRegistry creates an empty registry whose Components send
// through core.
func NewComponentRegistry(core Enqueuer, logger Logger) *ComponentRegistry {
	logger = orNoop(logger)
	return &ComponentRegistry{
		core:   core,
		logger: logger,
		added:  NewListeners[*Component]("core.component_added", logger),
	}
}

// ComponentAdded returns the list notified when a Component is created.
func (r *ComponentRegistry) ComponentAdded() *Listeners[*Component] { return r.added }

// LazyLoadComponent returns the Component called name, creating it on first use.
func (r *ComponentRegistry) LazyLoadComponent(name string) *Component {
	comp, created := r.components.GetOrCreate(name, func() *Component {
		return NewComponent(name, r.core, r.logger)
	})
	if created {
		r.logger.Debug("component created", "component", name)
		r.added.Raise(comp)
	}
	return comp
}

// TryGetComponent returns an existing Component without creating one.
func (r *ComponentRegistry) TryGetComponent(name string) (*Component, bool) {
	return r.components.Get(name)
}

// Components returns a snapshot of all Components in creation order.
func (r *ComponentRegistry) Components() []*Component {
	return r.components.Values()
}

// Dispatch routes a feedback record to the named Component. Feedback for an
// unknown component is dropped; the return value reports whether it was routed.
func (r *ComponentRegistry) Dispatch(componentName string, state StateData) bool {
	comp, ok := r.components.Get(componentName)
	if !ok {
		return false
	}
	comp.Dispatch(state)
	return true
}
