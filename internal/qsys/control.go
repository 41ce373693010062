package qsys

import (
	"sync"
	"sync/atomic"
)

// Control is the local mirror of one named control of one Component.
//
// Its cached state only changes through feedback from the Core; send
// operations never touch it. The subscribe flag is sticky: once true it
// stays true for the life of the Control.
type Control struct {
	name      string
	component *Component

	subscribed atomic.Bool

	mu       sync.RWMutex
	state    StateData
	hasState bool

	stateChanged     *Listeners[StateEvent]
	subscribeChanged *Listeners[SubscribeEvent]
}

// newControl creates a Control owned by component and returns the update
// function that applies feedback to it. Only the owning Component holds
// the update function.
func newControl(name string, component *Component, subscribe bool) (*Control, func(StateData)) {
	logger := component.logger
	c := &Control{
		name:             name,
		component:        component,
		stateChanged:     NewListeners[StateEvent]("control.state_changed", logger),
		subscribeChanged: NewListeners[SubscribeEvent]("control.subscribe_changed", logger),
	}
	c.subscribed.Store(subscribe)
	return c, c.applyState
}

// Name returns the control name.
func (c *Control) Name() string { return c.name }

// Component returns the owning Component.
func (c *Control) Component() *Component { return c.component }

// Subscribed reports whether feedback has been requested for this control.
func (c *Control) Subscribed() bool { return c.subscribed.Load() }

// StateChanged returns the list notified after each feedback update.
func (c *Control) StateChanged() *Listeners[StateEvent] { return c.stateChanged }

// SubscribeChanged returns the list notified when the subscribe flag turns on.
func (c *Control) SubscribeChanged() *Listeners[SubscribeEvent] { return c.subscribeChanged }

// SetSubscribe requests feedback for this control. Passing false is a no-op:
// a subscription is never dropped implicitly. The subscribe-changed event is
// raised only on the transition from false to true.
func (c *Control) SetSubscribe(subscribe bool) {
	if !subscribe {
		return
	}
	if c.subscribed.CompareAndSwap(false, true) {
		c.subscribeChanged.Raise(SubscribeEvent{Control: c, Subscribe: true})
	}
}

// State returns the last feedback record and whether any has arrived.
func (c *Control) State() (StateData, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state, c.hasState
}

// Value returns the last numeric value (0 before any feedback).
func (c *Control) Value() float64 {
	s, _ := c.State()
	return s.Value
}

// Position returns the last normalised position in [0,1].
func (c *Control) Position() float64 {
	s, _ := c.State()
	return s.Position
}

// StringValue returns the last string rendering reported by the Core.
func (c *Control) StringValue() string {
	s, _ := c.State()
	return s.StringValue
}

// BoolValue returns the last value interpreted as a boolean.
func (c *Control) BoolValue() bool {
	s, _ := c.State()
	return s.BoolValue
}

// SendChangeBoolValue sets the control to 1 (true) or 0 (false).
func (c *Control) SendChangeBoolValue(value bool) error {
	if c.component == nil {
		return ErrUnboundControl
	}
	return c.component.send(KindValue, c.name, value)
}

// SendChangeDoubleValue sets the control's value.
func (c *Control) SendChangeDoubleValue(value float64) error {
	if c.component == nil {
		return ErrUnboundControl
	}
	return c.component.SendChangeDoubleValue(c.name, value)
}

// SendChangePosition sets the control's normalised position.
func (c *Control) SendChangePosition(position float64) error {
	if c.component == nil {
		return ErrUnboundControl
	}
	return c.component.SendChangePosition(c.name, position)
}

// SendChangeStringValue sets the control's string value.
func (c *Control) SendChangeStringValue(value string) error {
	if c.component == nil {
		return ErrUnboundControl
	}
	return c.component.SendChangeStringValue(c.name, value)
}

// applyState replaces the cached state, then notifies state listeners.
func (c *Control) applyState(state StateData) {
	c.mu.Lock()
	c.state = state
	c.hasState = true
	c.mu.Unlock()

	c.stateChanged.Raise(StateEvent{Control: c, State: state})
}
