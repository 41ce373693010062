package qsys

// Enqueuer hands a serialised command to a Core's outbound queue.
// Enqueue must not block and gives no delivery confirmation.
type Enqueuer interface {
	Enqueue(command string)
}

// controlEntry pairs a Control with its update function so both are always
// stored and looked up together.
type controlEntry struct {
	control *Control
	update  func(StateData)
}

// Component is the local registry of one named component on a Core.
//
// Controls are created on first lookup and live as long as the Component.
// All map access goes through one guard per Component; events are raised
// after the guard is released.
type Component struct {
	name      string
	core      Enqueuer
	subscribe bool
	logger    Logger

	controls Registry[string, controlEntry]

	feedbackReceived *Listeners[FeedbackEvent]
	controlAdded     *Listeners[*Control]
	subscribeChanged *Listeners[SubscribeEvent]
}

// NewComponent creates a Component that sends its commands to core.
// Controls loaded through LoadControl request feedback by default.
func NewComponent(name string, core Enqueuer, logger Logger) *Component {
	logger = orNoop(logger)
	return &Component{
		name:             name,
		core:             core,
		subscribe:        true,
		logger:           logger,
		feedbackReceived: NewListeners[FeedbackEvent]("component.feedback_received", logger),
		controlAdded:     NewListeners[*Control]("component.control_added", logger),
		subscribeChanged: NewListeners[SubscribeEvent]("component.subscribe_changed", logger),
	}
}

// Name returns the component name.
func (c *Component) Name() string { return c.name }

// Core returns the Enqueuer this Component sends through.
func (c *Component) Core() Enqueuer { return c.core }

// FeedbackReceived returns the list notified for every dispatched update.
func (c *Component) FeedbackReceived() *Listeners[FeedbackEvent] { return c.feedbackReceived }

// ControlAdded returns the list notified when a Control is lazily created.
func (c *Component) ControlAdded() *Listeners[*Control] { return c.controlAdded }

// SubscribeChanged returns the list notified when any Control of this
// Component turns its subscription on.
func (c *Component) SubscribeChanged() *Listeners[SubscribeEvent] { return c.subscribeChanged }

// LoadControl is LazyLoadControl with the Component's default subscribe flag.
func (c *Component) LoadControl(name string) *Control {
	return c.LazyLoadControl(name, c.subscribe)
}

// LazyLoadControl returns the Control called name, creating it on first use.
//
// When the Control already exists and subscribe is true its subscription is
// switched on; subscribe=false never switches an existing one off.
// control-added is raised only when this call created the Control.
func (c *Component) LazyLoadControl(name string, subscribe bool) *Control {
	entry, created := c.controls.GetOrCreate(name, func() controlEntry {
		ctrl, update := newControl(name, c, subscribe)
		// Relay is attached before the Control is published so no
		// subscribe flip can be missed.
		ctrl.subscribeChanged.Add(c.subscribeChanged.Raise)
		return controlEntry{control: ctrl, update: update}
	})

	if created {
		c.logger.Debug("control created",
			"component", c.name,
			"control", name,
			"subscribe", subscribe,
		)
		c.controlAdded.Raise(entry.control)
		return entry.control
	}

	entry.control.SetSubscribe(subscribe)
	return entry.control
}

// TryGetControl returns an existing Control without creating one.
func (c *Component) TryGetControl(name string) (*Control, bool) {
	entry, ok := c.controls.Get(name)
	if !ok {
		return nil, false
	}
	return entry.control, true
}

// GetControls returns a snapshot of every Control, in creation order.
func (c *Component) GetControls() []*Control {
	entries := c.controls.Values()
	out := make([]*Control, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.control)
	}
	return out
}

// GetSubscribedControls returns a snapshot of the Controls with feedback on.
func (c *Component) GetSubscribedControls() []*Control {
	entries := c.controls.Values()
	out := make([]*Control, 0, len(entries))
	for _, e := range entries {
		if e.control.Subscribed() {
			out = append(out, e.control)
		}
	}
	return out
}

// ToSubscribeRequest lists the subscribed controls for a change group request.
func (c *Component) ToSubscribeRequest() SubscribeRequest {
	subscribed := c.GetSubscribedControls()
	req := SubscribeRequest{
		Name:     c.name,
		Controls: make([]ControlName, 0, len(subscribed)),
	}
	for _, ctrl := range subscribed {
		req.Controls = append(req.Controls, ControlName{Name: ctrl.Name()})
	}
	return req
}

// Dispatch applies one inbound feedback record.
//
// Feedback for a control that was never loaded is dropped without any
// effect: nobody asked for it. Otherwise the Control's cache is updated and
// its state listeners run, then the Component's feedback listeners run.
func (c *Component) Dispatch(state StateData) {
	entry, ok := c.controls.Get(state.Name)
	if !ok {
		return
	}

	entry.update(state)
	c.feedbackReceived.Raise(FeedbackEvent{Component: c, State: state})
}

// SendChangePosition sets a control's normalised position.
func (c *Component) SendChangePosition(controlName string, position float64) error {
	return c.send(KindPosition, controlName, position)
}

// SendChangeDoubleValue sets a control's numeric value.
func (c *Component) SendChangeDoubleValue(controlName string, value float64) error {
	return c.send(KindValue, controlName, value)
}

// SendChangeStringValue sets a control's string value.
func (c *Component) SendChangeStringValue(controlName string, value string) error {
	return c.send(KindStringValue, controlName, value)
}

func (c *Component) send(kind ValueKind, controlName string, value any) error {
	if c.core == nil {
		return ErrUnboundControl
	}

	cmd, err := buildEnvelope(kind, c.name, controlName, value)
	if err != nil {
		return err
	}

	c.core.Enqueue(cmd)
	return nil
}
