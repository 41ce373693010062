package qsys

// StateData is one normalised feedback record for a single control.
//
// The Core reports every representation it has for a control; BoolValue is
// derived from Value (non-zero is true).
type StateData struct {
	Name        string  `json:"name"`
	Value       float64 `json:"value"`
	Position    float64 `json:"position"`
	StringValue string  `json:"string"`
	BoolValue   bool    `json:"bool"`
}

// StateEvent is raised by a Control after its cached state changed.
type StateEvent struct {
	Control *Control
	State   StateData
}

// SubscribeEvent is raised when a Control's subscribe flag flips to true.
type SubscribeEvent struct {
	Control   *Control
	Subscribe bool
}

// FeedbackEvent is raised by a Component for every dispatched update of a
// control it holds.
type FeedbackEvent struct {
	Component *Component
	State     StateData
}

// SubscribeRequest lists the subscribed controls of one component, in the
// shape ChangeGroup.AddComponentControl expects.
type SubscribeRequest struct {
	Name     string        `json:"Name"`
	Controls []ControlName `json:"Controls"`
}

// ControlName is a bare control reference inside a SubscribeRequest.
type ControlName struct {
	Name string `json:"Name"`
}
