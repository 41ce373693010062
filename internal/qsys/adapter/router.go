package adapter

import (
	"fmt"
	"math"
	"sync"

	"github.com/nerrad567/gray-logic-qsys/internal/qsys"
)

// InputChangedFunc receives the newly selected input of a router output.
type InputChangedFunc func(componentName string, input int)

// MuteChangedFunc receives a mute state encoded as 1 (muted) or 0.
type MuteChangedFunc func(componentName string, mute uint16)

// Router drives one output of a Q-SYS router component.
type Router struct {
	base

	selectSlot *qsys.ControlSlot
	muteSlot   *qsys.ControlSlot

	mu             sync.RWMutex
	output         int
	selectedInput  int
	mute           bool
	onInputChanged InputChangedFunc
	onMuteChanged  MuteChangedFunc
}

// NewRouter creates a Router that resolves its Core through dir.
func NewRouter(dir *qsys.Directory, logger Logger) *Router {
	r := &Router{}
	r.base.configure(KindRouter, dir, logger, r.rebind)
	r.selectSlot = qsys.NewControlSlot(r.handleSelect)
	r.muteSlot = qsys.NewControlSlot(r.handleMute)
	return r
}

// Initialize binds the Router to output of componentName on coreID.
// Only the first call has an effect.
func (r *Router) Initialize(coreID, componentName string, output int) error {
	return r.initialize(coreID, componentName, func() error {
		if output < 1 {
			return fmt.Errorf("%w: router output %d", ErrInvalidIndex, output)
		}
		r.mu.Lock()
		r.output = output
		r.mu.Unlock()
		return nil
	})
}

// Output returns the router output this adapter drives.
func (r *Router) Output() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.output
}

// ControlNames returns the controls the Router resolves.
func (r *Router) ControlNames() []string {
	output := r.Output()
	if output == 0 {
		return nil
	}
	return []string{RouterSelectName(output), RouterMuteName(output)}
}

// SetOnInputChanged sets the callback for input-select feedback.
func (r *Router) SetOnInputChanged(fn InputChangedFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onInputChanged = fn
}

// SetOnMuteChanged sets the callback for output mute feedback.
func (r *Router) SetOnMuteChanged(fn MuteChangedFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onMuteChanged = fn
}

// CurrentSelectedInput returns the input last reported by the Core.
func (r *Router) CurrentSelectedInput() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selectedInput
}

// CurrentMute returns the mute state last reported by the Core.
func (r *Router) CurrentMute() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mute
}

// InputSelect routes input to the output. Input 0 disconnects the output.
func (r *Router) InputSelect(input int) error {
	if input < 0 {
		return fmt.Errorf("%w: router input %d", ErrInvalidIndex, input)
	}
	return r.send(r.selectSlot, func(c *qsys.Control) error {
		return c.SendChangeDoubleValue(float64(input))
	})
}

// OutputMute mutes or unmutes the output.
func (r *Router) OutputMute(mute bool) error {
	return r.send(r.muteSlot, func(c *qsys.Control) error {
		return c.SendChangeBoolValue(mute)
	})
}

func (r *Router) rebind(component *qsys.Component) {
	if component == nil {
		r.selectSlot.Bind(nil)
		r.muteSlot.Bind(nil)
		return
	}
	output := r.Output()
	r.selectSlot.Bind(component.LoadControl(RouterSelectName(output)))
	r.muteSlot.Bind(component.LoadControl(RouterMuteName(output)))
}

func (r *Router) handleSelect(e qsys.StateEvent) {
	input := int(math.Round(e.State.Value))

	r.mu.Lock()
	r.selectedInput = input
	fn := r.onInputChanged
	r.mu.Unlock()

	if fn != nil {
		fn(r.ComponentName(), input)
	}
}

func (r *Router) handleMute(e qsys.StateEvent) {
	mute := e.State.BoolValue

	r.mu.Lock()
	r.mute = mute
	fn := r.onMuteChanged
	r.mu.Unlock()

	if fn != nil {
		fn(r.ComponentName(), BoolToUshort(mute))
	}
}
