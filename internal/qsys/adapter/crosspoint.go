package adapter

import (
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-qsys/internal/qsys"
)

// GainChangedFunc receives a crosspoint gain as an external level.
type GainChangedFunc func(componentName string, level uint16)

// Crosspoint drives one input/output crosspoint of a matrix mixer.
type Crosspoint struct {
	base

	muteSlot *qsys.ControlSlot
	gainSlot *qsys.ControlSlot

	mu            sync.RWMutex
	input         int
	output        int
	mute          bool
	gain          uint16
	onMuteChanged MuteChangedFunc
	onGainChanged GainChangedFunc
}

// NewCrosspoint creates a Crosspoint that resolves its Core through dir.
func NewCrosspoint(dir *qsys.Directory, logger Logger) *Crosspoint {
	x := &Crosspoint{}
	x.base.configure(KindCrosspoint, dir, logger, x.rebind)
	x.muteSlot = qsys.NewControlSlot(x.handleMute)
	x.gainSlot = qsys.NewControlSlot(x.handleGain)
	return x
}

// Initialize binds the Crosspoint to (input, output) of componentName on
// coreID. Only the first call has an effect.
func (x *Crosspoint) Initialize(coreID, componentName string, input, output int) error {
	return x.initialize(coreID, componentName, func() error {
		if input < 1 || output < 1 {
			return fmt.Errorf("%w: crosspoint %d/%d", ErrInvalidIndex, input, output)
		}
		x.mu.Lock()
		x.input = input
		x.output = output
		x.mu.Unlock()
		return nil
	})
}

// Indices returns the crosspoint's input and output.
func (x *Crosspoint) Indices() (input, output int) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.input, x.output
}

// ControlNames returns the controls the Crosspoint resolves.
func (x *Crosspoint) ControlNames() []string {
	input, output := x.Indices()
	if input == 0 {
		return nil
	}
	return []string{CrosspointMuteName(input, output), CrosspointGainName(input, output)}
}

// SetOnMuteChanged sets the callback for mute feedback.
func (x *Crosspoint) SetOnMuteChanged(fn MuteChangedFunc) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.onMuteChanged = fn
}

// SetOnGainChanged sets the callback for gain feedback.
func (x *Crosspoint) SetOnGainChanged(fn GainChangedFunc) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.onGainChanged = fn
}

// CurrentMute returns the mute state last reported by the Core.
func (x *Crosspoint) CurrentMute() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.mute
}

// CurrentGain returns the gain level last reported by the Core.
func (x *Crosspoint) CurrentGain() uint16 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.gain
}

// SetCrossPointMute mutes or unmutes the crosspoint.
func (x *Crosspoint) SetCrossPointMute(mute bool) error {
	return x.send(x.muteSlot, func(c *qsys.Control) error {
		return c.SendChangeBoolValue(mute)
	})
}

// SetCrossPointGain sets the crosspoint gain from an external level.
func (x *Crosspoint) SetCrossPointGain(level uint16) error {
	return x.send(x.gainSlot, func(c *qsys.Control) error {
		return c.SendChangePosition(ScaleToPosition(level))
	})
}

func (x *Crosspoint) rebind(component *qsys.Component) {
	if component == nil {
		x.muteSlot.Bind(nil)
		x.gainSlot.Bind(nil)
		return
	}
	input, output := x.Indices()
	x.muteSlot.Bind(component.LoadControl(CrosspointMuteName(input, output)))
	x.gainSlot.Bind(component.LoadControl(CrosspointGainName(input, output)))
}

func (x *Crosspoint) handleMute(e qsys.StateEvent) {
	mute := e.State.BoolValue

	x.mu.Lock()
	x.mute = mute
	fn := x.onMuteChanged
	x.mu.Unlock()

	if fn != nil {
		fn(x.ComponentName(), BoolToUshort(mute))
	}
}

func (x *Crosspoint) handleGain(e qsys.StateEvent) {
	level := ScaleToLevel(e.State.Position)

	x.mu.Lock()
	x.gain = level
	fn := x.onGainChanged
	x.mu.Unlock()

	if fn != nil {
		fn(x.ComponentName(), level)
	}
}
