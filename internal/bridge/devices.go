package bridge

import (
	"fmt"
	"math"

	"github.com/nerrad567/gray-logic-qsys/internal/qsys/adapter"
)

// DeviceConfig describes one Q-SYS device exposed on the bus.
type DeviceConfig struct {
	// ID is the Gray Logic device identifier used in topics.
	ID string

	// Name is a human-readable label.
	Name string

	// Type selects the adapter: router, crosspoint or snapshot.
	Type string

	// Core is the ID of the Core hosting the component.
	Core string

	// Component is the Q-SYS component name.
	Component string

	// Output is the 1-based output (router, crosspoint).
	Output int

	// Input is the 1-based input (crosspoint).
	Input int

	// Bank is the number of snapshots in the bank (snapshot).
	Bank int
}

// Address returns "{core}/{component}".
func (d DeviceConfig) Address() string {
	return d.Core + "/" + d.Component
}

// DeviceInfo is a point-in-time view of a managed device.
type DeviceInfo struct {
	ID        string         `json:"id"`
	Name      string         `json:"name,omitempty"`
	Type      string         `json:"type"`
	Core      string         `json:"core"`
	Component string         `json:"component"`
	Controls  []string       `json:"controls"`
	Bound     bool           `json:"bound"`
	State     map[string]any `json:"state,omitempty"`
}

// managedDevice pairs a device's configuration with its adapter.
type managedDevice struct {
	cfg DeviceConfig
	dev adapter.Device
}

// buildDevice creates and initializes the adapter for cfg. Delegates are
// attached before Initialize so the first feedback is not missed.
func (b *Bridge) buildDevice(cfg DeviceConfig) (adapter.Device, error) {
	logger := adapterLogger{b}

	switch adapter.Kind(cfg.Type) {
	case adapter.KindRouter:
		r := adapter.NewRouter(b.dir, logger)
		r.SetOnInputChanged(func(_ string, input int) {
			b.updateState(cfg, "input", input)
		})
		r.SetOnMuteChanged(func(_ string, mute uint16) {
			b.updateState(cfg, "mute", mute == 1)
		})
		if err := r.Initialize(cfg.Core, cfg.Component, cfg.Output); err != nil {
			return nil, err
		}
		return r, nil

	case adapter.KindCrosspoint:
		x := adapter.NewCrosspoint(b.dir, logger)
		x.SetOnMuteChanged(func(_ string, mute uint16) {
			b.updateState(cfg, "mute", mute == 1)
		})
		x.SetOnGainChanged(func(_ string, level uint16) {
			b.updateState(cfg, "gain", int(level))
		})
		if err := x.Initialize(cfg.Core, cfg.Component, cfg.Input, cfg.Output); err != nil {
			return nil, err
		}
		return x, nil

	case adapter.KindSnapshot:
		s := adapter.NewSnapshot(b.dir, logger)
		s.SetOnMatchChanged(func(_ string, number int) {
			b.updateState(cfg, "match", number)
		})
		if err := s.Initialize(cfg.Core, cfg.Component, cfg.Bank); err != nil {
			return nil, err
		}
		return s, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDeviceType, cfg.Type)
	}
}

// executeCommand maps a command onto the device's adapter.
func executeCommand(dev adapter.Device, cmd CommandMessage) error {
	switch d := dev.(type) {
	case *adapter.Router:
		switch cmd.Command {
		case "select_input":
			input, err := intParam(cmd.Parameters, "input", 0, math.MaxInt32)
			if err != nil {
				return err
			}
			return d.InputSelect(input)
		case "set_mute":
			on, err := boolParam(cmd.Parameters, "on")
			if err != nil {
				return err
			}
			return d.OutputMute(on)
		}

	case *adapter.Crosspoint:
		switch cmd.Command {
		case "set_mute":
			on, err := boolParam(cmd.Parameters, "on")
			if err != nil {
				return err
			}
			return d.SetCrossPointMute(on)
		case "set_gain":
			level, err := intParam(cmd.Parameters, "level", 0, adapter.MaxLevel)
			if err != nil {
				return err
			}
			return d.SetCrossPointGain(uint16(level))
		}

	case *adapter.Snapshot:
		switch cmd.Command {
		case "load", "save":
			number, err := intParam(cmd.Parameters, "number", 1, math.MaxInt32)
			if err != nil {
				return err
			}
			if cmd.Command == "load" {
				return d.LoadSnapshot(number)
			}
			return d.SaveSnapshot(number)
		}
	}
	return fmt.Errorf("%w: %s for %s", ErrUnknownCommand, cmd.Command, dev.Kind())
}

// intParam reads an integral number in [lo, hi]. JSON numbers arrive as
// float64 and must have no fractional part.
func intParam(params map[string]any, key string, lo, hi int) (int, error) {
	raw, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidParameter, key)
	}

	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	default:
		return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidParameter, key)
	}

	if f != math.Trunc(f) || f < float64(lo) || f > float64(hi) {
		return 0, fmt.Errorf("%w: %s must be an integer in %d..%d", ErrInvalidParameter, key, lo, hi)
	}
	return int(f), nil
}

// boolParam reads a boolean parameter.
func boolParam(params map[string]any, key string) (bool, error) {
	raw, ok := params[key]
	if !ok {
		return false, fmt.Errorf("%w: %s is required", ErrInvalidParameter, key)
	}
	v, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s must be a boolean", ErrInvalidParameter, key)
	}
	return v, nil
}

// adapterLogger routes adapter logs through the bridge logger.
type adapterLogger struct{ b *Bridge }

func (l adapterLogger) Debug(msg string, kv ...any) { l.b.logDebug(msg, kv...) }
func (l adapterLogger) Info(msg string, kv ...any)  { l.b.logInfo(msg, kv...) }
func (l adapterLogger) Warn(msg string, kv ...any)  { l.b.logWarn(msg, kv...) }
func (l adapterLogger) Error(msg string, kv ...any) {
	if logger := l.b.getLogger(); logger != nil {
		logger.Error(msg, kv...)
	}
}

var _ adapter.Logger = adapterLogger{}

// componentBound reports whether the device currently has a live component.
func componentBound(dev adapter.Device) bool {
	return dev.Component() != nil
}
