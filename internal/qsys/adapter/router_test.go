package adapter

import (
	"errors"
	"testing"

	"github.com/nerrad567/gray-logic-qsys/internal/qsys"
)

func TestRouterInputSelectScenario(t *testing.T) {
	dir, core := setup(t)
	r := NewRouter(dir, nil)

	var gotName string
	var gotInput int
	calls := 0
	r.SetOnInputChanged(func(name string, input int) {
		gotName, gotInput = name, input
		calls++
	})

	if err := r.Initialize("core-1", "Router1", 3); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := r.InputSelect(5); err != nil {
		t.Fatalf("InputSelect() error = %v", err)
	}

	cmd := onlyCommand(t, core)
	if cmd.Component != "Router1" || cmd.Control != "select.3" {
		t.Errorf("command target = %s/%s, want Router1/select.3", cmd.Component, cmd.Control)
	}
	if cmd.Value == nil || *cmd.Value != 5 {
		t.Errorf("Value = %v, want 5", cmd.Value)
	}
	if cmd.Position != nil || cmd.StringValue != nil {
		t.Error("command carries more than one value field")
	}

	// Sending does not move the cached state.
	if r.CurrentSelectedInput() != 0 {
		t.Errorf("CurrentSelectedInput() = %d before feedback", r.CurrentSelectedInput())
	}

	comp, _ := core.components.TryGetComponent("Router1")
	comp.Dispatch(qsys.StateData{Name: "select.3", Value: 5, StringValue: "5", BoolValue: true})

	if r.CurrentSelectedInput() != 5 {
		t.Errorf("CurrentSelectedInput() = %d, want 5", r.CurrentSelectedInput())
	}
	if calls != 1 || gotName != "Router1" || gotInput != 5 {
		t.Errorf("delegate = (%q, %d) x%d, want (Router1, 5) x1", gotName, gotInput, calls)
	}
}

func TestRouterMute(t *testing.T) {
	dir, core := setup(t)
	r := NewRouter(dir, nil)

	var got []uint16
	r.SetOnMuteChanged(func(_ string, v uint16) { got = append(got, v) })

	if err := r.Initialize("core-1", "Router1", 2); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := r.OutputMute(true); err != nil {
		t.Fatalf("OutputMute() error = %v", err)
	}

	cmd := onlyCommand(t, core)
	if cmd.Control != "mute.2" || cmd.Value == nil || *cmd.Value != 1 {
		t.Errorf("command = %+v, want mute.2 value 1", cmd)
	}

	comp, _ := core.components.TryGetComponent("Router1")
	comp.Dispatch(qsys.StateData{Name: "mute.2", Value: 1, BoolValue: true})
	comp.Dispatch(qsys.StateData{Name: "mute.2", Value: 0, BoolValue: false})

	if len(got) != 2 || got[0] != 1 || got[1] != 0 {
		t.Errorf("mute delegate values = %v, want [1 0]", got)
	}
	if r.CurrentMute() {
		t.Error("CurrentMute() = true after unmute feedback")
	}
}

func TestRouterNotInitialized(t *testing.T) {
	r := NewRouter(qsys.NewDirectory(nil), nil)

	if err := r.InputSelect(1); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("InputSelect() error = %v, want ErrNotInitialized", err)
	}
	if err := r.OutputMute(true); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("OutputMute() error = %v, want ErrNotInitialized", err)
	}
	if names := r.ControlNames(); names != nil {
		t.Errorf("ControlNames() = %v before Initialize", names)
	}
}

func TestRouterInitializeIdempotent(t *testing.T) {
	dir, core := setup(t)
	r := NewRouter(dir, nil)

	if err := r.Initialize("core-1", "Router1", 3); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := r.Initialize("core-1", "Other", 7); err != nil {
		t.Fatalf("second Initialize() error = %v", err)
	}
	if r.Output() != 3 || r.ComponentName() != "Router1" {
		t.Errorf("second Initialize changed binding: output=%d component=%s", r.Output(), r.ComponentName())
	}

	comp, _ := core.components.TryGetComponent("Router1")
	ctrl, _ := comp.TryGetControl("select.3")
	if n := ctrl.StateChanged().Len(); n != 1 {
		t.Errorf("listeners on select.3 = %d, want 1", n)
	}
	if _, ok := core.components.TryGetComponent("Other"); ok {
		t.Error("second Initialize resolved a component")
	}
}

func TestRepeatInitializeIgnoresArguments(t *testing.T) {
	dir, _ := setup(t)

	r := NewRouter(dir, nil)
	x := NewCrosspoint(dir, nil)
	s := NewSnapshot(dir, nil)

	if err := r.Initialize("core-1", "Router1", 2); err != nil {
		t.Fatalf("router Initialize() error = %v", err)
	}
	if err := x.Initialize("core-1", "Mixer", 1, 1); err != nil {
		t.Fatalf("crosspoint Initialize() error = %v", err)
	}
	if err := s.Initialize("core-1", "Snaps", 4); err != nil {
		t.Fatalf("snapshot Initialize() error = %v", err)
	}

	tests := []struct {
		name string
		call func() error
	}{
		{"router output 0", func() error { return r.Initialize("core-1", "Router1", 0) }},
		{"crosspoint input -1", func() error { return x.Initialize("core-1", "Mixer", -1, 1) }},
		{"snapshot bank 0", func() error { return s.Initialize("core-1", "Snaps", 0) }},
		{"snapshot bank too large", func() error { return s.Initialize("core-1", "Snaps", MaxBank+1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); err != nil {
				t.Errorf("repeat Initialize() error = %v, want nil", err)
			}
		})
	}

	if r.Output() != 2 || s.Bank() != 4 {
		t.Errorf("repeat Initialize changed state: output=%d bank=%d", r.Output(), s.Bank())
	}
	if in, out := x.Indices(); in != 1 || out != 1 {
		t.Errorf("Indices() = %d/%d, want 1/1", in, out)
	}
}

func TestRouterInvalidIndex(t *testing.T) {
	dir, _ := setup(t)
	r := NewRouter(dir, nil)

	if err := r.Initialize("core-1", "Router1", 0); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("Initialize(output=0) error = %v, want ErrInvalidIndex", err)
	}
	if r.Initialized() {
		t.Error("rejected Initialize marked the router initialized")
	}
	if err := r.Initialize("core-1", "Router1", 1); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := r.InputSelect(-1); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("InputSelect(-1) error = %v, want ErrInvalidIndex", err)
	}
}

func TestRouterSendWhileUnboundIsDropped(t *testing.T) {
	dir := qsys.NewDirectory(nil)
	r := NewRouter(dir, nil)

	// No Core registered yet: the Router is initialised but unbound.
	if err := r.Initialize("core-1", "Router1", 1); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := r.InputSelect(2); err != nil {
		t.Errorf("InputSelect() while unbound error = %v, want nil", err)
	}

	core := newFakeCore("core-1")
	dir.Register(core)
	if err := r.InputSelect(2); err != nil {
		t.Fatalf("InputSelect() error = %v", err)
	}
	if n := len(core.Commands()); n != 1 {
		t.Errorf("commands = %d, want 1", n)
	}
}

func TestRouterRebindSafety(t *testing.T) {
	dir := qsys.NewDirectory(nil)
	x := newFakeCore("core-1")
	dir.Register(x)

	r := NewRouter(dir, nil)
	calls := 0
	r.SetOnInputChanged(func(string, int) { calls++ })
	if err := r.Initialize("core-1", "Router1", 1); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	compX := r.Component()
	ctrlX, _ := compX.TryGetControl("select.1")

	dir.Unregister("core-1")
	if r.Component() != nil {
		t.Fatal("component still bound after core went away")
	}
	if ctrlX.StateChanged().Len() != 0 {
		t.Error("subscription on X survived unbinding")
	}

	y := newFakeCore("core-1")
	dir.Register(y)
	compY := r.Component()
	if compY == nil || compY == compX {
		t.Fatal("router did not rebind to the new core's component")
	}
	ctrlY, _ := compY.TryGetControl("select.1")
	if n := ctrlY.StateChanged().Len(); n != 1 {
		t.Errorf("listeners on Y = %d, want 1", n)
	}

	compX.Dispatch(qsys.StateData{Name: "select.1", Value: 4})
	compY.Dispatch(qsys.StateData{Name: "select.1", Value: 2})
	if calls != 1 || r.CurrentSelectedInput() != 2 {
		t.Errorf("delegate calls = %d, input = %d; want 1, 2", calls, r.CurrentSelectedInput())
	}

	// Cached state survives unbinding.
	dir.Unregister("core-1")
	if r.CurrentSelectedInput() != 2 {
		t.Error("cached input lost on unbind")
	}
}

func TestRouterClose(t *testing.T) {
	dir, core := setup(t)
	r := NewRouter(dir, nil)
	if err := r.Initialize("core-1", "Router1", 1); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	comp := r.Component()
	ctrl, _ := comp.TryGetControl("mute.1")
	r.Close()

	if ctrl.StateChanged().Len() != 0 {
		t.Error("Close() left a subscription")
	}
	if err := r.OutputMute(true); err != nil {
		t.Errorf("OutputMute() after Close error = %v", err)
	}
	if n := len(core.Commands()); n != 0 {
		t.Errorf("commands after Close = %d, want 0", n)
	}

	// The directory no longer drives a closed router.
	dir.Register(newFakeCore("core-1"))
	if r.Component() != nil {
		t.Error("closed router rebound")
	}
}
