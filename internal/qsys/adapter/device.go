package adapter

import (
	"sync"

	"github.com/nerrad567/gray-logic-qsys/internal/qsys"
)

// Kind names a device type.
type Kind string

// Supported device kinds.
const (
	KindRouter     Kind = "router"
	KindCrosspoint Kind = "crosspoint"
	KindSnapshot   Kind = "snapshot"
)

// Device is what every typed adapter offers to the host shim.
type Device interface {
	Kind() Kind
	CoreID() string
	ComponentName() string
	Component() *qsys.Component
	ControlNames() []string
	HandleComponentUpdated(component *qsys.Component)
	Close()
}

// base carries the binding and initialisation state shared by every adapter.
type base struct {
	kind    Kind
	logger  Logger
	binding *qsys.Binding

	initMu      sync.Mutex
	initialized bool
}

func (b *base) configure(kind Kind, dir *qsys.Directory, logger Logger, onUpdated func(*qsys.Component)) {
	if logger == nil {
		logger = noopLogger{}
	}
	b.kind = kind
	b.logger = logger
	b.binding = qsys.NewBinding(dir, onUpdated)
}

// initialize runs setup and starts the binding, once. Later calls are
// no-ops whatever their arguments, and return nil. An error from setup
// leaves the adapter uninitialised.
func (b *base) initialize(coreID, componentName string, setup func() error) error {
	b.initMu.Lock()
	if b.initialized {
		b.initMu.Unlock()
		b.logger.Debug("adapter already initialized",
			"kind", b.kind,
			"component", componentName,
		)
		return nil
	}
	if err := setup(); err != nil {
		b.initMu.Unlock()
		return err
	}
	b.initialized = true
	b.initMu.Unlock()

	b.binding.Initialize(coreID, componentName)
	b.logger.Info("adapter initialized",
		"kind", b.kind,
		"core_id", coreID,
		"component", componentName,
	)
	return nil
}

// Kind returns the device kind.
func (b *base) Kind() Kind { return b.kind }

// Initialized reports whether Initialize has run.
func (b *base) Initialized() bool {
	b.initMu.Lock()
	defer b.initMu.Unlock()
	return b.initialized
}

// CoreID returns the Core the adapter is bound to.
func (b *base) CoreID() string { return b.binding.CoreID() }

// ComponentName returns the component the adapter is bound to.
func (b *base) ComponentName() string { return b.binding.ComponentName() }

// Component returns the currently bound Component, or nil.
func (b *base) Component() *qsys.Component { return b.binding.Component() }

// HandleComponentUpdated rebinds the adapter's Controls to component.
// A nil component releases them.
func (b *base) HandleComponentUpdated(component *qsys.Component) {
	b.binding.HandleComponentUpdated(component)
}

// Close stops following the Core and releases every Control.
func (b *base) Close() {
	b.binding.Close()
}

// send forwards fn to the Control held by slot. While the slot is empty the
// send is dropped and nil is returned.
func (b *base) send(slot *qsys.ControlSlot, fn func(*qsys.Control) error) error {
	if !b.Initialized() {
		return ErrNotInitialized
	}
	ctrl := slot.Control()
	if ctrl == nil {
		b.logger.Debug("send dropped, control not bound",
			"kind", b.kind,
			"component", b.ComponentName(),
		)
		return nil
	}
	return fn(ctrl)
}

var (
	_ Device = (*Router)(nil)
	_ Device = (*Crosspoint)(nil)
	_ Device = (*Snapshot)(nil)
)
