// Package qsys provides the client-side object model for a Q-SYS Core.
//
// A Core exposes named components (routers, matrix mixers, snapshot banks),
// each holding named controls. This package keeps a lazily populated local
// mirror of the controls the bridge cares about, turns typed set operations
// into Component.Set commands, and fans inbound feedback out to listeners.
//
// # Architecture
//
//	Adapter ──Send*──▶ Control ──▶ Component ──Enqueue──▶ Core session
//	                      ▲             │
//	   state-changed ─────┘   Dispatch ◀┘◀── ChangeGroup.Poll feedback
//
// # Key Types
//
//   - Component: named component registry; one guard per instance
//   - Control: cached state and sticky subscribe flag for one control
//   - Listeners: ordered observer list used for every event
//   - Registry: guarded map with get/create/snapshot operations
//   - Directory: Cores by ID; drives Binding rebinds
//   - Binding / ControlSlot: the adapter base used by package adapter
//
// # Thread Safety
//
// All exported methods are safe for concurrent use. Events are raised on the
// calling goroutine after any internal lock has been released, so listeners
// may call back into the Component that raised them.
//
// # Usage
//
//	comp := qsys.NewComponent("Router1", core, logger)
//	sel := comp.LazyLoadControl("select.3", true)
//	sel.StateChanged().Add(func(ev qsys.StateEvent) {
//	    fmt.Println("input now", ev.State.Value)
//	})
//	_ = sel.SendChangeDoubleValue(5)
package qsys
