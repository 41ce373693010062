// Package adapter provides typed device facades over qsys Components.
//
// Each adapter is bound to one named component on one Core through a
// qsys.Binding. When the Component behind the binding changes (a Core is
// registered, replaced or goes away) the adapter re-resolves its Controls
// by deterministic name and moves its state subscriptions over, so a
// rebind never leaves two live subscriptions or none.
//
//	Router       select.<o>, mute.<o>
//	Crosspoint   input.<i>.output.<o>.mute, input.<i>.output.<o>.gain
//	Snapshot     load.<n>, save.<n>, match.<n>
//
// Sends made before Initialize fail with ErrNotInitialized. Sends made
// while the adapter is between Components are dropped silently.
package adapter
