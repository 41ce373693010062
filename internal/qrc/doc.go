// Package qrc implements a session with a Q-SYS Core over the Q-SYS
// Remote Control (QRC) protocol.
//
// QRC is JSON-RPC 2.0 over TCP (port 1710). Every message in either
// direction is terminated by a single NUL byte.
//
// A Core session owns:
//   - the TCP connection and a bounded outbound queue drained by one writer
//   - a receive loop that parses frames and routes change-group feedback
//   - a qsys.ComponentRegistry for the components used on this Core
//   - one change group, auto-polled by the Core, holding every subscribed
//     control
//
// Feedback is delivered synchronously on the receive goroutine: a
// ChangeGroup.Poll notification is split into one Dispatch call per change.
//
// The session does not reconnect. When the connection drops the session
// stops, reports the loss through the disconnect callback and must be
// replaced by a new one.
package qrc
