// Package control implements the control channel between two
// workers.
//
// Each side tracks its own status and its peer's.  On connect a side
// becomes CONNECTED and says so.  When a side has said CONNECTED and
// hears CONNECTED, both statuses become READY.  Either side can send
// SYNC messages carrying a list of values, which the peer queues.
// Disconnection is a handshake: once both sides are DISCONNECTING the
// transport is closed.  Losing the transport also ends the link.
//
// Waits (WaitReady, WaitSync, WaitInactive) block with a timeout.
// They never return errors.  A false result means the timeout (or
// the context) ended the wait.
package control
