// Package network provides the pluggable message-bus boundary the
// executor binds a node to: one endpoint per node, asynchronous
// best-effort send, and a receive call that is the only blocking
// operation anywhere in the runtime.
package network

import "time"

// Frame is one network message: the destination channel's name plus its
// pickled tuple payload. ChannelName lets a single endpoint multiplex
// several channels over one wire connection.
type Frame struct {
	ChannelName string
	Payload     []byte
}

// Bus is the injectable transport every node binds to.
type Bus interface {
	// Bind associates this bus instance with endpoint (e.g. "inproc://x",
	// "tcp://host:port"), so Recv and inbound Send calls route here.
	Bind(endpoint string) error
	// Send dispatches frame to dst asynchronously; a nil error means the
	// frame was accepted for delivery, not that it was received.
	Send(dst string, frame Frame) error
	// Recv blocks for up to timeout waiting for the next inbound frame.
	// ok is false on timeout (not an error); err is non-nil only on a
	// genuine transport failure.
	Recv(timeout time.Duration) (frame Frame, ok bool, err error)
}
