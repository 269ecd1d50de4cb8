// Package socket provides a request socket over the registered transports.
//
// A socket is bound to one address and follows a strict send/receive
// alternation: one message is sent, then exactly one reply is received
// before the next send. Connecting is asynchronous, the socket keeps dialing
// in the background until the peer shows up and reconnects when the link
// breaks, so a request to an absent peer simply never gets ready.
package socket

import (
	"time"
)

// Socket is a request socket.
type Socket interface {
	// SetLinger sets how long Close waits for a queued message to be
	// written, 0 discards it at once.
	SetLinger(d time.Duration) error
	// Connect validates addr and starts connecting in the background.
	Connect(addr string) error
	// Send queues msg and takes ownership of it.
	Send(msg []byte) error
	// Poll waits until the reply is ready. Negative timeout waits forever,
	// zero checks once.
	Poll(timeout time.Duration) (ready bool, err error)
	// Recv returns the reply, blocking until it arrives.
	Recv() ([]byte, error)
	Close() error
}

// Infinite is the Poll timeout that never expires.
const Infinite = time.Duration(-1)
