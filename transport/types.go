package transport

import (
	"context"
	"time"

	"github.com/multisocket/duplclient/options"
)

type (
	// Connection is a framed message connection between peers.
	Connection interface {
		Transport() Transport

		Send(msg []byte, extras ...[]byte) error
		Recv() ([]byte, error)

		// SetLinger controls what happens to unsent data on Close:
		// zero discards it at once, negative waits for delivery.
		SetLinger(d time.Duration) error
		Close() error

		LocalAddress() string
		RemoteAddress() string
	}

	// Dialer connects to one address.
	Dialer interface {
		Dial(ctx context.Context) (Connection, error)
	}

	// Listener is listener
	Listener interface {
		Listen() error
		Accept() (Connection, error)
		Address() string
		Close() error
	}

	// Transport is transport
	Transport interface {
		Scheme() string
		NewDialer(address string, opts options.Options) (Dialer, error)
		NewListener(address string, opts options.Options) (Listener, error)
	}
)
