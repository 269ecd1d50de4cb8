//go:build !windows

// Package ipc implements the IPC transport on top of UNIX domain sockets.
package ipc

import (
	"context"
	"net"
	"os"

	"github.com/multisocket/duplclient/errs"
	"github.com/multisocket/duplclient/options"
	"github.com/multisocket/duplclient/transport"
)

type (
	dialer struct {
		options.Options
		addr *net.UnixAddr
	}

	listener struct {
		options.Options
		addr     *net.UnixAddr
		listener *net.UnixListener
	}
)

func (d *dialer) Dial(ctx context.Context) (_ transport.Connection, err error) {
	var nd net.Dialer
	conn, err := nd.DialContext(ctx, "unix", d.addr.String())
	if err != nil {
		return nil, err
	}
	return transport.NewConnection(Transport, conn, d.Options)
}

func (l *listener) Listen() error {
	// remove stale socket file
	path := l.addr.String()
	if stat, err := os.Stat(path); err == nil {
		if stat.Mode()&os.ModeSocket == 0 {
			return errs.ErrAddrInUse
		}
		if err := os.Remove(path); err != nil {
			return errs.ErrAddrInUse
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	listener, err := net.ListenUnix("unix", l.addr)
	if err != nil {
		return err
	}
	l.listener = listener
	return nil
}

func (l *listener) Accept() (transport.Connection, error) {
	if l.listener == nil {
		return nil, errs.ErrBadOperateState
	}

	conn, err := l.listener.AcceptUnix()
	if err != nil {
		return nil, err
	}
	return transport.NewConnection(Transport, conn, l.Options)
}

func (l *listener) Address() string {
	return Transport.Scheme() + "://" + l.addr.String()
}

// Close implements the PipeListener Close method.
func (l *listener) Close() error {
	if l.listener == nil {
		return nil
	}
	return l.listener.Close()
}

func resolve(t ipcTran, address string) (*net.UnixAddr, error) {
	var err error
	if address, err = transport.StripScheme(t, address); err != nil {
		return nil, err
	}
	return net.ResolveUnixAddr("unix", address)
}

func (t ipcTran) NewDialer(address string, opts options.Options) (transport.Dialer, error) {
	addr, err := resolve(t, address)
	if err != nil {
		return nil, err
	}

	return &dialer{Options: options.NewOptionsWithUpstream(opts), addr: addr}, nil
}

// NewListener implements the Transport NewListener method.
func (t ipcTran) NewListener(address string, opts options.Options) (transport.Listener, error) {
	addr, err := resolve(t, address)
	if err != nil {
		return nil, err
	}

	return &listener{Options: options.NewOptionsWithUpstream(opts), addr: addr}, nil
}
