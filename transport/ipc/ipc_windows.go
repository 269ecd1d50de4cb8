//go:build windows

// Package ipc implements the IPC transport on top of Windows Named Pipes.
package ipc

import (
	"context"
	"net"

	"github.com/Microsoft/go-winio"
	"github.com/multisocket/duplclient/errs"
	"github.com/multisocket/duplclient/options"
	"github.com/multisocket/duplclient/transport"
)

type (
	dialer struct {
		options.Options
		path string
	}

	listener struct {
		options.Options
		path     string
		listener net.Listener
	}
)

const pipePrefix = `\\.\pipe\`

func (d *dialer) Dial(ctx context.Context) (transport.Connection, error) {
	conn, err := winio.DialPipeContext(ctx, pipePrefix+d.path)
	if err != nil {
		return nil, err
	}
	return transport.NewConnection(Transport, conn, d.Options)
}

func (l *listener) Listen() error {
	config := &winio.PipeConfig{
		SecurityDescriptor: Options.Listener.SecurityDescriptor.ValueFrom(l.Options),
		InputBufferSize:    int32(Options.Listener.InputBufferSize.ValueFrom(l.Options)),
		OutputBufferSize:   int32(Options.Listener.OutputBufferSize.ValueFrom(l.Options)),
		MessageMode:        false,
	}

	listener, err := winio.ListenPipe(pipePrefix+l.path, config)
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

	conn, err := l.listener.Accept()
	if err != nil {
		return nil, err
	}
	return transport.NewConnection(Transport, conn, l.Options)
}

func (l *listener) Address() string {
	return Transport.Scheme() + "://" + l.path
}

func (l *listener) Close() error {
	if l.listener == nil {
		return nil
	}
	return l.listener.Close()
}

func (t ipcTran) NewDialer(address string, opts options.Options) (transport.Dialer, error) {
	var err error
	if address, err = transport.StripScheme(t, address); err != nil {
		return nil, err
	}

	return &dialer{Options: options.NewOptionsWithUpstream(opts), path: address}, nil
}

// NewListener implements the Transport NewListener method.
func (t ipcTran) NewListener(address string, opts options.Options) (transport.Listener, error) {
	var err error
	if address, err = transport.StripScheme(t, address); err != nil {
		return nil, err
	}

	return &listener{Options: options.NewOptionsWithUpstream(opts), path: address}, nil
}
