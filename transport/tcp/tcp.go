// Package tcp implements the TCP transport . To enable it simply import it.
package tcp

import (
	"context"
	"net"

	"github.com/multisocket/duplclient/errs"
	"github.com/multisocket/duplclient/options"
	"github.com/multisocket/duplclient/transport"
)

type (
	tcpTran string

	dialer struct {
		options.Options
		addr string
	}

	listener struct {
		options.Options
		addr     *net.TCPAddr
		bound    net.Addr
		listener *net.TCPListener
	}
)

const (
	// Transport is a transport.Transport for TCP.
	Transport = tcpTran("tcp")
)

func init() {
	transport.RegisterTransport(Transport)
}

func configTCP(conn *net.TCPConn, opts options.Options) error {
	if err := conn.SetNoDelay(Options.NoDelay.ValueFrom(opts)); err != nil {
		return err
	}
	if err := conn.SetKeepAlive(Options.KeepAlive.ValueFrom(opts)); err != nil {
		return err
	}
	if d := Options.KeepAliveTime.ValueFrom(opts); d > 0 {
		if err := conn.SetKeepAlivePeriod(d); err != nil {
			return err
		}
	}
	return nil
}

func (d *dialer) Dial(ctx context.Context) (_ transport.Connection, err error) {
	var (
		nd   net.Dialer
		conn net.Conn
	)

	if conn, err = nd.DialContext(ctx, "tcp", d.addr); err != nil {
		return nil, err
	}
	tc := conn.(*net.TCPConn)
	if err = configTCP(tc, d.Options); err != nil {
		tc.Close()
		return nil, err
	}

	return transport.NewConnection(Transport, tc, d.Options)
}

func (l *listener) Listen() (err error) {
	if l.listener, err = net.ListenTCP("tcp", l.addr); err == nil {
		l.bound = l.listener.Addr()
	}
	return
}

func (l *listener) Accept() (transport.Connection, error) {
	if l.listener == nil {
		return nil, errs.ErrBadOperateState
	}
	conn, err := l.listener.AcceptTCP()
	if err != nil {
		return nil, err
	}
	if err = configTCP(conn, l.Options); err != nil {
		conn.Close()
		return nil, err
	}
	return transport.NewConnection(Transport, conn, l.Options)
}

// Address returns the bound address once listening, so port 0 resolves to
// the real port.
func (l *listener) Address() string {
	if b := l.bound; b != nil {
		return "tcp://" + b.String()
	}
	return "tcp://" + l.addr.String()
}

func (l *listener) Close() error {
	if l.listener == nil {
		return nil
	}
	return l.listener.Close()
}

func (t tcpTran) Scheme() string {
	return string(t)
}

func (t tcpTran) NewDialer(addr string, opts options.Options) (transport.Dialer, error) {
	var err error
	if addr, err = transport.StripScheme(t, addr); err != nil {
		return nil, err
	}

	// check to ensure the provided addr resolves correctly.
	if _, err = transport.ResolveTCPAddr(addr); err != nil {
		return nil, err
	}

	return &dialer{Options: options.NewOptionsWithUpstream(opts), addr: addr}, nil
}

func (t tcpTran) NewListener(addr string, opts options.Options) (transport.Listener, error) {
	var err error
	l := &listener{Options: options.NewOptionsWithUpstream(opts)}

	if addr, err = transport.StripScheme(t, addr); err != nil {
		return nil, err
	}

	if l.addr, err = transport.ResolveTCPAddr(addr); err != nil {
		return nil, err
	}

	return l, nil
}
