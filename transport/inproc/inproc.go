// Package inproc implements an in-process transport over net.Pipe, useful
// for tests and for services embedded in the same binary.
package inproc

import (
	"context"
	"net"
	"sync"

	"github.com/multisocket/duplclient/errs"
	"github.com/multisocket/duplclient/options"
	"github.com/multisocket/duplclient/transport"
)

type (
	inprocTran string

	dialer struct {
		options.Options
		addr string
	}

	listener struct {
		options.Options
		addr    string
		accepts chan chan net.Conn
		closedq chan struct{}
		sync.Mutex
	}

	addr string

	pipe struct {
		net.Conn
		laddr net.Addr
		raddr net.Addr
	}
)

const (
	// Transport is a transport.Transport for intra-process communication.
	Transport = inprocTran("inproc")

	defaultAcceptQueueSize = 8
)

var listeners struct {
	sync.RWMutex
	// Who is listening, on which "address"?
	byAddr map[string]*listener
}

func init() {
	listeners.byAddr = make(map[string]*listener)
	transport.RegisterTransport(Transport)
}

func (a addr) Network() string {
	return string(Transport)
}

func (a addr) String() string {
	return string(a)
}

func (p *pipe) LocalAddr() net.Addr {
	return p.laddr
}

func (p *pipe) RemoteAddr() net.Addr {
	return p.raddr
}

// dialer

func (d *dialer) Dial(ctx context.Context) (transport.Connection, error) {
	listeners.RLock()
	l, ok := listeners.byAddr[d.addr]
	listeners.RUnlock()
	if !ok {
		return nil, transport.ErrConnRefused
	}

	ac := make(chan net.Conn, 1)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.closedq:
		return nil, transport.ErrConnRefused
	case l.accepts <- ac:
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.closedq:
		return nil, transport.ErrConnRefused
	case dc := <-ac:
		return transport.NewConnection(Transport, dc, d.Options)
	}
}

// listener

func (l *listener) Listen() error {
	select {
	case <-l.closedq:
		return errs.ErrClosed
	default:
	}

	listeners.Lock()
	defer listeners.Unlock()
	if xl, ok := listeners.byAddr[l.addr]; ok {
		if xl != l {
			return errs.ErrAddrInUse
		}
		// already in listening
		return nil
	}
	listeners.byAddr[l.addr] = l
	return nil
}

func (l *listener) Accept() (transport.Connection, error) {
	listeners.RLock()
	listening := listeners.byAddr[l.addr] == l
	listeners.RUnlock()
	if !listening {
		return nil, transport.ErrNotListening
	}

	select {
	case <-l.closedq:
		return nil, errs.ErrClosed
	case ac := <-l.accepts:
		lc, dc := net.Pipe()
		local, remote := addr(l.addr), addr(l.addr+".dialer")
		// the dialer may have given up, ac is buffered so this never blocks
		ac <- &pipe{Conn: dc, laddr: remote, raddr: local}
		return transport.NewConnection(Transport, &pipe{Conn: lc, laddr: local, raddr: remote}, l.Options)
	}
}

func (l *listener) Address() string {
	return Transport.Scheme() + "://" + l.addr
}

func (l *listener) Close() error {
	l.Lock()
	select {
	case <-l.closedq:
		l.Unlock()
		return errs.ErrClosed
	default:
		close(l.closedq)
	}
	l.Unlock()

	listeners.Lock()
	if listeners.byAddr[l.addr] == l {
		delete(listeners.byAddr, l.addr)
	}
	listeners.Unlock()

	return nil
}

// inprocTran

func (t inprocTran) Scheme() string {
	return string(t)
}

func (t inprocTran) NewDialer(address string, opts options.Options) (transport.Dialer, error) {
	var err error
	if address, err = transport.StripScheme(t, address); err != nil {
		return nil, err
	}
	if address == "" {
		return nil, errs.ErrBadAddr
	}

	return &dialer{Options: options.NewOptionsWithUpstream(opts), addr: address}, nil
}

func (t inprocTran) NewListener(address string, opts options.Options) (transport.Listener, error) {
	var err error
	if address, err = transport.StripScheme(t, address); err != nil {
		return nil, err
	}
	if address == "" {
		return nil, errs.ErrBadAddr
	}

	return &listener{
		Options: options.NewOptionsWithUpstream(opts),
		addr:    address,
		accepts: make(chan chan net.Conn, defaultAcceptQueueSize),
		closedq: make(chan struct{}),
	}, nil
}
