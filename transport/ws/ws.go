// Package ws implements a websocket transport, each frame travels as one
// binary websocket message.
package ws

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/multisocket/duplclient/errs"
	"github.com/multisocket/duplclient/options"
	"github.com/multisocket/duplclient/transport"
)

type (
	wsTran string

	dialer struct {
		options.Options
		url *url.URL
	}

	listener struct {
		options.Options
		url      *url.URL
		upgrader websocket.Upgrader
		htsvr    *http.Server
		listener net.Listener
		pending  chan *wsConn

		sync.Mutex
		closedq chan struct{}
	}

	wsConn struct {
		*websocket.Conn
		r io.Reader
	}
)

const (
	// Transport is a transport.Transport for Websocket.
	Transport = wsTran("ws")

	subprotocol = "duplclient.binary"
)

func init() {
	transport.RegisterTransport(Transport)
}

func noCheckOrigin(r *http.Request) bool {
	return true
}

// wsConn

func (c *wsConn) Read(b []byte) (n int, err error) {
	if c.r == nil {
		if _, c.r, err = c.Conn.NextReader(); err != nil {
			return
		}
	}
	n, err = c.r.Read(b)
	if err == io.EOF {
		c.r = nil
		if n == 0 {
			return c.Read(b)
		}
		err = nil
	}
	return
}

func (c *wsConn) Write(b []byte) (n int, err error) {
	if err = c.Conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return
	}
	return len(b), nil
}

func (c *wsConn) SetDeadline(t time.Time) (err error) {
	if err = c.Conn.SetReadDeadline(t); err != nil {
		return
	}
	return c.Conn.SetWriteDeadline(t)
}

func (c *wsConn) SetLinger(sec int) error {
	if tc, ok := c.Conn.UnderlyingConn().(*net.TCPConn); ok {
		return tc.SetLinger(sec)
	}
	return nil
}

// dialer

func (d *dialer) Dial(ctx context.Context) (_ transport.Connection, err error) {
	wd := &websocket.Dialer{
		ReadBufferSize:  Options.ReadBufferSize.ValueFrom(d.Options),
		WriteBufferSize: Options.WriteBufferSize.ValueFrom(d.Options),
		Subprotocols:    []string{subprotocol},
	}

	ws, _, err := wd.DialContext(ctx, d.url.String(), nil)
	if err != nil {
		return nil, err
	}
	if ws.Subprotocol() != subprotocol {
		ws.Close()
		return nil, errs.ErrBadProtocol
	}

	return transport.NewConnection(Transport, &wsConn{Conn: ws}, d.Options)
}

// listener

func (l *listener) Listen() (err error) {
	select {
	case <-l.closedq:
		return errs.ErrClosed
	default:
	}

	l.pending = make(chan *wsConn, Options.Listener.PendingSize.ValueFrom(l.Options))
	l.upgrader.ReadBufferSize = Options.ReadBufferSize.ValueFrom(l.Options)
	l.upgrader.WriteBufferSize = Options.WriteBufferSize.ValueFrom(l.Options)
	if !Options.Listener.CheckOrigin.ValueFrom(l.Options) {
		l.upgrader.CheckOrigin = noCheckOrigin
	}

	var taddr *net.TCPAddr
	if taddr, err = transport.ResolveTCPAddr(l.url.Host); err != nil {
		return err
	}
	if l.listener, err = net.ListenTCP("tcp", taddr); err != nil {
		return
	}

	mux := http.NewServeMux()
	mux.Handle(l.url.Path, l)
	l.htsvr = &http.Server{Handler: mux}
	go l.htsvr.Serve(l.listener)
	return nil
}

func (l *listener) Accept() (transport.Connection, error) {
	if l.listener == nil {
		return nil, errs.ErrBadOperateState
	}

	select {
	case c := <-l.pending:
		return transport.NewConnection(Transport, c, l.Options)
	case <-l.closedq:
		return nil, errs.ErrClosed
	}
}

func (l *listener) Address() string {
	if l.listener == nil {
		return l.url.String()
	}
	u := *l.url
	u.Host = l.listener.Addr().String()
	return u.String()
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

	if l.htsvr != nil {
		l.htsvr.Close()
	}

CLOSING:
	for {
		select {
		case c := <-l.pending:
			c.Close()
		default:
			break CLOSING
		}
	}
	return nil
}

func (l *listener) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	ws, err := l.upgrader.Upgrade(resp, req, nil)
	if err != nil {
		return
	}
	if ws.Subprotocol() != subprotocol {
		ws.Close()
		return
	}

	select {
	case <-l.closedq:
		ws.Close()
	case l.pending <- &wsConn{Conn: ws}:
	}
}

// wsTran

func (t wsTran) Scheme() string {
	return string(t)
}

func (t wsTran) NewDialer(address string, opts options.Options) (transport.Dialer, error) {
	u, err := parseAddressToURL(t, address)
	if err != nil {
		return nil, err
	}

	return &dialer{Options: options.NewOptionsWithUpstream(opts), url: u}, nil
}

func (t wsTran) NewListener(address string, opts options.Options) (transport.Listener, error) {
	u, err := parseAddressToURL(t, address)
	if err != nil {
		return nil, err
	}

	return &listener{
		Options: options.NewOptionsWithUpstream(opts),
		url:     u,
		upgrader: websocket.Upgrader{
			Subprotocols: []string{subprotocol},
		},
		closedq: make(chan struct{}),
	}, nil
}

func parseAddressToURL(t transport.Transport, address string) (*url.URL, error) {
	if _, err := transport.StripScheme(t, address); err != nil {
		return nil, err
	}
	u, err := url.Parse(address)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, errs.ErrBadAddr
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}
