// Package responder answers client requests the way a duplicate detection
// service would, by default with the request echoed back as unexpected.
package responder

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/multisocket/duplclient/address"
	"github.com/multisocket/duplclient/bytespool"
	"github.com/multisocket/duplclient/errs"
	"github.com/multisocket/duplclient/options"
	"github.com/multisocket/duplclient/proto"
	"github.com/multisocket/duplclient/transport"
	log "github.com/sirupsen/logrus"
)

// Handler answers a request, returning false drops the request unanswered.
type Handler func(trans proto.Trans) (rep proto.Rep, reply bool)

// Unexpected answers every request with unexpected(request).
func Unexpected(trans proto.Trans) (proto.Rep, bool) {
	return proto.Rep{Kind: proto.RepUnexpected, Unexpected: trans.Req}, true
}

// Responder serves requests on one listening address.
type Responder struct {
	l        transport.Listener
	handler  Handler
	accepted int32
	requests int32
	wg       sync.WaitGroup

	sync.Mutex
	conns  map[transport.Connection]struct{}
	closed bool
}

// Listen starts serving addr, which may carry transport options in its
// query. A nil handler answers with Unexpected.
func Listen(addr string, handler Handler, opts options.Options) (*Responder, error) {
	a, err := address.Parse(addr)
	if err != nil {
		return nil, err
	}
	tran := transport.GetTransportFromAddr(a.Address())
	if tran == nil {
		return nil, errs.ErrBadTransport
	}
	lopts, err := listenerOptions(opts, a.OptionValues())
	if err != nil {
		return nil, err
	}
	l, err := tran.NewListener(a.Address(), lopts)
	if err != nil {
		return nil, err
	}
	if err = l.Listen(); err != nil {
		return nil, err
	}
	if handler == nil {
		handler = Unexpected
	}

	r := &Responder{
		l:       l,
		handler: handler,
		conns:   make(map[transport.Connection]struct{}),
	}
	r.wg.Add(1)
	go r.run()
	return r, nil
}

// listenerOptions layers the address options over opts.
func listenerOptions(opts options.Options, ovs options.OptionValues) (options.Options, error) {
	lopts := options.NewOptionsWithUpstream(opts)
	for opt, val := range ovs {
		if err := lopts.SetOption(opt, val); err != nil {
			return nil, fmt.Errorf("%w: option %s: %v", errs.ErrBadAddr, opt.Name(), err)
		}
	}
	return lopts, nil
}

func (r *Responder) logger() *log.Entry {
	return log.WithField("domain", "responder").WithField("addr", r.l.Address())
}

// Address is the listening address, with the bound port for tcp://:0.
func (r *Responder) Address() string {
	return r.l.Address()
}

// Accepted is the number of connections accepted so far.
func (r *Responder) Accepted() int {
	return int(atomic.LoadInt32(&r.accepted))
}

// Requests is the number of requests received so far.
func (r *Responder) Requests() int {
	return int(atomic.LoadInt32(&r.requests))
}

func (r *Responder) run() {
	defer r.wg.Done()
	for {
		conn, err := r.l.Accept()
		if err != nil {
			r.Lock()
			closed := r.closed
			r.Unlock()
			if !closed {
				r.logger().WithError(err).Warn("accept")
			}
			return
		}

		r.Lock()
		if r.closed {
			r.Unlock()
			conn.Close()
			return
		}
		r.conns[conn] = struct{}{}
		r.Unlock()

		atomic.AddInt32(&r.accepted, 1)
		if log.IsLevelEnabled(log.DebugLevel) {
			r.logger().WithField("remote", conn.RemoteAddress()).Debug("accepted")
		}
		r.wg.Add(1)
		go r.serve(conn)
	}
}

func (r *Responder) serve(conn transport.Connection) {
	defer r.wg.Done()
	defer func() {
		r.Lock()
		delete(r.conns, conn)
		r.Unlock()
		conn.Close()
	}()

	for {
		msg, err := conn.Recv()
		if err != nil {
			if log.IsLevelEnabled(log.DebugLevel) {
				r.logger().WithError(err).Debug("recv")
			}
			return
		}
		atomic.AddInt32(&r.requests, 1)

		var rep proto.Rep
		trans, _, err := proto.DecodeTrans(msg)
		bytespool.Free(msg)
		if err != nil {
			r.logger().WithError(err).Warn("bad request packet")
			rep = proto.Rep{Kind: proto.RepUnknown}
		} else {
			var ok bool
			if rep, ok = r.handler(trans); !ok {
				continue
			}
		}

		out := bytespool.Alloc(rep.EncodedLen())
		rep.Encode(out)
		err = conn.Send(out)
		bytespool.Free(out)
		if err != nil {
			if log.IsLevelEnabled(log.DebugLevel) {
				r.logger().WithError(err).Debug("send")
			}
			return
		}
	}
}

// Close stops listening and drops every connection.
func (r *Responder) Close() error {
	r.Lock()
	if r.closed {
		r.Unlock()
		return errs.ErrClosed
	}
	r.closed = true
	conns := make([]transport.Connection, 0, len(r.conns))
	for conn := range r.conns {
		conns = append(conns, conn)
	}
	r.Unlock()

	err := r.l.Close()
	for _, conn := range conns {
		conn.Close()
	}
	r.wg.Wait()
	return err
}
