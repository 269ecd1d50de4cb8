package socket

import (
	"sync"

	"github.com/multisocket/duplclient/errs"
	"github.com/multisocket/duplclient/options"
)

// Context owns socket defaults and every socket created from it.
type Context struct {
	options.Options

	sync.Mutex
	sockets map[*socket]struct{}
	closed  bool
}

// NewContext creates a context, ovs override the socket and transport
// option defaults for all its sockets.
func NewContext(ovs options.OptionValues) *Context {
	return &Context{
		Options: options.NewOptionsWithValues(ovs),
		sockets: make(map[*socket]struct{}),
	}
}

// NewSocket creates a request socket.
func (ctx *Context) NewSocket() (Socket, error) {
	ctx.Lock()
	defer ctx.Unlock()
	if ctx.closed {
		return nil, errs.ErrClosed
	}

	s := newSocket(ctx)
	ctx.sockets[s] = struct{}{}
	return s, nil
}

func (ctx *Context) remSocket(s *socket) {
	ctx.Lock()
	delete(ctx.sockets, s)
	ctx.Unlock()
}

// Term closes every socket still open and rejects new ones.
func (ctx *Context) Term() error {
	ctx.Lock()
	if ctx.closed {
		ctx.Unlock()
		return errs.ErrClosed
	}
	ctx.closed = true
	sockets := make([]*socket, 0, len(ctx.sockets))
	for s := range ctx.sockets {
		sockets = append(sockets, s)
	}
	ctx.Unlock()

	for _, s := range sockets {
		s.Close()
	}
	return nil
}
