package socket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/multisocket/duplclient/bytespool"
	"github.com/multisocket/duplclient/errs"
	"github.com/multisocket/duplclient/options"
	"github.com/multisocket/duplclient/transport"
	log "github.com/sirupsen/logrus"
)

type socket struct {
	options.Options
	ctx *Context
	id  uint32

	sendq    chan []byte
	recvq    chan []byte
	flushedq chan struct{}
	closedq  chan struct{}
	queued   int32
	wg       sync.WaitGroup

	sync.Mutex
	addr     string
	cancel   context.CancelFunc
	conn     transport.Connection
	linger   time.Duration
	closed   bool
	awaiting bool   // a message was sent, its reply not yet received
	replied  bool   // the reply is on its way to recvq or pending
	pending  []byte // reply taken by Poll, not yet by Recv
}

var nextSocketID uint32

func newSocket(ctx *Context) *socket {
	s := &socket{
		Options:  options.NewOptionsWithUpstream(ctx.Options),
		ctx:      ctx,
		id:       atomic.AddUint32(&nextSocketID, 1),
		sendq:    make(chan []byte, 1),
		recvq:    make(chan []byte, 1),
		flushedq: make(chan struct{}, 1),
		closedq:  make(chan struct{}),
	}
	s.linger = Options.Linger.ValueFrom(s)
	return s
}

func (s *socket) logger() *log.Entry {
	return log.WithField("domain", "socket").
		WithFields(log.Fields{"id": s.id, "addr": s.addr})
}

func (s *socket) SetLinger(d time.Duration) error {
	if err := s.SetOption(Options.Linger, d); err != nil {
		return err
	}
	s.Lock()
	s.linger = d
	s.Unlock()
	return nil
}

func (s *socket) Connect(addr string) error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return errs.ErrClosed
	}
	if s.cancel != nil {
		return errs.ErrBadOperateState
	}

	tran := transport.GetTransportFromAddr(addr)
	if tran == nil {
		return errs.ErrBadTransport
	}
	d, err := tran.NewDialer(addr, s.Options)
	if err != nil {
		return err
	}

	s.addr = addr
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.run(ctx, d)
	return nil
}

// run keeps one connection alive until the socket is closed.
func (s *socket) run(ctx context.Context, d transport.Dialer) {
	defer s.wg.Done()

	var (
		minReconn  = Options.ReconnectInterval.ValueFrom(s)
		maxReconn  = Options.ReconnectIntervalMax.ValueFrom(s)
		reconnTime = minReconn
	)
	for {
		conn, err := s.dial(ctx, d)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if log.IsLevelEnabled(log.DebugLevel) {
				s.logger().WithError(err).WithField("retry", reconnTime).Debug("dial")
			}
			tm := time.NewTimer(reconnTime)
			select {
			case <-ctx.Done():
				tm.Stop()
				return
			case <-tm.C:
			}
			if reconnTime *= 2; maxReconn > 0 && reconnTime > maxReconn {
				reconnTime = maxReconn
			}
			continue
		}

		reconnTime = minReconn
		s.serve(conn)
		if ctx.Err() != nil {
			return
		}
	}
}

func (s *socket) dial(ctx context.Context, d transport.Dialer) (transport.Connection, error) {
	dctx, cancel := context.WithTimeout(ctx, Options.DialTimeout.ValueFrom(s))
	defer cancel()
	conn, err := d.Dial(dctx)
	if err != nil {
		return nil, err
	}

	s.Lock()
	if s.closed {
		s.Unlock()
		conn.SetLinger(0)
		conn.Close()
		return nil, errs.ErrClosed
	}
	s.conn = conn
	s.Unlock()

	if log.IsLevelEnabled(log.DebugLevel) {
		s.logger().WithFields(log.Fields{"local": conn.LocalAddress(), "remote": conn.RemoteAddress()}).
			Debug("connected")
	}
	return conn, nil
}

// serve writes queued messages to conn until it breaks or is closed.
func (s *socket) serve(conn transport.Connection) {
	recvDone := make(chan struct{})
	go func() {
		defer close(recvDone)
		s.recvLoop(conn)
	}()

SENDING:
	for {
		select {
		case <-recvDone:
			break SENDING
		case msg := <-s.sendq:
			err := conn.Send(msg)
			s.flushed(msg)
			if err != nil {
				if log.IsLevelEnabled(log.DebugLevel) {
					s.logger().WithError(err).Debug("send")
				}
				break SENDING
			}
		}
	}

	conn.Close()
	<-recvDone
	s.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.Unlock()
	if log.IsLevelEnabled(log.DebugLevel) {
		s.logger().Debug("disconnected")
	}
}

func (s *socket) recvLoop(conn transport.Connection) {
	for {
		msg, err := conn.Recv()
		if err != nil {
			if log.IsLevelEnabled(log.DebugLevel) {
				s.logger().WithError(err).Debug("recv")
			}
			return
		}

		s.Lock()
		deliver := s.awaiting && !s.replied
		if deliver {
			s.replied = true
		}
		s.Unlock()

		if !deliver {
			// nobody is waiting, a reply must never pair with a later request
			if log.IsLevelEnabled(log.DebugLevel) {
				s.logger().WithField("size", len(msg)).Debug("drop unexpected reply")
			}
			bytespool.Free(msg)
			continue
		}
		s.recvq <- msg
	}
}

func (s *socket) flushed(msg []byte) {
	bytespool.Free(msg)
	atomic.AddInt32(&s.queued, -1)
	select {
	case s.flushedq <- struct{}{}:
	default:
	}
}

func (s *socket) Send(msg []byte) error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return errs.ErrClosed
	}
	if s.cancel == nil || s.awaiting {
		return errs.ErrBadOperateState
	}

	select {
	case s.sendq <- msg:
	default:
		return errs.ErrBadOperateState
	}
	atomic.AddInt32(&s.queued, 1)
	s.awaiting = true
	s.replied = false
	return nil
}

func (s *socket) Poll(timeout time.Duration) (bool, error) {
	s.Lock()
	if s.closed {
		s.Unlock()
		return false, errs.ErrClosed
	}
	if !s.awaiting {
		s.Unlock()
		return false, errs.ErrBadOperateState
	}
	if s.pending != nil {
		s.Unlock()
		return true, nil
	}
	s.Unlock()

	var tc <-chan time.Time
	switch {
	case timeout == 0:
		select {
		case msg := <-s.recvq:
			s.setPending(msg)
			return true, nil
		default:
			return false, nil
		}
	case timeout > 0:
		tm := time.NewTimer(timeout)
		defer tm.Stop()
		tc = tm.C
	}

	select {
	case msg := <-s.recvq:
		s.setPending(msg)
		return true, nil
	case <-tc:
		return false, nil
	case <-s.closedq:
		return false, errs.ErrClosed
	}
}

func (s *socket) setPending(msg []byte) {
	if msg == nil {
		// empty replies are still replies
		msg = []byte{}
	}
	s.Lock()
	s.pending = msg
	s.Unlock()
}

func (s *socket) Recv() ([]byte, error) {
	s.Lock()
	if s.closed {
		s.Unlock()
		return nil, errs.ErrClosed
	}
	if !s.awaiting {
		s.Unlock()
		return nil, errs.ErrBadOperateState
	}
	if msg := s.pending; msg != nil {
		s.pending = nil
		s.awaiting = false
		s.Unlock()
		return msg, nil
	}
	s.Unlock()

	select {
	case msg := <-s.recvq:
		s.Lock()
		s.awaiting = false
		s.Unlock()
		return msg, nil
	case <-s.closedq:
		return nil, errs.ErrClosed
	}
}

func (s *socket) Close() error {
	s.Lock()
	if s.closed {
		s.Unlock()
		return errs.ErrClosed
	}
	s.closed = true
	linger := s.linger
	cancel := s.cancel
	s.Unlock()
	close(s.closedq)

	if cancel != nil {
		if linger != 0 {
			s.waitFlushed(linger)
		}
		cancel()

		s.Lock()
		conn := s.conn
		s.Unlock()
		if conn != nil {
			conn.SetLinger(linger)
			conn.Close()
		}
		s.wg.Wait()
	}

	// drop what was never written
	select {
	case msg := <-s.sendq:
		bytespool.Free(msg)
		if log.IsLevelEnabled(log.DebugLevel) {
			s.logger().WithField("size", len(msg)).Debug("drop unsent message")
		}
	default:
	}

	s.ctx.remSocket(s)
	return nil
}

func (s *socket) waitFlushed(linger time.Duration) {
	var tc <-chan time.Time
	if linger > 0 {
		tm := time.NewTimer(linger)
		defer tm.Stop()
		tc = tm.C
	}
	for atomic.LoadInt32(&s.queued) > 0 {
		select {
		case <-s.flushedq:
		case <-tc:
			return
		}
	}
}
