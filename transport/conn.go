package transport

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/multisocket/duplclient/bytespool"
	"github.com/multisocket/duplclient/errs"
	"github.com/multisocket/duplclient/options"
)

// connection implements the Connection interface on top of net.Conn.
type connection struct {
	transport Transport
	c         net.Conn
	maxrx     uint32
	hdr       [4]byte

	sync.Mutex
	closed bool
}

type lingerer interface {
	SetLinger(sec int) error
}

// NewConnection allocates a new Connection using the supplied net.Conn
func NewConnection(transport Transport, c net.Conn, opts options.Options) (Connection, error) {
	conn := &connection{
		transport: transport,
		c:         c,
	}
	if opts != nil {
		conn.maxrx = Options.MaxRecvMsgSize.ValueFrom(opts)
	}

	return conn, nil
}

func (conn *connection) Transport() Transport {
	return conn.transport
}

// Recv reads one frame: a 32-bit size (network byte order) followed by the
// message itself. The message is allocated from bytespool and may be freed
// by the caller once consumed.
func (conn *connection) Recv() (msg []byte, err error) {
	if _, err = io.ReadFull(conn.c, conn.hdr[:]); err != nil {
		return
	}
	sz := binary.BigEndian.Uint32(conn.hdr[:])

	if conn.maxrx > 0 && sz > conn.maxrx {
		err = errs.ErrMsgTooLong
		return
	}

	msg = bytespool.Alloc(int(sz))
	if _, err = io.ReadFull(conn.c, msg); err != nil {
		bytespool.Free(msg)
		msg = nil
		return
	}
	return
}

// Send writes msg and extras as one frame: a 32-bit size (network byte
// order) followed by the concatenated parts.
func (conn *connection) Send(msg []byte, extras ...[]byte) (err error) {
	var (
		buff = make(net.Buffers, 0, 2+len(extras))
		sz   = uint64(len(msg))
	)

	for _, m := range extras {
		sz += uint64(len(m))
	}
	if sz > uint64(^uint32(0)) {
		return errs.ErrMsgTooLong
	}
	lbyte := make([]byte, 4)
	binary.BigEndian.PutUint32(lbyte, uint32(sz))

	buff = append(buff, lbyte, msg)
	buff = append(buff, extras...)

	_, err = buff.WriteTo(conn.c)
	return
}

// SetLinger applies to connections backed by a kernel socket, others have
// nothing buffered beyond the peer and ignore it.
func (conn *connection) SetLinger(d time.Duration) error {
	l, ok := conn.c.(lingerer)
	if !ok {
		return nil
	}
	sec := -1
	if d >= 0 {
		sec = int((d + time.Second - 1) / time.Second)
	}
	return l.SetLinger(sec)
}

func (conn *connection) Close() error {
	conn.Lock()
	defer conn.Unlock()
	if conn.closed {
		return nil
	}
	conn.closed = true

	return conn.c.Close()
}

func (conn *connection) LocalAddress() string {
	return fmt.Sprintf("%s://%s", conn.transport.Scheme(), conn.c.LocalAddr().String())
}

func (conn *connection) RemoteAddress() string {
	return fmt.Sprintf("%s://%s", conn.transport.Scheme(), conn.c.RemoteAddr().String())
}
