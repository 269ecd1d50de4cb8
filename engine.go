package duplclient

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/multisocket/duplclient/bytespool"
	"github.com/multisocket/duplclient/proto"
	log "github.com/sirupsen/logrus"
)

// transportError marks failures after which the socket is in an unknown
// send/receive state.
type transportError struct {
	err error
}

func (e *transportError) Error() string {
	return e.err.Error()
}

func (e *transportError) Unwrap() error {
	return e.err
}

func transportFailure(format string, a ...interface{}) error {
	return &transportError{err: fmt.Errorf(format, a...)}
}

// Request sends the JSON request body and waits for the reply, rendered as
// JSON, indented when pretty is set. It returns ErrTimedOut when the reply
// does not come within the configured timeout.
func (c *Client) Request(body []byte, pretty bool) (string, error) {
	c.Lock()
	defer c.Unlock()
	if c.closed {
		return "", c.fail(ErrClosed)
	}

	start := time.Now()
	reply, err := c.request(body, pretty)
	requestDuration.Observe(time.Since(start).Seconds())

	var terr *transportError
	switch {
	case err == nil:
		requestsTotal.WithLabelValues(resultOK).Inc()
		c.reply = reply
		return reply, nil
	case errors.Is(err, ErrTimedOut):
		requestsTotal.WithLabelValues(resultTimedOut).Inc()
		// the reply may still come, it must never be taken for the next one
		c.dropSocket(resultTimedOut)
	case errors.As(err, &terr):
		requestsTotal.WithLabelValues(resultError).Inc()
		c.dropSocket("transport")
	default:
		requestsTotal.WithLabelValues(resultError).Inc()
	}
	if log.IsLevelEnabled(log.DebugLevel) {
		c.logger().WithError(err).Debug("request")
	}
	return "", c.fail(err)
}

func (c *Client) request(body []byte, pretty bool) (string, error) {
	for {
		if c.sock != nil {
			return c.exchange(body, pretty)
		}
		if err := c.connect(); err != nil {
			return "", err
		}
	}
}

func (c *Client) connect() error {
	if c.config == nil {
		return ErrNotInitialized
	}

	sock, err := c.config.ctx.NewSocket()
	if err != nil {
		return fmt.Errorf("socket failed: %w", err)
	}
	if err = sock.SetLinger(0); err != nil {
		sock.Close()
		return fmt.Errorf("zero linger failed: %w", err)
	}
	if err = sock.Connect(c.config.addr); err != nil {
		sock.Close()
		return fmt.Errorf("connect to %s failed: %w", c.config.addr, err)
	}

	connectsTotal.Inc()
	if log.IsLevelEnabled(log.DebugLevel) {
		c.logger().Debug("socket opened")
	}
	c.sock = sock
	return nil
}

func (c *Client) dropSocket(reason string) {
	if c.sock == nil {
		return
	}
	if err := c.sock.Close(); err != nil {
		c.logger().WithError(err).Warn("close socket")
	}
	c.sock = nil
	disconnectsTotal.WithLabelValues(reason).Inc()
	if log.IsLevelEnabled(log.DebugLevel) {
		c.logger().WithField("reason", reason).Debug("socket dropped")
	}
}

// exchange is one send, poll and receive over the live socket.
func (c *Client) exchange(body []byte, pretty bool) (string, error) {
	if !utf8.Valid(body) {
		return "", fmt.Errorf("%w: %s", ErrRequestUTF8, describeUTF8Error(body))
	}
	trans, err := proto.ParseTrans(sanitize(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestParse, err)
	}

	n := trans.EncodedLen()
	msg := bytespool.Alloc(n)
	trans.Encode(msg)
	if err = c.sock.Send(msg); err != nil {
		return "", transportFailure("send failed: %w", err)
	}

	ready, err := c.sock.Poll(c.config.timeout)
	if err != nil {
		return "", transportFailure("poll failed: %w", err)
	}
	if !ready {
		return "", ErrTimedOut
	}

	repMsg, err := c.sock.Recv()
	if err != nil {
		return "", transportFailure("recv failed: %w", err)
	}
	rep, _, err := proto.DecodeRep(repMsg)
	bytespool.Free(repMsg)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReplyDecode, err)
	}

	text, err := proto.RepToJSON(&rep, pretty)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReplyRender, err)
	}
	return text, nil
}

// sanitize replaces control characters, raw newlines included, by spaces.
func sanitize(body []byte) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, string(body))
}
