package duplclient

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/multisocket/duplclient/options"
	"github.com/multisocket/duplclient/socket"
	log "github.com/sirupsen/logrus"
)

// Client is a duplicate detection service client.
type Client struct {
	id string

	sync.Mutex
	config  *Config
	sock    socket.Socket
	reply   string
	lastErr lastError
	closed  bool
}

// New creates a client with no configuration and no connection.
func New() *Client {
	return &Client{id: uuid.NewString()}
}

// ID identifies the client in logs.
func (c *Client) ID() string {
	return c.id
}

func (c *Client) logger() *log.Entry {
	entry := log.WithField("domain", "client").WithField("client", c.id)
	if c.config != nil {
		entry = entry.WithField("addr", c.config.addr)
	}
	return entry
}

// Init sets the service address and the request timeout, a negative
// timeout waits forever. A client is initialized once, the connection is
// opened by the first request.
func (c *Client) Init(addr string, timeout time.Duration) error {
	return c.InitOptions([]byte(addr), timeout, nil)
}

// InitOptions is Init with raw address bytes and socket and transport
// option overrides.
func (c *Client) InitOptions(addr []byte, timeout time.Duration, ovs options.OptionValues) error {
	c.Lock()
	defer c.Unlock()
	if c.closed {
		return c.fail(ErrClosed)
	}
	if c.config != nil {
		return c.fail(ErrAlreadyInitialized)
	}

	cfg, err := newConfig(addr, timeout, ovs)
	if err != nil {
		return c.fail(err)
	}
	c.config = cfg
	if log.IsLevelEnabled(log.DebugLevel) {
		c.logger().WithField("timeout", cfg.timeout).Debug("initialized")
	}
	return nil
}

// Config returns the configuration, nil until Init succeeds.
func (c *Client) Config() *Config {
	c.Lock()
	defer c.Unlock()
	return c.config
}

// Reply returns the last successful reply.
func (c *Client) Reply() string {
	c.Lock()
	defer c.Unlock()
	return c.reply
}

// LastError returns the message of the last failure NUL terminated, or nil
// if nothing failed yet. The returned slice stays the same until the next
// failure.
func (c *Client) LastError() []byte {
	c.Lock()
	defer c.Unlock()
	return c.lastErr.bytes()
}

// LastErrorMessage is LastError without the terminating NUL.
func (c *Client) LastErrorMessage() string {
	c.Lock()
	defer c.Unlock()
	return c.lastErr.message()
}

// Close drops the connection, then the configuration.
func (c *Client) Close() error {
	c.Lock()
	defer c.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	c.dropSocket("close")
	if c.config != nil {
		if err := c.config.close(); err != nil {
			c.logger().WithError(err).Warn("terminate context")
		}
		c.config = nil
	}
	c.reply = ""
	c.lastErr.reset()
	return nil
}

func (c *Client) fail(err error) error {
	c.lastErr.set(err.Error())
	return err
}
