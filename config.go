package duplclient

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/multisocket/duplclient/address"
	"github.com/multisocket/duplclient/options"
	"github.com/multisocket/duplclient/socket"
)

// Infinite is the request timeout that waits for the reply forever.
const Infinite = socket.Infinite

// Config is the immutable setup of an initialized client.
type Config struct {
	addr    string
	timeout time.Duration
	ctx     *socket.Context
}

// newConfig validates addr. Options in the query of addr, then ovs,
// override socket and transport defaults.
func newConfig(addr []byte, timeout time.Duration, ovs options.OptionValues) (*Config, error) {
	if len(addr) == 0 {
		return nil, ErrEmptyAddr
	}
	if !utf8.Valid(addr) {
		return nil, fmt.Errorf("%w: %s", ErrBadAddr, describeUTF8Error(addr))
	}
	a, err := address.Parse(string(addr))
	if err != nil {
		return nil, err
	}
	if a.Address() == "" {
		return nil, ErrEmptyAddr
	}
	if timeout < 0 {
		timeout = Infinite
	}

	return &Config{
		addr:    a.Address(),
		timeout: timeout,
		ctx:     socket.NewContext(a.OptionValues(ovs)),
	}, nil
}

// Addr is the service address.
func (cfg *Config) Addr() string {
	return cfg.addr
}

// Timeout is how long a request waits for its reply, Infinite waits
// forever and 0 checks once.
func (cfg *Config) Timeout() time.Duration {
	return cfg.timeout
}

func (cfg *Config) close() error {
	return cfg.ctx.Term()
}

// describeUTF8Error tells where the first invalid sequence of b starts.
func describeUTF8Error(b []byte) string {
	for i := 0; i < len(b); {
		r, n := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && n <= 1 {
			return fmt.Sprintf("invalid utf-8 sequence from index %d", i)
		}
		i += n
	}
	return "valid utf-8"
}
