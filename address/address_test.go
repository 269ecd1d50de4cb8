package address

import (
	"errors"
	"testing"
	"time"

	"github.com/multisocket/duplclient/errs"
	"github.com/multisocket/duplclient/options"
	"github.com/multisocket/duplclient/socket"
	"github.com/multisocket/duplclient/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlain(t *testing.T) {
	for _, s := range []string{"tcp://127.0.0.1:5555", "ipc:///tmp/dupl.sock", "inproc://some name", "ws://h:1/p"} {
		a, err := Parse(s)
		require.NoError(t, err)
		assert.Equal(t, s, a.Address())
		assert.Equal(t, s, a.String())
		assert.Empty(t, a.OptionValues())
	}
}

func TestParseOptions(t *testing.T) {
	s := "tcp://127.0.0.1:5555?socket.reconnectInterval=50ms&Transport.MaxRecvMsgSize=1024"
	a, err := Parse(s)
	require.NoError(t, err)
	assert.Equal(t, "tcp://127.0.0.1:5555", a.Address())
	assert.Equal(t, s, a.String())
	assert.Equal(t, []string{"Socket.ReconnectInterval", "Transport.MaxRecvMsgSize"}, a.OptionNames())

	ovs := a.OptionValues(options.OptionValues{socket.Options.ReconnectInterval: time.Second})
	assert.Equal(t, time.Second, ovs[socket.Options.ReconnectInterval])
	assert.Equal(t, uint32(1024), ovs[transport.Options.MaxRecvMsgSize])
	// the address keeps its own values
	assert.Equal(t, 50*time.Millisecond, a.OptionValues()[socket.Options.ReconnectInterval])
}

func TestParseErrors(t *testing.T) {
	for _, s := range []string{
		"tcp://h:1?Socket.NoSuchOption=1",
		"tcp://h:1?Socket.Linger=forever",
		"tcp://h:1?%zz",
	} {
		_, err := Parse(s)
		assert.True(t, errors.Is(err, errs.ErrBadAddr), "%s: %v", s, err)
	}
}
