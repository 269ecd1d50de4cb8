package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/multisocket/duplclient"
	"github.com/multisocket/duplclient/internal/responder"
	"github.com/multisocket/duplclient/proto"
	"github.com/multisocket/duplclient/socket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAddrSeq int32

func nextAddr() string {
	return fmt.Sprintf("inproc://cli-test-%d", atomic.AddInt32(&testAddrSeq, 1))
}

func TestRequestLines(t *testing.T) {
	var seen int32
	r, err := responder.Listen(nextAddr(), func(trans proto.Trans) (proto.Rep, bool) {
		// the second request is never answered
		if atomic.AddInt32(&seen, 1) == 2 {
			return proto.Rep{}, false
		}
		return responder.Unexpected(trans)
	}, nil)
	require.NoError(t, err)
	defer r.Close()

	c := duplclient.New()
	defer c.Close()
	require.NoError(t, c.Init(r.Address(), 200*time.Millisecond))

	in := strings.NewReader("{\"async\":\"init\"}\n{\"sync\":\"init\"}\n{\"async\":\"terminate\"}")
	var out bytes.Buffer
	require.NoError(t, requestLines(context.Background(), c, in, &out, false))
	assert.Equal(t, "{\"unexpected\":\"init\"}\ntimed out\n{\"unexpected\":\"terminate\"}\n", out.String())
}

func TestRequestLinesStopsOnError(t *testing.T) {
	r, err := responder.Listen(nextAddr(), nil, nil)
	require.NoError(t, err)
	defer r.Close()

	c := duplclient.New()
	defer c.Close()
	require.NoError(t, c.Init(r.Address(), time.Second))

	in := strings.NewReader("{\"async\":\"init\"}\nnot json\n{\"async\":\"init\"}\n")
	var out bytes.Buffer
	err = requestLines(context.Background(), c, in, &out, true)
	assert.ErrorIs(t, err, duplclient.ErrRequestParse)
	assert.Equal(t, "{\n  \"unexpected\": \"init\"\n}\n", out.String())
}

func TestRootCommand(t *testing.T) {
	r, err := responder.Listen(nextAddr(), nil, nil)
	require.NoError(t, err)
	defer r.Close()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader("{\"sync\":\"terminate\"}\n"))
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--timeout", "2s", "--option", "Socket.ReconnectInterval=20ms", r.Address()})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "{\"unexpected\":\"terminate\"}\n", out.String())
}

func TestRootCommandBadArgs(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{})
	assert.Error(t, cmd.Execute())

	cmd = newRootCommand()
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{"--option", "Socket.NoSuchThing=1", nextAddr()})
	assert.Error(t, cmd.Execute())
}

func TestOptionValues(t *testing.T) {
	ovs, err := optionValues(nil)
	require.NoError(t, err)
	assert.Nil(t, ovs)

	ovs, err = optionValues([]string{"Socket.ReconnectInterval=50ms", "socket.linger=1s"})
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, ovs[socket.Options.ReconnectInterval])
	assert.Equal(t, time.Second, ovs[socket.Options.Linger])

	_, err = optionValues([]string{"Socket.Linger"})
	assert.Error(t, err)
}
