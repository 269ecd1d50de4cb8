package capi

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/multisocket/duplclient"
	"github.com/multisocket/duplclient/internal/responder"
	"github.com/multisocket/duplclient/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tryCall fails the test with the last error when status is not StatusOK.
func tryCall(t *testing.T, h Handle, status int) {
	t.Helper()
	if status != StatusOK {
		t.Fatalf("last error: %s", LastError(h))
	}
}

func TestCreateClose(t *testing.T) {
	var h Handle
	require.Equal(t, StatusOK, Create(&h))
	require.NotZero(t, h)
	require.NotNil(t, Client(h))

	require.Equal(t, StatusOK, Close(&h))
	assert.Zero(t, h)
	// closing the null handle again is fine
	assert.Equal(t, StatusOK, Close(&h))
	assert.Equal(t, StatusError, Close(nil))
	assert.Equal(t, StatusError, Create(nil))
}

func TestUnknownHandle(t *testing.T) {
	var h Handle
	require.Equal(t, StatusOK, Create(&h))
	stale := h
	require.Equal(t, StatusOK, Close(&h))

	assert.Nil(t, Client(stale))
	assert.Equal(t, StatusError, Init(stale, []byte("inproc://x"), 1000))
	_, status := Request(stale, []byte(`{"async":"init"}`), false)
	assert.Equal(t, StatusError, status)
	assert.Nil(t, LastError(stale))
	assert.Nil(t, LastError(0))
	assert.Equal(t, StatusError, Close(&stale))
}

func TestInit(t *testing.T) {
	var h Handle
	require.Equal(t, StatusOK, Create(&h))
	defer Close(&h)

	tryCall(t, h, Init(h, []byte("ipc:///tmp/sock_a"), 1000))
	assert.Equal(t, time.Second, Client(h).Config().Timeout())

	assert.Equal(t, StatusError, Init(h, []byte("ipc:///tmp/sock_b"), 1000))
	assert.Equal(t, "already initialized\x00", string(LastError(h)))
	assert.Equal(t, "ipc:///tmp/sock_a", Client(h).Config().Addr())
}

func TestInitEmptyAddr(t *testing.T) {
	var h Handle
	require.Equal(t, StatusOK, Create(&h))
	defer Close(&h)

	assert.Equal(t, StatusError, Init(h, nil, 1000))
	assert.Equal(t, "invalid zero length address\x00", string(LastError(h)))
}

func TestTimeout(t *testing.T) {
	assert.Equal(t, time.Duration(0), Timeout(0))
	assert.Equal(t, 3*time.Second, Timeout(3000))
	assert.Equal(t, duplclient.Infinite, Timeout(InfiniteTimeoutMs))
	assert.Equal(t, duplclient.Infinite, Timeout(1<<63))
}

func TestRequest(t *testing.T) {
	addr := fmt.Sprintf("ipc://%s", filepath.Join(os.TempDir(), fmt.Sprintf("duplclient-capi-%d.sock", os.Getpid())))
	r, err := responder.Listen(addr, nil, nil)
	require.NoError(t, err)
	defer r.Close()

	var h Handle
	require.Equal(t, StatusOK, Create(&h))
	tryCall(t, h, Init(h, []byte(addr), 1000))

	trans := proto.Trans{Req: proto.Req{Kind: proto.ReqLookup, Lookup: proto.Single(proto.LookupTask{
		Text:   "some text to lookup",
		Result: proto.LookupBestOrMine,
		PostAction: proto.PostAction{
			Kind: proto.PostActionInsertNew,
			Cond: proto.InsertCond{Kind: proto.CondBestSimLessThan, Threshold: 0.5},
			Assign: proto.ClusterAssign{
				Cond:   proto.AssignCond{Kind: proto.CondAlways},
				Choice: proto.ClusterChoice{Kind: proto.ClientChoice, ClusterID: 177},
			},
			UserData: "some user data",
		},
	})}}
	req, err := proto.TransToJSON(&trans, false)
	require.NoError(t, err)

	reply, status := Request(h, []byte(req), false)
	tryCall(t, h, status)
	require.NotEmpty(t, reply)

	rep, err := proto.ParseRep(reply)
	require.NoError(t, err)
	assert.Equal(t, proto.Rep{Kind: proto.RepUnexpected, Unexpected: trans.Req}, rep)

	require.Equal(t, StatusOK, Close(&h))
	assert.Zero(t, h)
}

func TestRequestTimedOut(t *testing.T) {
	var h Handle
	require.Equal(t, StatusOK, Create(&h))
	defer Close(&h)
	tryCall(t, h, Init(h, []byte("inproc://capi-nobody"), 50))

	_, status := Request(h, []byte(`{"async":"init"}`), false)
	assert.Equal(t, StatusTimedOut, status)
	assert.Equal(t, "timed out\x00", string(LastError(h)))

	_, status = Request(h, []byte(`{"async":`), false)
	assert.Equal(t, StatusError, status)
	first := LastError(h)
	second := LastError(h)
	assert.True(t, &first[0] == &second[0])
}
