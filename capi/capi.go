// Package capi exposes clients through integer handles and status codes,
// the shape of the exported C functions, so it can be used and tested
// without cgo.
package capi

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/multisocket/duplclient"
	"github.com/multisocket/duplclient/utils"
	log "github.com/sirupsen/logrus"

	// every transport is reachable from foreign callers
	_ "github.com/multisocket/duplclient/transport/all"
)

// status codes
const (
	StatusOK       = 0
	StatusError    = 1
	StatusTimedOut = -1
)

// InfiniteTimeoutMs waits for replies forever, so does any timeout too
// large for a time.Duration.
const InfiniteTimeoutMs = ^uint64(0)

// Handle refers to a client, 0 is the null handle.
type Handle uint32

var handles = struct {
	sync.RWMutex
	ids     *utils.RecyclableIDGenerator
	clients map[Handle]*duplclient.Client
}{
	ids:     utils.NewRecyclableIDGenerator(),
	clients: make(map[Handle]*duplclient.Client),
}

// Client returns the client behind h, nil for null or unknown handles.
func Client(h Handle) *duplclient.Client {
	if h == 0 {
		return nil
	}
	handles.RLock()
	c := handles.clients[h]
	handles.RUnlock()
	return c
}

// Create stores a new client handle in h.
func Create(h *Handle) int {
	if h == nil {
		return StatusError
	}

	c := duplclient.New()
	handles.Lock()
	id := Handle(handles.ids.NextID())
	handles.clients[id] = c
	handles.Unlock()
	*h = id

	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithField("domain", "capi").WithFields(log.Fields{"handle": id, "client": c.ID()}).Debug("create")
	}
	return StatusOK
}

// Close destroys the client behind h and nulls h, closing a null handle
// does nothing.
func Close(h *Handle) int {
	if h == nil {
		return StatusError
	}
	if *h == 0 {
		return StatusOK
	}

	handles.Lock()
	c, ok := handles.clients[*h]
	if ok {
		delete(handles.clients, *h)
		handles.ids.Recycle(uint32(*h))
	}
	handles.Unlock()
	if !ok {
		return StatusError
	}

	c.Close()
	*h = 0
	return StatusOK
}

// Init sets the address and the request timeout in milliseconds.
func Init(h Handle, addr []byte, timeoutMs uint64) int {
	c := Client(h)
	if c == nil {
		return StatusError
	}
	if err := c.InitOptions(addr, Timeout(timeoutMs), nil); err != nil {
		return StatusError
	}
	return StatusOK
}

// Timeout converts a timeout in milliseconds.
func Timeout(ms uint64) time.Duration {
	if ms > uint64(math.MaxInt64/int64(time.Millisecond)) {
		return duplclient.Infinite
	}
	return time.Duration(ms) * time.Millisecond
}

// Request sends req and returns the reply with StatusOK, StatusTimedOut
// when the reply did not come in time, StatusError otherwise.
func Request(h Handle, req []byte, pretty bool) (string, int) {
	c := Client(h)
	if c == nil {
		return "", StatusError
	}

	reply, err := c.Request(req, pretty)
	switch {
	case err == nil:
		return reply, StatusOK
	case errors.Is(err, duplclient.ErrTimedOut):
		return "", StatusTimedOut
	}
	return "", StatusError
}

// LastError returns the NUL terminated message of the last failure, nil if
// there is none or h is unknown. The same slice is returned until the next
// failure.
func LastError(h Handle) []byte {
	c := Client(h)
	if c == nil {
		return nil
	}
	return c.LastError()
}
