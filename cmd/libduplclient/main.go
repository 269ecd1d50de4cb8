// Command libduplclient builds the C library of the client, see
// dupl_client.h:
//
//	go build -buildmode=c-shared -o libdupl_client.so ./cmd/libduplclient
package main

/*
#include <stdlib.h>
#include <string.h>
#include <stdint.h>

typedef uintptr_t dupl_client_t;
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/multisocket/duplclient/capi"
)

// cstate is the C memory handed out for one handle.
type cstate struct {
	reply unsafe.Pointer
	// errSrc is the message errC was copied from
	errSrc *byte
	errC   unsafe.Pointer
}

var cstates = struct {
	sync.Mutex
	m map[capi.Handle]*cstate
}{m: make(map[capi.Handle]*cstate)}

func stateOf(h capi.Handle) *cstate {
	st := cstates.m[h]
	if st == nil {
		st = &cstate{}
		cstates.m[h] = st
	}
	return st
}

func (st *cstate) free() {
	if st.reply != nil {
		C.free(st.reply)
	}
	if st.errC != nil {
		C.free(st.errC)
	}
	*st = cstate{}
}

//export dupl_client_create
func dupl_client_create(dc *C.dupl_client_t) C.int {
	if dc == nil {
		return 1
	}
	var h capi.Handle
	if status := capi.Create(&h); status != capi.StatusOK {
		return C.int(status)
	}
	*dc = C.dupl_client_t(h)
	return 0
}

//export dupl_client_close
func dupl_client_close(dc *C.dupl_client_t) C.int {
	if dc == nil {
		return 1
	}
	h := capi.Handle(*dc)
	if status := capi.Close(&h); status != capi.StatusOK {
		return C.int(status)
	}

	cstates.Lock()
	if st, ok := cstates.m[capi.Handle(*dc)]; ok {
		st.free()
		delete(cstates.m, capi.Handle(*dc))
	}
	cstates.Unlock()
	*dc = 0
	return 0
}

//export dupl_client_init
func dupl_client_init(dc C.dupl_client_t, addr *C.char, timeoutMs C.ulong) C.int {
	if addr == nil {
		return 1
	}
	ms := uint64(timeoutMs)
	if timeoutMs == ^C.ulong(0) {
		ms = capi.InfiniteTimeoutMs
	}
	return C.int(capi.Init(capi.Handle(dc), C.GoBytes(unsafe.Pointer(addr), C.int(C.strlen(addr))), ms))
}

//export dupl_client_request
func dupl_client_request(dc C.dupl_client_t, reqJSON *C.char, reqJSONLength C.size_t,
	repJSON **C.char, repJSONLength *C.size_t, prettyPrint C.int) C.int {
	if dc == 0 || reqJSON == nil {
		return 1
	}

	h := capi.Handle(dc)
	req := unsafe.Slice((*byte)(unsafe.Pointer(reqJSON)), int(reqJSONLength))
	reply, status := capi.Request(h, req, prettyPrint != 0)
	if status != capi.StatusOK {
		return C.int(status)
	}

	b := make([]byte, len(reply)+1)
	copy(b, reply)
	cs := C.CBytes(b)

	cstates.Lock()
	st := stateOf(h)
	if st.reply != nil {
		C.free(st.reply)
	}
	st.reply = cs
	cstates.Unlock()

	if repJSON != nil {
		*repJSON = (*C.char)(cs)
	}
	if repJSONLength != nil {
		*repJSONLength = C.size_t(len(reply))
	}
	return 0
}

//export dupl_client_last_error
func dupl_client_last_error(dc C.dupl_client_t) *C.char {
	h := capi.Handle(dc)
	msg := capi.LastError(h)
	if msg == nil {
		return nil
	}

	cstates.Lock()
	defer cstates.Unlock()
	st := stateOf(h)
	if st.errSrc != &msg[0] {
		if st.errC != nil {
			C.free(st.errC)
		}
		st.errC = C.CBytes(msg)
		st.errSrc = &msg[0]
	}
	return (*C.char)(st.errC)
}

func main() {}
