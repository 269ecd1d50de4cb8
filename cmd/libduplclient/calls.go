package main

/*
#include <stdlib.h>
#include <stdint.h>

typedef uintptr_t dupl_client_t;
*/
import "C"

import (
	"unsafe"

	"github.com/multisocket/duplclient/capi"
)

// Go side of the exported calls, the way a C caller makes them. Used by the
// package tests, which cannot use cgo themselves.

func callCreate() (uintptr, int) {
	var dc C.dupl_client_t
	status := dupl_client_create(&dc)
	return uintptr(dc), int(status)
}

func callClose(h uintptr) (uintptr, int) {
	dc := C.dupl_client_t(h)
	status := dupl_client_close(&dc)
	return uintptr(dc), int(status)
}

func callInit(h uintptr, addr string, timeoutMs uint64) int {
	caddr := C.CString(addr)
	defer C.free(unsafe.Pointer(caddr))
	return int(dupl_client_init(C.dupl_client_t(h), caddr, C.ulong(timeoutMs)))
}

// callRequest returns the reply pointer owned by the handle and its text.
func callRequest(h uintptr, req string, pretty bool) (unsafe.Pointer, string, int) {
	creq := C.CString(req)
	defer C.free(unsafe.Pointer(creq))
	var (
		rep    *C.char
		repLen C.size_t
		pp     C.int
	)
	if pretty {
		pp = 1
	}
	status := dupl_client_request(C.dupl_client_t(h), creq, C.size_t(len(req)), &rep, &repLen, pp)
	if status != 0 {
		return nil, "", int(status)
	}
	return unsafe.Pointer(rep), C.GoStringN(rep, C.int(repLen)), 0
}

func callLastError(h uintptr) (unsafe.Pointer, string) {
	msg := dupl_client_last_error(C.dupl_client_t(h))
	if msg == nil {
		return nil, ""
	}
	return unsafe.Pointer(msg), C.GoString(msg)
}

// heldReply is the reply memory the handle currently owns.
func heldReply(h uintptr) (unsafe.Pointer, bool) {
	cstates.Lock()
	defer cstates.Unlock()
	st, ok := cstates.m[capi.Handle(h)]
	if !ok {
		return nil, false
	}
	return st.reply, true
}
