package duplclient

import (
	"strings"
)

type lastErrorState uint8

const (
	lastErrorNone lastErrorState = iota
	lastErrorNative
	lastErrorForeign
	lastErrorInvalid
)

// errorCannotBeDisplayed replaces messages that cannot be NUL terminated.
var errorCannotBeDisplayed = []byte("error message cannot be displayed\x00")

// lastError holds the message of the last failure, it is turned into a
// NUL terminated string only when asked for and only once.
type lastError struct {
	state   lastErrorState
	native  string
	foreign []byte
}

func (e *lastError) set(msg string) {
	e.state = lastErrorNative
	e.native = msg
	e.foreign = nil
}

func (e *lastError) reset() {
	*e = lastError{}
}

func (e *lastError) message() string {
	switch e.state {
	case lastErrorNative:
		return e.native
	case lastErrorForeign:
		return string(e.foreign[:len(e.foreign)-1])
	case lastErrorInvalid:
		return string(errorCannotBeDisplayed[:len(errorCannotBeDisplayed)-1])
	}
	return ""
}

func (e *lastError) bytes() []byte {
	switch e.state {
	case lastErrorForeign:
		return e.foreign
	case lastErrorInvalid:
		return errorCannotBeDisplayed
	case lastErrorNative:
		if strings.IndexByte(e.native, 0) >= 0 {
			e.state = lastErrorInvalid
			e.native = ""
			return errorCannotBeDisplayed
		}
		b := make([]byte, len(e.native)+1)
		copy(b, e.native)
		e.state = lastErrorForeign
		e.native = ""
		e.foreign = b
		return b
	}
	return nil
}
