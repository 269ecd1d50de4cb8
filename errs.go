package duplclient

import (
	"github.com/multisocket/duplclient/errs"
)

// errors
const (
	ErrAlreadyInitialized = errs.Err("already initialized")
	ErrNotInitialized     = errs.Err("not initialized")
	ErrEmptyAddr          = errs.Err("invalid zero length address")
	ErrBadAddr            = errs.ErrBadAddr
	ErrRequestUTF8        = errs.Err("request utf8 error")
	ErrRequestParse       = errs.Err("request parse failed")
	ErrReplyDecode        = errs.Err("rep packet decoding fail")
	ErrReplyRender        = errs.Err("rep json rendering failed")
	ErrTimedOut           = errs.Err("timed out")
	ErrClosed             = errs.Err("client is closed")
)
