package transport

import (
	"github.com/multisocket/duplclient/errs"
)

// errors
const (
	ErrConnRefused  = errs.Err("connection refused")
	ErrNotListening = errs.Err("not listening")
)
