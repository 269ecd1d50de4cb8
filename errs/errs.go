package errs

// Err is a constant error value.
type Err string

func (e Err) Error() string {
	return string(e)
}

// errors
const (
	ErrClosed                = Err("object is closed")
	ErrTimeout               = Err("operation time out")
	ErrBadOperateState       = Err("bad operation state")
	ErrAddrInUse             = Err("address already in use")
	ErrBadAddr               = Err("invalid address")
	ErrOperationNotSupported = Err("operation not supported")
	ErrBadTransport          = Err("invalid or unsupported transport")
	ErrBadProtocol           = Err("invalid or unsupported protocol")
	ErrBadMsg                = Err("bad message")
	ErrMsgTooLong            = Err("message is too long")
)
