package transport

import (
	"github.com/multisocket/duplclient/options"
)

type transportOptions struct {
	// MaxRecvMsgSize bounds a received frame, 0 means unlimited.
	MaxRecvMsgSize options.Uint32Option
}

var (
	// OptionDomains is option's domain
	OptionDomains = []string{"Transport"}
	// Options for all transports
	Options = transportOptions{
		MaxRecvMsgSize: options.NewUint32Option(4 * 1024 * 1024),
	}
)

func init() {
	options.RegisterStructuredOptions(Options, OptionDomains)
}
