package ws

import (
	"github.com/multisocket/duplclient/options"
	"github.com/multisocket/duplclient/transport"
)

type (
	listenerOptions struct {
		CheckOrigin options.BoolOption
		PendingSize options.IntOption
	}

	wsOptions struct {
		ReadBufferSize  options.IntOption
		WriteBufferSize options.IntOption
		Listener        listenerOptions
	}
)

var (
	// OptionDomains is option's domain
	OptionDomains = append(append([]string{}, transport.OptionDomains...), "ws")
	// Options for websocket
	Options = wsOptions{
		ReadBufferSize:  options.NewIntOption(4 * 1024),
		WriteBufferSize: options.NewIntOption(4 * 1024),
		Listener: listenerOptions{
			CheckOrigin: options.NewBoolOption(false),
			PendingSize: options.NewIntOption(16),
		},
	}
)

func init() {
	options.RegisterStructuredOptions(Options, OptionDomains)
}
