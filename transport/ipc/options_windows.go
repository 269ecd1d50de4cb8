//go:build windows

package ipc

import (
	"github.com/multisocket/duplclient/options"
	"github.com/multisocket/duplclient/transport"
)

type (
	listenerOptions struct {
		// SecurityDescriptor represents a Windows security
		// descriptor in SDDL format.
		SecurityDescriptor options.StringOption
		// InputBufferSize is the named pipe input buffer size in bytes.
		InputBufferSize options.IntOption
		// OutputBufferSize is the named pipe output buffer size in bytes.
		OutputBufferSize options.IntOption
	}

	ipcOptions struct {
		Listener listenerOptions
	}
)

var (
	// OptionDomains is option's domain
	OptionDomains = append(append([]string{}, transport.OptionDomains...), "ipc")
	// Options for windows named pipes
	Options = ipcOptions{
		Listener: listenerOptions{
			SecurityDescriptor: options.NewStringOption(""),
			InputBufferSize:    options.NewIntOption(4096),
			OutputBufferSize:   options.NewIntOption(4096),
		},
	}
)

func init() {
	options.RegisterStructuredOptions(Options, OptionDomains)
}
