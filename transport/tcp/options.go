package tcp

import (
	"github.com/multisocket/duplclient/options"
	"github.com/multisocket/duplclient/transport"
)

type tcpOptions struct {
	NoDelay   options.BoolOption
	KeepAlive options.BoolOption
	// KeepAliveTime 0 keeps the system default period.
	KeepAliveTime options.TimeDurationOption
}

var (
	// OptionDomains is option's domain
	OptionDomains = append(append([]string{}, transport.OptionDomains...), "tcp")
	// Options for tcp
	Options = tcpOptions{
		NoDelay:       options.NewBoolOption(true),
		KeepAlive:     options.NewBoolOption(true),
		KeepAliveTime: options.NewTimeDurationOption(0),
	}
)

func init() {
	options.RegisterStructuredOptions(Options, OptionDomains)
}
