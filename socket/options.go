package socket

import (
	"time"

	"github.com/multisocket/duplclient/options"
)

type socketOptions struct {
	// Linger is how long Close waits for a queued message to be written,
	// 0 drops it at once, negative waits forever.
	Linger options.TimeDurationOption
	// ReconnectInterval is the first wait after a failed dial or a broken
	// connection, it doubles up to ReconnectIntervalMax.
	ReconnectInterval    options.TimeDurationOption
	ReconnectIntervalMax options.TimeDurationOption
	// DialTimeout bounds a single dial attempt.
	DialTimeout options.TimeDurationOption
}

var (
	// OptionDomains is option's domain
	OptionDomains = []string{"Socket"}
	// Options for sockets
	Options = socketOptions{
		Linger:               options.NewTimeDurationOption(5 * time.Second),
		ReconnectInterval:    options.NewTimeDurationOption(100 * time.Millisecond),
		ReconnectIntervalMax: options.NewTimeDurationOption(2 * time.Second),
		DialTimeout:          options.NewTimeDurationOption(5 * time.Second),
	}
)

func init() {
	options.RegisterStructuredOptions(Options, OptionDomains)
}
