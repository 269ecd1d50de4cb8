// Package address parses service addresses that carry socket and transport
// options in their query, e.g.
//
//	tcp://127.0.0.1:5555?Socket.ReconnectInterval=50ms&Transport.tcp.NoDelay=false
package address

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/multisocket/duplclient/errs"
	"github.com/multisocket/duplclient/options"
)

// Address is a transport address with option values.
type Address struct {
	raw  string
	addr string
	ovs  options.OptionValues
}

// Parse splits s into the transport address and the options of its query.
// Option names are case insensitive, unknown names are an error.
func Parse(s string) (*Address, error) {
	i := strings.IndexByte(s, '?')
	if i < 0 {
		return &Address{raw: s, addr: s}, nil
	}

	q, err := url.ParseQuery(s[i+1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrBadAddr, err)
	}
	ovs := make(options.OptionValues, len(q))
	for k := range q {
		opt, err := options.ParseOption(k)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrBadAddr, err)
		}
		val, err := opt.Parse(q.Get(k))
		if err != nil {
			return nil, fmt.Errorf("%w: option %s: %v", errs.ErrBadAddr, opt.Name(), err)
		}
		ovs[opt] = val
	}

	return &Address{raw: s, addr: s[:i], ovs: ovs}, nil
}

func (a *Address) String() string {
	return a.raw
}

// Address is the transport address without the options.
func (a *Address) Address() string {
	return a.addr
}

// OptionNames lists the options of the address, sorted.
func (a *Address) OptionNames() []string {
	names := make([]string, 0, len(a.ovs))
	for opt := range a.ovs {
		names = append(names, opt.Name())
	}
	sort.Strings(names)
	return names
}

// OptionValues merges the address options with ovses, later values win.
func (a *Address) OptionValues(ovses ...options.OptionValues) options.OptionValues {
	xovs := options.OptionValues{}
	for o, v := range a.ovs {
		xovs[o] = v
	}
	for _, ovs := range ovses {
		for o, v := range ovs {
			xovs[o] = v
		}
	}
	return xovs
}
