package duplclient

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/multisocket/duplclient/internal/responder"
	"github.com/stretchr/testify/require"
)

var (
	textSizes = []struct {
		name string
		sz   int
	}{
		{"16B", 16},
		{"1KB", 1024},
		{"16KB", 16 * 1024},
	}

	transports = []struct {
		name string
		addr func() string
	}{
		{"inproc", nextAddr},
		{"ipc", func() string {
			return "ipc://" + filepath.Join(os.TempDir(), fmt.Sprintf("duplclient-%d.sock", rand.Int63()))
		}},
		{"tcp", func() string { return "tcp://127.0.0.1:0" }},
		{"ws", func() string { return "ws://127.0.0.1:0/dupl" }},
	}
)

func lookupOf(text string) []byte {
	return []byte(strings.Replace(lookupJSON, "some text to lookup", text, 1))
}

func TestRequestTransports(t *testing.T) {
	for _, tp := range transports {
		tp := tp
		t.Run(tp.name, func(t *testing.T) {
			r, err := responder.Listen(tp.addr(), nil, nil)
			require.NoError(t, err)
			defer r.Close()
			c := newTestClient(t, r.Address(), 5*time.Second)

			for _, size := range textSizes {
				text := strings.Repeat("x", size.sz)
				reply, err := c.Request(lookupOf(text), false)
				require.NoError(t, err, size.name)
				require.Equal(t, text, lookupText(t, reply), size.name)
			}
			require.Equal(t, 1, r.Accepted())
		})
	}
}

func BenchmarkRequestLatency(b *testing.B) {
	for _, size := range textSizes {
		size := size
		b.Run(size.name, func(b *testing.B) {
			for _, tp := range transports {
				tp := tp
				b.Run(tp.name, func(b *testing.B) {
					benchmarkRequestLatency(b, tp.addr(), size.sz)
				})
			}
		})
	}
}

func benchmarkRequestLatency(b *testing.B, addr string, sz int) {
	r, err := responder.Listen(addr, nil, nil)
	if err != nil {
		b.Fatalf("listen: %v", err)
	}
	defer r.Close()

	c := New()
	defer c.Close()
	if err = c.Init(r.Address(), 5*time.Second); err != nil {
		b.Fatalf("init: %v", err)
	}
	body := lookupOf(strings.Repeat("x", sz))
	// connect outside of the timing
	if _, err = c.Request(body, false); err != nil {
		b.Fatalf("request: %v", err)
	}

	b.SetBytes(int64(sz))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err = c.Request(body, false); err != nil {
			b.Fatalf("request: %v", err)
		}
	}
}
