package duplclient

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterMetrics(reg))
	assert.Error(t, RegisterMetrics(reg))
}

func TestRequestMetrics(t *testing.T) {
	var (
		ok       = testutil.ToFloat64(requestsTotal.WithLabelValues(resultOK))
		failed   = testutil.ToFloat64(requestsTotal.WithLabelValues(resultError))
		timedOut = testutil.ToFloat64(requestsTotal.WithLabelValues(resultTimedOut))
		connects = testutil.ToFloat64(connectsTotal)
		drops    = testutil.ToFloat64(disconnectsTotal.WithLabelValues(resultTimedOut))
	)

	r := startResponder(t, nil)
	c := newTestClient(t, r.Address(), time.Second)
	_, err := c.Request([]byte(lookupJSON), false)
	require.NoError(t, err)
	_, err = c.Request([]byte("nope"), false)
	require.Error(t, err)

	idle := newTestClient(t, nextAddr(), 10*time.Millisecond)
	_, err = idle.Request([]byte(lookupJSON), false)
	require.Equal(t, ErrTimedOut, err)

	assert.Equal(t, ok+1, testutil.ToFloat64(requestsTotal.WithLabelValues(resultOK)))
	assert.Equal(t, failed+1, testutil.ToFloat64(requestsTotal.WithLabelValues(resultError)))
	assert.Equal(t, timedOut+1, testutil.ToFloat64(requestsTotal.WithLabelValues(resultTimedOut)))
	assert.Equal(t, connects+2, testutil.ToFloat64(connectsTotal))
	assert.Equal(t, drops+1, testutil.ToFloat64(disconnectsTotal.WithLabelValues(resultTimedOut)))
}
