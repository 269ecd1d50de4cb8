package duplclient

import (
	"github.com/prometheus/client_golang/prometheus"
)

// request results
const (
	resultOK       = "ok"
	resultError    = "error"
	resultTimedOut = "timed_out"
)

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "duplclient",
		Name:      "requests_total",
		Help:      "Total number of requests by result",
	}, []string{"result"}) // result: ok/error/timed_out

	requestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "duplclient",
		Name:      "request_duration_seconds",
		Help:      "Duration of requests, including the wait for the reply",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms ~ 8s
	})

	connectsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "duplclient",
		Name:      "connects_total",
		Help:      "Total number of sockets opened to the service",
	})

	disconnectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "duplclient",
		Name:      "disconnects_total",
		Help:      "Total number of sockets dropped",
	}, []string{"reason"}) // reason: timed_out/transport/close
)

// RegisterMetrics registers the client metrics with r.
func RegisterMetrics(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{requestsTotal, requestDuration, connectsTotal, disconnectsTotal} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}
