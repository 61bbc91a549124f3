// Package metrics defines prometheus metric types for the control-plane
// transport core: netlink syscall latency, transact retries, PID-bitmap
// exhaustion, and vconn byte/connection counters.
//
// When defining new operations or metrics, these are helpful values to track:
//  - things coming into or go out of the system: requests, files, tests, api calls.
//  - the success or error status of any of the above.
//  - the distribution of processing latency.
package metrics

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyscallTimeHistogram tracks the latency of netlink operations,
	// labeled by op: "transact" for a whole Socket.Transact call and
	// "genl-lookup" for a family-name resolution. Both include the time to
	// parse the replies.
	SyscallTimeHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "ofcore_syscall_time_histogram",
			Help: "netlink syscall latency distribution (seconds)",
			Buckets: []float64{
				0.001, 0.00125, 0.0016, 0.002, 0.0025, 0.0032, 0.004, 0.005, 0.0063, 0.0079,
				0.01, 0.0125, 0.016, 0.02, 0.025, 0.032, 0.04, 0.05, 0.063, 0.079,
				0.1, 0.125, 0.16, 0.2,
			},
		},
		[]string{"op"})

	// PollingHistogram tracks how long each poll() call in cmd/ofdaemon's
	// event loop takes to return.
	PollingHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ofcore_polling_interval_histogram",
			Help:    "poll loop iteration interval distribution (seconds)",
			Buckets: prometheus.LinearBuckets(0, .001, 20),
		},
	)

	// ErrorCount measures the number of errors.
	// Provides metrics:
	//    ofcore_error_total
	// Example usage:
	//    metrics.ErrorCount.With(prometheus.Labels{"type": "nobufs-pid"}).Inc()
	ErrorCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ofcore_error_total",
			Help: "The total number of errors encountered.",
		}, []string{"type"})

	// TransactRetryCount counts the corrective-action branches inside
	// nlsock.Socket.Transact: an ENOBUFS-triggered resend, or a reply
	// discarded for a sequence/pid mismatch.
	TransactRetryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ofcore_transact_retry_total",
			Help: "Number of Transact retries, by reason.",
		}, []string{"reason"})

	// DatapathCountHistogram tracks the number of datapaths returned by
	// each datapath.List call.
	DatapathCountHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ofcore_datapath_count_histogram",
			Help:    "datapath count per List() call",
			Buckets: prometheus.LinearBuckets(0, 1, 16),
		},
	)

	// VconnBytesSent counts bytes written by ofconn vconns, labeled by
	// scheme (tcp/ptcp).
	VconnBytesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ofcore_vconn_bytes_sent_total",
			Help: "Bytes written through a vconn.",
		}, []string{"scheme"})

	// VconnBytesReceived counts bytes read by ofconn vconns, labeled by
	// scheme.
	VconnBytesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ofcore_vconn_bytes_received_total",
			Help: "Bytes read through a vconn.",
		}, []string{"scheme"})

	// VconnAcceptedCount counts connections accepted by a passive vconn.
	VconnAcceptedCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ofcore_vconn_accepted_total",
			Help: "Number of connections accepted by a ptcp vconn.",
		},
	)
)

// init logs that the package's metrics have been registered. The metrics
// are auto-registered, which means they are registered as soon as this
// package is loaded, and the exact time this occurs (and whether it occurs
// at all in a given context) can be opaque.
func init() {
	log.Println("Prometheus metrics in ofcore.metrics are registered.")
}
