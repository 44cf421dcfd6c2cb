// Package metrics exposes the node's prometheus counters and gauges:
// queue depth, events applied, snapshots confirmed, and journal append
// latency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "headnode",
		Subsystem: "node",
		Name:      "events_applied_total",
		Help:      "Number of events successfully applied by HeadLogic.Update, by outcome kind.",
	}, []string{"outcome"})

	EventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "headnode",
		Subsystem: "node",
		Name:      "events_dropped_total",
		Help:      "Number of events dropped because the live event queue or the wait list was full.",
	})

	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "headnode",
		Subsystem: "node",
		Name:      "queue_depth",
		Help:      "Current number of events buffered in the node's live event queue.",
	})

	SnapshotsConfirmed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "headnode",
		Subsystem: "headlogic",
		Name:      "snapshots_confirmed_total",
		Help:      "Number of snapshots that reached every party's acknowledgement.",
	})

	JournalAppendSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "headnode",
		Subsystem: "journal",
		Name:      "append_seconds",
		Help:      "Latency of a single EventJournal.Append call.",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(EventsApplied, EventsDropped, QueueDepth, SnapshotsConfirmed, JournalAppendSeconds)
}
