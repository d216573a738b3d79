package raft

import "github.com/prometheus/client_golang/prometheus"

// Collector exposes the consensus module's ambient observability surface:
// elections, commit latency, log size, term, and leadership status.
type Collector struct {
	Elections      prometheus.Counter
	CommitLatency  prometheus.Histogram
	LogSize        prometheus.Gauge
	CurrentTerm    prometheus.Gauge
	IsLeaderGauge  prometheus.Gauge
}

// NewCollector builds and registers a Collector under reg, tagging every
// metric with the node's ID.
func NewCollector(reg prometheus.Registerer, nodeID string) *Collector {
	labels := prometheus.Labels{"node_id": nodeID}

	c := &Collector{
		Elections: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "chatraft_elections_started_total",
			Help:        "Number of elections this node has started as candidate.",
			ConstLabels: labels,
		}),
		CommitLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "chatraft_commit_latency_seconds",
			Help:        "Latency from Propose until the entry is committed and applied, for commands submitted via SubmitCommand.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
		LogSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "chatraft_log_entries",
			Help:        "Number of entries currently held in the durable log.",
			ConstLabels: labels,
		}),
		CurrentTerm: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "chatraft_current_term",
			Help:        "Current Raft term observed by this node.",
			ConstLabels: labels,
		}),
		IsLeaderGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "chatraft_is_leader",
			Help:        "1 if this node currently believes it is the leader, else 0.",
			ConstLabels: labels,
		}),
	}

	if reg != nil {
		reg.MustRegister(c.Elections, c.CommitLatency, c.LogSize, c.CurrentTerm, c.IsLeaderGauge)
	}
	return c
}

// noopCollector is used when no registry is supplied (e.g. in tests), so
// call sites never need a nil check.
func noopCollector() *Collector {
	return NewCollector(nil, "unregistered")
}
