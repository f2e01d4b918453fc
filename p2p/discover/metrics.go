package discover

import "github.com/ethnode/discv5/metrics"

// reactorMetrics bundles the counters, gauges and histograms the reactor
// updates as it runs, backed by a shared metrics.Registry. The names used
// here are exactly the ones metrics.DefaultRegistry pre-creates in
// standard.go, so a reactor built with an unset or explicit DefaultRegistry
// updates the same metric objects a caller already holds a reference to.
type reactorMetrics struct {
	tableSize          *metrics.Gauge
	evictionsApplied   *metrics.Counter
	pendingChallenges  *metrics.Counter
	lookupsStarted     *metrics.Counter
	lookupsFinished    *metrics.Counter
	lookupDuration     *metrics.Histogram
	requestsSent       *metrics.Counter
	requestsMatched    *metrics.Counter
	requestsMismatched *metrics.Counter
	requestsTimedOut   *metrics.Counter
	connectedPeers     *metrics.Gauge
	messagesReceived   *metrics.Counter
	messagesSent       *metrics.Counter
}

func newReactorMetrics(reg *metrics.Registry) *reactorMetrics {
	if reg == nil {
		reg = metrics.DefaultRegistry
	}
	return &reactorMetrics{
		tableSize:          reg.Gauge("table.size"),
		evictionsApplied:   reg.Counter("table.evictions_applied"),
		pendingChallenges:  reg.Counter("table.pending_challenges"),
		lookupsStarted:     reg.Counter("lookup.started"),
		lookupsFinished:    reg.Counter("lookup.finished"),
		lookupDuration:     reg.Histogram("lookup.duration_ms"),
		requestsSent:       reg.Counter("requests.sent"),
		requestsMatched:    reg.Counter("requests.matched"),
		requestsMismatched: reg.Counter("requests.mismatched"),
		requestsTimedOut:   reg.Counter("requests.timed_out"),
		connectedPeers:     reg.Gauge("p2p.peers"),
		messagesReceived:   reg.Counter("p2p.messages_received"),
		messagesSent:       reg.Counter("p2p.messages_sent"),
	}
}
