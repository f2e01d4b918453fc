package metrics

// Pre-defined metrics for a discv5 node. All metrics live in DefaultRegistry
// so they are globally accessible without passing a registry around. The
// reactor's own metrics (see discover.Config.Registry) are created under
// these same names, so a caller that leaves Registry unset -- or sets it to
// DefaultRegistry explicitly, as cmd/discv5node does -- observes the live
// reactor through these exact variables.

var (
	// ---- Routing table metrics ----

	// TableSize tracks the number of entries currently held across all
	// k-buckets.
	TableSize = DefaultRegistry.Gauge("table.size")
	// EvictionsApplied counts completed bucket evictions (a pending
	// candidate replaced the bucket's least-recently-seen entry).
	EvictionsApplied = DefaultRegistry.Counter("table.evictions_applied")
	// PendingChallenges counts eviction challenges issued (a PING sent to
	// the entry a candidate is contending to replace).
	PendingChallenges = DefaultRegistry.Counter("table.pending_challenges")

	// ---- Lookup metrics ----

	// LookupsStarted counts iterative lookups initiated.
	LookupsStarted = DefaultRegistry.Counter("lookup.started")
	// LookupsFinished counts iterative lookups that converged.
	LookupsFinished = DefaultRegistry.Counter("lookup.finished")
	// LookupDuration records lookup wall-clock time in milliseconds.
	LookupDuration = DefaultRegistry.Histogram("lookup.duration_ms")

	// ---- Request/response metrics ----

	// RequestsSent counts outbound PING/FINDNODE requests.
	RequestsSent = DefaultRegistry.Counter("requests.sent")
	// RequestsMatched counts responses matched to an outstanding request.
	RequestsMatched = DefaultRegistry.Counter("requests.matched")
	// RequestsMismatched counts responses discarded because their kind did
	// not match what the pending request expected.
	RequestsMismatched = DefaultRegistry.Counter("requests.mismatched")
	// RequestsTimedOut counts requests the session layer reported as
	// failed (WHOAREYOU never answered, handshake timed out, and so on).
	RequestsTimedOut = DefaultRegistry.Counter("requests.timed_out")

	// ---- Session/peer metrics ----

	// ConnectedPeers tracks the number of peers with an established session
	// that the reactor keeps alive with periodic pings.
	ConnectedPeers = DefaultRegistry.Gauge("p2p.peers")
	// MessagesReceived counts discv5 messages received from the session
	// layer.
	MessagesReceived = DefaultRegistry.Counter("p2p.messages_received")
	// MessagesSent counts discv5 messages sent through the session layer.
	MessagesSent = DefaultRegistry.Counter("p2p.messages_sent")
)
