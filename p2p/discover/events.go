package discover

import "github.com/ethnode/discv5/p2p/enode"

// CoreEvent is the discriminated union of events the reactor emits outward,
// for a caller that wants to observe routing table churn and discovery
// traffic without polling.
type CoreEvent interface{ coreEvent() }

// EventEnrAdded fires whenever the routing table gains or loses an entry:
// Inserted is set on a fresh insertion or eviction-driven promotion,
// Evicted is set when an eviction displaced an existing entry (nil
// otherwise).
type EventEnrAdded struct {
	Inserted *NodeRecord
	Evicted  *NodeRecord
}

// EventDiscovered fires for every ENR observed in a NODES response, whether
// or not it ends up in the routing table.
type EventDiscovered struct {
	Record *NodeRecord
}

// EventTalkReqReceived is a reserved extension point for protocols layered
// on top of discv5's TALKREQ/TALKRESP messages. The core does not currently
// decode or route these; it exists so a future handler has a home without
// changing the CoreEvent union's shape.
type EventTalkReqReceived struct {
	SrcID    enode.NodeID
	Protocol string
	Message  []byte
}

func (EventEnrAdded) coreEvent()         {}
func (EventDiscovered) coreEvent()       {}
func (EventTalkReqReceived) coreEvent()  {}
