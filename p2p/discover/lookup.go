package discover

import (
	"sort"

	"github.com/ethnode/discv5/p2p/enode"
)

type peerState uint8

const (
	peerUnqueried peerState = iota
	peerQueried
	peerSucceeded
	peerFailed
)

type lookupPeer struct {
	id    enode.NodeID
	state peerState
}

// Lookup is a pure pull-style state machine driving one iterative search
// toward target. It has no internal timers or goroutines: the reactor
// calls Peers to learn which candidates to probe next, and reports the
// outcome of each probe back through OnSuccess/OnFailure.
type Lookup struct {
	id         uint32
	target     enode.NodeID
	alpha      int
	numResults int

	peers    []*lookupPeer // sorted ascending distance to target
	inFlight int
	done     bool

	untrusted map[enode.NodeID]*NodeRecord
}

// NewLookup creates a lookup for target, seeded with the given candidate
// ids (typically kbuckets.Nearest(target, numResults)).
func NewLookup(id uint32, target enode.NodeID, alpha, numResults int, seeds []enode.NodeID) *Lookup {
	l := &Lookup{
		id:         id,
		target:     target,
		alpha:      alpha,
		numResults: numResults,
		untrusted:  make(map[enode.NodeID]*NodeRecord),
	}
	for _, s := range seeds {
		l.insert(s)
	}
	if len(l.peers) == 0 {
		l.done = true
	}
	return l
}

// ID returns the lookup's identifier.
func (l *Lookup) ID() uint32 { return l.id }

// Target returns the node id being searched for.
func (l *Lookup) Target() enode.NodeID { return l.target }

func (l *Lookup) insert(id enode.NodeID) *lookupPeer {
	for _, p := range l.peers {
		if p.id == id {
			return p
		}
	}
	p := &lookupPeer{id: id}
	i := sort.Search(len(l.peers), func(i int) bool {
		return enode.DistCmp(l.target, id, l.peers[i].id) < 0
	})
	l.peers = append(l.peers, nil)
	copy(l.peers[i+1:], l.peers[i:])
	l.peers[i] = p
	return p
}

// Peers returns up to (alpha - inFlight) peers to probe next, transitioning
// them to the "queried" state. A candidate whose distance to target is
// zero (the candidate IS the target) is never returned: the lookup marks
// it failed immediately, since asking it to find itself is meaningless.
func (l *Lookup) Peers() []enode.NodeID {
	if l.done {
		return nil
	}
	var out []enode.NodeID
	for _, p := range l.peers {
		if l.inFlight >= l.alpha {
			break
		}
		if p.state != peerUnqueried {
			continue
		}
		if enode.Distance(l.target, p.id) == 0 {
			p.state = peerFailed
			continue
		}
		p.state = peerQueried
		l.inFlight++
		out = append(out, p.id)
	}
	l.checkDone()
	return out
}

func (l *Lookup) find(id enode.NodeID) *lookupPeer {
	for _, p := range l.peers {
		if p.id == id {
			return p
		}
	}
	return nil
}

// OnSuccess records that from answered with newIDs, merging previously
// unseen candidates into the queue.
func (l *Lookup) OnSuccess(from enode.NodeID, newIDs []enode.NodeID) {
	if p := l.find(from); p != nil && p.state == peerQueried {
		p.state = peerSucceeded
		l.inFlight--
	}
	for _, id := range newIDs {
		l.insert(id)
	}
	l.checkDone()
}

// OnFailure records that the probe to from failed terminally.
func (l *Lookup) OnFailure(from enode.NodeID) {
	if p := l.find(from); p != nil && p.state == peerQueried {
		p.state = peerFailed
		l.inFlight--
	}
	l.checkDone()
}

// RememberUntrusted records enr as a not-yet-verified discovery belonging
// to this lookup. Returns true iff enr.ID was not already recorded
// (callers use this to compute the "previously unseen" id list).
func (l *Lookup) RememberUntrusted(e *NodeRecord) bool {
	if _, ok := l.untrusted[e.ID]; ok {
		return false
	}
	l.untrusted[e.ID] = e
	return true
}

// UntrustedENR returns a record this lookup has seen but that may not yet
// be in the routing table.
func (l *Lookup) UntrustedENR(id enode.NodeID) (*NodeRecord, bool) {
	e, ok := l.untrusted[id]
	return e, ok
}

func (l *Lookup) succeededSorted() []*lookupPeer {
	var out []*lookupPeer
	for _, p := range l.peers {
		if p.state == peerSucceeded {
			out = append(out, p)
		}
	}
	return out
}

// checkDone applies the termination condition: no probe in flight, and no
// remaining unqueried candidate could improve on the current top
// numResults successes.
func (l *Lookup) checkDone() {
	if l.done || l.inFlight > 0 {
		return
	}
	succeeded := l.succeededSorted()
	hasFullSet := len(succeeded) >= l.numResults
	var threshold enode.NodeID
	if hasFullSet {
		threshold = succeeded[l.numResults-1].id
	}
	for _, p := range l.peers {
		if p.state != peerUnqueried {
			continue
		}
		if !hasFullSet || enode.DistCmp(l.target, p.id, threshold) < 0 {
			return
		}
	}
	l.done = true
}

// Finished reports whether the lookup has converged.
func (l *Lookup) Finished() bool { return l.done }

// Closest returns the top numResults successfully-queried node ids,
// ascending by distance to target.
func (l *Lookup) Closest() []enode.NodeID {
	succeeded := l.succeededSorted()
	if len(succeeded) > l.numResults {
		succeeded = succeeded[:l.numResults]
	}
	out := make([]enode.NodeID, len(succeeded))
	for i, p := range succeeded {
		out[i] = p.id
	}
	return out
}
