package discover

import (
	"testing"

	"github.com/ethnode/discv5/p2p/enode"
)

func seedIDs(self enode.NodeID, n int) []enode.NodeID {
	ids := make([]enode.NodeID, n)
	for i := 0; i < n; i++ {
		ids[i] = idAtDistance(self, i+1)
	}
	return ids
}

func TestNewLookupNoSeedsIsDone(t *testing.T) {
	target := enode.NodeID{}
	l := NewLookup(1, target, DefaultAlpha, DefaultNumResults, nil)
	if !l.Finished() {
		t.Fatal("lookup with no seeds should be immediately finished")
	}
}

func TestLookupPeersRespectsAlpha(t *testing.T) {
	target := enode.NodeID{}
	seeds := seedIDs(target, 10)
	l := NewLookup(1, target, 3, 16, seeds)

	batch := l.Peers()
	if len(batch) != 3 {
		t.Fatalf("first batch = %d peers, want 3 (alpha)", len(batch))
	}
	if more := l.Peers(); len(more) != 0 {
		t.Fatalf("no more peers should be available while alpha in flight, got %d", len(more))
	}
}

func TestLookupOnSuccessMergesNewPeers(t *testing.T) {
	target := enode.NodeID{}
	seeds := seedIDs(target, 3)
	l := NewLookup(1, target, 3, 16, seeds)

	batch := l.Peers()
	if len(batch) != 3 {
		t.Fatalf("expected 3 peers queried, got %d", len(batch))
	}

	fresh := idAtDistance(target, 50)
	l.OnSuccess(batch[0], []enode.NodeID{fresh})

	next := l.Peers()
	found := false
	for _, id := range next {
		if id == fresh {
			found = true
		}
	}
	if !found {
		t.Fatalf("newly merged peer should be queryable, got %v", next)
	}
}

func TestLookupCandidateAtTargetMarkedFailed(t *testing.T) {
	target := enode.NodeID{}
	l := NewLookup(1, target, 3, 16, []enode.NodeID{target})

	batch := l.Peers()
	if len(batch) != 0 {
		t.Fatalf("the target itself should never be returned as a candidate, got %v", batch)
	}
	if !l.Finished() {
		t.Fatal("lookup whose only candidate is the target should finish immediately")
	}
}

func TestLookupFinishedAfterAllQueried(t *testing.T) {
	target := enode.NodeID{}
	seeds := seedIDs(target, 2)
	l := NewLookup(1, target, 3, 16, seeds)

	batch := l.Peers()
	for _, id := range batch {
		l.OnSuccess(id, nil)
	}
	if !l.Finished() {
		t.Fatal("lookup should finish once all known candidates are queried and no better ones remain")
	}
}

func TestLookupClosestOrderedAndBounded(t *testing.T) {
	target := enode.NodeID{}
	seeds := seedIDs(target, 5)
	l := NewLookup(1, target, 5, 3, seeds)

	batch := l.Peers()
	for _, id := range batch {
		l.OnSuccess(id, nil)
	}
	closest := l.Closest()
	if len(closest) != 3 {
		t.Fatalf("Closest() len = %d, want numResults=3", len(closest))
	}
	for i := 1; i < len(closest); i++ {
		if enode.DistCmp(target, closest[i-1], closest[i]) > 0 {
			t.Fatalf("Closest() not sorted ascending: %v", closest)
		}
	}
}

func TestLookupOnFailureExcludesFromClosest(t *testing.T) {
	target := enode.NodeID{}
	seeds := seedIDs(target, 2)
	l := NewLookup(1, target, 3, 16, seeds)

	batch := l.Peers()
	l.OnSuccess(batch[0], nil)
	l.OnFailure(batch[1])

	closest := l.Closest()
	if len(closest) != 1 || closest[0] != batch[0] {
		t.Fatalf("Closest() = %v, want only the succeeded peer", closest)
	}
}

func TestRememberUntrustedDedup(t *testing.T) {
	target := enode.NodeID{}
	l := NewLookup(1, target, 3, 16, seedIDs(target, 1))

	id := idAtDistance(target, 99)
	rec := NewNodeRecord(id, 1, nil, 0)
	if !l.RememberUntrusted(rec) {
		t.Fatal("first RememberUntrusted should report newly added")
	}
	if l.RememberUntrusted(rec) {
		t.Fatal("second RememberUntrusted of the same id should report not new")
	}
	got, ok := l.UntrustedENR(id)
	if !ok || got.ID != id {
		t.Fatalf("UntrustedENR lookup failed: %v %v", got, ok)
	}
}
