package discover

import (
	"sort"

	"github.com/ethnode/discv5/p2p/enode"
)

// Status is the liveness state of a routing-table entry.
type Status uint8

const (
	StatusDisconnected Status = iota
	StatusConnected
)

// Entry is a routing-table slot's payload.
type Entry struct {
	Record *NodeRecord
	Status Status
}

// EvictionObserver receives the routing table's eviction-protocol callbacks.
// The reactor implements this interface: it is the only permitted mutator
// of the table, so these calls always land back on the reactor's own
// single-threaded event loop.
type EvictionObserver interface {
	// PendingEviction is called when a bucket is full and a new candidate
	// has been placed in the pending slot. victim is the existing entry
	// the reactor is expected to challenge with a PING.
	PendingEviction(victim *NodeRecord)

	// AppliedEviction is called once a pending candidate has been promoted
	// into the bucket proper, replacing evicted.
	AppliedEviction(inserted, evicted *NodeRecord)
}

type bucket struct {
	entries []*Entry // ordered most-recently-seen-last
	pending *Entry
}

// Table is the Kademlia routing table: NumBuckets shells of up to
// BucketSize entries each, keyed by log2Distance(self, id).
type Table struct {
	self     enode.NodeID
	buckets  [NumBuckets]bucket
	observer EvictionObserver
}

// NewTable creates an empty routing table for the given local node id.
func NewTable(self enode.NodeID) *Table {
	return &Table{self: self}
}

// SetObserver attaches the eviction observer. Must be called before any
// mutating operation; there is no locking because the reactor is the sole
// caller of both SetObserver and every subsequent Table method.
func (t *Table) SetObserver(o EvictionObserver) { t.observer = o }

// BucketIndex returns the bucket index (0..NumBuckets-1) a node id belongs
// to, or -1 if id is the local node id (log2Distance == 0).
func (t *Table) BucketIndex(id enode.NodeID) int {
	d := enode.Distance(t.self, id)
	if d == 0 {
		return -1
	}
	return d - 1
}

// GetValue looks up id without changing status. Returns nil if absent
// (including if only present in a bucket's pending slot).
func (t *Table) GetValue(id enode.NodeID) *NodeRecord {
	idx := t.BucketIndex(id)
	if idx < 0 {
		return nil
	}
	for _, e := range t.buckets[idx].entries {
		if e.Record.ID == id {
			return e.Record
		}
	}
	return nil
}

// GetWithPending looks up id among both the bucket proper and its pending
// slot.
func (t *Table) GetWithPending(id enode.NodeID) *Entry {
	idx := t.BucketIndex(id)
	if idx < 0 {
		return nil
	}
	b := &t.buckets[idx]
	for _, e := range b.entries {
		if e.Record.ID == id {
			return e
		}
	}
	if b.pending != nil && b.pending.Record.ID == id {
		return b.pending
	}
	return nil
}

// Add attempts to insert rec into the table. It returns true iff rec was
// inserted into the bucket proper. If the bucket is full, rec is placed
// into the single pending slot (if empty) and PendingEviction fires;
// otherwise it is silently rejected. Add is a no-op (returns false) if id
// already has an entry anywhere in the bucket -- callers must use Update*
// to refresh an existing entry.
func (t *Table) Add(rec *NodeRecord, status Status) bool {
	idx := t.BucketIndex(rec.ID)
	if idx < 0 {
		return false
	}
	b := &t.buckets[idx]
	for _, e := range b.entries {
		if e.Record.ID == rec.ID {
			return false
		}
	}
	if len(b.entries) < BucketSize {
		b.entries = append(b.entries, &Entry{Record: rec, Status: status})
		return true
	}
	if b.pending != nil {
		return false
	}
	b.pending = &Entry{Record: rec, Status: status}
	if t.observer != nil {
		t.observer.PendingEviction(b.entries[0].Record)
	}
	return false
}

// ResolvePendingEviction finishes the eviction protocol for the bucket at
// idx. If survived is true the pending candidate is discarded (the victim
// answered the challenge); otherwise the oldest entry is evicted and the
// candidate promoted, firing AppliedEviction.
func (t *Table) ResolvePendingEviction(idx int, survived bool) {
	if idx < 0 || idx >= NumBuckets {
		return
	}
	b := &t.buckets[idx]
	if b.pending == nil {
		return
	}
	if survived {
		b.pending = nil
		return
	}
	evicted := b.entries[0]
	inserted := b.pending
	b.entries = append(append([]*Entry{}, b.entries[1:]...), inserted)
	b.pending = nil
	if t.observer != nil {
		t.observer.AppliedEviction(inserted.Record, evicted.Record)
	}
}

// touch moves an existing entry to the tail of its bucket (most-recently-
// seen-last ordering).
func (b *bucket) touch(e *Entry) {
	for i, cur := range b.entries {
		if cur == e {
			b.entries = append(append(b.entries[:i:i], b.entries[i+1:]...), e)
			return
		}
	}
}

// UpdateValue replaces the stored record for an existing entry, moving it
// to the tail. No-op if the id is absent. The replacement is atomic: the
// old record is never momentarily missing.
func (t *Table) UpdateValue(rec *NodeRecord) {
	idx := t.BucketIndex(rec.ID)
	if idx < 0 {
		return
	}
	b := &t.buckets[idx]
	for _, e := range b.entries {
		if e.Record.ID == rec.ID {
			e.Record = rec
			b.touch(e)
			return
		}
	}
}

// UpdateStatus sets the status of an existing entry, moving it to the
// tail. No-op if the id is absent.
func (t *Table) UpdateStatus(id enode.NodeID, status Status) {
	idx := t.BucketIndex(id)
	if idx < 0 {
		return
	}
	b := &t.buckets[idx]
	for _, e := range b.entries {
		if e.Record.ID == id {
			e.Status = status
			b.touch(e)
			return
		}
	}
}

// Update sets both the record and the status of an existing entry.
func (t *Table) Update(rec *NodeRecord, status Status) {
	idx := t.BucketIndex(rec.ID)
	if idx < 0 {
		return
	}
	b := &t.buckets[idx]
	for _, e := range b.entries {
		if e.Record.ID == rec.ID {
			e.Record = rec
			e.Status = status
			b.touch(e)
			return
		}
	}
}

// Nearest returns up to n records sorted by ascending XOR distance to
// target.
func (t *Table) Nearest(target enode.NodeID, n int) []*NodeRecord {
	all := t.Values()
	sort.SliceStable(all, func(i, j int) bool {
		return enode.DistCmp(target, all[i].ID, all[j].ID) < 0
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// ValuesOfDistance returns every record in the shell at log2-distance
// exactly d. d must be in 1..NumBuckets; distance 0 ("our own record") is
// handled by the reactor, not the table.
func (t *Table) ValuesOfDistance(d int) []*NodeRecord {
	if d < 1 || d > NumBuckets {
		return nil
	}
	b := &t.buckets[d-1]
	out := make([]*NodeRecord, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.Record
	}
	return out
}

// Values returns every record currently in the table (pending slots
// excluded).
func (t *Table) Values() []*NodeRecord {
	var out []*NodeRecord
	for i := range t.buckets {
		for _, e := range t.buckets[i].entries {
			out = append(out, e.Record)
		}
	}
	return out
}

// Clear removes every entry and pending candidate from the table.
func (t *Table) Clear() {
	for i := range t.buckets {
		t.buckets[i] = bucket{}
	}
}
