// Package bootstrap seeds a discv5 routing table from a static list of
// enode:// URLs and tracks how reliably each bootstrap node has answered,
// so a node that stops responding can eventually be dropped from the seed
// list.
package bootstrap

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethnode/discv5/p2p/discover"
	"github.com/ethnode/discv5/p2p/enode"
)

// Node is a statically configured bootstrap peer and its health record.
type Node struct {
	Record    *discover.NodeRecord
	AddedAt   time.Time
	LastSeen  time.Time
	FailCount int
}

// List tracks the set of configured bootstrap nodes.
type List struct {
	mu    sync.RWMutex
	nodes map[enode.NodeID]*Node
}

// NewList creates an empty bootstrap list.
func NewList() *List {
	return &List{nodes: make(map[enode.NodeID]*Node)}
}

// ParseAndAdd parses each enode:// URL in urls and adds it as a bootstrap
// node. It returns the first parse error encountered, if any; URLs parsed
// before the failing one are still added.
func (l *List) ParseAndAdd(urls []string) error {
	for _, raw := range urls {
		n, err := enode.ParseNode(raw)
		if err != nil {
			return fmt.Errorf("bootstrap: parsing %q: %w", raw, err)
		}
		rec := discover.NewNodeRecord(n.ID, 0, n.IP, n.UDP)
		l.Add(rec)
	}
	return nil
}

// Add registers rec as a bootstrap node, if not already present.
func (l *List) Add(rec *discover.NodeRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.nodes[rec.ID]; exists {
		return
	}
	now := time.Now()
	l.nodes[rec.ID] = &Node{Record: rec, AddedAt: now, LastSeen: now}
}

// Records returns the records of every currently tracked bootstrap node.
func (l *List) Records() []*discover.NodeRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*discover.NodeRecord, 0, len(l.nodes))
	for _, n := range l.nodes {
		out = append(out, n.Record)
	}
	return out
}

// MarkSeen resets the failure count for id and updates its last-seen time.
func (l *List) MarkSeen(id enode.NodeID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n, ok := l.nodes[id]; ok {
		n.LastSeen = time.Now()
		n.FailCount = 0
	}
}

// MarkFailed increments the consecutive failure count for id.
func (l *List) MarkFailed(id enode.NodeID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n, ok := l.nodes[id]; ok {
		n.FailCount++
	}
}

// Evict drops every bootstrap node whose consecutive failure count has
// reached maxFails, returning how many were removed. Seeding is a one-time
// operation; a bootstrap node that has gone dark permanently should not
// keep being retried on every restart.
func (l *List) Evict(maxFails int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	evicted := 0
	for id, n := range l.nodes {
		if n.FailCount >= maxFails {
			delete(l.nodes, id)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of tracked bootstrap nodes.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.nodes)
}

// Seeder accepts node records the way the reactor's addEnr operation does:
// insert as disconnected and emit an enrAdded event, or update the existing
// value in place. *discover.Reactor implements this through its AddEnr
// method.
type Seeder interface {
	AddEnr(rec *discover.NodeRecord) bool
}

// Seed inserts every tracked bootstrap node into seeder, giving a freshly
// started reactor somewhere to start its first lookup from. Seeding goes
// through AddEnr rather than the table directly so a seeded node is
// observable the same way any other discovered ENR is: as an EventEnrAdded
// on the reactor's event channel.
func Seed(seeder Seeder, list *List) {
	for _, rec := range list.Records() {
		seeder.AddEnr(rec)
	}
}
