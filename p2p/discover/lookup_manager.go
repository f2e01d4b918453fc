package discover

import (
	"math"

	"github.com/ethnode/discv5/metrics"
)

// activeLookup pairs a running Lookup with the channel its initiator is
// blocked on and the timer tracking its wall-clock duration.
type activeLookup struct {
	lookup *Lookup
	result chan []*NodeRecord
	timer  *metrics.Timer
}

// lookupManager owns lookup id allocation and the set of currently active
// lookups. It is only ever touched from the reactor's event loop.
type lookupManager struct {
	nextID uint32
	active map[uint32]*activeLookup
}

func newLookupManager() *lookupManager {
	return &lookupManager{nextID: 1, active: make(map[uint32]*activeLookup)}
}

// allocID returns the next lookup id: positive, monotonically increasing,
// wrapping from 2^32-1 back to 1 (never 0).
func (m *lookupManager) allocID() uint32 {
	id := m.nextID
	if m.nextID == math.MaxUint32 {
		m.nextID = 1
	} else {
		m.nextID++
	}
	return id
}

func (m *lookupManager) register(id uint32, l *Lookup, result chan []*NodeRecord, timer *metrics.Timer) {
	m.active[id] = &activeLookup{lookup: l, result: result, timer: timer}
}

func (m *lookupManager) get(id uint32) (*Lookup, bool) {
	al, ok := m.active[id]
	if !ok {
		return nil, false
	}
	return al.lookup, true
}

func (m *lookupManager) remove(id uint32) {
	delete(m.active, id)
}

// clear tears down every active lookup without delivering a result; used
// by Stop(). Callers waiting on a result channel instead observe the
// reactor's done channel closing.
func (m *lookupManager) clear() {
	m.active = make(map[uint32]*activeLookup)
}
