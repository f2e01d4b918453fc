package discover

import (
	"time"

	"github.com/ethnode/discv5/p2p/enode"
)

// TimerSet models the "periodic timer stored as an opaque handle per peer"
// pattern explicitly: Arm/Cancel/CancelAll are the only ways to mutate it,
// and the only thing a fired timer does is push its key onto a channel --
// all subsequent state mutation (including re-arming for the next
// interval) happens on the reactor's own goroutine when it drains C().
type TimerSet struct {
	timers map[enode.NodeID]*time.Timer
	fireCh chan enode.NodeID
}

// NewTimerSet creates an empty TimerSet.
func NewTimerSet() *TimerSet {
	return &TimerSet{
		timers: make(map[enode.NodeID]*time.Timer),
		fireCh: make(chan enode.NodeID, 64),
	}
}

// C returns the channel timer firings are delivered on.
func (ts *TimerSet) C() <-chan enode.NodeID { return ts.fireCh }

// Arm (re-)schedules the timer for key to fire once after period. Any
// previously armed timer for key is canceled first.
func (ts *TimerSet) Arm(key enode.NodeID, period time.Duration) {
	ts.Cancel(key)
	ts.timers[key] = time.AfterFunc(period, func() {
		select {
		case ts.fireCh <- key:
		default:
		}
	})
}

// Cancel stops and removes the timer for key, if any.
func (ts *TimerSet) Cancel(key enode.NodeID) {
	if t, ok := ts.timers[key]; ok {
		t.Stop()
		delete(ts.timers, key)
	}
}

// CancelAll stops and removes every armed timer.
func (ts *TimerSet) CancelAll() {
	for key, t := range ts.timers {
		t.Stop()
		delete(ts.timers, key)
	}
}
