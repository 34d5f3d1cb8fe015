package sharding

import (
	"sync"

	"github.com/AntonStoeckl/signal-dispatch-go/signals"
)

// laneEntry is one pending (target, signal) pair on a delivery lane.
type laneEntry struct {
	target signals.TargetID
	sig    signals.Signal
}

// deliveryLane is an ordered, append-only queue of pending pairs for one
// shard index. Producers append under a soft capacity; re-queued pairs from
// the consumer bypass the capacity so a signal already admitted is never
// lost to backpressure.
type deliveryLane struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	pending  []laneEntry
	capacity int
	closed   bool
}

func newDeliveryLane(capacity int) *deliveryLane {
	lane := &deliveryLane{capacity: capacity}
	lane.notEmpty = sync.NewCond(&lane.mu)

	return lane
}

// push appends an entry to the tail. With enforceCapacity it fails once the
// soft capacity is reached; requeues pass false.
func (l *deliveryLane) push(entry laneEntry, enforceCapacity bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return errDeliveryLaneClosed
	}

	if enforceCapacity && l.capacity > 0 && len(l.pending) >= l.capacity {
		return errLaneCapacityReached
	}

	l.pending = append(l.pending, entry)
	l.notEmpty.Signal()

	return nil
}

// pop removes and returns the head entry, blocking until one is available
// or the lane is closed. The second return value is false once the lane is
// closed.
func (l *deliveryLane) pop() (laneEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for len(l.pending) == 0 && !l.closed {
		l.notEmpty.Wait()
	}

	if l.closed {
		return laneEntry{}, false
	}

	entry := l.pending[0]
	l.pending = l.pending[1:]

	return entry, true
}

// depth returns the number of pending entries.
func (l *deliveryLane) depth() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.pending)
}

// close wakes the consumer and refuses further entries.
func (l *deliveryLane) close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	l.notEmpty.Broadcast()
}
