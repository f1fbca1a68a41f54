package bus

import (
	"sync"

	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/measurement"
)

// Bus provides fan-out pub/sub semantics for completed measurement batches.
// Each Subscribe call gets its own channel that receives every future
// publication. Past batches are not replayed. The implementation is safe for
// concurrent publishers and subscribers.
type Bus struct {
	mu          sync.RWMutex
	subscribers []chan []measurement.Measurement
}

// New creates a ready-to-use Bus.
func New() *Bus { return &Bus{} }

// Subscribe returns a read-only channel that will receive all future
// measurement batches.
func (b *Bus) Subscribe() <-chan []measurement.Measurement {
	ch := make(chan []measurement.Measurement, 1) // small buffer avoids blocking
	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers the batch to all subscribers in a best-effort,
// non-blocking way. A subscriber that is still busy with the previous batch
// simply misses this one; the next cycle produces a fresh batch anyway.
func (b *Bus) Publish(measurements []measurement.Measurement) {
	b.mu.RLock()
	subs := make([]chan []measurement.Measurement, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- measurements:
		default:
			continue
		}
	}
}
