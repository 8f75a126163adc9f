package event

import (
	"sync"
)

// eventPool provides sync.Pool for high-frequency event allocation.
//
// Usage:
//
//	ev := Acquire()
//	ev.Type = TypeTick
//	// ... use event ...
//	Release(ev)  // Return to pool after processing
var eventPool = sync.Pool{
	New: func() interface{} {
		return &Event{}
	},
}

// Acquire gets an Event from the pool.
// The returned event has zero values and must be initialized.
func Acquire() *Event {
	return eventPool.Get().(*Event)
}

// Release returns an Event to the pool.
// The event is reset to zero values before being pooled; Data keeps its
// capacity for reuse.
func Release(ev *Event) {
	if ev == nil {
		return
	}
	ev.Seq = 0
	ev.Type = ""
	ev.Ts = 0
	ev.Data = ev.Data[:0]

	eventPool.Put(ev)
}

// Warmup pre-allocates event objects to reduce GC pressure at startup.
// It acquires and releases a batch of events.
func Warmup() {
	const batchSize = 256

	evs := make([]*Event, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		evs = append(evs, Acquire())
	}
	for _, ev := range evs {
		Release(ev)
	}
}
