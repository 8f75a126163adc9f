package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Gate holds the two flags every worker checks once per cycle:
// active (loops keep running) and started (events flow).
type Gate struct {
	active  atomic.Bool
	started atomic.Bool
}

func (g *Gate) Active() bool  { return g.active.Load() }
func (g *Gate) Started() bool { return g.started.Load() }

// worker runs its pollers in order on a fixed delay.
type worker struct {
	name  string
	delay time.Duration
	gate  *Gate
	polls []func() int
}

func (w *worker) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	timer := time.NewTimer(w.delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if !w.gate.Active() {
			return
		}
		if w.gate.Started() {
			for _, poll := range w.polls {
				poll()
			}
		}
		timer.Reset(w.delay)
	}
}
