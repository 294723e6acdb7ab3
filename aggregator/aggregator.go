// Package aggregator implements the single-writer worker that
// multiplexes several equipment input queues through their per-link
// slicers into one output queue: fair round-robin polling, a staleness
// timer for incomplete slices, an optional pass-through mode, and a
// flush signal.
//
// Follows the same worker-loop shape as simple-column-db's
// manager/manager_worker_processor.go and
// manager/executor/chunk_thread_processor.go: a goroutine draining
// channels in a loop, slog for lifecycle events, fatih/color for
// operator-facing fatal-path annotations.
package aggregator

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dot5enko/readout-core/datablock"
	"github.com/dot5enko/readout-core/internal/queue"
	"github.com/dot5enko/readout-core/pagepool"
	"github.com/dot5enko/readout-core/slicer"
	"github.com/fatih/color"
)

// Stats is a point-in-time diagnostic snapshot.
type Stats struct {
	TotalBlocksIn    uint64
	SlicesEmitted    uint64
	StalenessFlushes uint64
	Inputs           int
}

// Aggregator borrows its output queue and every input queue added via
// AddInput; it owns its slicers and its worker goroutine.
type Aggregator struct {
	name string

	inputs  []*queue.Queue[*pagepool.Container]
	slicers []*slicer.Slicer
	output  *queue.Queue[slicer.DataSet]

	nextIndex int

	disableSlicing atomic.Bool
	doFlush        atomic.Bool

	stalenessInterval time.Duration
	stalenessArmedAt  time.Time

	totalBlocksIn    atomic.Uint64
	slicesEmitted    atomic.Uint64
	stalenessFlushes atomic.Uint64

	stopRequested atomic.Bool
	wg            sync.WaitGroup

	log *slog.Logger
}

// New constructs an Aggregator writing to output. Inputs are added
// afterward via AddInput.
func New(output *queue.Queue[slicer.DataSet], cfg Config) *Aggregator {
	cfg = cfg.withDefaults()

	a := &Aggregator{
		name:              cfg.Name,
		output:            output,
		stalenessInterval: cfg.StalenessInterval,
		log:               slog.Default().With("aggregator", cfg.Name),
	}
	a.disableSlicing.Store(cfg.DisableSlicing)

	return a
}

// AddInput registers an input queue and creates a dedicated slicer for
// it at the same index. Returns the assigned index.
func (a *Aggregator) AddInput(input *queue.Queue[*pagepool.Container]) int {
	a.inputs = append(a.inputs, input)
	a.slicers = append(a.slicers, slicer.New())
	return len(a.inputs) - 1
}

// SetDisableSlicing toggles pass-through mode at runtime.
func (a *Aggregator) SetDisableSlicing(v bool) {
	a.disableSlicing.Store(v)
}

// Flush arms the one-shot flush signal: the next tick behaves as if the
// staleness timer fired immediately, then the signal auto-clears.
func (a *Aggregator) Flush() {
	a.doFlush.Store(true)
}

// Stats returns a point-in-time diagnostic snapshot.
func (a *Aggregator) Stats() Stats {
	return Stats{
		TotalBlocksIn:    a.totalBlocksIn.Load(),
		SlicesEmitted:    a.slicesEmitted.Load(),
		StalenessFlushes: a.stalenessFlushes.Load(),
		Inputs:           len(a.inputs),
	}
}

// Start launches the worker goroutine.
func (a *Aggregator) Start() {
	a.wg.Add(1)
	go a.run()
}

// Stop signals the worker to terminate. When wait is true, it blocks
// until the worker goroutine has returned. Stopping does not drain the
// input queues; set Flush before Stop if drainage is required.
func (a *Aggregator) Stop(wait bool) {
	a.stopRequested.Store(true)
	if wait {
		a.wg.Wait()
	}
}

func (a *Aggregator) run() {
	defer a.wg.Done()

	a.log.Info("worker started")
	defer a.log.Info("worker stopped")

	for {
		switch a.tick() {
		case TickStop:
			return
		case TickActive:
			// loop immediately
		case TickIdle:
			time.Sleep(idleSleep)
		}
	}
}

// tick runs one iteration of the worker loop, implementing steps 1-7 of
// the design: backpressure check, fair round-robin drain, pass-through
// or slicing, staleness/flush handling, and the idle/active/stop
// verdict.
func (a *Aggregator) tick() TickResult {
	if a.stopRequested.Load() {
		return TickStop
	}

	// step 1: yield this tick entirely if the output has no free slot.
	if a.output.Full() {
		return TickIdle
	}

	didWork := false
	n := len(a.inputs)
	passThrough := a.disableSlicing.Load()

	if n > 0 {
		start := a.nextIndex
		a.nextIndex = (a.nextIndex + 1) % n

		for i := 0; i < n; i++ {
			idx := (start + i) % n
			input := a.inputs[idx]

			if passThrough {
				// No slicer buffer to absorb overflow in this mode, so
				// draining is additionally bounded by output capacity.
				for !a.output.Full() {
					block, ok := input.TryPop()
					if !ok {
						break
					}
					didWork = true
					a.totalBlocksIn.Add(1)

					ds := singletonSlice(block)
					if !a.output.TryPush(ds) {
						break
					}
					a.slicesEmitted.Add(1)
				}
				continue
			}

			drainLen := input.Len()
			sl := a.slicers[idx]
			for j := 0; j < drainLen; j++ {
				block, ok := input.TryPop()
				if !ok {
					break
				}
				didWork = true
				a.totalBlocksIn.Add(1)

				if _, err := sl.Append(block); err != nil {
					color.Red("aggregator %s: dropping unparseable block on input %d: %s", a.name, idx, err)
					block.Release()
				}
			}
		}
	}

	producedComplete := false

	if !passThrough {
		// step 4: greedily pull every completed slice from each slicer
		// while free slots remain; unpicked slices stay queued inside
		// the slicer for the next tick.
		for _, sl := range a.slicers {
			for !a.output.Full() {
				ds := sl.TakeSlice(false)
				if ds == nil {
					break
				}
				if !a.output.TryPush(*ds) {
					break
				}
				didWork = true
				producedComplete = true
				a.slicesEmitted.Add(1)
			}
		}
	}

	// step 5: staleness handling.
	if producedComplete {
		a.stalenessArmedAt = time.Time{}
	} else if !passThrough && a.stalenessArmedAt.IsZero() && a.anyPartialPending() {
		a.stalenessArmedAt = time.Now()
	}

	flushNow := a.doFlush.Load()
	staleElapsed := !a.stalenessArmedAt.IsZero() && time.Since(a.stalenessArmedAt) >= a.stalenessInterval

	// step 6: explicit flush behaves as if the timer fired immediately.
	if flushNow {
		a.doFlush.Store(false)
	}

	if (flushNow || staleElapsed) && !passThrough {
		a.stalenessArmedAt = time.Time{}
		a.stalenessFlushes.Add(1)

		for _, sl := range a.slicers {
			flushedAny := false
			for !a.output.Full() {
				ds := sl.TakeSlice(true)
				if ds == nil {
					break
				}
				if !a.output.TryPush(*ds) {
					break
				}
				didWork = true
				flushedAny = true
				a.slicesEmitted.Add(1)
			}
			if flushedAny {
				a.log.Debug("flushed partial slice", "link", "stale-or-explicit")
			}
			if a.output.Full() {
				break
			}
		}
	}

	// step 7.
	if didWork {
		return TickActive
	}
	return TickIdle
}

func (a *Aggregator) anyPartialPending() bool {
	for _, sl := range a.slicers {
		if sl.HasPendingPartial() {
			return true
		}
	}
	return false
}

func singletonSlice(block *pagepool.Container) slicer.DataSet {
	ds := slicer.DataSet{Blocks: []*pagepool.Container{block}}
	if h, err := datablock.Decode(block.Page()); err == nil {
		ds.LinkID = h.LinkID
		ds.TimeframeID = h.TimeframeID
	}
	return ds
}
