package aggregator

import (
	"testing"
	"time"

	"github.com/dot5enko/readout-core/datablock"
	"github.com/dot5enko/readout-core/internal/queue"
	"github.com/dot5enko/readout-core/pagepool"
	"github.com/dot5enko/readout-core/slicer"
)

const testPageSize = 128

func newTestPool(t *testing.T, pages int) *pagepool.Pool {
	t.Helper()
	p, err := pagepool.New(pagepool.Config{PageSize: testPageSize, NumberOfPages: pages})
	if err != nil {
		t.Fatalf("pagepool.New: %s", err)
	}
	return p
}

func newBlock(t *testing.T, p *pagepool.Pool, linkID uint32, timeframeID uint64) *pagepool.Container {
	t.Helper()
	c, err := p.Wrap(nil)
	if err != nil {
		t.Fatalf("Wrap: %s", err)
	}
	h := datablock.Default(testPageSize)
	h.LinkID = linkID
	h.TimeframeID = timeframeID
	if err := datablock.Encode(c.Page(), h); err != nil {
		t.Fatalf("Encode: %s", err)
	}
	return c
}

func TestStalenessFlushesPartialSlice(t *testing.T) {
	p := newTestPool(t, 4)
	output := queue.New[slicer.DataSet](4)

	a := New(output, Config{StalenessInterval: 5 * time.Millisecond})
	input := queue.New[*pagepool.Container](4)
	a.AddInput(input)

	input.TryPush(newBlock(t, p, 1, 42))

	// First tick drains the block into the slicer; no complete slice yet,
	// so it only arms the staleness timer.
	if got := a.tick(); got != TickActive {
		t.Fatalf("first tick = %s, want active", got)
	}
	if _, ok := output.TryPop(); ok {
		t.Fatalf("expected no output before staleness interval elapses")
	}

	time.Sleep(10 * time.Millisecond)

	if got := a.tick(); got != TickActive {
		t.Fatalf("tick after staleness elapses = %s, want active", got)
	}

	ds, ok := output.TryPop()
	if !ok {
		t.Fatalf("expected a staleness-flushed slice in output")
	}
	if ds.LinkID != 1 || ds.TimeframeID != 42 || ds.Len() != 1 {
		t.Fatalf("unexpected flushed slice: %+v", ds)
	}

	stats := a.Stats()
	if stats.StalenessFlushes != 1 {
		t.Fatalf("stalenessFlushes = %d, want 1", stats.StalenessFlushes)
	}
	if stats.TotalBlocksIn != 1 {
		t.Fatalf("totalBlocksIn = %d, want 1", stats.TotalBlocksIn)
	}
}

func TestExplicitFlushIsImmediate(t *testing.T) {
	p := newTestPool(t, 4)
	output := queue.New[slicer.DataSet](4)

	a := New(output, Config{StalenessInterval: time.Hour})
	input := queue.New[*pagepool.Container](4)
	a.AddInput(input)

	input.TryPush(newBlock(t, p, 7, 1))
	a.tick()

	a.Flush()
	if got := a.tick(); got != TickActive {
		t.Fatalf("tick after Flush = %s, want active", got)
	}

	ds, ok := output.TryPop()
	if !ok || ds.LinkID != 7 {
		t.Fatalf("expected flushed slice for link 7, got ds=%+v ok=%v", ds, ok)
	}
}

func TestPassThroughEmitsSingletonSlices(t *testing.T) {
	p := newTestPool(t, 4)
	output := queue.New[slicer.DataSet](4)

	a := New(output, Config{DisableSlicing: true})
	input := queue.New[*pagepool.Container](4)
	a.AddInput(input)

	input.TryPush(newBlock(t, p, 3, 9))
	input.TryPush(newBlock(t, p, 3, 10))

	if got := a.tick(); got != TickActive {
		t.Fatalf("tick = %s, want active", got)
	}

	first, ok := output.TryPop()
	if !ok || first.Len() != 1 || first.TimeframeID != 9 {
		t.Fatalf("unexpected first singleton: ds=%+v ok=%v", first, ok)
	}
	second, ok := output.TryPop()
	if !ok || second.Len() != 1 || second.TimeframeID != 10 {
		t.Fatalf("unexpected second singleton: ds=%+v ok=%v", second, ok)
	}

	stats := a.Stats()
	if stats.SlicesEmitted != 2 {
		t.Fatalf("slicesEmitted = %d, want 2", stats.SlicesEmitted)
	}
	if stats.StalenessFlushes != 0 {
		t.Fatalf("stalenessFlushes = %d, want 0 in pass-through mode", stats.StalenessFlushes)
	}
}

func TestTickReturnsIdleWhenNoWork(t *testing.T) {
	output := queue.New[slicer.DataSet](4)
	a := New(output, Config{})
	input := queue.New[*pagepool.Container](4)
	a.AddInput(input)

	if got := a.tick(); got != TickIdle {
		t.Fatalf("tick with no input = %s, want idle", got)
	}
}

func TestTickReturnsStopAfterStop(t *testing.T) {
	output := queue.New[slicer.DataSet](4)
	a := New(output, Config{})

	a.Stop(false)
	if got := a.tick(); got != TickStop {
		t.Fatalf("tick after Stop = %s, want stop", got)
	}
}

func TestTickIdlesWhenOutputIsFull(t *testing.T) {
	p := newTestPool(t, 4)
	output := queue.New[slicer.DataSet](1)
	output.TryPush(slicer.DataSet{})

	a := New(output, Config{})
	input := queue.New[*pagepool.Container](4)
	a.AddInput(input)
	input.TryPush(newBlock(t, p, 1, 1))

	if got := a.tick(); got != TickIdle {
		t.Fatalf("tick with full output = %s, want idle", got)
	}
}
