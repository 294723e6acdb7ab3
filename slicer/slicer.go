// Package slicer groups incoming data blocks into per-link slices keyed
// by (linkId, timeframeId): blocks within one link are timeframe-
// monotonic, so a change in timeframeId unambiguously closes the
// previous slice without an explicit end marker.
//
// A Slicer is owned by exactly one aggregator worker; append and
// takeSlice are never called concurrently, so no internal locking is
// needed (unlike pagepool.Pool, which is shared across the producer and
// consumer threads).
package slicer

import (
	"fmt"

	"github.com/dot5enko/readout-core/bits"
	"github.com/dot5enko/readout-core/datablock"
	"github.com/dot5enko/readout-core/pagepool"
)

// MaxLinks bounds the number of distinct links a Slicer tracks
// simultaneously. Seeing more than this many distinct link ids is
// treated as corrupt input and is fatal (see ErrTooManyLinks).
const MaxLinks = 8192

// ErrTooManyLinks is panicked with when append would register more than
// MaxLinks distinct links. The overflow behavior is left to the
// implementer to decide and document: this module chooses fatal (panic)
// over a recoverable drop-and-count, matching pagepool's treatment of
// invariant violations as programmer/input bugs.
var ErrTooManyLinks = fmt.Errorf("slicer: more than %d distinct links seen", MaxLinks)

// DataSet is an ordered sequence of block containers sharing one
// (linkId, timeframeId), emitted as one atomic output element.
type DataSet struct {
	LinkID      uint32
	TimeframeID uint64
	Blocks      []*pagepool.Container
}

// Len returns the number of blocks in the data set.
func (d DataSet) Len() int { return len(d.Blocks) }

type partialSlice struct {
	linkID      uint32
	timeframeID uint64
	blocks      []*pagepool.Container

	// orderIdx is this link's fixed position in Slicer.order, used as the
	// bit index into Slicer.pendingLinks.
	orderIdx int
}

// Slicer accumulates blocks per link and yields completed slices in
// creation order.
type Slicer struct {
	partial map[uint32]*partialSlice
	order   []uint32 // stable link-enumeration order, insertion order
	cursor  int       // round-robin position for flushing partials

	// pendingLinks tracks, by orderIdx, which links currently hold a
	// non-empty partial slice, so HasPendingPartial need not walk the
	// map. Uses the fixed-width bitset from bits/bitfield.go, which in
	// simple-column-db tracks matched row indices within a column block.
	pendingLinks bits.Bitfield

	completed []DataSet // FIFO of complete slices awaiting pickup
}

// New returns an empty Slicer.
func New() *Slicer {
	return &Slicer{
		partial: make(map[uint32]*partialSlice),
	}
}

// Append reads linkId and timeframeId from block's header and appends
// the block to the matching partial slice, starting a new one if none
// exists or if the existing one carries a different timeframeId (which
// finalizes and enqueues the old one first). It returns the number of
// blocks now held by the slice that owns block.
//
// Append panics with ErrTooManyLinks if this would register more than
// MaxLinks distinct links: that indicates corrupt input, not a condition
// a single tick can recover from.
func (s *Slicer) Append(block *pagepool.Container) (int, error) {
	h, err := datablock.Decode(block.Page())
	if err != nil {
		return 0, fmt.Errorf("slicer: decoding block header: %w", err)
	}

	ps, exists := s.partial[h.LinkID]
	if !exists {
		if len(s.partial) >= MaxLinks {
			panic(ErrTooManyLinks)
		}
		ps = &partialSlice{linkID: h.LinkID, timeframeID: h.TimeframeID, orderIdx: len(s.order)}
		s.partial[h.LinkID] = ps
		s.order = append(s.order, h.LinkID)
	} else if ps.timeframeID != h.TimeframeID {
		s.finalize(ps)
		ps.timeframeID = h.TimeframeID
		ps.blocks = nil
	}

	ps.blocks = append(ps.blocks, block)
	s.pendingLinks.Set(ps.orderIdx)
	return len(ps.blocks), nil
}

// finalize moves ps's accumulated blocks into the completed queue, if
// any. It does not reset ps.timeframeID; callers update it afterward.
func (s *Slicer) finalize(ps *partialSlice) {
	if len(ps.blocks) == 0 {
		return
	}
	s.completed = append(s.completed, DataSet{
		LinkID:      ps.linkID,
		TimeframeID: ps.timeframeID,
		Blocks:      ps.blocks,
	})
	ps.blocks = nil
	s.pendingLinks.Clear(ps.orderIdx)
}

// TakeSlice returns the oldest completed slice, or nil if none exists.
// When includeIncomplete is true and the completed queue is empty, it
// flushes one partial slice in link-enumeration order (stable across
// calls via an internal cursor) and returns it, leaving that link empty.
func (s *Slicer) TakeSlice(includeIncomplete bool) *DataSet {
	if len(s.completed) > 0 {
		ds := s.completed[0]
		s.completed = s.completed[1:]
		return &ds
	}

	if !includeIncomplete {
		return nil
	}

	n := len(s.order)
	for i := 0; i < n; i++ {
		idx := s.cursor % n
		s.cursor++

		linkID := s.order[idx]
		ps, ok := s.partial[linkID]
		if !ok || len(ps.blocks) == 0 {
			continue
		}

		ds := DataSet{
			LinkID:      ps.linkID,
			TimeframeID: ps.timeframeID,
			Blocks:      ps.blocks,
		}
		ps.blocks = nil
		s.pendingLinks.Clear(ps.orderIdx)
		return &ds
	}

	return nil
}

// HasPendingPartial reports whether any link currently holds a non-empty
// partial slice. The aggregator worker uses this to decide whether to
// arm its staleness timer.
func (s *Slicer) HasPendingPartial() bool {
	return s.pendingLinks.Any()
}

// CompletedLen reports how many complete slices are waiting for pickup.
func (s *Slicer) CompletedLen() int {
	return len(s.completed)
}

// LinkCount reports the number of distinct links currently tracked.
func (s *Slicer) LinkCount() int {
	return len(s.partial)
}
