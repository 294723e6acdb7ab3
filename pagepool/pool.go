// Package pagepool implements the lock-light, producer/consumer-safe
// supplier of fixed-size memory pages described by the readout core: one
// pre-allocated arena is carved into pageSize-byte pages, handed out
// through a non-blocking free list, and recycled through reference-
// counted Container handles.
//
// The free list follows the same ring-buffer shape as
// simple-column-db's manager/cache/typed_ring_buffer.go and
// manager/cache/fixed_size_buffer.go: a fixed-capacity channel
// pre-loaded with every slot, Get()/Return() replaced here by
// Acquire()/Release() to match the domain vocabulary.
package pagepool

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/dot5enko/readout-core/datablock"
	"github.com/dot5enko/readout-core/internal/queue"
	"github.com/fatih/color"
	"github.com/google/uuid"
)

// Errors surfaced by Pool. Construction-invalid and page-invalid
// conditions are usage bugs (the caller passed garbage); per the
// taxonomy, callers of Release/Wrap get an error back instead of a bare
// panic so tests can assert on the failure, but repeated occurrence
// warrants fatal treatment by the owning aggregator.
var (
	ErrInvalidConstruction = errors.New("pagepool: invalid construction parameters")
	ErrInvalidPage         = errors.New("pagepool: page address not valid for this pool")
	ErrPoolExhausted       = errors.New("pagepool: no free pages available")
)

// Page is a fixed-size window into a Pool's arena.
type Page []byte

func (p Page) addr() uintptr {
	if len(p) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&p[0]))
}

// Config describes how to carve an arena into pages.
type Config struct {
	// PageSize is the size, in bytes, of each page. Must be non-zero.
	PageSize int

	// NumberOfPages is the number of pages requested. May be silently
	// reduced if the arena cannot fit this many pages after
	// FirstPageOffset.
	NumberOfPages int

	// Base is the pre-allocated arena to carve pages from. If nil, the
	// pool allocates its own arena of BaseSize bytes (or PageSize *
	// NumberOfPages if BaseSize is zero).
	Base []byte

	// BaseSize is the size of the arena. Zero means "assume PageSize *
	// NumberOfPages is enough".
	BaseSize int

	// FirstPageOffset is the byte offset of the first page inside Base,
	// for alignment control.
	FirstPageOffset int

	// OnRelease, if set, is invoked exactly once when the pool is
	// closed, with Base as its argument.
	OnRelease func([]byte)
}

// Stats is a point-in-time diagnostic snapshot.
type Stats struct {
	PageSize       int
	TotalPages     int
	PagesAvailable int
	PagesCheckedOut int
}

// Pool hands out and takes back fixed-size pages from one arena.
type Pool struct {
	id uuid.UUID

	pageSize      int
	numberOfPages int

	base      []byte
	firstAddr uintptr
	lastAddr  uintptr

	free *queue.Queue[Page]

	onRelease  func([]byte)
	closeOnce  sync.Once

	checkedOut atomic.Int64

	log *slog.Logger
}

// New constructs a Pool per cfg. It fails (returns a non-nil error) when
// PageSize, NumberOfPages, or the effective BaseSize is zero, or when
// FirstPageOffset is at or beyond BaseSize. If the requested page count
// cannot fit the arena, NumberOfPages is silently reduced to the largest
// value that fits; the pool never overruns the base block.
func New(cfg Config) (*Pool, error) {
	baseSize := cfg.BaseSize
	if baseSize == 0 {
		baseSize = cfg.PageSize * cfg.NumberOfPages
	}

	if cfg.PageSize == 0 || cfg.NumberOfPages == 0 || baseSize == 0 || cfg.FirstPageOffset >= baseSize {
		return nil, ErrInvalidConstruction
	}

	base := cfg.Base
	if base == nil {
		base = make([]byte, baseSize)
	} else if len(base) < baseSize {
		return nil, fmt.Errorf("%w: base block shorter than declared size", ErrInvalidConstruction)
	}

	numberOfPages := cfg.NumberOfPages
	sizeNeeded := cfg.PageSize*numberOfPages + cfg.FirstPageOffset
	if sizeNeeded > baseSize {
		numberOfPages = (baseSize - cfg.FirstPageOffset) / cfg.PageSize
		if numberOfPages == 0 {
			return nil, ErrInvalidConstruction
		}
	}

	p := &Pool{
		id:            uuid.New(),
		pageSize:      cfg.PageSize,
		numberOfPages: numberOfPages,
		base:          base,
		onRelease:     cfg.OnRelease,
		free:          queue.New[Page](numberOfPages),
		log:           slog.Default(),
	}

	var last Page
	for i := 0; i < numberOfPages; i++ {
		start := cfg.FirstPageOffset + i*cfg.PageSize
		page := Page(base[start : start+cfg.PageSize : start+cfg.PageSize])
		if i == 0 {
			p.firstAddr = page.addr()
		}
		last = page
		p.free.TryPush(page)
	}
	p.lastAddr = last.addr()

	p.log.Debug("pagepool constructed", "pool", p.id, "pageSize", p.pageSize, "pages", p.numberOfPages)

	return p, nil
}

// Acquire returns a free page, or false if none is available right now.
// Safe to call concurrently with one Release call on another goroutine.
func (p *Pool) Acquire() (Page, bool) {
	page, ok := p.free.TryPop()
	if ok {
		p.checkedOut.Add(1)
	}
	return page, ok
}

// Release returns page to the free list. It is fatal (returns
// ErrInvalidPage) to release an address this pool did not mint, or one
// misaligned to the page-size grid: that signals a programmer error, not
// a recoverable condition.
func (p *Pool) Release(page Page) error {
	if !p.IsValid(page) {
		color.Red("pagepool: release of invalid page address, pool=%s", p.id)
		return ErrInvalidPage
	}

	if !p.free.TryPush(page) {
		// The free list is sized to NumberOfPages; a push failing here
		// means more pages were released than were ever checked out.
		color.Red("pagepool: free list overflow on release, pool=%s", p.id)
		return fmt.Errorf("%w: free list full, likely double release", ErrInvalidPage)
	}

	p.checkedOut.Add(-1)
	return nil
}

// Wrap returns a Container around page (acquiring one internally if page
// is nil), with a freshly written default datablock.Header (sentinel
// ids, dataSize sized to the remaining page capacity) and a release
// action that recycles the page to this pool exactly once.
func (p *Pool) Wrap(page Page) (*Container, error) {
	if page == nil {
		acquired, ok := p.Acquire()
		if !ok {
			return nil, ErrPoolExhausted
		}
		page = acquired
	} else if !p.IsValid(page) {
		return nil, ErrInvalidPage
	}

	if err := datablock.Encode(page, datablock.Default(p.pageSize)); err != nil {
		_ = p.Release(page)
		return nil, fmt.Errorf("pagepool: writing default header: %w", err)
	}

	return newContainer(page, func() { _ = p.Release(page) }), nil
}

// IsValid reports whether page is a legal page address for this pool:
// within [firstPageAddress, lastPageAddress] and aligned to the
// pageSize grid.
func (p *Pool) IsValid(page Page) bool {
	if len(page) == 0 {
		return false
	}
	addr := page.addr()
	if addr < p.firstAddr || addr > p.lastAddr {
		return false
	}
	return (addr-p.firstAddr)%uintptr(p.pageSize) == 0
}

// PageSize returns the size, in bytes, of each page.
func (p *Pool) PageSize() int { return p.pageSize }

// TotalNumberOfPages returns the (possibly reduced) number of pages in
// the pool.
func (p *Pool) TotalNumberOfPages() int { return p.numberOfPages }

// NumberOfPagesAvailable returns the number of pages currently free.
func (p *Pool) NumberOfPagesAvailable() int { return p.free.Len() }

// BaseBlockAddress returns the arena backing this pool.
func (p *Pool) BaseBlockAddress() []byte { return p.base }

// BaseBlockSize returns the size, in bytes, of the arena.
func (p *Pool) BaseBlockSize() int { return len(p.base) }

// Stats returns a point-in-time diagnostic snapshot.
func (p *Pool) Stats() Stats {
	return Stats{
		PageSize:        p.pageSize,
		TotalPages:      p.numberOfPages,
		PagesAvailable:  p.free.Len(),
		PagesCheckedOut: int(p.checkedOut.Load()),
	}
}

// Close releases the pool's base block via the configured OnRelease
// callback, exactly once. It does not validate that all pages have been
// returned first: per the design notes, the pool must outlive every
// container it minted, and that is a documented precondition, not a
// runtime check.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		if p.onRelease != nil {
			p.onRelease(p.base)
		}
		p.log.Debug("pagepool closed", "pool", p.id)
	})
}
