package pagepool

import (
	"testing"

	"github.com/dot5enko/readout-core/datablock"
)

func TestPoolBasics(t *testing.T) {
	p, err := New(Config{PageSize: 64, NumberOfPages: 4})
	if err != nil {
		t.Fatalf("New: %s", err)
	}

	var pages []Page
	for i := 0; i < 4; i++ {
		page, ok := p.Acquire()
		if !ok {
			t.Fatalf("acquire %d: expected a page", i)
		}
		pages = append(pages, page)
	}

	if _, ok := p.Acquire(); ok {
		t.Fatalf("acquire beyond capacity should fail")
	}
	if n := p.NumberOfPagesAvailable(); n != 0 {
		t.Fatalf("pagesAvailable = %d, want 0", n)
	}

	for _, page := range pages {
		if err := p.Release(page); err != nil {
			t.Fatalf("Release: %s", err)
		}
	}

	for i := 0; i < 4; i++ {
		if _, ok := p.Acquire(); !ok {
			t.Fatalf("acquire %d after release: expected a page", i)
		}
	}
}

func TestPoolAlignmentReduction(t *testing.T) {
	p, err := New(Config{
		PageSize:        4096,
		NumberOfPages:   4,
		BaseSize:        16384,
		FirstPageOffset: 8192,
	})
	if err != nil {
		t.Fatalf("New: %s", err)
	}

	if got := p.TotalNumberOfPages(); got != 2 {
		t.Fatalf("totalNumberOfPages = %d, want 2", got)
	}
	if got := p.NumberOfPagesAvailable(); got != 2 {
		t.Fatalf("pagesAvailable = %d, want 2", got)
	}
}

func TestNewRejectsInvalidConstruction(t *testing.T) {
	cases := []Config{
		{PageSize: 0, NumberOfPages: 4},
		{PageSize: 64, NumberOfPages: 0},
		{PageSize: 64, NumberOfPages: 4, BaseSize: 0, Base: []byte{}},
		{PageSize: 64, NumberOfPages: 4, BaseSize: 64, FirstPageOffset: 64},
	}
	for i, cfg := range cases {
		if _, err := New(cfg); err == nil {
			t.Fatalf("case %d: expected ErrInvalidConstruction", i)
		}
	}
}

func TestReleaseRejectsForeignPage(t *testing.T) {
	p, err := New(Config{PageSize: 64, NumberOfPages: 2})
	if err != nil {
		t.Fatalf("New: %s", err)
	}

	foreign := make(Page, 64)
	if err := p.Release(foreign); err == nil {
		t.Fatalf("expected ErrInvalidPage releasing a foreign page")
	}
}

func TestWrapWritesDefaultHeaderAndRecyclesOnRelease(t *testing.T) {
	p, err := New(Config{PageSize: 128, NumberOfPages: 1})
	if err != nil {
		t.Fatalf("New: %s", err)
	}

	c, err := p.Wrap(nil)
	if err != nil {
		t.Fatalf("Wrap: %s", err)
	}
	if p.NumberOfPagesAvailable() != 0 {
		t.Fatalf("pagesAvailable after wrap = %d, want 0", p.NumberOfPagesAvailable())
	}
	if h, err := datablock.Decode(c.Page()); err != nil || h != datablock.Default(128) {
		t.Fatalf("header after wrap = %+v (err %v), want default header", h, err)
	}

	c.Release()
	if p.NumberOfPagesAvailable() != 1 {
		t.Fatalf("pagesAvailable after release = %d, want 1", p.NumberOfPagesAvailable())
	}
}

func TestWrapFailsWhenExhausted(t *testing.T) {
	p, err := New(Config{PageSize: 64, NumberOfPages: 1})
	if err != nil {
		t.Fatalf("New: %s", err)
	}

	if _, err := p.Wrap(nil); err != nil {
		t.Fatalf("Wrap: %s", err)
	}
	if _, err := p.Wrap(nil); err != ErrPoolExhausted {
		t.Fatalf("Wrap on exhausted pool: got %v, want ErrPoolExhausted", err)
	}
}

func TestCloseInvokesOnReleaseExactlyOnce(t *testing.T) {
	calls := 0
	p, err := New(Config{
		PageSize:      64,
		NumberOfPages: 1,
		OnRelease:     func([]byte) { calls++ },
	})
	if err != nil {
		t.Fatalf("New: %s", err)
	}

	p.Close()
	p.Close()

	if calls != 1 {
		t.Fatalf("onRelease called %d times, want 1", calls)
	}
}
