package pagepool

import "sync/atomic"

// Container is a reference-counted handle to one page. When the last
// reference is dropped, its release action runs exactly once, typically
// recycling the page back to the pool that minted it.
//
// The release action captures its owning pool by closure, a non-owning
// capability per the design notes: Container never holds a pointer back
// to Pool, so the pool is free to assume every container it minted will
// have stopped calling Release before the pool itself is closed.
type Container struct {
	page Page

	refs     atomic.Int32
	released atomic.Bool
	release  func()
}

func newContainer(page Page, release func()) *Container {
	c := &Container{page: page, release: release}
	c.refs.Store(1)
	return c
}

// Page returns the page this container wraps.
func (c *Container) Page() Page { return c.page }

// Retain adds one reference and returns c, for chaining at fan-out points
// (e.g. handing the same block to more than one downstream consumer).
func (c *Container) Retain() *Container {
	c.refs.Add(1)
	return c
}

// Release drops one reference. When the count reaches zero, the release
// action fires exactly once, regardless of how many goroutines call
// Release concurrently.
func (c *Container) Release() {
	if c.refs.Add(-1) == 0 {
		if c.released.CompareAndSwap(false, true) {
			c.release()
		}
	}
}

// RefCount reports the current reference count. Intended for tests and
// diagnostics; not meaningful to gate behavior on outside of those, since
// it can change the instant it's read.
func (c *Container) RefCount() int32 {
	return c.refs.Load()
}
