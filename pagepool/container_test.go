package pagepool

import "testing"

func TestContainerReleaseFiresExactlyOnce(t *testing.T) {
	calls := 0
	c := newContainer(make(Page, 8), func() { calls++ })

	c.Retain()
	if got := c.RefCount(); got != 2 {
		t.Fatalf("refCount after retain = %d, want 2", got)
	}

	c.Release()
	if calls != 0 {
		t.Fatalf("release fired early, calls = %d", calls)
	}

	c.Release()
	if calls != 1 {
		t.Fatalf("release did not fire, calls = %d", calls)
	}

	// Extra releases beyond the ref count must not re-trigger the action.
	c.Release()
	if calls != 1 {
		t.Fatalf("release fired again, calls = %d", calls)
	}
}
