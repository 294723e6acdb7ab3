package queue

import "testing"

func TestTryPushTryPop(t *testing.T) {
	q := New[int](2)

	if q.Full() {
		t.Fatalf("fresh queue should not be full")
	}
	if !q.TryPush(1) {
		t.Fatalf("push 1 into empty queue should succeed")
	}
	if !q.TryPush(2) {
		t.Fatalf("push 2 into queue with one free slot should succeed")
	}
	if !q.Full() {
		t.Fatalf("queue at capacity should report full")
	}
	if q.TryPush(3) {
		t.Fatalf("push into full queue should fail")
	}

	v, ok := q.TryPop()
	if !ok || v != 1 {
		t.Fatalf("pop = (%d, %v), want (1, true)", v, ok)
	}
	v, ok = q.TryPop()
	if !ok || v != 2 {
		t.Fatalf("pop = (%d, %v), want (2, true)", v, ok)
	}

	if _, ok := q.TryPop(); ok {
		t.Fatalf("pop from empty queue should fail")
	}
}

func TestLenAndCap(t *testing.T) {
	q := New[string](4)
	if q.Cap() != 4 {
		t.Fatalf("cap = %d, want 4", q.Cap())
	}
	q.TryPush("a")
	q.TryPush("b")
	if q.Len() != 2 {
		t.Fatalf("len = %d, want 2", q.Len())
	}
}

func TestNewPanicsOnNonPositiveCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for zero capacity")
		}
	}()
	New[int](0)
}
