package safe

import (
	"errors"
	"testing"
)

func TestListKeepsInsertionOrder(t *testing.T) {
	l := NewList[int]()
	for _, v := range []int{3, 1, 2} {
		l.PushBack(v)
	}

	got := l.Items()
	want := []int{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	if l.Len() != 3 {
		t.Fatalf("expected 3 items, got %d", l.Len())
	}
}

func TestLimitedListDropsSilently(t *testing.T) {
	ll := NewLimitedList[string](2, OverflowDrop)
	for _, v := range []string{"a", "b", "c", "d"} {
		if err := ll.Push(v); err != nil {
			t.Fatalf("drop policy must not fail: %v", err)
		}
	}

	if ll.Len() != 2 {
		t.Fatalf("expected 2 items, got %d", ll.Len())
	}
	if items := ll.Items(); items[0] != "a" || items[1] != "b" {
		t.Fatalf("expected first two pushes kept, got %v", items)
	}
	if ll.Dropped() != 2 {
		t.Fatalf("expected 2 dropped, got %d", ll.Dropped())
	}
}

func TestLimitedListErrorPolicy(t *testing.T) {
	ll := NewLimitedList[int](1, OverflowError)
	if err := ll.Push(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ll.Push(2); !errors.Is(err, ErrFull) {
		t.Fatalf("expected ErrFull, got %v", err)
	}
	if ll.Len() != 1 || ll.Cap() != 1 {
		t.Fatalf("unexpected len=%d cap=%d", ll.Len(), ll.Cap())
	}
}
