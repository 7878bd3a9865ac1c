package safe

import (
	"container/list"
	"errors"
	"sync"
)

// ErrFull is returned by LimitedList.Push under the OverflowError policy.
var ErrFull = errors.New("list is full")

// List is a thread-safe linkedlist that keeps insertion order.
type List[T any] struct {
	sync.RWMutex
	linkedlist *list.List
}

func NewList[T any]() *List[T] {
	return &List[T]{linkedlist: list.New()}
}

func (l *List[T]) PushBack(v T) *list.Element {
	l.Lock()
	e := l.linkedlist.PushBack(v)
	l.Unlock()
	return e
}

// Items returns a copy of the elements, oldest first.
func (l *List[T]) Items() []T {
	l.RLock()
	defer l.RUnlock()

	items := make([]T, 0, l.linkedlist.Len())
	for e := l.linkedlist.Front(); e != nil; e = e.Next() {
		item, ok := e.Value.(T)
		if ok {
			items = append(items, item)
		}
	}
	return items
}

func (l *List[T]) Len() int {
	l.RLock()
	size := l.linkedlist.Len()
	l.RUnlock()
	return size
}

type OverflowPolicy int

const (
	// OverflowDrop silently discards pushes once the list is full.
	OverflowDrop OverflowPolicy = iota
	// OverflowError rejects pushes once the list is full.
	OverflowError
)

// LimitedList is List with Limited Size
type LimitedList[T any] struct {
	maxSize int
	policy  OverflowPolicy
	dropped int
	list    *List[T]
}

func NewLimitedList[T any](maxSize int, policy OverflowPolicy) *LimitedList[T] {
	return &LimitedList[T]{list: NewList[T](), maxSize: maxSize, policy: policy}
}

// Push appends v unless the list is full. A full list drops v, or returns
// ErrFull under OverflowError.
func (ll *LimitedList[T]) Push(v T) error {
	if ll.list.Len() >= ll.maxSize {
		if ll.policy == OverflowError {
			return ErrFull
		}
		ll.list.Lock()
		ll.dropped++
		ll.list.Unlock()
		return nil
	}

	ll.list.PushBack(v)
	return nil
}

// Dropped is the number of pushes discarded under OverflowDrop.
func (ll *LimitedList[T]) Dropped() int {
	ll.list.RLock()
	defer ll.list.RUnlock()
	return ll.dropped
}

func (ll *LimitedList[T]) Cap() int {
	return ll.maxSize
}

func (ll *LimitedList[T]) Items() []T {
	return ll.list.Items()
}

func (ll *LimitedList[T]) Len() int {
	return ll.list.Len()
}
