package lockfree

import "sync/atomic"

// listNode is a singly-linked list element, identical in shape to
// stackNode but kept distinct since hash table buckets reuse this shape
// with a key field (see hashtable.go).
type listNode[T any] struct {
	value T
	next  atomic.Pointer[listNode[T]]
}

// List is a lock-free singly-linked list supporting push-front, pop-front,
// and forward traversal. Traversal sees a consistent snapshot of the head
// chain at some atomic moment; intermediate updates made concurrently may
// or may not be visible to an in-progress iteration.
type List[T any] struct {
	head atomic.Pointer[listNode[T]]
	size atomic.Int64
}

// NewList returns an empty list.
func NewList[T any]() *List[T] {
	return &List[T]{}
}

// PushFront links a new node at the head.
func (l *List[T]) PushFront(v T) {
	n := &listNode[T]{value: v}
	for {
		old := l.head.Load()
		n.next.Store(old)
		if l.head.CompareAndSwap(old, n) {
			l.size.Add(1)
			return
		}
	}
}

// PopFront removes and returns the head value, or ok=false if empty.
func (l *List[T]) PopFront() (v T, ok bool) {
	for {
		old := l.head.Load()
		if old == nil {
			return v, false
		}
		next := old.next.Load()
		if l.head.CompareAndSwap(old, next) {
			l.size.Add(-1)
			return old.value, true
		}
	}
}

// Front returns the head value without removing it.
func (l *List[T]) Front() (v T, ok bool) {
	n := l.head.Load()
	if n == nil {
		return v, false
	}
	return n.value, true
}

// Clear removes every element, returning the count removed.
func (l *List[T]) Clear() int {
	var removed int
	for {
		old := l.head.Load()
		if old == nil {
			return removed
		}
		if l.head.CompareAndSwap(old, nil) {
			// Walk the detached chain to count it; the chain is no longer
			// published so this walk needs no further synchronization.
			for n := old; n != nil; n = n.next.Load() {
				removed++
			}
			l.size.Add(int64(-removed))
			return removed
		}
	}
}

// Each calls fn for every value reachable from the head at the moment
// iteration starts, in head-to-tail order, stopping early if fn returns
// false. It takes no lock: per spec, each yielded value must only have
// existed at some moment between iterator creation and use.
func (l *List[T]) Each(fn func(T) bool) {
	for n := l.head.Load(); n != nil; n = n.next.Load() {
		if !fn(n.value) {
			return
		}
	}
}

// Size returns an approximate element count, exact only under quiescence.
func (l *List[T]) Size() int {
	return int(l.size.Load())
}
