package lockfree

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrOutOfRange is returned by Array.At when the index is >= the current
// size.
var ErrOutOfRange = errors.New("lockfree: index out of range")

const defaultArrayCapacity = 8

// arrayStorage is one generation of an Array's backing slots. slots holds
// pointers to the atomic cells themselves, not the cells by value: growth
// copies those pointers into a larger slice, so a cell reserved just
// before a resize is the *same* cell in every later generation. A pusher
// that captured a cell before a concurrent grow still writes into the
// one cell every generation agrees is index sz, so the write is never
// orphaned in storage nobody reads anymore (spec.md §4.2: "never a torn
// slot", "indices in [0, size) hold initialized values").
type arrayStorage[T any] struct {
	slots []*atomic.Pointer[T]
}

func newArrayStorage[T any](capacity int) *arrayStorage[T] {
	slots := make([]*atomic.Pointer[T], capacity)
	for i := range slots {
		slots[i] = &atomic.Pointer[T]{}
	}
	return &arrayStorage[T]{slots: slots}
}

// Array is a concurrent resizable array. Storage is replaced atomically
// on growth; a writer lock is held only for the duration of the copy, not
// for individual element access.
type Array[T any] struct {
	resizeMu sync.Mutex
	storage  atomic.Pointer[arrayStorage[T]]
	size     atomic.Int64
}

// NewArray returns an array with the given initial capacity, or
// defaultArrayCapacity when capacity is not positive.
func NewArray[T any](capacity int) *Array[T] {
	if capacity <= 0 {
		capacity = defaultArrayCapacity
	}
	a := &Array[T]{}
	a.storage.Store(newArrayStorage[T](capacity))
	return a
}

// PushBack appends v, growing storage first if the array is at capacity.
// The cell is resolved before the reservation CAS, so the value is
// written to the same cell object regardless of whether a concurrent
// grow replaces storage in between; size never advances past an
// uninitialized cell.
func (a *Array[T]) PushBack(v T) {
	for {
		s := a.storage.Load()
		sz := a.size.Load()
		if int(sz) >= len(s.slots) {
			a.grow(s)
			continue
		}
		cell := s.slots[sz]
		if a.size.CompareAndSwap(sz, sz+1) {
			cell.Store(&v)
			return
		}
	}
}

// PopBack removes and returns the last element, or ok=false if empty.
func (a *Array[T]) PopBack() (v T, ok bool) {
	for {
		sz := a.size.Load()
		if sz == 0 {
			return v, false
		}
		s := a.storage.Load()
		if int(sz) > len(s.slots) {
			continue // a grow is in flight; retry against the new generation
		}
		if a.size.CompareAndSwap(sz, sz-1) {
			cell := s.slots[sz-1]
			p := cell.Load()
			cell.Store(nil)
			if p == nil {
				return v, false
			}
			return *p, true
		}
	}
}

// At returns the element at index i, or ErrOutOfRange if i >= Size().
func (a *Array[T]) At(i int) (v T, err error) {
	if i < 0 || int64(i) >= a.size.Load() {
		return v, ErrOutOfRange
	}
	s := a.storage.Load()
	if i >= len(s.slots) {
		return v, ErrOutOfRange
	}
	p := s.slots[i].Load()
	if p == nil {
		return v, ErrOutOfRange
	}
	return *p, nil
}

// TryAt returns the element at index i and ok=true, or ok=false instead
// of an error when out of range.
func (a *Array[T]) TryAt(i int) (v T, ok bool) {
	v, err := a.At(i)
	return v, err == nil
}

// GetSpan returns a snapshot copy of the current elements; it never
// exposes the internal atomic slots.
func (a *Array[T]) GetSpan() []T {
	sz := int(a.size.Load())
	s := a.storage.Load()
	out := make([]T, 0, sz)
	for i := 0; i < sz && i < len(s.slots); i++ {
		p := s.slots[i].Load()
		if p == nil {
			break
		}
		out = append(out, *p)
	}
	return out
}

// Size returns the current element count.
func (a *Array[T]) Size() int {
	return int(a.size.Load())
}

// grow doubles capacity under the resize lock, copying the existing cell
// pointers into fresh storage before publishing it — the cells
// themselves are not duplicated, so a push racing the copy still writes
// through to whichever generation's slice a reader later consults. A
// double-checked load handles the case where a concurrent caller already
// grew while this one was waiting for the lock.
func (a *Array[T]) grow(observed *arrayStorage[T]) {
	a.resizeMu.Lock()
	defer a.resizeMu.Unlock()

	current := a.storage.Load()
	if current != observed {
		return // another pusher already grew it
	}

	next := newArrayStorage[T](len(current.slots) * 2)
	copy(next.slots, current.slots)
	a.storage.Store(next)
}
