package signal

import (
	"fmt"
	"sort"

	"go.uber.org/atomic"

	"github.com/go-foundations/corepool/lockfree"
)

// ConnID identifies a slot within a single signal. It is monotonic per
// signal and never reused within the signal's lifetime (spec.md §3).
type ConnID uint64

// Slot is a callable registered with a signal. Returning a non-nil error
// is this package's equivalent of the original's "slot exceptions":
// Emit wraps it into an EmissionFailure rather than letting it escape.
type Slot[Args any] func(Args) error

type slotEntry[Args any] struct {
	id   ConnID
	slot Slot[Args]
}

// registry is the slot table shared by every signal variant: a
// lockfree.HashTable keyed by connection id, plus the monotonic id
// counter. Connection ids are assigned in increasing order, so sorting a
// snapshot by id recovers connection order without a separate ordering
// structure.
type registry[Args any] struct {
	table  *lockfree.HashTable[ConnID, Slot[Args]]
	nextID atomic.Uint64
}

func newRegistry[Args any]() *registry[Args] {
	return &registry[Args]{table: lockfree.NewHashTable[ConnID, Slot[Args]](16)}
}

// connect registers slot and returns its connection id. Rejects nil
// slots with ErrInvalidSlot.
func (r *registry[Args]) connect(slot Slot[Args]) (ConnID, error) {
	if slot == nil {
		return 0, ErrInvalidSlot
	}
	id := ConnID(r.nextID.Add(1))
	r.table.Insert(id, slot)
	return id, nil
}

// disconnect removes a slot by id. Idempotent: disconnecting an absent
// id is a no-op.
func (r *registry[Args]) disconnect(id ConnID) {
	r.table.Erase(id)
}

// snapshot copies the slot set in connection order (spec.md §4.3
// "Emission snapshot rule"). Slots connected or disconnected after
// snapshot returns are not observed by the caller's in-flight emit. The
// copy is built by walking the table bucket by bucket without a lock, so
// it is not a point-in-time copy: a connect or disconnect that runs
// concurrently with the walk may or may not be included. Only
// ThreadSafeSignal, which holds its writer lock around Connect,
// Disconnect and Clear, excludes that overlap.
func (r *registry[Args]) snapshot() []slotEntry[Args] {
	entries := make([]slotEntry[Args], 0, r.size())
	r.table.Each(func(id ConnID, s Slot[Args]) bool {
		entries = append(entries, slotEntry[Args]{id: id, slot: s})
		return true
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })
	return entries
}

func (r *registry[Args]) size() int {
	return r.table.Size()
}

func (r *registry[Args]) clear() {
	r.table.Each(func(id ConnID, _ Slot[Args]) bool {
		r.table.Erase(id)
		return true
	})
}

// invoke runs slot, converting a panic into an error the same way
// executor.runTask does for tasks, so a misbehaving slot cannot take
// down the caller's goroutine.
func invoke[Args any](s Slot[Args], args Args) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("signal: slot panicked: %v", rec)
		}
	}()
	return s(args)
}
