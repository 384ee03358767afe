package signal

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/go-foundations/corepool/executor"
)

// ThreadSafeSignal adds an explicit shared-reader lock on top of the
// registry's already-lock-free storage (spec.md §4.3): Connect/Disconnect
// take the writer side, Emit takes the reader side just long enough to
// copy the slot snapshot, then releases it before running any slot. When
// the snapshot is larger than ParallelThreshold, slots run concurrently
// via the executor, joined with an errgroup.Group so Emit still returns
// only after every slot has terminated; below the threshold, slots run
// synchronously in the caller's goroutine, in connection order, exactly
// like Signal.
type ThreadSafeSignal[Args any] struct {
	mu   sync.RWMutex
	reg  *registry[Args]
	exec *executor.Executor

	// ParallelThreshold is the slot count above which Emit dispatches
	// slots in parallel via exec instead of running them inline.
	ParallelThreshold int
	priority          executor.Priority
}

// NewThreadSafe returns an empty ThreadSafeSignal. exec and priority are
// only consulted once the snapshot size exceeds threshold; a zero or
// negative threshold means "always dispatch via the executor".
func NewThreadSafe[Args any](exec *executor.Executor, priority executor.Priority, threshold int) *ThreadSafeSignal[Args] {
	return &ThreadSafeSignal[Args]{
		reg:               newRegistry[Args](),
		exec:              exec,
		priority:          priority,
		ParallelThreshold: threshold,
	}
}

// Connect registers slot under the writer lock and returns its
// connection id.
func (s *ThreadSafeSignal[Args]) Connect(slot Slot[Args]) (ConnID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.connect(slot)
}

// Disconnect removes a slot by id under the writer lock. Idempotent.
func (s *ThreadSafeSignal[Args]) Disconnect(id ConnID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reg.disconnect(id)
}

// Emit takes a snapshot under the reader lock, releases it, then
// dispatches per the threshold policy described on the type.
func (s *ThreadSafeSignal[Args]) Emit(args Args) error {
	s.mu.RLock()
	entries := s.reg.snapshot()
	s.mu.RUnlock()

	if len(entries) == 0 {
		return nil
	}
	if s.exec == nil || len(entries) <= s.ParallelThreshold {
		var causes []error
		for _, e := range entries {
			if err := invoke(e.slot, args); err != nil {
				causes = append(causes, err)
			}
		}
		return aggregateCauses(causes)
	}
	return s.emitParallel(entries, args)
}

func (s *ThreadSafeSignal[Args]) emitParallel(entries []slotEntry[Args], args Args) error {
	// One cell per slot, indexed like entries, so causes stay in
	// connection order whatever order the slots finish in.
	causes := make([]error, len(entries))

	g, _ := errgroup.WithContext(context.Background())
	for i, e := range entries {
		slot := e.slot
		g.Go(func() error {
			h, err := executor.Submit(s.exec, executor.Immediate, s.priority, func(context.Context) (struct{}, error) {
				return struct{}{}, invoke(slot, args)
			})
			if err != nil {
				causes[i] = err
				return nil
			}
			if _, err := h.Wait(context.Background()); err != nil {
				causes[i] = err
			}
			return nil
		})
	}
	_ = g.Wait() // slot functions never return a non-nil error themselves; causes is the real result
	return aggregateCauses(causes)
}

// Size returns the number of connected slots.
func (s *ThreadSafeSignal[Args]) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reg.size()
}

// Empty reports whether no slots are connected.
func (s *ThreadSafeSignal[Args]) Empty() bool { return s.Size() == 0 }

// Clear disconnects every slot under the writer lock.
func (s *ThreadSafeSignal[Args]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reg.clear()
}
