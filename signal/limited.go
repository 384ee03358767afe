package signal

import "go.uber.org/atomic"

// LimitedSignal is synchronous like Signal but performs side effects for
// at most N emits over its lifetime (spec.md §4.3); subsequent emits
// return ErrExhausted without invoking any slot. Reset restores the
// budget.
type LimitedSignal[Args any] struct {
	reg     *registry[Args]
	budget  int
	emitted atomic.Int64
}

// NewLimited returns an empty LimitedSignal with the given emission
// budget. budget must be > 0 (spec.md §4.3 "N > 0 required at
// construction"); a non-positive value is clamped to 1.
func NewLimited[Args any](budget int) *LimitedSignal[Args] {
	if budget <= 0 {
		budget = 1
	}
	return &LimitedSignal[Args]{reg: newRegistry[Args](), budget: budget}
}

// Connect registers slot and returns its connection id.
func (s *LimitedSignal[Args]) Connect(slot Slot[Args]) (ConnID, error) {
	return s.reg.connect(slot)
}

// Emit invokes every connected slot, in connection order, as long as the
// emission budget is not yet spent; otherwise it returns ErrExhausted
// without any side effect.
func (s *LimitedSignal[Args]) Emit(args Args) error {
	for {
		used := s.emitted.Load()
		if used >= int64(s.budget) {
			return ErrExhausted
		}
		if s.emitted.CompareAndSwap(used, used+1) {
			break
		}
	}

	entries := s.reg.snapshot()
	var causes []error
	for _, e := range entries {
		if err := invoke(e.slot, args); err != nil {
			causes = append(causes, err)
		}
	}
	if len(causes) == 0 {
		return nil
	}
	return &EmissionFailure{Causes: causes}
}

// Reset restores the full emission budget.
func (s *LimitedSignal[Args]) Reset() {
	s.emitted.Store(0)
}

// Remaining returns how many emits with side effects are still available.
func (s *LimitedSignal[Args]) Remaining() int {
	r := int64(s.budget) - s.emitted.Load()
	if r < 0 {
		return 0
	}
	return int(r)
}

// Size returns the number of connected slots.
func (s *LimitedSignal[Args]) Size() int { return s.reg.size() }

// Empty reports whether no slots are connected.
func (s *LimitedSignal[Args]) Empty() bool { return s.reg.size() == 0 }

// Clear disconnects every slot.
func (s *LimitedSignal[Args]) Clear() { s.reg.clear() }
