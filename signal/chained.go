package signal

import "weak"

// ChainedSignal is synchronous like Signal, but after running its own
// slots it forwards the same Emit to zero or more downstream signals.
// Downstream links are held by weak.Pointer (grounded on
// joeycumines-go-utilpkg/eventloop/registry.go's use of the same stdlib
// package for its promise registry): once the caller drops its last
// strong reference to a downstream ChainedSignal, the link expires and
// is silently pruned on the next Emit, per spec.md's scenario 6.
type ChainedSignal[Args any] struct {
	reg  *registry[Args]
	down *listOfWeak[Args]
}

// NewChained returns an empty ChainedSignal with no downstream links.
func NewChained[Args any]() *ChainedSignal[Args] {
	return &ChainedSignal[Args]{reg: newRegistry[Args](), down: newListOfWeak[Args]()}
}

// Connect registers slot and returns its connection id.
func (s *ChainedSignal[Args]) Connect(slot Slot[Args]) (ConnID, error) {
	return s.reg.connect(slot)
}

// Chain forwards this signal's future emissions to downstream as well,
// holding only a weak reference to it.
func (s *ChainedSignal[Args]) Chain(downstream *ChainedSignal[Args]) {
	s.down.pushFront(weak.Make(downstream))
}

// ChainedCount returns the number of downstream links that are still
// alive, pruning any that have expired. Matches spec.md scenario 6's
// "S1's size of chained signals is zero afterwards" check.
func (s *ChainedSignal[Args]) ChainedCount() int {
	return len(s.liveDownstream())
}

// liveDownstream collects downstream signals still reachable and prunes
// expired links as a side effect.
func (s *ChainedSignal[Args]) liveDownstream() []*ChainedSignal[Args] {
	var live []*ChainedSignal[Args]
	var sawExpired bool
	s.down.each(func(w weak.Pointer[ChainedSignal[Args]]) bool {
		if d := w.Value(); d != nil {
			live = append(live, d)
		} else {
			sawExpired = true
		}
		return true
	})
	if sawExpired {
		s.down.pruneExpired()
	}
	return live
}

// Emit runs local slots in connection order, then forwards to every
// downstream link still alive, pruning expired ones as it goes.
func (s *ChainedSignal[Args]) Emit(args Args) error {
	entries := s.reg.snapshot()
	var causes []error
	for _, e := range entries {
		if err := invoke(e.slot, args); err != nil {
			causes = append(causes, err)
		}
	}

	for _, d := range s.liveDownstream() {
		if err := d.Emit(args); err != nil {
			causes = append(causes, err)
		}
	}

	if len(causes) == 0 {
		return nil
	}
	return &EmissionFailure{Causes: causes}
}

// Size returns the number of connected local slots.
func (s *ChainedSignal[Args]) Size() int { return s.reg.size() }

// Empty reports whether no local slots are connected.
func (s *ChainedSignal[Args]) Empty() bool { return s.reg.size() == 0 }

// Clear disconnects every local slot (downstream links are unaffected).
func (s *ChainedSignal[Args]) Clear() { s.reg.clear() }
