package signal

// Signal is the baseline synchronous variant: Emit invokes every
// connected slot, in connection order, in the caller's own goroutine.
// Per spec.md §9's guidance, plain Signal exposes no disconnect-by-value
// operation (Go functions aren't comparable) — only Clear for bulk
// removal. Callers needing precise disconnect should use
// AutoDisconnectSignal.
type Signal[Args any] struct {
	reg *registry[Args]
}

// New returns an empty Signal.
func New[Args any]() *Signal[Args] {
	return &Signal[Args]{reg: newRegistry[Args]()}
}

// Connect registers slot and returns its connection id, for callers that
// want to hand the id to an AutoDisconnectSignal-style caller-managed
// table. Plain Signal itself exposes no Disconnect(id); use Clear to
// remove everything.
func (s *Signal[Args]) Connect(slot Slot[Args]) (ConnID, error) {
	return s.reg.connect(slot)
}

// Emit takes a snapshot of the connected slots and invokes each in
// connection order, in the caller's goroutine. A slot returning an error
// (or panicking) does not stop emission of subsequent slots; all
// failures are aggregated into an *EmissionFailure returned once
// emission completes.
func (s *Signal[Args]) Emit(args Args) error {
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

// Size returns the number of connected slots.
func (s *Signal[Args]) Size() int { return s.reg.size() }

// Empty reports whether no slots are connected.
func (s *Signal[Args]) Empty() bool { return s.reg.size() == 0 }

// Clear disconnects every slot.
func (s *Signal[Args]) Clear() { s.reg.clear() }
