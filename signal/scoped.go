package signal

// Disconn is returned by ScopedSignal.Connect. Its Release method
// disconnects the associated slot; calling Release more than once, or
// never, is safe. This is the Go-native stand-in for the original's
// shared_ptr<function> slot ownership (spec.md §4.3, SPEC_FULL.md §7):
// Go has no destructor-on-scope-exit, so the caller must call Release
// explicitly rather than rely on a reference count reaching zero.
type Disconn struct {
	release func()
}

// Release disconnects the slot this handle was returned for. Idempotent.
func (d *Disconn) Release() {
	if d == nil || d.release == nil {
		return
	}
	d.release()
	d.release = nil
}

// ScopedSignal is synchronous like Signal; every connected slot is
// reachable only through the Disconn handle returned by Connect.
// Releasing a handle removes its slot from the table at once, so no Emit
// that snapshots the table afterwards invokes it.
type ScopedSignal[Args any] struct {
	reg *registry[Args]
}

// NewScoped returns an empty ScopedSignal.
func NewScoped[Args any]() *ScopedSignal[Args] {
	return &ScopedSignal[Args]{reg: newRegistry[Args]()}
}

// Connect registers slot and returns a Disconn handle whose Release
// disconnects it.
func (s *ScopedSignal[Args]) Connect(slot Slot[Args]) (*Disconn, error) {
	id, err := s.reg.connect(slot)
	if err != nil {
		return nil, err
	}
	reg := s.reg
	return &Disconn{release: func() { reg.disconnect(id) }}, nil
}

// Emit invokes every slot still connected, in connection order,
// aggregating failures into an *EmissionFailure built via
// go.uber.org/multierr, matching the other concurrency-facing variants.
func (s *ScopedSignal[Args]) Emit(args Args) error {
	entries := s.reg.snapshot()
	var causes []error
	for _, e := range entries {
		if err := invoke(e.slot, args); err != nil {
			causes = append(causes, err)
		}
	}
	return aggregateCauses(causes)
}

// Size returns the number of connected slots.
func (s *ScopedSignal[Args]) Size() int { return s.reg.size() }

// Empty reports whether no slots are connected.
func (s *ScopedSignal[Args]) Empty() bool { return s.reg.size() == 0 }

// Clear disconnects every slot.
func (s *ScopedSignal[Args]) Clear() { s.reg.clear() }
