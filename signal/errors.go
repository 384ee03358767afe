// Package signal implements the observer family described in spec.md
// §4.3: Signal, AsyncSignal, AutoDisconnectSignal, ChainedSignal,
// ThreadSafeSignal, LimitedSignal, and ScopedSignal. All variants share
// connect/disconnect semantics and differ only in emission and lifetime
// policy.
//
// Slot storage is a lockfree.HashTable keyed by a monotonically
// increasing ConnID: a signal's slot table is this package's client of
// the containers layer. The executor's own queues do not use the
// lockfree package; they are mutex-guarded heaps inside the executor.
package signal

import (
	"errors"

	"go.uber.org/multierr"
)

// Sentinel errors returned by signal operations. Wrapped variants (via
// github.com/pkg/errors) may carry additional context; compare with
// errors.Is.
var (
	// ErrInvalidSlot is returned by Connect when the supplied slot is nil.
	ErrInvalidSlot = errors.New("signal: invalid slot")

	// ErrExhausted is returned by LimitedSignal.Emit once its emission
	// budget is spent.
	ErrExhausted = errors.New("signal: exhausted")
)

// EmissionFailure aggregates the errors raised by one or more slots
// during a single Emit call. Slots that completed without error are not
// represented here.
type EmissionFailure struct {
	// Causes holds one error per failing slot, in connection order.
	Causes []error
}

func (e *EmissionFailure) Error() string {
	if len(e.Causes) == 1 {
		return "signal: slot failed: " + e.Causes[0].Error()
	}
	return "signal: multiple slots failed"
}

// Unwrap exposes the individual causes to errors.Is/errors.As via
// Go 1.20+ multi-error unwrapping.
func (e *EmissionFailure) Unwrap() []error {
	return e.Causes
}

// aggregateCauses folds causes, collected in connection order, into a
// single *EmissionFailure using go.uber.org/multierr the way
// SPEC_FULL.md wires it for the async/thread-safe/scoped variants. nil
// is returned when there are no causes, so callers can return it
// directly as the Emit error.
func aggregateCauses(causes []error) error {
	var combined error
	for _, c := range causes {
		combined = multierr.Append(combined, c)
	}
	if combined == nil {
		return nil
	}
	return &EmissionFailure{Causes: multierr.Errors(combined)}
}
