package signal

import (
	"context"

	"go.uber.org/zap"

	"github.com/go-foundations/corepool/executor"
)

// AsyncSignal dispatches each connected slot as an executor task and
// blocks in Emit until every spawned task has terminated, successfully
// or not (spec.md §4.3). Slots give no inter-slot ordering guarantee;
// Emit's return value aggregates every slot's error via
// go.uber.org/multierr.
type AsyncSignal[Args any] struct {
	reg      *registry[Args]
	exec     *executor.Executor
	priority executor.Priority
	logger   *zap.Logger
}

// NewAsync returns an empty AsyncSignal that dispatches slots onto exec
// at the given priority. exec must already be started; AsyncSignal does
// not own its lifecycle. A nil logger is replaced with zap.NewNop().
func NewAsync[Args any](exec *executor.Executor, priority executor.Priority, logger *zap.Logger) *AsyncSignal[Args] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AsyncSignal[Args]{reg: newRegistry[Args](), exec: exec, priority: priority, logger: logger}
}

// Connect registers slot and returns its connection id.
func (s *AsyncSignal[Args]) Connect(slot Slot[Args]) (ConnID, error) {
	return s.reg.connect(slot)
}

// Disconnect removes a slot by id. Idempotent.
func (s *AsyncSignal[Args]) Disconnect(id ConnID) {
	s.reg.disconnect(id)
}

// Emit snapshots the slot set, submits one executor task per slot, then
// blocks until every task has a result. A slot error or panic is
// captured without cancelling the other in-flight slots.
func (s *AsyncSignal[Args]) Emit(args Args) error {
	entries := s.reg.snapshot()
	if len(entries) == 0 {
		return nil
	}

	handles := make([]*executor.ResultHandle[struct{}], len(entries))
	for i, e := range entries {
		slot := e.slot
		h, err := executor.Submit(s.exec, executor.Immediate, s.priority, func(context.Context) (struct{}, error) {
			return struct{}{}, invoke(slot, args)
		})
		if err != nil {
			// The executor itself is shut down; every slot fails the
			// same way, so short-circuit rather than submit the rest.
			s.logger.Warn("async signal emit could not submit slot task", zap.Error(err))
			causes := make([]error, len(entries))
			for j := range causes {
				causes[j] = err
			}
			return aggregateCauses(causes)
		}
		handles[i] = h
	}

	causes := make([]error, 0, len(handles))
	for _, h := range handles {
		if _, err := h.Wait(context.Background()); err != nil {
			causes = append(causes, err)
		}
	}
	if len(causes) > 0 {
		s.logger.Debug("async signal emit completed with slot failures", zap.Int("failures", len(causes)))
	}
	return aggregateCauses(causes)
}

// Size returns the number of connected slots.
func (s *AsyncSignal[Args]) Size() int { return s.reg.size() }

// Empty reports whether no slots are connected.
func (s *AsyncSignal[Args]) Empty() bool { return s.reg.size() == 0 }

// Clear disconnects every slot.
func (s *AsyncSignal[Args]) Clear() { s.reg.clear() }
