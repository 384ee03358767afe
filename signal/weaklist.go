package signal

import (
	"weak"

	"github.com/go-foundations/corepool/lockfree"
)

// listOfWeak adapts lockfree.List to hold weak.Pointer links, giving
// ChainedSignal's downstream set the same lock-free storage the slot
// tables use, generalized to a value type the List wasn't originally
// written against.
type listOfWeak[Args any] struct {
	list *lockfree.List[weak.Pointer[ChainedSignal[Args]]]
}

func newListOfWeak[Args any]() *listOfWeak[Args] {
	return &listOfWeak[Args]{list: lockfree.NewList[weak.Pointer[ChainedSignal[Args]]]()}
}

func (l *listOfWeak[Args]) pushFront(w weak.Pointer[ChainedSignal[Args]]) {
	l.list.PushFront(w)
}

func (l *listOfWeak[Args]) each(fn func(weak.Pointer[ChainedSignal[Args]]) bool) {
	l.list.Each(fn)
}

// pruneExpired rebuilds the list with only the links that are still
// alive at the moment of the call. Links added concurrently by another
// goroutine mid-prune may be lost; callers only invoke this from Emit,
// which already holds the liveSnapshot it computed from, so a lost
// concurrent Chain just means it is observed on the next Emit instead.
func (l *listOfWeak[Args]) pruneExpired() {
	var alive []weak.Pointer[ChainedSignal[Args]]
	l.list.Each(func(w weak.Pointer[ChainedSignal[Args]]) bool {
		if w.Value() != nil {
			alive = append(alive, w)
		}
		return true
	})
	l.list.Clear()
	for _, w := range alive {
		l.list.PushFront(w)
	}
}
