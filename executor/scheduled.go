package executor

import "sync"

// scheduledHeap is a min-heap of tasks ordered by notBefore instant. A
// single timer goroutine owns popping due tasks; submitters push under the
// same mutex (spec.md §5: "Scheduled heap: single timer fiber mutates;
// submitters push under an internal mutex").
type scheduledHeap struct {
	mu    sync.Mutex
	items []*task
}

func newScheduledHeap() *scheduledHeap {
	return &scheduledHeap{}
}

func (h *scheduledHeap) push(t *task) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = append(h.items, t)
	h.bubbleUp(len(h.items) - 1)
}

// peek returns the earliest-due task without removing it.
func (h *scheduledHeap) peek() (*task, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.items) == 0 {
		return nil, false
	}
	return h.items[0], true
}

func (h *scheduledHeap) pop() (*task, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.items) == 0 {
		return nil, false
	}

	t := h.items[0]
	last := len(h.items) - 1
	h.items[0] = h.items[last]
	h.items[last] = nil
	h.items = h.items[:last]
	if len(h.items) > 0 {
		h.bubbleDown(0)
	}
	return t, true
}

func (h *scheduledHeap) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.items)
}

func (h *scheduledHeap) drain() []*task {
	h.mu.Lock()
	defer h.mu.Unlock()
	drained := h.items
	h.items = nil
	return drained
}

func (h *scheduledHeap) before(i, j int) bool {
	return h.items[i].notBefore.Before(h.items[j].notBefore)
}

func (h *scheduledHeap) bubbleUp(index int) {
	for index > 0 {
		parent := (index - 1) / 2
		if h.before(index, parent) {
			h.items[parent], h.items[index] = h.items[index], h.items[parent]
			index = parent
		} else {
			break
		}
	}
}

func (h *scheduledHeap) bubbleDown(index int) {
	for {
		left := 2*index + 1
		right := 2*index + 2
		smallest := index

		if left < len(h.items) && h.before(left, smallest) {
			smallest = left
		}
		if right < len(h.items) && h.before(right, smallest) {
			smallest = right
		}
		if smallest == index {
			break
		}
		h.items[index], h.items[smallest] = h.items[smallest], h.items[index]
		index = smallest
	}
}
