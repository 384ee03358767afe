package executor

import "sync"

// priorityQueue is the global task queue used when work stealing is
// disabled. It is a binary heap ordered by task.less, guarded by a single
// mutex since it is genuinely multi-writer/multi-reader (spec: "Global
// queue: multi-writer/multi-reader under an internal mutex").
//
// The heap shape (bubbleUp/bubbleDown/shouldSwap) follows the teacher's
// hand-rolled PriorityQueue in strategies/priority_based.go, generalized
// from job-priority-plus-creation-time ordering to task.less.
type priorityQueue struct {
	mu    sync.Mutex
	items []*task
}

func newPriorityQueue() *priorityQueue {
	return &priorityQueue{}
}

func (pq *priorityQueue) push(t *task) {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	pq.items = append(pq.items, t)
	pq.bubbleUp(len(pq.items) - 1)
}

func (pq *priorityQueue) pop() (*task, bool) {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	if len(pq.items) == 0 {
		return nil, false
	}

	t := pq.items[0]
	last := len(pq.items) - 1
	pq.items[0] = pq.items[last]
	pq.items[last] = nil
	pq.items = pq.items[:last]
	if len(pq.items) > 0 {
		pq.bubbleDown(0)
	}
	return t, true
}

// drain removes and returns every pending task, used on Stop to fail them
// with ErrPoolShutdown.
func (pq *priorityQueue) drain() []*task {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	drained := pq.items
	pq.items = nil
	return drained
}

func (pq *priorityQueue) size() int {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	return len(pq.items)
}

func (pq *priorityQueue) bubbleUp(index int) {
	for index > 0 {
		parent := (index - 1) / 2
		if pq.items[index].less(pq.items[parent]) {
			pq.items[parent], pq.items[index] = pq.items[index], pq.items[parent]
			index = parent
		} else {
			break
		}
	}
}

func (pq *priorityQueue) bubbleDown(index int) {
	for {
		left := 2*index + 1
		right := 2*index + 2
		smallest := index

		if left < len(pq.items) && pq.items[left].less(pq.items[smallest]) {
			smallest = left
		}
		if right < len(pq.items) && pq.items[right].less(pq.items[smallest]) {
			smallest = right
		}
		if smallest == index {
			break
		}
		pq.items[index], pq.items[smallest] = pq.items[smallest], pq.items[index]
		index = smallest
	}
}
