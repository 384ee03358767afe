package executor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type PriorityQueueTestSuite struct {
	suite.Suite
}

func TestPriorityQueueTestSuite(t *testing.T) {
	suite.Run(t, new(PriorityQueueTestSuite))
}

func (ts *PriorityQueueTestSuite) TestPopReturnsHighestPriorityFirst() {
	pq := newPriorityQueue()
	pq.push(&task{priority: Low, seq: 1})
	pq.push(&task{priority: Critical, seq: 2})
	pq.push(&task{priority: Normal, seq: 3})
	pq.push(&task{priority: High, seq: 4})

	order := []Priority{}
	for {
		t, ok := pq.pop()
		if !ok {
			break
		}
		order = append(order, t.priority)
	}

	ts.Equal([]Priority{Critical, High, Normal, Low}, order)
}

func (ts *PriorityQueueTestSuite) TestEqualPriorityIsFIFO() {
	pq := newPriorityQueue()
	pq.push(&task{priority: Normal, seq: 1})
	pq.push(&task{priority: Normal, seq: 2})
	pq.push(&task{priority: Normal, seq: 3})

	for _, want := range []uint64{1, 2, 3} {
		t, ok := pq.pop()
		ts.Require().True(ok)
		ts.Equal(want, t.seq)
	}
}

func (ts *PriorityQueueTestSuite) TestPopOnEmptyReturnsFalse() {
	pq := newPriorityQueue()
	_, ok := pq.pop()
	ts.False(ok)
}

func (ts *PriorityQueueTestSuite) TestDrainEmptiesQueue() {
	pq := newPriorityQueue()
	pq.push(&task{priority: Normal, seq: 1})
	pq.push(&task{priority: High, seq: 2})

	drained := pq.drain()
	ts.Len(drained, 2)
	ts.Equal(0, pq.size())
}

func TestScheduledHeapOrdersByNotBefore(t *testing.T) {
	h := newScheduledHeap()
	now := time.Now()
	h.push(&task{seq: 1, notBefore: now.Add(3 * time.Second)})
	h.push(&task{seq: 2, notBefore: now.Add(1 * time.Second)})
	h.push(&task{seq: 3, notBefore: now.Add(2 * time.Second)})

	next, ok := h.peek()
	if !ok || next.seq != 2 {
		t.Fatalf("expected seq 2 to be earliest, got %+v", next)
	}

	var seqs []uint64
	for {
		task, ok := h.pop()
		if !ok {
			break
		}
		seqs = append(seqs, task.seq)
	}
	if len(seqs) != 3 || seqs[0] != 2 || seqs[1] != 3 || seqs[2] != 1 {
		t.Fatalf("unexpected pop order: %v", seqs)
	}
}
