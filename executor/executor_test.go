package executor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// ExecutorTestSuite holds test utilities and state.
type ExecutorTestSuite struct {
	suite.Suite
}

func TestExecutorTestSuite(t *testing.T) {
	suite.Run(t, new(ExecutorTestSuite))
}

func (ts *ExecutorTestSuite) newExecutor(configure func(*Config)) *Executor {
	cfg := DefaultConfig()
	cfg.MinThreads = 2
	cfg.MaxThreads = 4
	cfg.ThreadIdleTimeout = 50 * time.Millisecond
	if configure != nil {
		configure(&cfg)
	}
	e := New(cfg)
	e.Start()
	ts.T().Cleanup(e.Stop)
	return e
}

func (ts *ExecutorTestSuite) TestDefaultConfig() {
	cfg := DefaultConfig()
	ts.Equal(1, cfg.MinThreads)
	ts.True(cfg.MaxThreads >= 1)
	ts.True(cfg.UseWorkStealing)
	ts.Equal(30*time.Second, cfg.ThreadIdleTimeout)
	ts.NotNil(cfg.Logger)
}

func (ts *ExecutorTestSuite) TestNormalizeClampsInvalidConfig() {
	cfg := Config{MinThreads: -5, MaxThreads: 0, ThreadPriority: 500}.normalize()
	ts.Equal(1, cfg.MinThreads)
	ts.Equal(1, cfg.MaxThreads)
	ts.Equal(100, cfg.ThreadPriority)
	ts.NotNil(cfg.Logger)
}

func (ts *ExecutorTestSuite) TestSubmitImmediateRunsAndReturnsResult() {
	e := ts.newExecutor(nil)

	handle, err := Submit(e, Immediate, Normal, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	ts.Require().NoError(err)

	v, err := handle.Get()
	ts.NoError(err)
	ts.Equal(42, v)
}

func (ts *ExecutorTestSuite) TestSubmitEmptyTaskRejected() {
	e := ts.newExecutor(nil)
	_, err := Submit[int](e, Immediate, Normal, nil)
	ts.ErrorIs(err, ErrEmptyTask)
}

func (ts *ExecutorTestSuite) TestSubmitPropagatesTaskError() {
	e := ts.newExecutor(nil)
	wantErr := fmt.Errorf("boom")

	handle, err := Submit(e, Immediate, Normal, func(ctx context.Context) (int, error) {
		return 0, wantErr
	})
	ts.Require().NoError(err)

	_, err = handle.Get()
	ts.ErrorIs(err, wantErr)
}

func (ts *ExecutorTestSuite) TestPanicInTaskIsRecoveredAndReportedAsError() {
	e := ts.newExecutor(nil)

	handle, err := Submit(e, Immediate, Normal, func(ctx context.Context) (int, error) {
		panic("kaboom")
	})
	ts.Require().NoError(err)

	_, err = handle.Get()
	ts.Error(err)
	ts.Contains(err.Error(), "kaboom")

	// The worker that recovered the panic must still be alive afterward.
	handle2, err := Submit(e, Immediate, Normal, func(ctx context.Context) (int, error) {
		return 7, nil
	})
	ts.Require().NoError(err)
	v, err := handle2.Get()
	ts.NoError(err)
	ts.Equal(7, v)
}

func (ts *ExecutorTestSuite) TestPriorityOrderingUnderSingleWorker() {
	e := ts.newExecutor(func(c *Config) {
		c.MinThreads = 1
		c.MaxThreads = 1
		c.UseWorkStealing = false
	})

	var mu sync.Mutex
	var order []string
	var start sync.WaitGroup
	start.Add(1)

	// Block the single worker so all three submissions queue up before any run.
	block, err := Submit(e, Immediate, Critical, func(ctx context.Context) (int, error) {
		start.Wait()
		return 0, nil
	})
	ts.Require().NoError(err)

	record := func(label string) func(context.Context) (int, error) {
		return func(ctx context.Context) (int, error) {
			mu.Lock()
			order = append(order, label)
			mu.Unlock()
			return 0, nil
		}
	}

	// Give the blocking task time to actually start running.
	time.Sleep(20 * time.Millisecond)

	lowH, err := Submit(e, Immediate, Low, record("low"))
	ts.Require().NoError(err)
	highH, err := Submit(e, Immediate, High, record("high"))
	ts.Require().NoError(err)
	criticalH, err := Submit(e, Immediate, Critical, record("critical"))
	ts.Require().NoError(err)

	start.Done()
	_, _ = block.Get()
	_, _ = lowH.Get()
	_, _ = highH.Get()
	_, _ = criticalH.Get()

	ts.Equal([]string{"critical", "high", "low"}, order)
}

// TestPriorityOrderingUnderWorkStealing is the work-stealing counterpart
// to TestPriorityOrderingUnderSingleWorker: with a single worker there is
// nothing to steal from, so every submission lands and pops from that
// worker's own deque, which must honor priority order just as the global
// heap does.
func (ts *ExecutorTestSuite) TestPriorityOrderingUnderWorkStealing() {
	e := ts.newExecutor(func(c *Config) {
		c.MinThreads = 1
		c.MaxThreads = 1
		c.UseWorkStealing = true
	})

	var mu sync.Mutex
	var order []string
	var start sync.WaitGroup
	start.Add(1)

	block, err := Submit(e, Immediate, Critical, func(ctx context.Context) (int, error) {
		start.Wait()
		return 0, nil
	})
	ts.Require().NoError(err)

	record := func(label string) func(context.Context) (int, error) {
		return func(ctx context.Context) (int, error) {
			mu.Lock()
			order = append(order, label)
			mu.Unlock()
			return 0, nil
		}
	}

	time.Sleep(20 * time.Millisecond)

	lowH, err := Submit(e, Immediate, Low, record("low"))
	ts.Require().NoError(err)
	highH, err := Submit(e, Immediate, High, record("high"))
	ts.Require().NoError(err)
	criticalH, err := Submit(e, Immediate, Critical, record("critical"))
	ts.Require().NoError(err)

	start.Done()
	_, _ = block.Get()
	_, _ = lowH.Get()
	_, _ = highH.Get()
	_, _ = criticalH.Get()

	ts.Equal([]string{"critical", "high", "low"}, order)
}

func (ts *ExecutorTestSuite) TestDeferredTaskWaitsForExecuteDeferred() {
	e := ts.newExecutor(nil)

	ran := make(chan struct{}, 1)
	handle, err := Submit(e, Deferred, Normal, func(ctx context.Context) (int, error) {
		ran <- struct{}{}
		return 1, nil
	})
	ts.Require().NoError(err)

	select {
	case <-ran:
		ts.Fail("deferred task ran before ExecuteDeferred")
	case <-time.After(30 * time.Millisecond):
	}

	e.ExecuteDeferred()
	_, err = handle.Get()
	ts.NoError(err)
}

func (ts *ExecutorTestSuite) TestScheduleAfterRunsNoEarlierThanDelay() {
	e := ts.newExecutor(nil)

	start := time.Now()
	handle, err := ScheduleAfter(e, 60*time.Millisecond, Normal, func(ctx context.Context) (time.Time, error) {
		return time.Now(), nil
	})
	ts.Require().NoError(err)

	ran, err := handle.Get()
	ts.NoError(err)
	ts.True(ran.Sub(start) >= 60*time.Millisecond)
}

func (ts *ExecutorTestSuite) TestScheduleAfterRejectsNegativeDelay() {
	e := ts.newExecutor(nil)
	_, err := ScheduleAfter(e, -time.Second, Normal, func(ctx context.Context) (int, error) {
		return 0, nil
	})
	ts.ErrorIs(err, ErrInvalidDelay)
}

func (ts *ExecutorTestSuite) TestWaitForAllBlocksUntilQuiescent() {
	e := ts.newExecutor(nil)

	var completed atomicCounter
	for i := 0; i < 20; i++ {
		_, err := Submit(e, Immediate, Normal, func(ctx context.Context) (int, error) {
			time.Sleep(time.Millisecond)
			completed.inc()
			return 0, nil
		})
		ts.Require().NoError(err)
	}

	e.WaitForAll()
	ts.Equal(20, completed.get())
	ts.Equal(0, e.QueueSize())
	ts.Equal(0, e.ActiveCount())
}

func (ts *ExecutorTestSuite) TestWorkStealingDistributesLoad() {
	e := ts.newExecutor(func(c *Config) {
		c.MinThreads = 4
		c.MaxThreads = 4
		c.UseWorkStealing = true
	})

	const total = 400
	var wg sync.WaitGroup
	wg.Add(total)
	for i := 0; i < total; i++ {
		_, err := Submit(e, Immediate, Normal, func(ctx context.Context) (int, error) {
			defer wg.Done()
			return 0, nil
		})
		ts.Require().NoError(err)
	}
	wg.Wait()
	e.WaitForAll()
}

func (ts *ExecutorTestSuite) TestStopFailsPendingTasksWithPoolShutdown() {
	e := ts.newExecutor(func(c *Config) {
		c.MinThreads = 1
		c.MaxThreads = 1
	})

	var started sync.WaitGroup
	started.Add(1)
	release := make(chan struct{})
	_, err := Submit(e, Immediate, Normal, func(ctx context.Context) (int, error) {
		started.Done()
		<-release
		return 0, nil
	})
	ts.Require().NoError(err)
	started.Wait()

	handle, err := Submit(e, Immediate, Normal, func(ctx context.Context) (int, error) {
		return 0, nil
	})
	ts.Require().NoError(err)

	go func() {
		// Release the running task only after Stop has begun, so the
		// queued task is still pending when Stop drains the queues.
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()
	e.Stop()

	_, err = handle.Get()
	ts.ErrorIs(err, ErrPoolShutdown)
}

func (ts *ExecutorTestSuite) TestStopIsIdempotent() {
	e := ts.newExecutor(nil)
	e.Stop()
	e.Stop()
}

func (ts *ExecutorTestSuite) TestSubmitAfterStopReturnsPoolShutdown() {
	e := ts.newExecutor(nil)
	e.Stop()

	_, err := Submit(e, Immediate, Normal, func(ctx context.Context) (int, error) {
		return 0, nil
	})
	ts.ErrorIs(err, ErrPoolShutdown)
}

func (ts *ExecutorTestSuite) TestResizeGrow() {
	e := ts.newExecutor(func(c *Config) {
		c.MinThreads = 1
		c.MaxThreads = 1
	})

	err := e.Resize(3)
	ts.Require().NoError(err)

	e.workersMu.RLock()
	n := len(e.workers)
	e.workersMu.RUnlock()
	ts.Equal(3, n)
}

func (ts *ExecutorTestSuite) TestResizeShrinkRequeuesPendingWork() {
	e := ts.newExecutor(func(c *Config) {
		c.MinThreads = 2
		c.MaxThreads = 2
	})

	var completed atomicCounter
	for i := 0; i < 50; i++ {
		_, err := Submit(e, Immediate, Normal, func(ctx context.Context) (int, error) {
			completed.inc()
			return 0, nil
		})
		ts.Require().NoError(err)
	}

	ts.Require().NoError(e.Resize(1))
	e.WaitForAll()
	ts.Equal(50, completed.get())
}

func (ts *ExecutorTestSuite) TestResizeRejectsZero() {
	e := ts.newExecutor(nil)
	err := e.Resize(0)
	ts.Error(err)
}

func (ts *ExecutorTestSuite) TestClearQueueDropsPendingTasks() {
	e := ts.newExecutor(func(c *Config) {
		c.MinThreads = 1
		c.MaxThreads = 1
	})

	started := make(chan struct{})
	release := make(chan struct{})
	_, err := Submit(e, Immediate, Normal, func(ctx context.Context) (int, error) {
		close(started)
		<-release
		return 0, nil
	})
	ts.Require().NoError(err)
	<-started

	var handles []*ResultHandle[int]
	for i := 0; i < 5; i++ {
		h, err := Submit(e, Immediate, Normal, func(ctx context.Context) (int, error) {
			return 0, nil
		})
		ts.Require().NoError(err)
		handles = append(handles, h)
	}

	cleared := e.ClearQueue()
	ts.Equal(5, cleared)

	close(release)
	for _, h := range handles {
		_, err := h.Get()
		ts.ErrorIs(err, ErrPoolShutdown)
	}
}

// atomicCounter is a tiny test helper; production code uses go.uber.org/atomic directly.
type atomicCounter struct {
	mu sync.Mutex
	n  int
}

func (c *atomicCounter) inc() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *atomicCounter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
