package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marketcore/ingestcore/internal/schema"
)

func TestScheduler_AddTaskAndTasks(t *testing.T) {
	s := New(func(ctx context.Context, task *ScheduledTask) error { return nil }, nil)
	s.AddTask(NewTask("t1", "equity", schema.DataTypeEquity, TierHigh, nil))
	s.AddTask(NewTask("t2", "macro", schema.DataTypeMacro, TierDaily, nil))

	if len(s.Tasks()) != 2 {
		t.Errorf("expected 2 tasks, got %d", len(s.Tasks()))
	}
}

func TestScheduler_FireRecordsSuccessAndFailure(t *testing.T) {
	var shouldFail int32
	s := New(func(ctx context.Context, task *ScheduledTask) error {
		if atomic.LoadInt32(&shouldFail) == 1 {
			return errors.New("boom")
		}
		return nil
	}, nil)

	task := NewTask("t1", "equity", schema.DataTypeEquity, TierHigh, nil)
	s.fire(context.Background(), task)
	_, _, stats, _ := task.Snapshot()
	if stats.SuccessCount != 1 {
		t.Errorf("expected 1 success, got %d", stats.SuccessCount)
	}

	atomic.StoreInt32(&shouldFail, 1)
	s.fire(context.Background(), task)
	_, _, stats, _ = task.Snapshot()
	if stats.FailureCount != 1 {
		t.Errorf("expected 1 failure, got %d", stats.FailureCount)
	}
}

func TestScheduler_StopStopsTheWakeLoop(t *testing.T) {
	s := New(func(ctx context.Context, task *ScheduledTask) error { return nil }, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	s.Stop(time.Second)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("expected Start to return after Stop")
	}
}
