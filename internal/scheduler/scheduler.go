package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/marketcore/ingestcore/internal/observability/metrics"
)

const wakeInterval = 10 * time.Second

// RunFunc executes one scheduled task invocation; its error, if any, is
// fed into the task's retry/backoff bookkeeping.
type RunFunc func(ctx context.Context, task *ScheduledTask) error

// Scheduler owns the tick loop that fires due tasks.
type Scheduler struct {
	mu       sync.RWMutex
	tasks    []*ScheduledTask
	run      RunFunc
	metrics  *metrics.Registry
	shutdown chan struct{}
	done     chan struct{}
}

func New(run RunFunc, reg *metrics.Registry) *Scheduler {
	return &Scheduler{run: run, metrics: reg, shutdown: make(chan struct{}), done: make(chan struct{})}
}

func (s *Scheduler) AddTask(t *ScheduledTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, t)
}

func (s *Scheduler) Tasks() []*ScheduledTask {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ScheduledTask, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Start runs the wake loop until ctx is canceled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(wakeInterval)
	defer ticker.Stop()
	defer close(s.done)

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.shutdown:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now()
	var active, disabled int64
	for _, t := range s.Tasks() {
		enabled, _, _, _ := t.Snapshot()
		if enabled {
			active++
		} else {
			disabled++
		}
		if !t.due(now) {
			continue
		}
		go s.fire(ctx, t)
	}
	if s.metrics != nil {
		s.metrics.SchedulerTasksActive.Set(float64(active))
		s.metrics.SchedulerTasksDisabled.Set(float64(disabled))
	}
}

func (s *Scheduler) fire(ctx context.Context, t *ScheduledTask) {
	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err := s.run(runCtx, t)
	dur := time.Since(start)

	if err != nil {
		t.recordFailure(start, dur, err.Error())
		log.Error().Str("task", t.Name).Err(err).Dur("duration", dur).Msg("scheduled task failed")
		return
	}
	t.recordSuccess(start, dur)
}

// Stop requests the loop exit and waits up to grace for it to do so.
func (s *Scheduler) Stop(grace time.Duration) {
	close(s.shutdown)
	select {
	case <-s.done:
	case <-time.After(grace):
	}
}
