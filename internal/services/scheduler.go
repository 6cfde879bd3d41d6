package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

// Scheduler runs named recurring tasks off a clock. Task bodies never run
// concurrently with each other, so the collector and the sweeper behave as
// if they shared one event loop.
type Scheduler struct {
	clock  clock.WithTicker
	logger *zap.Logger

	loopMu sync.Mutex // held while a task body runs

	mu      sync.Mutex
	tasks   []scheduledTask
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

type scheduledTask struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context)
}

// NewScheduler creates a stopped scheduler. A nil clock uses the wall clock.
func NewScheduler(clk clock.WithTicker, logger *zap.Logger) *Scheduler {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{clock: clk, logger: logger}
}

// Every registers fn to run once per interval after Start. Tasks added
// while the scheduler is running are picked up on the next Start.
func (s *Scheduler) Every(name string, interval time.Duration, fn func(ctx context.Context)) {
	if interval <= 0 {
		panic(fmt.Sprintf("scheduler: task %q has non-positive interval %v", name, interval))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, scheduledTask{name: name, interval: interval, fn: fn})
}

// Start launches one ticker per task. It returns immediately; tasks stop
// when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, t := range s.tasks {
		ticker := s.clock.NewTicker(t.interval)
		s.wg.Add(1)
		go s.loop(ctx, t, ticker)
		s.logger.Info("Task scheduled", zap.String("task", t.name), zap.Duration("interval", t.interval))
	}
}

func (s *Scheduler) loop(ctx context.Context, t scheduledTask, ticker clock.Ticker) {
	defer s.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if ctx.Err() != nil {
				return
			}
			s.run(ctx, t)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, t scheduledTask) {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scheduled task panicked", zap.String("task", t.name), zap.Any("panic", r))
		}
	}()
	t.fn(ctx)
}

// Stop cancels every task and waits for running bodies to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
}
