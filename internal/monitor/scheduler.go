package monitor

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Task is one unit of scheduled work.
type Task func(ctx context.Context) error

// Scheduler runs a task immediately and then on a jittered interval until its
// context is cancelled.
type Scheduler struct {
	name     string
	interval time.Duration
	jitter   float64
	task     Task
	log      *zap.Logger
}

// NewScheduler returns a scheduler. jitter is a fraction of interval; 0.2
// spreads runs over ±20%.
func NewScheduler(name string, interval time.Duration, jitter float64, task Task, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if jitter < 0 {
		jitter = 0
	}
	if jitter > 1 {
		jitter = 1
	}
	return &Scheduler{
		name:     name,
		interval: interval,
		jitter:   jitter,
		task:     task,
		log:      logger.Named("scheduler").With(zap.String("task", name)),
	}
}

// Run blocks until ctx is done. Runs never overlap.
func (s *Scheduler) Run(ctx context.Context) {
	s.runOnce(ctx)

	for {
		timer := time.NewTimer(jitteredInterval(s.interval, s.jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.runOnce(ctx)
		}
	}
}

// Start runs the scheduler in a goroutine. The returned function cancels it
// and waits for the goroutine to exit.
func (s *Scheduler) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("task panicked", zap.String("panic", fmt.Sprint(r)))
		}
	}()
	if err := s.task(ctx); err != nil {
		s.log.Warn("task failed", zap.Error(err))
	}
}

// jitteredInterval returns interval shifted by a random amount within
// ±fraction. The result is at least 1ms.
func jitteredInterval(interval time.Duration, fraction float64) time.Duration {
	if interval <= 0 {
		return time.Millisecond
	}
	maxJitter := time.Duration(float64(interval) * fraction)
	delay := interval
	if maxJitter > 0 {
		delay += time.Duration(rand.Int64N(int64(maxJitter)*2+1)) - maxJitter
	}
	if delay < time.Millisecond {
		return time.Millisecond
	}
	return delay
}
