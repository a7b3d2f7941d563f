// Package runner schedules test tasks over a bounded set of worker slots.
//
// The scheduler is driven by a single goroutine: the subprocesses provide
// the parallelism and the scheduler only polls them. Two tasks that share a
// group identifier are never running at the same time, and at most the
// configured number of tasks run at once.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

const (
	// minParallelWorkers keeps at least one slot so the queue always drains.
	minParallelWorkers = 1

	// maxParallelWorkers caps PHPBC_WORKERS. Every slot is a php process
	// running its own batch, so more than this only adds contention.
	maxParallelWorkers = 256

	// WorkersEnv overrides the configured worker count.
	WorkersEnv = "PHPBC_WORKERS"
)

// DefaultQuantum is how long the scheduler waits on one slot per poll.
const DefaultQuantum = 100 * time.Millisecond

// Task is the unit the scheduler runs.
type Task interface {
	// Group identifies tasks that must not run concurrently.
	Group() string
	// Start spawns the task without waiting for it.
	Start() error
	// Wait polls for completion for up to timeout; see task.Task.Wait.
	Wait(timeout time.Duration) (bool, error)
	String() string
}

// durationer is implemented by tasks that report their run time.
type durationer interface {
	Duration() time.Duration
}

// Scheduler runs submitted tasks to completion.
type Scheduler struct {
	workers int
	quantum time.Duration
	log     *slog.Logger

	queue []Task
	slots []Task
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithQuantum sets the per-slot poll quantum.
func WithQuantum(d time.Duration) Option {
	return func(s *Scheduler) { s.quantum = d }
}

// WithLogger sets the logger for task progress.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// New creates a scheduler with the given number of slots. Values below one
// are raised to one.
func New(workers int, opts ...Option) *Scheduler {
	s := &Scheduler{
		workers: max(minParallelWorkers, workers),
		quantum: DefaultQuantum,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Workers returns the number of slots.
func (s *Scheduler) Workers() int { return s.workers }

// Submit appends t to the queue.
func (s *Scheduler) Submit(t Task) {
	s.queue = append(s.queue, t)
}

// Pending returns the number of queued tasks that have not been started.
func (s *Scheduler) Pending() int { return len(s.queue) }

// Run starts queued tasks in submission order as slots free up and waits for
// all of them. A task whose group is already running goes back to the tail
// of the queue. A spawn failure stops scheduling: tasks already running are
// waited for and the error is returned. Cancelling ctx behaves the same way
// and returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	s.slots = make([]Task, s.workers)

	for len(s.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return combineErrors(append([]error{err}, s.drain()...))
		}

		t := s.queue[0]
		s.queue = s.queue[1:]

		placed, err := s.place(ctx, t)
		if err != nil {
			return combineErrors(append([]error{err}, s.drain()...))
		}
		if !placed {
			s.queue = append(s.queue, t)
		}
	}
	return combineErrors(s.drain())
}

// place starts t in a free slot. It reports false without starting t when a
// task of the same group is still running.
func (s *Scheduler) place(ctx context.Context, t Task) (bool, error) {
	for i, running := range s.slots {
		if running == nil {
			continue
		}
		done, err := s.poll(i)
		if err != nil {
			return false, err
		}
		if !done && running.Group() == t.Group() {
			s.log.Debug("group busy, requeue", "task", t.String(), "running", running.String())
			return false, nil
		}
	}

	for {
		for i := range s.slots {
			if s.slots[i] != nil {
				done, err := s.poll(i)
				if err != nil {
					return false, err
				}
				if !done {
					continue
				}
			}
			if err := t.Start(); err != nil {
				return false, err
			}
			s.slots[i] = t
			s.log.Info("started", "task", t.String(), "slot", i)
			return true, nil
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}
	}
}

// poll waits one quantum on slot i and frees it if its task finished.
func (s *Scheduler) poll(i int) (bool, error) {
	t := s.slots[i]
	done, err := t.Wait(s.quantum)
	if err != nil {
		s.slots[i] = nil
		return false, fmt.Errorf("wait %s: %w", t, err)
	}
	if done {
		s.slots[i] = nil
		attrs := []any{"task", t.String()}
		if d, ok := t.(durationer); ok {
			attrs = append(attrs, "duration", d.Duration().Round(time.Millisecond))
		}
		s.log.Info("done", attrs...)
	}
	return done, nil
}

// drain waits until every occupied slot finished.
func (s *Scheduler) drain() []error {
	var errs []error
	for {
		busy := false
		for i := range s.slots {
			if s.slots[i] == nil {
				continue
			}
			busy = true
			if _, err := s.poll(i); err != nil {
				errs = append(errs, err)
			}
		}
		if !busy {
			return errs
		}
	}
}

// Workers resolves the worker count: PHPBC_WORKERS when it holds a valid
// value, otherwise configured. Invalid values (non-numeric, <1, >256) log a
// warning and are ignored.
func Workers(configured int, log *slog.Logger) int {
	env := os.Getenv(WorkersEnv)
	if env == "" {
		return max(minParallelWorkers, configured)
	}

	n, err := strconv.Atoi(env)
	if err != nil {
		log.Warn("invalid worker count, using configured value", "env", WorkersEnv, "value", env)
		return max(minParallelWorkers, configured)
	}

	if n < minParallelWorkers || n > maxParallelWorkers {
		log.Warn(fmt.Sprintf("worker count out of range [%d-%d], using configured value", minParallelWorkers, maxParallelWorkers),
			"env", WorkersEnv, "value", n)
		return max(minParallelWorkers, configured)
	}

	return n
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}
