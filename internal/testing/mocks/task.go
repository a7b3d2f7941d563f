// Package mocks provides shared test doubles for phpbc packages.
package mocks

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AndreyAkinshin/phpbc/internal/task"
)

// Task implements runner.Task and compare.Run for testing.
// Use NewTask() to create instances with a fluent builder API.
type Task struct {
	name     string
	group    string
	workDir  string
	runFor   time.Duration
	startErr error
	results  task.Results
	tracker  *Tracker

	started  time.Time
	finished bool
	starts   int
}

// NewTask creates a mock task in the given group. It finishes as soon as
// it is polled after starting.
func NewTask(name, group string) *Task {
	return &Task{
		name:    name,
		group:   group,
		workDir: ".",
	}
}

// WithDuration sets how long the task runs after Start.
func (m *Task) WithDuration(d time.Duration) *Task {
	m.runFor = d
	return m
}

// WithStartError makes Start fail with err.
func (m *Task) WithStartError(err error) *Task {
	m.startErr = err
	return m
}

// WithWorkDir sets the working directory.
func (m *Task) WithWorkDir(dir string) *Task {
	m.workDir = dir
	return m
}

// WithResults sets the result table and marks the task finished.
func (m *Task) WithResults(results task.Results) *Task {
	m.results = results
	m.finished = true
	m.starts = 1
	return m
}

// WithTracker records start and finish events in tr.
func (m *Task) WithTracker(tr *Tracker) *Task {
	m.tracker = tr
	return m
}

// runner.Task and compare.Run interface implementation

func (m *Task) Group() string   { return m.group }
func (m *Task) WorkDir() string { return m.workDir }
func (m *Task) String() string  { return m.name }

func (m *Task) Start() error {
	if m.startErr != nil {
		return m.startErr
	}
	if m.starts > 0 {
		return fmt.Errorf("%s: already started", m.name)
	}
	m.starts++
	m.started = time.Now()
	if m.tracker != nil {
		m.tracker.start(m)
	}
	return nil
}

func (m *Task) Wait(timeout time.Duration) (bool, error) {
	if m.starts == 0 {
		return false, fmt.Errorf("%s: %w", m.name, task.ErrNotStarted)
	}
	if m.finished {
		return true, nil
	}
	remaining := m.runFor - time.Since(m.started)
	if remaining > 0 {
		if timeout >= 0 && timeout < remaining {
			time.Sleep(timeout)
			return false, nil
		}
		time.Sleep(remaining)
	}
	m.finished = true
	if m.tracker != nil {
		m.tracker.finish(m)
	}
	return true, nil
}

func (m *Task) Results() (task.Results, bool) {
	if !m.finished {
		return task.Results{}, false
	}
	return m.results, true
}

// Test inspection methods

// Started reports whether Start succeeded.
func (m *Task) Started() bool { return m.starts > 0 }

// Finished reports whether a Wait observed completion.
func (m *Task) Finished() bool { return m.finished }

// Tracker observes how mock tasks overlap. It is safe for concurrent use.
type Tracker struct {
	mu         sync.Mutex
	running    map[*Task]bool
	maxRunning int
	order      []string
	violations []error
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{running: make(map[*Task]bool)}
}

func (tr *Tracker) start(t *Task) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for other := range tr.running {
		if other.group == t.group {
			tr.violations = append(tr.violations,
				fmt.Errorf("%s started while %s of group %s is running", t.name, other.name, t.group))
		}
	}
	tr.running[t] = true
	tr.maxRunning = max(tr.maxRunning, len(tr.running))
	tr.order = append(tr.order, "start "+t.name)
}

func (tr *Tracker) finish(t *Task) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	delete(tr.running, t)
	tr.order = append(tr.order, "finish "+t.name)
}

// MaxRunning returns the largest number of tasks observed running at once.
func (tr *Tracker) MaxRunning() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.maxRunning
}

// Running returns the number of tasks currently running.
func (tr *Tracker) Running() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.running)
}

// Events returns the "start X" / "finish X" log in order.
func (tr *Tracker) Events() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	result := make([]string, len(tr.order))
	copy(result, tr.order)
	return result
}

// Err returns every exclusivity violation observed, or nil.
func (tr *Tracker) Err() error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return errors.Join(tr.violations...)
}
