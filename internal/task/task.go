// Package task drives one run-tests.php subprocess over a batch of tests.
//
// A Task is created with the tests of one group, started once, and then
// polled until the subprocess exits. On exit the results file written by
// run-tests.php is parsed into a Results table and every temporary artifact
// is removed. A Task is not safe for concurrent use; it is meant to be
// owned by a single scheduling goroutine.
package task

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Tick is the polling quantum used by Wait.
const Tick = 100 * time.Millisecond

// DefaultRunner is the test runner script, relative to the working directory.
const DefaultRunner = "run-tests.php"

// stderrTailSize bounds the captured stderr kept after the task finishes.
const stderrTailSize = 4096

// ErrNotStarted is returned by Wait on a task that was never started.
var ErrNotStarted = errors.New("task is not started")

// InvalidTaskError reports a task that cannot be constructed.
type InvalidTaskError struct {
	Group  string
	Reason string
}

func (e *InvalidTaskError) Error() string {
	if e.Group == "" {
		return "invalid task: " + e.Reason
	}
	return fmt.Sprintf("invalid task for %s: %s", e.Group, e.Reason)
}

// SpawnError reports a subprocess that could not be created.
type SpawnError struct {
	Task string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("create subprocess for %s: %v", e.Task, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// State is the lifecycle state of a Task.
type State int

const (
	StateCreated State = iota
	StateRunning
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Spec describes one run-tests.php invocation.
type Spec struct {
	Group   string            // group identifier, usually the tests directory
	Label   string            // human readable side name, e.g. "control"
	Binary  string            // php binary under test
	WorkDir string            // directory run-tests.php is started in
	Runner  string            // runner script; DefaultRunner when empty
	Args    []string          // extra run-tests.php arguments
	Env     map[string]string // environment overrides
	Timeout time.Duration     // per-test timeout passed to run-tests.php
	Tests   []string          // test paths relative to WorkDir
}

// Task is one subprocess execution of a batch of tests.
type Task struct {
	spec  Spec
	state State

	cmd     *exec.Cmd
	tmpDir  string
	stdout  *os.File
	stderr  *os.File
	results string

	// done is closed by the reaper goroutine once the subprocess exited;
	// exitErr is written before the close.
	done    chan struct{}
	exitErr error

	started    time.Time
	duration   time.Duration
	table      Results
	exitCode   int
	stderrTail string
}

// New validates spec and returns a task in the created state.
func New(spec Spec) (*Task, error) {
	if len(spec.Tests) == 0 {
		return nil, &InvalidTaskError{Group: spec.Group, Reason: "bad tests set"}
	}
	if spec.Binary == "" {
		return nil, &InvalidTaskError{Group: spec.Group, Reason: "no binary"}
	}
	if spec.Runner == "" {
		spec.Runner = DefaultRunner
	}
	if spec.WorkDir == "" {
		spec.WorkDir = "."
	}
	spec.Tests = append([]string(nil), spec.Tests...)
	spec.Args = append([]string(nil), spec.Args...)
	return &Task{spec: spec}, nil
}

// Group returns the group identifier.
func (t *Task) Group() string { return t.spec.Group }

// Label returns the side name the task was created with.
func (t *Task) Label() string { return t.spec.Label }

// WorkDir returns the working directory run-tests.php runs in.
func (t *Task) WorkDir() string { return t.spec.WorkDir }

// Tests returns the tests the task covers.
func (t *Task) Tests() []string { return t.spec.Tests }

// State returns the lifecycle state.
func (t *Task) State() State { return t.state }

func (t *Task) String() string {
	return fmt.Sprintf("%s at %s", t.spec.Label, t.spec.Group)
}

// Command returns the argument vector the task runs, with list and results
// standing for the artifact paths.
func (t *Task) Command(list, results string) []string {
	argv := []string{t.spec.Binary, "-n", t.spec.Runner, "-p", t.spec.Binary, "-q"}
	argv = append(argv, t.spec.Args...)
	argv = append(argv,
		"--set-timeout", strconv.Itoa(int(t.spec.Timeout/time.Second)),
		"-r", list,
		"-W", results,
	)
	return argv
}

// Environ returns the subprocess environment: the current process
// environment, then the task overrides, then the variables run-tests.php
// needs to run unattended.
func (t *Task) Environ() []string {
	env := os.Environ()
	for k, v := range t.spec.Env {
		env = append(env, k+"="+v)
	}
	return append(env,
		"TEST_PHP_EXECUTABLE="+t.spec.Binary,
		"NO_COLOR=yes",
		"NO_INTERACTION=1",
		"TRAVIS_CI=1",
	)
}

// Start writes the test list and spawns the subprocess. It does not wait
// for the subprocess. Any failure to create the artifacts or the process
// is returned as a *SpawnError.
func (t *Task) Start() error {
	if t.state != StateCreated {
		return fmt.Errorf("%s: already %s", t, t.state)
	}
	if err := t.spawn(); err != nil {
		t.release()
		return &SpawnError{Task: t.String(), Err: err}
	}
	t.state = StateRunning
	return nil
}

func (t *Task) spawn() error {
	dir, err := os.MkdirTemp("", "phpbc-task-")
	if err != nil {
		return err
	}
	t.tmpDir = dir

	list := filepath.Join(dir, "list.txt")
	if err := os.WriteFile(list, []byte(strings.Join(t.spec.Tests, "\n")), 0o644); err != nil {
		return err
	}
	t.results = filepath.Join(dir, "results.txt")
	if t.stdout, err = os.Create(filepath.Join(dir, "stdout.txt")); err != nil {
		return err
	}
	if t.stderr, err = os.Create(filepath.Join(dir, "stderr.txt")); err != nil {
		return err
	}

	argv := t.Command(list, t.results)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = t.spec.WorkDir
	cmd.Env = t.Environ()
	cmd.Stdin = nil
	cmd.Stdout = t.stdout
	cmd.Stderr = t.stderr
	if err := cmd.Start(); err != nil {
		return err
	}
	t.cmd = cmd
	t.started = time.Now()
	t.done = make(chan struct{})
	go func() {
		t.exitErr = cmd.Wait()
		close(t.done)
	}()
	return nil
}

// Wait polls the subprocess in Tick increments for up to timeout. A negative
// timeout waits until it exits; zero checks exactly once. It reports whether
// the task has finished. Waiting on a finished task returns true at once.
func (t *Task) Wait(timeout time.Duration) (bool, error) {
	switch t.state {
	case StateCreated:
		return false, fmt.Errorf("%s: %w", t, ErrNotStarted)
	case StateFinished:
		return true, nil
	}

	remaining := timeout
	for {
		select {
		case <-t.done:
			t.finish()
			return true, nil
		default:
		}
		if timeout >= 0 && remaining <= 0 {
			return false, nil
		}
		step := Tick
		if timeout >= 0 {
			step = min(step, remaining)
			remaining -= Tick
		}
		select {
		case <-t.done:
		case <-time.After(step):
		}
	}
}

func (t *Task) finish() {
	t.duration = time.Since(t.started)
	t.exitCode = exitCode(t.exitErr)

	if f, err := os.Open(t.results); err == nil {
		t.table = ParseResults(f)
		f.Close()
	}
	t.stderrTail = tail(t.stderr, stderrTailSize)

	t.release()
	t.state = StateFinished
}

// release closes and removes every temporary artifact.
func (t *Task) release() {
	if t.stdout != nil {
		t.stdout.Close()
		t.stdout = nil
	}
	if t.stderr != nil {
		t.stderr.Close()
		t.stderr = nil
	}
	if t.tmpDir != "" {
		os.RemoveAll(t.tmpDir)
		t.tmpDir = ""
	}
	t.results = ""
}

// Results returns the result table. ok is false until the task finished.
func (t *Task) Results() (Results, bool) {
	if t.state != StateFinished {
		return Results{}, false
	}
	return t.table, true
}

// Duration returns the wall time from start to the observed exit.
func (t *Task) Duration() time.Duration { return t.duration }

// ExitCode returns the subprocess exit code, or -1 if it did not exit
// normally. Only meaningful once finished.
func (t *Task) ExitCode() int { return t.exitCode }

// Stderr returns the last bytes the subprocess wrote to stderr.
func (t *Task) Stderr() string { return t.stderrTail }

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func tail(f *os.File, n int64) string {
	if f == nil {
		return ""
	}
	info, err := f.Stat()
	if err != nil {
		return ""
	}
	off := max(0, info.Size()-n)
	buf := make([]byte, info.Size()-off)
	if _, err := f.ReadAt(buf, off); err != nil {
		return ""
	}
	return string(buf)
}
