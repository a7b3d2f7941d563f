package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/AndreyAkinshin/phpbc/internal/testing/mocks"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newScheduler(workers int) *Scheduler {
	return New(workers, WithQuantum(2*time.Millisecond), WithLogger(discard))
}

func TestWorkers_Default(t *testing.T) {
	t.Setenv(WorkersEnv, "")

	if got := Workers(4, discard); got != 4 {
		t.Errorf("Workers() = %d, want 4", got)
	}
	if got := Workers(0, discard); got != 1 {
		t.Errorf("Workers(0) = %d, want 1", got)
	}
}

func TestWorkers_FromEnv(t *testing.T) {
	t.Setenv(WorkersEnv, "8")

	if got := Workers(4, discard); got != 8 {
		t.Errorf("Workers() = %d, want 8", got)
	}
}

func TestWorkers_InvalidEnv(t *testing.T) {
	tests := []string{
		"invalid",
		"0",
		"-1",
		"257",
	}

	for _, val := range tests {
		t.Run(val, func(t *testing.T) {
			t.Setenv(WorkersEnv, val)

			if got := Workers(3, discard); got != 3 {
				t.Errorf("Workers() = %d, want configured 3", got)
			}
		})
	}
}

func TestWorkers_Boundaries(t *testing.T) {
	for _, n := range []int{1, 256} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			t.Setenv(WorkersEnv, fmt.Sprint(n))

			if got := Workers(4, discard); got != n {
				t.Errorf("Workers() = %d, want %d", got, n)
			}
		})
	}
}

func TestCombineErrors_Empty(t *testing.T) {
	t.Parallel()
	err := combineErrors(nil)
	if err != nil {
		t.Errorf("combineErrors(nil) = %v, want nil", err)
	}
}

func TestCombineErrors_Single(t *testing.T) {
	t.Parallel()
	original := os.ErrNotExist
	err := combineErrors([]error{original})
	if err != original {
		t.Errorf("combineErrors([1]) = %v, want original error", err)
	}
}

func TestCombineErrors_Multiple(t *testing.T) {
	t.Parallel()
	err := combineErrors([]error{os.ErrNotExist, os.ErrPermission})
	if err == nil {
		t.Fatal("combineErrors([2]) = nil, want error")
	}
	if !errors.Is(err, os.ErrNotExist) || !errors.Is(err, os.ErrPermission) {
		t.Errorf("combined error %q should wrap both errors", err)
	}
}

func TestNew_ClampsWorkers(t *testing.T) {
	t.Parallel()
	if got := New(0).Workers(); got != 1 {
		t.Errorf("New(0).Workers() = %d, want 1", got)
	}
	if got := New(-3).Workers(); got != 1 {
		t.Errorf("New(-3).Workers() = %d, want 1", got)
	}
}

func TestRun_Empty(t *testing.T) {
	t.Parallel()
	if err := newScheduler(2).Run(context.Background()); err != nil {
		t.Errorf("Run() = %v, want nil", err)
	}
}

func TestRun_CompletesEveryTask(t *testing.T) {
	t.Parallel()
	tr := mocks.NewTracker()
	s := newScheduler(3)

	var tasks []*mocks.Task
	for i := 0; i < 12; i++ {
		group := fmt.Sprintf("group%d", i%5)
		m := mocks.NewTask(fmt.Sprintf("task%d", i), group).
			WithDuration(time.Duration(5+i%4*5) * time.Millisecond).
			WithTracker(tr)
		tasks = append(tasks, m)
		s.Submit(m)
	}

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	for _, m := range tasks {
		if !m.Finished() {
			t.Errorf("%s did not finish", m)
		}
	}
	if s.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", s.Pending())
	}
	if err := tr.Err(); err != nil {
		t.Errorf("exclusivity violated: %v", err)
	}
	if got := tr.MaxRunning(); got > 3 {
		t.Errorf("MaxRunning() = %d, want <= 3", got)
	}
	if got := tr.Running(); got != 0 {
		t.Errorf("Running() after Run = %d, want 0", got)
	}
}

func TestRun_SameGroupNeverOverlaps(t *testing.T) {
	t.Parallel()
	tr := mocks.NewTracker()
	s := newScheduler(4)

	for i := 0; i < 6; i++ {
		s.Submit(mocks.NewTask(fmt.Sprintf("t%d", i), "Zend/tests").
			WithDuration(10 * time.Millisecond).
			WithTracker(tr))
	}

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if err := tr.Err(); err != nil {
		t.Errorf("exclusivity violated: %v", err)
	}
	if got := tr.MaxRunning(); got != 1 {
		t.Errorf("MaxRunning() = %d, want 1", got)
	}
}

func TestRun_SingleWorkerRunsPairInOrder(t *testing.T) {
	t.Parallel()
	tr := mocks.NewTracker()
	s := newScheduler(1)

	s.Submit(mocks.NewTask("ctrlA", "A").WithDuration(20 * time.Millisecond).WithTracker(tr))
	s.Submit(mocks.NewTask("exprA", "A").WithDuration(5 * time.Millisecond).WithTracker(tr))

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	want := []string{"start ctrlA", "finish ctrlA", "start exprA", "finish exprA"}
	if got := tr.Events(); !slices.Equal(got, want) {
		t.Errorf("Events() = %v, want %v", got, want)
	}
}

func TestRun_ConflictRequeuesToTail(t *testing.T) {
	t.Parallel()
	tr := mocks.NewTracker()
	s := newScheduler(2)

	s.Submit(mocks.NewTask("ctrlA", "A").WithDuration(60 * time.Millisecond).WithTracker(tr))
	s.Submit(mocks.NewTask("exprA", "A").WithTracker(tr))
	s.Submit(mocks.NewTask("ctrlB", "B").WithTracker(tr))

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	events := tr.Events()
	startB := slices.Index(events, "start ctrlB")
	startExprA := slices.Index(events, "start exprA")
	finishCtrlA := slices.Index(events, "finish ctrlA")
	if startB < 0 || startExprA < 0 || finishCtrlA < 0 {
		t.Fatalf("missing events in %v", events)
	}
	if startB > startExprA {
		t.Errorf("ctrlB should start before the requeued exprA: %v", events)
	}
	if finishCtrlA > startExprA {
		t.Errorf("exprA started before ctrlA finished: %v", events)
	}
}

func TestRun_SpawnErrorStopsScheduling(t *testing.T) {
	t.Parallel()
	spawnErr := errors.New("exec: no such file")
	tr := mocks.NewTracker()
	s := newScheduler(2)

	first := mocks.NewTask("first", "A").WithDuration(30 * time.Millisecond).WithTracker(tr)
	bad := mocks.NewTask("bad", "B").WithStartError(spawnErr).WithTracker(tr)
	last := mocks.NewTask("last", "C").WithTracker(tr)
	s.Submit(first)
	s.Submit(bad)
	s.Submit(last)

	err := s.Run(context.Background())
	if !errors.Is(err, spawnErr) {
		t.Fatalf("Run() = %v, want spawn error", err)
	}
	if !first.Finished() {
		t.Error("running task should be drained before returning")
	}
	if last.Started() {
		t.Error("no task should start after a spawn failure")
	}
	if tr.Running() != 0 {
		t.Errorf("Running() = %d, want 0", tr.Running())
	}
}

func TestRun_CanceledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newScheduler(2)
	m := mocks.NewTask("t", "A")
	s.Submit(m)

	err := s.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
	if m.Started() {
		t.Error("task should not start after cancellation")
	}
}

func TestRun_LogsProgress(t *testing.T) {
	t.Parallel()
	var sb strings.Builder
	s := New(1, WithQuantum(time.Millisecond), WithLogger(slog.New(slog.NewTextHandler(&sb, nil))))
	s.Submit(mocks.NewTask("control at Zend/tests", "Zend/tests"))

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	out := sb.String()
	for _, want := range []string{"msg=started", "msg=done", `task="control at Zend/tests"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
