// Package compare classifies per-test outcomes of a control and an
// experiment run of the same test group.
//
// Every test the control run recorded ends up either as a Same outcome,
// keyed by its status, or as a Diverged outcome carrying a type tag and,
// when available, a rendered diff of the captured outputs.
package compare

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/AndreyAkinshin/phpbc/internal/diff"
	"github.com/AndreyAkinshin/phpbc/internal/task"
)

const (
	// NotGenerated is the diff text used when no output could be compared.
	NotGenerated = "not generated"

	controlMissing    = "Control output is not present"
	experimentMissing = "Experiment output is not present"

	outExt    = ".out"
	reasonExt = ".diff"

	// ReasonLimit is the number of bytes of a failure reason kept.
	ReasonLimit = 4096
	ellipsis    = "\n..."
)

// ErrNotFinished is returned when a run has no result table yet.
var ErrNotFinished = errors.New("run has not finished")

// Run is a finished test run the comparator reads from.
type Run interface {
	Group() string
	WorkDir() string
	Results() (task.Results, bool)
}

// Outcome is the classification of one test.
type Outcome interface {
	// TestName returns the normalized test path.
	TestName() string
	isOutcome()
}

// Same reports a test that behaved identically on both sides.
type Same struct {
	Test   string
	Status task.Status
}

func (s Same) TestName() string { return s.Test }
func (Same) isOutcome()          {}

// Diverged reports a behavioral difference.
type Diverged struct {
	Test string
	// Type is the shared status when both sides agree, or "<ctrl>:<expr>".
	Type   string
	Diff   string
	Reason string
}

func (d Diverged) TestName() string { return d.Test }
func (Diverged) isOutcome()          {}

// Comparator compares finished runs. It holds no per-run state and can be
// reused across groups.
type Comparator struct {
	opts diff.Options
	log  *slog.Logger
	read func(workDir, test, ext string) (string, bool)
}

// New creates a comparator rendering diffs with opts. Pattern matching is
// never used for captured outputs and is cleared.
func New(opts diff.Options, log *slog.Logger) *Comparator {
	if log == nil {
		log = slog.Default()
	}
	opts.Pattern = false
	return &Comparator{opts: opts, log: log, read: readArtifact}
}

// Compare classifies every test ctrl recorded, in ctrl's order, followed by
// the tests only expr recorded.
func (c *Comparator) Compare(ctrl, expr Run) ([]Outcome, error) {
	cres, ok := ctrl.Results()
	if !ok {
		return nil, fmt.Errorf("control %s: %w", ctrl.Group(), ErrNotFinished)
	}
	eres, ok := expr.Results()
	if !ok {
		return nil, fmt.Errorf("experiment %s: %w", expr.Group(), ErrNotFinished)
	}
	if ctrl.Group() != expr.Group() {
		return nil, fmt.Errorf("cannot compare group %s with group %s", ctrl.Group(), expr.Group())
	}

	if cres.Len() != eres.Len() {
		c.log.Warn("result count mismatch",
			"group", ctrl.Group(), "control", cres.Len(), "experiment", eres.Len())
	}

	outcomes := make([]Outcome, 0, cres.Len())
	for _, r := range cres.All() {
		outcomes = append(outcomes, c.compareOne(ctrl, expr, eres, r))
	}
	for _, r := range eres.All() {
		if _, ok := cres.Get(r.Test); ok {
			continue
		}
		c.log.Warn("no such test in control", "test", r.Test)
		outcomes = append(outcomes, Diverged{
			Test: normalize(r.Test),
			Type: fmt.Sprintf("%s:%s", task.StatusUnknown, r.Status),
		})
	}
	return outcomes, nil
}

func (c *Comparator) compareOne(ctrl, expr Run, eres task.Results, r task.Result) Outcome {
	name := normalize(r.Test)
	cs := r.Status
	es, ok := eres.Get(r.Test)
	if !ok {
		c.log.Warn("no such test in experiment", "test", r.Test)
		return Diverged{Test: name, Type: fmt.Sprintf("%s:%s", cs, task.StatusUnknown)}
	}
	if !cs.Known() {
		c.log.Warn("strange test status", "test", r.Test, "status", cs)
	}

	if cs == es {
		if !cs.FailingLike() {
			return Same{Test: name, Status: cs}
		}
		cout, cok := c.read(ctrl.WorkDir(), r.Test, outExt)
		eout, eok := c.read(expr.WorkDir(), r.Test, outExt)
		if !cok && !eok {
			return Same{Test: name, Status: cs}
		}
		if !cok {
			cout = controlMissing
		}
		if !eok {
			eout = experimentMissing
		}
		eout = rewritePaths(eout, expr.WorkDir(), ctrl.WorkDir())
		d := diff.Text(cout, eout, c.opts)
		if d.Empty() {
			return Same{Test: name, Status: cs}
		}
		out := Diverged{Test: name, Type: string(cs), Diff: d.String()}
		if reason, ok := c.read(expr.WorkDir(), r.Test, reasonExt); ok {
			out.Reason = truncate(reason, ReasonLimit)
		}
		return out
	}

	out := Diverged{Test: name, Type: fmt.Sprintf("%s:%s", cs, es)}
	cout, cok := c.read(ctrl.WorkDir(), r.Test, outExt)
	eout, eok := c.read(expr.WorkDir(), r.Test, outExt)
	if cok && eok {
		out.Diff = diff.Text(cout, eout, c.opts).String()
	}
	if out.Diff == "" && cs == task.StatusPassed {
		out.Diff, _ = c.read(expr.WorkDir(), r.Test, reasonExt)
	}
	if out.Diff == "" {
		out.Diff = NotGenerated
	}
	return out
}

// ArtifactPath returns the path of the artifact run-tests.php writes next
// to test, with the test's extension replaced by ext.
func ArtifactPath(workDir, test, ext string) string {
	base := strings.TrimSuffix(test, filepath.Ext(test))
	return filepath.Join(workDir, base+ext)
}

// readArtifact returns the content of a regular artifact file. Absent or
// unreadable files are reported as missing.
func readArtifact(workDir, test, ext string) (string, bool) {
	path := ArtifactPath(workDir, test, ext)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// rewritePaths replaces the experiment working directory in s with the
// control one so that paths echoed by tests do not show up as differences.
func rewritePaths(s, from, to string) string {
	if from == "" || from == to {
		return s
	}
	return strings.ReplaceAll(s, from, to)
}

// truncate keeps the first limit bytes of s, cut back to a rune boundary,
// and appends an ellipsis line when anything was dropped.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + ellipsis
}

func normalize(test string) string {
	return filepath.ToSlash(test)
}
