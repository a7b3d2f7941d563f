// Package diff computes line-level differences between expected and actual
// test output.
//
// The algorithm is the bounded-lookahead heuristic used by PHP's run-tests.php:
// both sequences are walked with two cursors and, on a mismatch, a recursive
// estimator decides whether skipping a left line or a right line realigns more
// of the remaining input. It is not a minimal diff. The lookahead budget caps
// the recursion, which keeps the cost bounded for the short inputs it is used
// on (captured test output).
package diff

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultLookahead is the comparison budget given to the realignment estimator.
const DefaultLookahead = 10

// minNumberWidth is the minimum zero-padded width of rendered line numbers.
const minNumberWidth = 3

// sectionBreak separates context windows that do not touch.
const sectionBreak = "--"

// Kind tags a rendered diff line.
type Kind int

const (
	// Context is an unchanged left line printed around an edit.
	Context Kind = iota
	// Removed is a line present only on the left.
	Removed
	// Added is a line present only on the right.
	Added
	// Break marks skipped unchanged lines between two context windows.
	Break
)

func (k Kind) String() string {
	switch k {
	case Context:
		return "context"
	case Removed:
		return "removed"
	case Added:
		return "added"
	case Break:
		return "break"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Edit is one line of diff output.
type Edit struct {
	Kind Kind
	Line int // 1-based line number in the sequence the text comes from; 0 for Break
	Text string
}

// Options configures a diff computation.
type Options struct {
	// Lookahead is the estimator budget. Values <= 0 use DefaultLookahead.
	Lookahead int
	// ContextLines is the number of unchanged lines printed around each edit.
	ContextLines int
	// Pattern treats every left line as a regular expression anchored with
	// ^...$ and matched against the right line, instead of exact equality.
	Pattern bool
}

// Result is an ordered sequence of diff lines.
type Result struct {
	Edits []Edit
	// Width is the zero-padded width used for line numbers.
	Width int
}

// Empty reports whether the result contains no removed or added lines.
func (r Result) Empty() bool {
	for _, e := range r.Edits {
		if e.Kind == Removed || e.Kind == Added {
			return false
		}
	}
	return true
}

// Lines renders the result. Removed lines look like "002- text", added lines
// like "002+ text", and context lines are indented to the same column.
func (r Result) Lines() []string {
	lines := make([]string, 0, len(r.Edits))
	for _, e := range r.Edits {
		switch e.Kind {
		case Removed:
			lines = append(lines, fmt.Sprintf("%0*d- %s", r.Width, e.Line, e.Text))
		case Added:
			lines = append(lines, fmt.Sprintf("%0*d+ %s", r.Width, e.Line, e.Text))
		case Context:
			lines = append(lines, strings.Repeat(" ", r.Width+2)+e.Text)
		case Break:
			lines = append(lines, sectionBreak)
		}
	}
	return lines
}

// String renders the result joined with newlines.
func (r Result) String() string {
	return strings.Join(r.Lines(), "\n")
}

// Text splits both inputs on "\n" and diffs the resulting lines.
func Text(left, right string, opts Options) Result {
	return Lines(strings.Split(left, "\n"), strings.Split(right, "\n"), opts)
}

// Lines diffs two line sequences.
func Lines(left, right []string, opts Options) Result {
	budget := opts.Lookahead
	if budget <= 0 {
		budget = DefaultLookahead
	}
	m := newMatcher(left, right, opts.Pattern)
	n1, n2 := len(left), len(right)

	var (
		removed []Edit
		added   []Edit
		// anchor maps a 1-based right line to the 1-based left line the
		// left cursor pointed at when the right line was examined.
		anchor = make(map[int]int)
		i, j   int
	)
	for i < n1 && j < n2 {
		anchor[j+1] = i + 1
		if m.equal(i, j) {
			i++
			j++
			continue
		}
		c1 := m.count(i+1, j, budget)
		c2 := m.count(i, j+1, budget)
		switch {
		case c1 > c2:
			removed = append(removed, Edit{Kind: Removed, Line: i + 1, Text: left[i]})
			i++
		case c2 > 0:
			added = append(added, Edit{Kind: Added, Line: j + 1, Text: right[j]})
			j++
		default:
			removed = append(removed, Edit{Kind: Removed, Line: i + 1, Text: left[i]})
			added = append(added, Edit{Kind: Added, Line: j + 1, Text: right[j]})
			i++
			j++
		}
	}
	anchor[j+1] = i + 1

	w := &writer{left: left, context: opts.ContextLines, next: 1}
	if w.context > 0 {
		// Edits are not emitted in left-line order, so context must know
		// every left line that is still going to be printed as removed.
		w.removed = make(map[int]bool, len(removed)+n1-i)
		for _, e := range removed {
			w.removed[e.Line] = true
		}
		for n := i + 1; n <= n1; n++ {
			w.removed[n] = true
		}
	}

	// Interleave removed and added runs. A run continues while line numbers
	// stay consecutive; otherwise the edit anchored earlier on the left wins.
	k1, k2 := 0, 0
	l1, l2 := -2, -2
	for k1 < len(removed) || k2 < len(added) {
		switch {
		case k1 < len(removed) && (k2 >= len(added) || removed[k1].Line == l1+1):
			l1 = removed[k1].Line
			w.remove(removed[k1])
			k1++
		case k2 < len(added) && (k1 >= len(removed) || added[k2].Line == l2+1):
			l2 = added[k2].Line
			w.add(added[k2], anchor[added[k2].Line])
			k2++
		case removed[k1].Line < anchor[added[k2].Line]:
			l1 = removed[k1].Line
			w.remove(removed[k1])
			k1++
		default:
			l2 = added[k2].Line
			w.add(added[k2], anchor[added[k2].Line])
			k2++
		}
	}

	// At most one side has lines left over.
	for ; i < n1; i++ {
		w.remove(Edit{Kind: Removed, Line: i + 1, Text: left[i]})
	}
	for ; j < n2; j++ {
		w.add(Edit{Kind: Added, Line: j + 1, Text: right[j]}, n1+1)
	}
	w.trailer()

	return Result{
		Edits: w.edits,
		Width: max(minNumberWidth, len(strconv.Itoa(max(n1+1, n2+1)))),
	}
}

// writer accumulates edits and weaves unchanged left lines around them.
type writer struct {
	left    []string
	context int
	// removed holds the 1-based left lines that are printed as removed.
	removed map[int]bool
	// next is the 1-based left line that has been neither printed nor
	// consumed by an edit.
	next  int
	edits []Edit
}

func (w *writer) remove(e Edit) {
	w.gap(e.Line)
	w.edits = append(w.edits, e)
	w.next = max(w.next, e.Line+1)
}

// add emits an added line that sits before the 1-based left line at.
func (w *writer) add(e Edit, at int) {
	w.gap(at)
	w.edits = append(w.edits, e)
	w.next = max(w.next, at)
}

// gap prints context for the unchanged left lines in [w.next, upTo): up to
// w.context lines after the previous edit and before the next one, with a
// section break between the two windows when lines are skipped.
func (w *writer) gap(upTo int) {
	if w.context <= 0 || upTo <= w.next {
		return
	}
	lines := w.unchanged(w.next, upTo-1)
	w.next = upTo
	if len(w.edits) > 0 {
		tail := min(len(lines), w.context)
		w.contextLines(lines[:tail])
		lines = lines[tail:]
	}
	if len(lines) == 0 {
		return
	}
	if len(lines) > w.context && len(w.edits) > 0 {
		w.edits = append(w.edits, Edit{Kind: Break})
	}
	w.contextLines(lines[max(0, len(lines)-w.context):])
}

// trailer prints context after the final edit.
func (w *writer) trailer() {
	if w.context <= 0 || len(w.edits) == 0 {
		return
	}
	lines := w.unchanged(w.next, len(w.left))
	w.contextLines(lines[:min(len(lines), w.context)])
}

// unchanged lists the 1-based left lines in [from, to] that are not removed.
func (w *writer) unchanged(from, to int) []int {
	var lines []int
	for n := from; n <= to; n++ {
		if !w.removed[n] {
			lines = append(lines, n)
		}
	}
	return lines
}

func (w *writer) contextLines(lines []int) {
	for _, n := range lines {
		w.edits = append(w.edits, Edit{Kind: Context, Line: n, Text: w.left[n-1]})
	}
}

// matcher compares lines, caching compiled patterns in pattern mode.
type matcher struct {
	left, right []string
	pattern     bool
	compiled    map[int]*regexp.Regexp
}

func newMatcher(left, right []string, pattern bool) *matcher {
	m := &matcher{left: left, right: right, pattern: pattern}
	if pattern {
		m.compiled = make(map[int]*regexp.Regexp)
	}
	return m
}

// equal compares left[i] with right[j]. An invalid pattern never matches.
func (m *matcher) equal(i, j int) bool {
	if !m.pattern {
		return m.left[i] == m.right[j]
	}
	re, ok := m.compiled[i]
	if !ok {
		re, _ = regexp.Compile(`(?s)^(?:` + m.left[i] + `)$`)
		m.compiled[i] = re
	}
	return re != nil && re.MatchString(m.right[j])
}

// count estimates how many lines realign when comparison resumes at (i, j).
// It consumes the common run at (i, j), then spends the remaining budget
// exploring skips on either side, giving the left side half of it.
func (m *matcher) count(i, j, steps int) int {
	n1, n2 := len(m.left), len(m.right)
	equal := 0
	for i < n1 && j < n2 && m.equal(i, j) {
		i++
		j++
		equal++
		steps--
	}
	steps--
	if steps <= 0 {
		return equal
	}

	eq1 := 0
	st := steps / 2
	for ofs := i + 1; ofs < n1 && st > 0; ofs++ {
		st--
		eq1 = max(eq1, m.count(ofs, j, st))
	}

	eq2 := 0
	st = steps
	for ofs := j + 1; ofs < n2 && st > 0; ofs++ {
		st--
		eq2 = max(eq2, m.count(i, ofs, st))
	}

	if eq1 > eq2 {
		return equal + eq1
	}
	return equal + eq2
}
