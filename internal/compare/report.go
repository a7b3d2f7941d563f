package compare

import (
	"fmt"
	"slices"
)

// Entry is one behavior change in a report.
type Entry struct {
	Type   string `json:"type"`
	Diff   string `json:"diff,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Report collects the outcomes of one or more groups.
//
// Diffs is keyed by normalized test path. Sames is keyed by status and keeps
// test paths in the order they were compared.
type Report struct {
	Diffs map[string]Entry    `json:"diffs"`
	Sames map[string][]string `json:"sames"`
}

// NewReport builds a report from outcomes.
func NewReport(outcomes []Outcome) Report {
	r := Report{
		Diffs: make(map[string]Entry),
		Sames: make(map[string][]string),
	}
	for _, o := range outcomes {
		r.add(o)
	}
	return r
}

func (r *Report) add(o Outcome) {
	switch o := o.(type) {
	case Same:
		key := string(o.Status)
		r.Sames[key] = append(r.Sames[key], o.Test)
	case Diverged:
		r.Diffs[o.Test] = Entry{Type: o.Type, Diff: o.Diff, Reason: o.Reason}
	default:
		panic(fmt.Sprintf("compare: unexpected outcome %T", o))
	}
}

// Merge folds other into r. Same lists are appended; a diff entry in other
// replaces an entry for the same test in r.
func (r *Report) Merge(other Report) {
	if r.Diffs == nil {
		r.Diffs = make(map[string]Entry)
	}
	if r.Sames == nil {
		r.Sames = make(map[string][]string)
	}
	for test, e := range other.Diffs {
		r.Diffs[test] = e
	}
	for status, tests := range other.Sames {
		r.Sames[status] = append(r.Sames[status], tests...)
	}
}

// Tests returns the diff keys in sorted order.
func (r Report) Tests() []string {
	keys := make([]string, 0, len(r.Diffs))
	for k := range r.Diffs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Statuses returns the same-entry keys in sorted order.
func (r Report) Statuses() []string {
	keys := make([]string, 0, len(r.Sames))
	for k := range r.Sames {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of classified tests.
func (r Report) Len() int {
	n := len(r.Diffs)
	for _, tests := range r.Sames {
		n += len(tests)
	}
	return n
}
