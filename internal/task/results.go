package task

import (
	"bufio"
	"io"
	"strings"
)

// Result is one recorded test outcome.
type Result struct {
	Test   string
	Status Status
}

// Results is a result table in the order the runner recorded it.
// The zero value is an empty table.
type Results struct {
	entries []Result
	index   map[string]int
}

// NewResults builds a table from entries. A repeated test keeps its first
// position and its last status.
func NewResults(entries ...Result) Results {
	var r Results
	for _, e := range entries {
		r.set(e.Test, e.Status)
	}
	return r
}

func (r *Results) set(test string, status Status) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[test]; ok {
		r.entries[i].Status = status
		return
	}
	r.index[test] = len(r.entries)
	r.entries = append(r.entries, Result{Test: test, Status: status})
}

// Get returns the status recorded for test.
func (r Results) Get(test string) (Status, bool) {
	i, ok := r.index[test]
	if !ok {
		return "", false
	}
	return r.entries[i].Status, true
}

// Len returns the number of recorded tests.
func (r Results) Len() int {
	return len(r.entries)
}

// All returns a copy of the entries in recorded order.
func (r Results) All() []Result {
	out := make([]Result, len(r.entries))
	copy(out, r.entries)
	return out
}

// ParseResults reads a run-tests.php -W results file. Each record is
// "STATUS TESTNAME" separated by whitespace; lines with fewer than two
// fields are skipped. Read errors end parsing with whatever was collected.
func ParseResults(r io.Reader) Results {
	var res Results
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		res.set(fields[1], Status(fields[0]))
	}
	return res
}
