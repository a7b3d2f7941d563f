// Package report assembles the final comparison result and renders it.
package report

import (
	"bytes"
	"encoding/json"

	"github.com/AndreyAkinshin/phpbc/internal/compare"
	"github.com/AndreyAkinshin/phpbc/internal/task"
)

// EnvEntry is the output of one environment probe.
type EnvEntry struct {
	Name   string
	Output string
}

// Env is an ordered list of probe outputs. It marshals to a JSON object
// whose keys keep the probe order.
type Env []EnvEntry

// MarshalJSON implements json.Marshaler.
func (e Env) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range e {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(entry.Output)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler. Key order follows the input.
func (e *Env) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return err
	}
	var out Env
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var output string
		if err := dec.Decode(&output); err != nil {
			return err
		}
		out = append(out, EnvEntry{Name: name, Output: output})
	}
	*e = out
	return nil
}

// Summary holds the headline numbers of a run.
type Summary struct {
	// OverallRate is changes over all classified tests.
	OverallRate float64 `json:"overall_rate"`
	// RealRate is changes over tests that actually ran.
	RealRate float64 `json:"real_rate"`
	All      int     `json:"all"`
	Tested   int     `json:"tested"`
	Same     int     `json:"same"`

	// Changes is the number of diff entries.
	Changes int `json:"-"`
	// Unrecognized lists same-entry statuses outside the known set.
	Unrecognized []string `json:"-"`
}

// Skipped returns the number of tests that never ran.
func (s Summary) Skipped() int {
	return s.All - s.Tested
}

// Summarize computes the summary of r. SKIPPED and BORKED tests count
// towards All but not towards Tested; any other status counts as tested.
func Summarize(r compare.Report) Summary {
	s := Summary{Changes: len(r.Diffs)}
	realSame := 0
	for _, status := range r.Statuses() {
		n := len(r.Sames[status])
		s.Same += n
		st := task.Status(status)
		if !st.Known() {
			s.Unrecognized = append(s.Unrecognized, status)
		}
		if st.Tested() {
			realSame += n
		}
	}

	s.All = s.Same + s.Changes
	if realSame == 0 && s.Changes == 0 {
		s.Same = 0
		return s
	}
	s.Tested = realSame + s.Changes
	s.OverallRate = float64(s.Changes) / float64(s.All)
	s.RealRate = float64(s.Changes) / float64(s.Tested)
	return s
}

// Result is the complete outcome of a run, as written to reports.
type Result struct {
	Diffs   map[string]compare.Entry `json:"diffs"`
	Sames   map[string][]string      `json:"sames"`
	Env     Env                      `json:"env"`
	Summary Summary                  `json:"summary"`
}

// New builds a result from the merged comparison report and probe outputs.
func New(r compare.Report, env Env) *Result {
	if r.Diffs == nil {
		r.Diffs = make(map[string]compare.Entry)
	}
	if r.Sames == nil {
		r.Sames = make(map[string][]string)
	}
	if env == nil {
		env = Env{}
	}
	return &Result{
		Diffs:   r.Diffs,
		Sames:   r.Sames,
		Env:     env,
		Summary: Summarize(r),
	}
}

// Merge combines the reports of several groups.
func Merge(reports ...compare.Report) compare.Report {
	var out compare.Report
	for _, r := range reports {
		out.Merge(r)
	}
	if out.Diffs == nil {
		out = compare.NewReport(nil)
	}
	return out
}
