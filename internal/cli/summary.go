package cli

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/AndreyAkinshin/phpbc/internal/output"
	"github.com/AndreyAkinshin/phpbc/internal/report"
)

// maxListedChanges caps the changed tests printed on the console; the
// reports always carry all of them.
const maxListedChanges = 20

// printRunSummary prints a formatted comparison summary.
func printRunSummary(w *output.Writer, r *report.Result) {
	s := r.Summary
	titleCase := cases.Title(language.English)

	w.SummaryHeader("Comparison Summary")

	w.SummaryItem("All", fmt.Sprintf("%d", s.All))
	w.SummaryItem("Tested", fmt.Sprintf("%d", s.Tested))
	if s.Skipped() > 0 {
		w.SummaryItem("Skipped", fmt.Sprintf("%d", s.Skipped()))
	}
	w.SummaryPassed("Same", fmt.Sprintf("%d", s.Same))
	if s.Changes > 0 {
		w.SummaryFailed("Changed", fmt.Sprintf("%d", s.Changes))
	} else {
		w.SummaryItem("Changed", "0")
	}
	w.SummaryItem("Overall rate", formatRate(s.OverallRate))
	w.SummaryItem("Real rate", formatRate(s.RealRate))

	if len(r.Sames) > 0 {
		w.Println("")
		w.SummarySectionLabel("Same by status:")
		for _, status := range sortedKeys(r.Sames) {
			w.SummaryItem("  "+titleCase.String(strings.ToLower(status)), fmt.Sprintf("%d", len(r.Sames[status])))
		}
	}

	if len(r.Diffs) > 0 {
		w.Println("")
		w.SummarySectionLabel("Changes:")
		tests := sortedKeys(r.Diffs)
		for i, test := range tests {
			if i == maxListedChanges {
				w.SummaryItem("  ...", fmt.Sprintf("%d more in the reports", len(tests)-maxListedChanges))
				break
			}
			w.SummaryFailed("  "+test, r.Diffs[test].Type)
		}
	}

	if len(s.Unrecognized) > 0 {
		w.Println("")
		w.WarningSimple("unrecognized statuses counted as tested: %s", strings.Join(s.Unrecognized, ", "))
	}

	if s.Changes == 0 {
		w.FinalSuccess("No behavior changes in %d tests.", s.All)
	} else {
		w.FinalFailure("%d of %d tests changed behavior.", s.Changes, s.All)
	}
}

func formatRate(rate float64) string {
	return fmt.Sprintf("%.4f%%", rate*100)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
