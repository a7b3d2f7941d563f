package cli

import (
	"fmt"

	"github.com/AndreyAkinshin/phpbc/internal/config"
	"github.com/AndreyAkinshin/phpbc/internal/discover"
)

// printDryRun lists what a run would execute without spawning anything.
// With verbose set, the tests of every group are listed as well.
func printDryRun(cfg *config.Config, groups []discover.Group, verbose bool) {
	out.DryRunStart()

	out.Println("control:    %s (%s)", cfg.Ctrl.WorkDir, cfg.Ctrl.Binary)
	out.Println("experiment: %s (%s)", cfg.Expr.WorkDir, cfg.Expr.Binary)
	out.Println("workers:    %d", cfg.Workers)
	out.Println("")

	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{groupName(g.Dir), fmt.Sprintf("%d", len(g.Tests))})
	}
	out.Table([]string{"GROUP", "TESTS"}, rows)
	out.Println("")
	if verbose {
		for _, g := range groups {
			out.Section(groupName(g.Dir))
			out.List(g.Tests)
		}
		out.Println("")
	}
	out.Println("%d tests in %d groups, %d runner processes", discover.Count(groups), len(groups), 2*len(groups))

	out.DryRunEnd()
}
