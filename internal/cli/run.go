package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/AndreyAkinshin/phpbc/internal/compare"
	"github.com/AndreyAkinshin/phpbc/internal/config"
	"github.com/AndreyAkinshin/phpbc/internal/discover"
	"github.com/AndreyAkinshin/phpbc/internal/envinfo"
	"github.com/AndreyAkinshin/phpbc/internal/errors"
	"github.com/AndreyAkinshin/phpbc/internal/report"
	"github.com/AndreyAkinshin/phpbc/internal/runner"
	"github.com/AndreyAkinshin/phpbc/internal/task"
	"github.com/AndreyAkinshin/phpbc/internal/workdir"
)

// Side labels used in task names and environment probes.
const (
	labelControl    = "control"
	labelExperiment = "experiment"
)

// pair is the control and experiment run of one test group.
type pair struct {
	ctrl, expr *task.Task
}

// execute runs the whole comparison described by opts.
func execute(ctx context.Context, opts *Options, log *slog.Logger) error {
	cfg, err := loadConfig(opts, log)
	if err != nil {
		return err
	}

	groups, err := discover.Walk(cfg.Ctrl.WorkDir, cfg.Tests, cfg.Skip)
	if err != nil {
		return errors.WrapKind(errors.KindEnvironment, err, "discover tests")
	}
	log.Info("found tests", "tests", discover.Count(groups), "groups", len(groups))
	if discover.Count(groups) == 0 {
		out.Warning("no tests found in %s, exiting", cfg.Ctrl.WorkDir)
		return nil
	}

	if opts.DryRun {
		printDryRun(cfg, groups, opts.Verbose)
		return nil
	}

	locker := workdir.New()
	if err := locker.Lock(cfg.Ctrl.WorkDir, cfg.Expr.WorkDir); err != nil {
		return err
	}
	defer locker.UnlockAll()

	result, err := compareGroups(ctx, cfg, groups, log)
	if err != nil {
		return err
	}

	printRunSummary(out, result)
	return writeReports(result, cfg.Outputs, log)
}

// loadConfig loads the configuration file and applies command line and
// environment overrides.
func loadConfig(opts *Options, log *slog.Logger) (*config.Config, error) {
	cfg, warnings, err := config.LoadAndValidate(opts.Config)
	for _, w := range warnings {
		log.Warn(w, "config", opts.Config)
	}
	if err != nil {
		return nil, errors.WrapKind(errors.KindConfig, err, "invalid configuration")
	}

	cfg.Workers = runner.Workers(cfg.Workers, log)
	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.WrapKind(errors.KindEnvironment, err, "get working directory")
	}
	if err := config.Resolve(cfg, cwd); err != nil {
		return nil, errors.WrapKind(errors.KindConfig, err, "resolve paths")
	}
	log.Debug("configuration loaded",
		"control", cfg.Ctrl.WorkDir,
		"experiment", cfg.Expr.WorkDir,
		"workers", cfg.Workers,
		"timeout", cfg.TimeoutDuration())
	return cfg, nil
}

// compareGroups runs every group on both sides and compares the results.
func compareGroups(ctx context.Context, cfg *config.Config, groups []discover.Group, log *slog.Logger) (*report.Result, error) {
	pairs, err := buildTasks(cfg, groups)
	if err != nil {
		return nil, err
	}

	sched := runner.New(cfg.Workers, runner.WithLogger(log))
	// All control runs are queued first so the two sides of one group are
	// as far apart in the queue as possible.
	for _, p := range pairs {
		sched.Submit(p.ctrl)
	}
	for _, p := range pairs {
		sched.Submit(p.expr)
	}

	start := time.Now()
	log.Info("running tests", "tasks", 2*len(pairs), "workers", cfg.Workers)
	if err := sched.Run(ctx); err != nil {
		var spawnErr *task.SpawnError
		if stderrors.As(err, &spawnErr) {
			return nil, errors.WrapKind(errors.KindConfig, err, "cannot start test runner")
		}
		return nil, errors.Wrap(err, "test run aborted")
	}
	log.Info("tests finished", "duration", time.Since(start).Round(time.Millisecond))

	comparator := compare.New(cfg.DiffOptions(), log)
	reports := make([]compare.Report, 0, len(pairs))
	for _, p := range pairs {
		reportEmptyRun(p.ctrl, log)
		reportEmptyRun(p.expr, log)

		outcomes, err := comparator.Compare(p.ctrl, p.expr)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("compare %s", p.ctrl.Group()))
		}
		reports = append(reports, compare.NewReport(outcomes))
	}
	merged := report.Merge(reports...)

	env, err := envinfo.Collect(ctx, envinfo.Probes(side(labelControl, cfg.Ctrl), side(labelExperiment, cfg.Expr)))
	if err != nil {
		return nil, errors.Wrap(err, "collect environment information")
	}

	return report.New(merged, env), nil
}

// buildTasks creates the control and experiment task of every group.
func buildTasks(cfg *config.Config, groups []discover.Group) ([]pair, error) {
	pairs := make([]pair, 0, len(groups))
	for _, g := range groups {
		ctrl, err := task.New(taskSpec(cfg, cfg.Ctrl, labelControl, g))
		if err != nil {
			return nil, errors.WrapKind(errors.KindConfig, err, "control task")
		}
		expr, err := task.New(taskSpec(cfg, cfg.Expr, labelExperiment, g))
		if err != nil {
			return nil, errors.WrapKind(errors.KindConfig, err, "experiment task")
		}
		pairs = append(pairs, pair{ctrl: ctrl, expr: expr})
	}
	return pairs, nil
}

func taskSpec(cfg *config.Config, s config.SideConfig, label string, g discover.Group) task.Spec {
	return task.Spec{
		Group:   groupName(g.Dir),
		Label:   label + " tests",
		Binary:  s.Binary,
		WorkDir: s.WorkDir,
		Runner:  cfg.Runner,
		Args:    s.Args,
		Env:     s.Env,
		Timeout: cfg.TimeoutDuration(),
		Tests:   g.Tests,
	}
}

// groupName names the root group "." so log lines never show an empty group.
func groupName(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}

func side(label string, s config.SideConfig) envinfo.Side {
	return envinfo.Side{Label: label, Binary: s.Binary, Args: s.Args, Env: s.Env}
}

// reportEmptyRun warns about a runner that exited without recording any
// test, which usually means run-tests.php itself failed.
func reportEmptyRun(t *task.Task, log *slog.Logger) {
	results, ok := t.Results()
	if !ok || results.Len() > 0 {
		return
	}
	log.Warn("test runner recorded no results",
		"task", t.String(),
		"exit_code", t.ExitCode(),
		"stderr", t.Stderr())
}

// writeReports renders every configured output. A failing output is logged
// and the rest are still written.
func writeReports(result *report.Result, specs []report.Spec, log *slog.Logger) error {
	failed := 0
	for _, spec := range specs {
		if err := report.Write(result, spec); err != nil {
			log.Error("failed to write report", "file", spec.Name, "type", spec.Type, "err", err)
			failed++
			continue
		}
		log.Debug("report written", "file", spec.Name, "type", spec.Type)
		out.Success("Report written: %s", spec.Name)
	}
	if failed > 0 {
		return errors.Newf("%d of %d reports could not be written", failed, len(specs))
	}
	return nil
}
