// Package envinfo records the environment a comparison ran in: both PHP
// builds and the host they ran on.
package envinfo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/AndreyAkinshin/phpbc/internal/report"
)

// MaxParallel bounds the number of probes running at once.
const MaxParallel = 4

// Side describes one PHP build.
type Side struct {
	Label  string // "control" or "experiment"
	Binary string
	Args   []string
	Env    map[string]string
}

// Probe is one environment query. Exactly one of Command and File is set.
type Probe struct {
	Name    string
	Command []string
	Env     map[string]string
	// File is read when present; a missing file drops the probe.
	File string
}

// Probes returns the standard probes for a control and an experiment build.
func Probes(ctrl, expr Side) []Probe {
	var probes []Probe
	for _, side := range []Side{ctrl, expr} {
		for _, flag := range []string{"-v", "-m"} {
			cmd := append([]string{side.Binary}, side.Args...)
			probes = append(probes, Probe{
				Name:    fmt.Sprintf("%s php %s", side.Label, flag),
				Command: append(cmd, flag),
				Env:     side.Env,
			})
		}
	}
	if runtime.GOOS == "windows" {
		return probes
	}
	probes = append(probes, Probe{Name: "uname -a", Command: []string{"uname", "-a"}})
	for _, file := range []string{"/proc/cpuinfo", "/proc/meminfo", "/etc/os-release"} {
		probes = append(probes, Probe{Name: "cat " + file, File: file})
	}
	return probes
}

// Collect runs probes concurrently and returns their outputs in probe
// order. A failing probe records its error text; only cancellation of ctx
// is returned as an error.
func Collect(ctx context.Context, probes []Probe) (report.Env, error) {
	outputs := make([]string, len(probes))
	present := make([]bool, len(probes))

	sem := semaphore.NewWeighted(MaxParallel)
	g, gCtx := errgroup.WithContext(ctx)
	for i, p := range probes {
		g.Go(func() error {
			if err := sem.Acquire(gCtx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			outputs[i], present[i] = run(gCtx, p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	env := make(report.Env, 0, len(probes))
	for i, p := range probes {
		if present[i] {
			env = append(env, report.EnvEntry{Name: p.Name, Output: outputs[i]})
		}
	}
	return env, nil
}

func run(ctx context.Context, p Probe) (string, bool) {
	if p.File != "" {
		data, err := os.ReadFile(p.File)
		if errors.Is(err, fs.ErrNotExist) {
			return "", false
		}
		if err != nil {
			return err.Error(), true
		}
		return string(data), true
	}
	if len(p.Command) == 0 {
		return "empty command", true
	}

	cmd := exec.CommandContext(ctx, p.Command[0], p.Command[1:]...)
	cmd.Env = os.Environ()
	for k, v := range p.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	out, err := cmd.Output()
	if err != nil {
		msg := err.Error()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			msg += ": " + strings.TrimSpace(string(exitErr.Stderr))
		}
		return string(out) + msg, true
	}
	return string(out), true
}
