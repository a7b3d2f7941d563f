// Package cli provides the phpbc command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/AndreyAkinshin/phpbc/internal/config"
	"github.com/AndreyAkinshin/phpbc/internal/errors"
	"github.com/AndreyAkinshin/phpbc/internal/logger"
	"github.com/AndreyAkinshin/phpbc/internal/output"
	"github.com/AndreyAkinshin/phpbc/internal/runner"
)

// Version is set at build time.
var Version = "dev"

// out is the console writer; logs is where structured logs go.
var (
	out            = output.New()
	logs io.Writer = os.Stderr
)

// Options holds the parsed command line flags.
type Options struct {
	Config  string `short:"c" long:"config" description:"configuration file (JSON or YAML)" value-name:"FILE"`
	Workers int    `short:"w" long:"workers" description:"number of concurrent test runner processes" value-name:"N"`
	Verbose bool   `short:"v" long:"verbose" description:"debug logging"`
	Quiet   bool   `short:"q" long:"quiet" description:"only warnings and errors"`
	DryRun  bool   `long:"dry-run" description:"list test groups without running them"`
	Version bool   `long:"version" description:"print version and exit"`
	Help    bool   `short:"h" long:"help" description:"show this help"`
}

// Run executes the CLI with the given arguments and returns an exit code.
func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, args)
}

func run(ctx context.Context, args []string) int {
	opts, err := parseOptions(args)
	if err != nil {
		out.ErrorPrefix("%v", err)
		out.Hint("run 'phpbc --help' for usage")
		return errors.ExitConfigError
	}

	switch {
	case opts.Help:
		printUsage(out)
		return errors.ExitSuccess
	case opts.Version:
		out.Println("phpbc %s", Version)
		return errors.ExitSuccess
	}

	out.SetQuiet(opts.Quiet)
	log := logger.New(logs, logger.Options{Verbose: opts.Verbose, Quiet: opts.Quiet})

	if err := execute(ctx, opts, log); err != nil {
		out.ErrorPrefix("%v", err)
		return errors.GetExitCode(err)
	}
	return errors.ExitSuccess
}

// parseOptions parses flags with go-flags. Positional arguments are
// rejected since phpbc takes none.
func parseOptions(args []string) (*Options, error) {
	opts := &Options{Config: config.DefaultFile}
	parser := flags.NewParser(opts, flags.PassDoubleDash)
	parser.Name = "phpbc"

	rest, err := parser.ParseArgs(args)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("unexpected argument %q", rest[0])
	}

	if opts.Quiet && opts.Verbose {
		return nil, fmt.Errorf("--quiet and --verbose are mutually exclusive")
	}
	if opts.Workers < 0 || opts.Workers > 256 {
		return nil, fmt.Errorf("invalid --workers value %d\n  valid range: 1-256", opts.Workers)
	}
	if opts.Config == "" {
		return nil, fmt.Errorf("--config requires a file name")
	}
	return opts, nil
}

const widthFlag = 22

func printUsage(w *output.Writer) {
	w.HelpTitle("phpbc - compare PHP test suite behavior between two builds")

	w.HelpSection("Usage:")
	w.HelpUsage("phpbc [flags]")

	w.HelpSection("Description:")
	w.Println("  Runs run-tests.php in a control and an experiment source tree, compares")
	w.Println("  the status and output of every test, and writes the differences.")

	w.HelpSection("Flags:")
	w.HelpFlag("-c, --config=<file>", "Configuration file, JSON or YAML (default: "+config.DefaultFile+")", widthFlag)
	w.HelpFlag("-w, --workers=<n>", "Concurrent test runner processes", widthFlag)
	w.HelpFlag("--dry-run", "List test groups without running them", widthFlag)
	w.HelpFlag("-q, --quiet", "Only warnings and errors", widthFlag)
	w.HelpFlag("-v, --verbose", "Debug logging", widthFlag)
	w.HelpFlag("-h, --help", "Show this help", widthFlag)
	w.HelpFlag("--version", "Show version", widthFlag)

	w.HelpSection("Environment:")
	w.HelpEnvVar(runner.WorkersEnv+"=<n>", "Override the configured worker count", 18)
	w.HelpEnvVar("NO_COLOR", "Disable colored output", 18)

	w.HelpSection("Examples:")
	w.HelpExample("phpbc", "Compare php-src against php-src-expr using config.json")
	w.HelpExample("phpbc -c jit.yaml -w 16", "Use another configuration with 16 workers")
	w.HelpExample("phpbc --dry-run", "Show which test groups would run")
	w.Println("")
}
