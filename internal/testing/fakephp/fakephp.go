// Package fakephp turns a test binary into a stand-in for "php run-tests.php".
//
// A test package calls Main from TestMain. When the process was started with
// the Behavior environment variable set, Main acts as the runner and exits;
// otherwise it returns and the tests run normally. Tasks under test point
// their binary at os.Args[0] and pass Behavior.Env as overrides.
package fakephp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// EnvVar carries the JSON encoded Behavior to the child process.
const EnvVar = "PHPBC_FAKE_PHP"

// Behavior scripts one fake runner invocation.
type Behavior struct {
	// Statuses maps a test path to the status to record. Tests not listed
	// are recorded as PASSED unless Omit contains them.
	Statuses map[string]string `json:"statuses,omitempty"`
	// Omit lists tests that get no results line at all.
	Omit []string `json:"omit,omitempty"`
	// Outputs maps a test path to the content of its .out artifact.
	Outputs map[string]string `json:"outputs,omitempty"`
	// Reasons maps a test path to the content of its .diff artifact.
	Reasons map[string]string `json:"reasons,omitempty"`
	// Extra lines are appended verbatim to the results file.
	Extra []string `json:"extra,omitempty"`
	// Sleep delays the runner before it writes anything.
	Sleep time.Duration `json:"sleep,omitempty"`
	// ExitCode is the process exit status.
	ExitCode int `json:"exit_code,omitempty"`
	// Stderr is written to standard error.
	Stderr string `json:"stderr,omitempty"`
	// Dump, when set, receives an Invocation record as JSON.
	Dump string `json:"dump,omitempty"`
	// Version is printed for "php -v".
	Version string `json:"version,omitempty"`
}

// Invocation records how the fake runner was started.
type Invocation struct {
	Args  []string          `json:"args"`
	Dir   string            `json:"dir"`
	Env   map[string]string `json:"env"`
	Tests []string          `json:"tests"`
}

// dumpedEnv lists the variables captured in Invocation.Env.
var dumpedEnv = []string{"TEST_PHP_EXECUTABLE", "NO_COLOR", "NO_INTERACTION", "TRAVIS_CI", "PHPBC_FAKE_EXTRA"}

// Env returns the environment overrides that select this behavior.
func (b Behavior) Env() map[string]string {
	data, err := json.Marshal(b)
	if err != nil {
		panic(fmt.Sprintf("fakephp: encode behavior: %v", err))
	}
	return map[string]string{EnvVar: string(data)}
}

// ReadInvocation loads the record a runner wrote to path.
func ReadInvocation(path string) (Invocation, error) {
	var inv Invocation
	data, err := os.ReadFile(path)
	if err != nil {
		return inv, err
	}
	err = json.Unmarshal(data, &inv)
	return inv, err
}

// Main runs the fake runner and exits if EnvVar is set.
func Main() {
	raw, ok := os.LookupEnv(EnvVar)
	if !ok {
		return
	}
	var b Behavior
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		fmt.Fprintf(os.Stderr, "fakephp: decode behavior: %v\n", err)
		os.Exit(255)
	}
	code, err := run(b, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "fakephp: %v\n", err)
		os.Exit(255)
	}
	os.Exit(code)
}

func run(b Behavior, args []string) (int, error) {
	if len(args) == 1 {
		switch args[0] {
		case "-v":
			version := b.Version
			if version == "" {
				version = "PHP 8.3.0 (cli) (fake)"
			}
			fmt.Println(version)
			return 0, nil
		case "-m":
			fmt.Println("[PHP Modules]\nCore\nstandard")
			return 0, nil
		}
	}

	if b.Sleep > 0 {
		time.Sleep(b.Sleep)
	}
	if b.Stderr != "" {
		fmt.Fprint(os.Stderr, b.Stderr)
	}

	list, results := flagValue(args, "-r"), flagValue(args, "-W")
	if list == "" || results == "" {
		return 2, fmt.Errorf("missing -r or -W in %q", args)
	}
	data, err := os.ReadFile(list)
	if err != nil {
		return 2, err
	}
	var tests []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			tests = append(tests, line)
		}
	}

	if b.Dump != "" {
		if err := dump(b.Dump, args, tests); err != nil {
			return 2, err
		}
	}

	omit := make(map[string]bool, len(b.Omit))
	for _, name := range b.Omit {
		omit[name] = true
	}
	var sb strings.Builder
	for _, name := range tests {
		if omit[name] {
			continue
		}
		status := b.Statuses[name]
		if status == "" {
			status = "PASSED"
		}
		fmt.Fprintf(&sb, "%s\t%s\n", status, name)
	}
	for _, line := range b.Extra {
		sb.WriteString(line + "\n")
	}
	if err := os.WriteFile(results, []byte(sb.String()), 0o644); err != nil {
		return 2, err
	}

	if err := writeArtifacts(b.Outputs, ".out"); err != nil {
		return 2, err
	}
	if err := writeArtifacts(b.Reasons, ".diff"); err != nil {
		return 2, err
	}
	return b.ExitCode, nil
}

func flagValue(args []string, name string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == name {
			return args[i+1]
		}
	}
	return ""
}

func dump(path string, args, tests []string) error {
	dir, _ := os.Getwd()
	inv := Invocation{
		Args:  args,
		Dir:   dir,
		Env:   make(map[string]string),
		Tests: tests,
	}
	for _, key := range dumpedEnv {
		if v, ok := os.LookupEnv(key); ok {
			inv.Env[key] = v
		}
	}
	data, err := json.Marshal(inv)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func writeArtifacts(contents map[string]string, ext string) error {
	names := make([]string, 0, len(contents))
	for name := range contents {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		path := strings.TrimSuffix(name, filepath.Ext(name)) + ext
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(contents[name]), 0o644); err != nil {
			return err
		}
	}
	return nil
}
