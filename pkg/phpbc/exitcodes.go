// Package phpbc provides public constants for external tools
// integrating with phpbc.
package phpbc

// Exit codes returned by the phpbc CLI.
// These constants allow external tools to check exit codes symbolically
// rather than using magic numbers.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitFailure indicates a runtime failure (test runner failed, report not written, etc.).
	ExitFailure = 1

	// ExitConfigError indicates a configuration error (invalid config, validation failure, etc.).
	ExitConfigError = 2

	// ExitEnvError indicates an environment error (working directory missing or locked, etc.).
	ExitEnvError = 3
)
