// Package cli parses the sandgraph command line into an app.Config.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/NoakLiu/SandGraphX/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config, a
// boolean indicating the program should exit cleanly (help shown), or an
// ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("sandgraph", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
SandGraphX - a round-based workflow engine that turns environment/decision
graphs into reinforcement-learning experience.

Usage:
  sandgraph [options] [WORKFLOW_PATH]

Arguments:
  WORKFLOW_PATH
    Path to a workflow file (.hcl, .yaml, or .yml).

Options:
`)
		flagSet.PrintDefaults()
	}

	workflowFlag := flagSet.String("workflow", "", "Path to the workflow file.")
	wFlag := flagSet.String("w", "", "Path to the workflow file (shorthand).")
	roundsFlag := flagSet.Int("rounds", 0, "Override the round count declared in the workflow file. 0 keeps the file's value.")
	workersFlag := flagSet.Int("workers", 4, "Number of concurrent workers per round.")
	nodeTimeoutFlag := flagSet.Duration("node-timeout", 60*time.Second, "Per-node execution timeout. 0 disables it.")
	strictFlag := flagSet.Bool("strict-rounds", false, "Fail the run on the first round with a non-OK node.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	backendFlag := flagSet.String("backend", "mock", "Decision backend. Options: 'mock' or 'http'.")
	backendURLFlag := flagSet.String("backend-url", "", "Base URL of the HTTP decision backend.")
	apiKeyFlag := flagSet.String("api-key", "", "API key for the HTTP decision backend.")
	modelFlag := flagSet.String("model", "", "Model name passed to the HTTP decision backend.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	path := ""
	if *workflowFlag != "" {
		path = *workflowFlag
	} else if *wFlag != "" {
		path = *wFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}

	if path == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		WorkflowPath: path,
		Rounds:       *roundsFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
		Workers:      *workersFlag,
		NodeTimeout:  *nodeTimeoutFlag,
		StrictRounds: *strictFlag,
		Backend:      strings.ToLower(*backendFlag),
		BackendURL:   *backendURLFlag,
		APIKey:       *apiKeyFlag,
		Model:        *modelFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return config, false, nil
}
