// Package runtime abstracts the execution environment of the shaper so the
// rule-generation logic can be tested without touching real firewall state.
package runtime

import (
	"fmt"
	"os/exec"
	"strings"
)

// Executor offers a narrow capability for running external commands.
type Executor interface {
	// Exec executes a command and waits for its completion, returning
	// the combined stdout and stderr.
	Exec(cmd string, args ...string) ([]byte, error)
}

// executor runs commands through os/exec.
type executor struct{}

// DefaultExecutor returns an Executor backed by os/exec.
func DefaultExecutor() Executor {
	return executor{}
}

func (executor) Exec(cmd string, args ...string) ([]byte, error) {
	return exec.Command(cmd, args...).CombinedOutput()
}

// CommandError reports the failure of an external command invocation.
// It carries the full command line and whatever diagnostic output the
// command produced before failing.
type CommandError struct {
	// Command is the full command line that failed.
	Command string
	// Output is the combined stdout and stderr captured from the command.
	Output string
	// Err is the underlying execution error, usually an *exec.ExitError
	// or the launch failure when the binary could not be started.
	Err error
}

func (e *CommandError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("command %q failed: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("command %q failed: %v: %s", e.Command, e.Err, out)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError builds a CommandError for the given command line and
// captured output.
func NewCommandError(cmd string, args []string, output []byte, err error) *CommandError {
	return &CommandError{
		Command: cmd + " " + strings.Join(args, " "),
		Output:  string(output),
		Err:     err,
	}
}
