package task

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Action describes what a task does when an executor dispatches it. New
// capabilities are added as new implementations plus a registry factory; the
// graph and cursor never inspect an action beyond holding it.
type Action interface {
	// Kind returns the registry key for the action variant, e.g. "shell".
	Kind() string
	// Run performs the work and blocks until it finishes. Failures are
	// returned, never fatal to the calling process, so the executor can record
	// them and keep independent work moving.
	Run(ctx context.Context) error
}

// ShellKind is the registry key for the built-in shell action.
const ShellKind = "shell"

// Shell runs an external command. Command[0] is the executable path and the
// rest are arguments. The child inherits the parent's stdio unless the
// executor redirects it via Stdout/Stderr.
type Shell struct {
	Command []string
	Stdout  io.Writer
	Stderr  io.Writer
}

// Kind implements Action.
func (s Shell) Kind() string { return ShellKind }

// Run spawns the command and waits for it to exit.
func (s Shell) Run(ctx context.Context) error {
	if len(s.Command) == 0 {
		return fmt.Errorf("task: shell action requires a non-empty command")
	}
	cmd := exec.CommandContext(ctx, s.Command[0], s.Command[1:]...)
	cmd.Stdout = s.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = s.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("task: shell %s: %w", s.Command[0], err)
	}
	return nil
}
