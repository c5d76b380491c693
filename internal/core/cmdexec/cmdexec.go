// SPDX-License-Identifier: Apache-2.0

// Package cmdexec runs the external processes that concrete modules wrap.
package cmdexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Runner executes a single external command with captured output.
type Runner struct {
	command    string
	args       []string
	workingDir string
	env        []string
	verbose    bool
}

// Result holds the outcome of a command execution.
type Result struct {
	Stdout     []byte
	Stderr     []byte
	ExitStatus int
}

// New creates a runner for the given command and arguments.
func New(command string, args ...string) *Runner {
	return &Runner{
		command: command,
		args:    args,
	}
}

// WithWorkingDir sets the working directory.
func (r *Runner) WithWorkingDir(dir string) *Runner {
	r.workingDir = dir
	return r
}

// WithEnvironment sets environment variables.
func (r *Runner) WithEnvironment(env []string) *Runner {
	r.env = env
	return r
}

// WithVerbose tees the child's output to the terminal in addition to
// capturing it.
func (r *Runner) WithVerbose(verbose bool) *Runner {
	r.verbose = verbose
	return r
}

// Run executes the command. The context bounds the child process: when the
// context is cancelled or its deadline passes, the child is signalled and Run
// returns. A non-zero exit is returned as both a populated Result and an
// error so callers can inspect stderr.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	cmd := exec.CommandContext(ctx, r.command, r.args...)

	var stdout, stderr bytes.Buffer
	if r.verbose {
		cmd.Stdout = io.MultiWriter(&stdout, os.Stdout)
		cmd.Stderr = io.MultiWriter(&stderr, os.Stderr)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	if r.workingDir != "" {
		cmd.Dir = r.workingDir
	}
	if len(r.env) > 0 {
		cmd.Env = r.env
	}

	if r.verbose {
		fmt.Printf("Executing: %s %s\n", r.command, strings.Join(r.args, " "))
	}

	err := cmd.Run()

	result := &Result{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitStatus = exitErr.ExitCode()
	}

	// Prefer the context error so timeouts are not reported as signal exits.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, ctxErr
	}

	return result, err
}

// LookPath reports whether an external binary is resolvable on the search
// path. Used for dependency probing.
func LookPath(binary string) error {
	_, err := exec.LookPath(binary)
	return err
}
