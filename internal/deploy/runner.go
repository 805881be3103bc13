// Package deploy ships a filtered source tree to a remote host by shelling
// out to tar, scp and ssh.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandError carries the exit code and output of a failed subprocess.
type CommandError struct {
	Command  string
	ExitCode int
	Output   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

type ExecRunner struct {
	Log *zap.Logger
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}

	log.Debug("exec", zap.String("cmd", name), zap.Strings("args", args))

	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		cmdErr := &CommandError{
			Command:  name,
			ExitCode: -1,
			Output:   string(out),
			Err:      err,
		}
		if exitErr, ok := errors.AsType[*exec.ExitError](err); ok {
			cmdErr.ExitCode = exitErr.ExitCode()
		}
		return out, cmdErr
	}

	return out, nil
}

// RecordingRunner remembers every command instead of running it. Dry runs
// use it to show what would happen.
type RecordingRunner struct {
	mu    sync.Mutex
	calls [][]string
	// FailOn makes Run fail for the named program.
	FailOn map[string]error
}

func (r *RecordingRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, append([]string{name}, args...))
	if err, ok := r.FailOn[name]; ok {
		return nil, &CommandError{Command: name, ExitCode: 1, Err: err}
	}
	return nil, nil
}

func (r *RecordingRunner) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([][]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// CommandLine renders a recorded call for display.
func CommandLine(call []string) string {
	quoted := make([]string, len(call))
	for i, c := range call {
		if c == "" || strings.ContainsAny(c, " \t'\"$;&|<>*?") {
			quoted[i] = shellQuote(c)
		} else {
			quoted[i] = c
		}
	}
	return strings.Join(quoted, " ")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
