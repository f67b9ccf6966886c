// Package terminal runs allow-listed local commands for the MCP server and
// the `run` CLI command.
package terminal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrEmptyCommand = errors.New("empty command")
	ErrNotAllowed   = errors.New("command is not in the allow-list")
)

// Command is one invocation. Name is a bare executable name looked up in
// PATH; paths are refused.
type Command struct {
	Name string
	Args []string
	Dir  string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Parse splits a command line on whitespace. Quoting is not interpreted.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, ErrEmptyCommand
	}
	return Command{Name: fields[0], Args: fields[1:]}, nil
}

// Result is the outcome of the last attempt.
type Result struct {
	Command  string        `json:"command"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exit_code"` // -1 when killed by the timeout
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
}

// Runner executes commands with a per-attempt timeout. A non-zero exit or
// timeout is retried up to Retries times, doubling the wait from Backoff.
type Runner struct {
	Timeout time.Duration
	Retries int
	Backoff time.Duration

	allowed map[string]bool
	log     *zap.Logger
}

// NewRunner allows only the executables named in allowed.
func NewRunner(allowed []string, timeout time.Duration, retries int, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Runner{
		Timeout: timeout,
		Retries: retries,
		Backoff: 500 * time.Millisecond,
		allowed: make(map[string]bool, len(allowed)),
		log:     log.Named("terminal"),
	}
	for _, name := range allowed {
		r.allowed[name] = true
	}
	return r
}

// Allowed reports whether name may be executed.
func (r *Runner) Allowed(name string) bool {
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		return false
	}
	return r.allowed[name]
}

// Run executes cmd. The returned Result is non-nil whenever the command
// was started, including on a failing exit.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Name == "" {
		return nil, ErrEmptyCommand
	}
	if !r.Allowed(cmd.Name) {
		return nil, fmt.Errorf("%w: %s", ErrNotAllowed, cmd.Name)
	}
	path, err := exec.LookPath(cmd.Name)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", cmd.Name, err)
	}

	log := r.log.With(zap.String("command", cmd.String()))
	wait := r.Backoff
	var res *Result
	for attempt := 1; attempt <= r.Retries+1; attempt++ {
		res, err = r.once(ctx, path, cmd)
		if res == nil {
			return nil, err
		}
		res.Attempts = attempt
		if err == nil || ctx.Err() != nil || attempt > r.Retries {
			break
		}
		log.Warn("command failed, retrying",
			zap.Int("attempt", attempt), zap.Int("exit_code", res.ExitCode), zap.Duration("wait", wait))
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	if err != nil {
		log.Error("command failed", zap.Int("attempts", res.Attempts), zap.Error(err))
		return res, err
	}
	log.Info("command finished", zap.Int("attempts", res.Attempts), zap.Duration("duration", res.Duration))
	return res, nil
}

func (r *Runner) once(ctx context.Context, path string, cmd Command) (*Result, error) {
	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(runCtx, path, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cmd.Name, err)
	}
	err := c.Wait()
	res := &Result{
		Command:  cmd.String(),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	switch {
	case err == nil:
		return res, nil
	case runCtx.Err() != nil:
		res.ExitCode = -1
		return res, fmt.Errorf("%s: %w", cmd.Name, runCtx.Err())
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, fmt.Errorf("%s exited with status %d", cmd.Name, res.ExitCode)
		}
		res.ExitCode = -1
		return res, err
	}
}
