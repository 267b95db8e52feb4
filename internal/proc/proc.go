// Package proc runs external commands under a timeout and terminates the
// whole process group when the timeout fires or the caller cancels.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"
)

const (
	// DefaultGracePeriod is the time we wait after SIGTERM before sending SIGKILL.
	DefaultGracePeriod = 5 * time.Second

	// maxOutputBytes caps the combined output kept in memory.
	maxOutputBytes = 1 << 20
)

// ErrTimeout is returned when a command outlives its timeout.
var ErrTimeout = errors.New("timed out")

// Spec describes one command invocation.
type Spec struct {
	Name    string
	Args    []string
	Dir     string
	Env     []string
	Timeout time.Duration
	// Grace overrides DefaultGracePeriod when positive.
	Grace time.Duration
}

// Result carries what a finished command produced.
type Result struct {
	Output    string
	ExitCode  int
	Duration  time.Duration
	TimedOut  bool
	Cancelled bool
}

// Shell builds a Spec that runs command through sh -c.
func Shell(dir, command string, timeout time.Duration) Spec {
	return Spec{Name: "sh", Args: []string{"-c", command}, Dir: dir, Timeout: timeout}
}

// Run starts the command and waits for it. Stdout and stderr are combined.
//
// On timeout the process group receives SIGTERM, then SIGKILL after the grace
// period, and ErrTimeout is returned. On ctx cancellation the same termination
// happens and ctx.Err() is returned. A non-zero exit returns an *exec.ExitError.
func Run(ctx context.Context, spec Spec, logger *slog.Logger) (Result, error) {
	if spec.Name == "" {
		return Result{ExitCode: -1}, fmt.Errorf("command name is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	grace := spec.Grace
	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	// Not CommandContext: termination is managed here so the whole group is signalled.
	cmd := exec.Command(spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = spec.Env
	}
	setProcessGroup(cmd)

	out := &cappedBuffer{limit: maxOutputBytes}
	cmd.Stdout = out
	cmd.Stderr = out

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("start %s: %w", spec.Name, err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
	}()

	var timeoutC <-chan time.Time
	if spec.Timeout > 0 {
		timer := time.NewTimer(spec.Timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	result := Result{}
	select {
	case err := <-waitErr:
		result.Duration = time.Since(started)
		result.Output = out.String()
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				result.ExitCode = exitErr.ExitCode()
				return result, err
			}
			result.ExitCode = -1
			return result, fmt.Errorf("wait for %s: %w", spec.Name, err)
		}
		return result, nil

	case <-timeoutC:
		logger.Warn("command timed out, sending SIGTERM", "command", spec.Name, "timeout", spec.Timeout)
		terminate(cmd, waitErr, grace, logger)
		result.TimedOut = true
		result.ExitCode = -1
		result.Duration = time.Since(started)
		result.Output = out.String()
		return result, fmt.Errorf("%s %w after %s", spec.Name, ErrTimeout, spec.Timeout)

	case <-ctx.Done():
		logger.Info("command cancelled, sending SIGTERM", "command", spec.Name)
		terminate(cmd, waitErr, grace, logger)
		result.Cancelled = true
		result.ExitCode = -1
		result.Duration = time.Since(started)
		result.Output = out.String()
		return result, ctx.Err()
	}
}

func terminate(cmd *exec.Cmd, waitErr <-chan error, grace time.Duration, logger *slog.Logger) {
	if err := signalGroup(cmd, sigTerm); err != nil {
		logger.Error("failed to send SIGTERM", "error", err)
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-waitErr:
		logger.Debug("process group exited after SIGTERM")
	case <-timer.C:
		logger.Warn("process group did not exit after SIGTERM, sending SIGKILL")
		if err := signalGroup(cmd, sigKill); err != nil {
			logger.Error("failed to send SIGKILL", "error", err)
		}
		<-waitErr
	}
}

// cappedBuffer keeps the first limit bytes written and discards the rest.
type cappedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	room := b.limit - b.buf.Len()
	if room <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.truncated {
		return b.buf.String() + "\n[output truncated]"
	}
	return b.buf.String()
}
