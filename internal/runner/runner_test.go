//go:build !windows

package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/mattjoyce/slackagent/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.Setup("ERROR", "json")
	os.Exit(m.Run())
}

func fakeCLI(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "claude")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"--print", "--model", "claude-3-opus-20240229", "fix bug"},
		Args(Request{Model: "claude-3-opus-20240229", Prompt: "fix bug"}))
	assert.Equal(t,
		[]string{"--print", "--model", "m", "--append-system-prompt", "be terse", "fix bug"},
		Args(Request{Model: "m", Prompt: "fix bug", SystemPrompt: "be terse"}))
}

func TestRunReturnsOutput(t *testing.T) {
	cli := fakeCLI(t, `echo "model=$3 prompt=$4"; pwd`)
	dir := t.TempDir()

	res, err := New(cli).Run(context.Background(), Request{Dir: dir, Model: "sonnet-id", Prompt: "add tests"})
	require.NoError(t, err)
	assert.Contains(t, res.Output, "model=sonnet-id prompt=add tests")
	resolved, _ := filepath.EvalSymlinks(dir)
	assert.True(t, strings.Contains(res.Output, dir) || strings.Contains(res.Output, resolved))
}

func TestRunNonZeroExit(t *testing.T) {
	cli := fakeCLI(t, "echo 'rate limited' >&2; exit 2\n")

	_, err := New(cli).Run(context.Background(), Request{Dir: t.TempDir(), Model: "m", Prompt: "x"})
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestRunTimeout(t *testing.T) {
	cli := fakeCLI(t, "trap '' TERM; sleep 30\n")

	started := time.Now()
	_, err := New(cli, WithGracePeriod(100*time.Millisecond)).Run(context.Background(),
		Request{Dir: t.TempDir(), Model: "m", Prompt: "x", Timeout: 200 * time.Millisecond})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(started), 5*time.Second)
}

func TestRunCancel(t *testing.T) {
	cli := fakeCLI(t, "sleep 30\n")
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	_, err := New(cli).Run(ctx, Request{Dir: t.TempDir(), Model: "m", Prompt: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunEmptyOutput(t *testing.T) {
	cli := fakeCLI(t, "exit 0\n")
	res, err := New(cli).Run(context.Background(), Request{Dir: t.TempDir(), Model: "m", Prompt: "x"})
	require.NoError(t, err, "a clean exit succeeds without output")
	assert.Empty(t, res.Output)
}

func TestExitErrorTruncatesOnRuneBoundary(t *testing.T) {
	err := &ExitError{Code: 1, Output: strings.Repeat("€", maxErrorOutput)}
	msg := err.Error()
	assert.True(t, utf8.ValidString(msg))
	assert.True(t, strings.HasSuffix(msg, "€..."))
	assert.Less(t, len(msg), maxErrorOutput+64)
}

func TestRunEmptyPrompt(t *testing.T) {
	_, err := New("unused").Run(context.Background(), Request{Prompt: "  "})
	assert.Error(t, err)
}
