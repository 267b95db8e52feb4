package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/slackagent/internal/api"
	"github.com/mattjoyce/slackagent/internal/config"
	"github.com/mattjoyce/slackagent/internal/cost"
	"github.com/mattjoyce/slackagent/internal/history"
	"github.com/mattjoyce/slackagent/internal/lock"
	"github.com/mattjoyce/slackagent/internal/storage"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// writeFixture creates a config directory and returns the config file path.
func writeFixture(t *testing.T, extra string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "channels"), 0o755))
	dbPath := filepath.Join(dir, "state.db")
	body := "state:\n  path: " + dbPath + "\n" +
		"channels_dir: channels\n" +
		"slack:\n  bot_token: xoxb-test\n  signing_secret: shh\n" +
		"budget:\n  monthly_usd: 100\n  warn_percent: 80\n" + extra
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path, dbPath
}

func TestVersionJSON(t *testing.T) {
	code, out, _ := runCLI(t, "version", "--json")
	require.Equal(t, 0, code)

	var info versionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.Commit)
}

func TestVersionRejectsArgs(t *testing.T) {
	code, _, stderr := runCLI(t, "version", "extra")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown command")
}

func TestNormalizeBuildTimeUTC(t *testing.T) {
	got, ok := normalizeBuildTimeUTC("2026-03-01T10:00:00+02:00")
	assert.True(t, ok)
	assert.Equal(t, "2026-03-01T08:00:00Z", got)

	_, ok = normalizeBuildTimeUTC("unknown")
	assert.False(t, ok)
	_, ok = normalizeBuildTimeUTC("yesterday")
	assert.False(t, ok)
}

func TestShortenCommit(t *testing.T) {
	assert.Equal(t, "abc", shortenCommit("abc"))
	assert.Equal(t, "0123456789ab", shortenCommit("0123456789abcdef"))
}

func TestConfigLockThenLoad(t *testing.T) {
	path, _ := writeFixture(t, "")

	code, out, _ := runCLI(t, "--config", path, "config", "lock", "--dry-run")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Dry run: 1 file(s)")
	_, err := os.Stat(filepath.Join(filepath.Dir(path), config.ChecksumFileName))
	assert.True(t, os.IsNotExist(err))

	code, out, _ = runCLI(t, "--config", path, "config", "lock", "-v")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "config.yaml")
	assert.Contains(t, out, "Locked 1 file(s)")

	_, err = config.Load(path)
	require.NoError(t, err)

	// An edited file fails Load, but lock re-authorizes it.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, _ = f.WriteString("dispatch:\n  max_workers: 2\n")
	require.NoError(t, f.Close())

	_, err = config.Load(path)
	require.Error(t, err)

	code, _, _ = runCLI(t, "--config", path, "config", "lock")
	require.Equal(t, 0, code)
	_, err = config.Load(path)
	assert.NoError(t, err)
}

func TestConfigTokenWithScopes(t *testing.T) {
	code, out, _ := runCLI(t, "config", "token", "--scopes", "tasks:ro, events:ro")
	require.Equal(t, 0, code)

	var parsed struct {
		API config.APIConfig `yaml:"api"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &parsed))
	require.Len(t, parsed.API.Auth.Tokens, 1)
	assert.Len(t, parsed.API.Auth.Tokens[0].Token, 64)
	assert.Equal(t, []string{"tasks:ro", "events:ro"}, parsed.API.Auth.Tokens[0].Scopes)
}

func TestConfigTokenRejectsUnknownScope(t *testing.T) {
	code, _, stderr := runCLI(t, "config", "token", "--scopes", "jobs:rw")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown scope")
}

func seedState(t *testing.T, dbPath string) {
	t.Helper()
	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, dbPath)
	require.NoError(t, err)
	defer db.Close()

	hist := history.New(db)
	require.NoError(t, hist.Create(ctx, history.CreateRequest{ID: "a1b2c3d4", ChannelID: "C1", Description: "fix login redirect", Model: "sonnet", Requester: "U1", Status: history.StatusPending}))
	require.NoError(t, hist.MarkRunning(ctx, "a1b2c3d4", "agent/a1b2c3d4", "1700000000.000100"))
	require.NoError(t, hist.Complete(ctx, "a1b2c3d4", history.Outcome{Status: history.StatusCompleted, PRURL: "https://github.com/o/r/pull/9", CostUSD: 0.5}))
	require.NoError(t, hist.Create(ctx, history.CreateRequest{ID: "e5f6a7b8", ChannelID: "C2", Description: "add docs", Model: "haiku", Status: history.StatusPending}))

	_, err = cost.NewTracker(db, 100, 80).Record(ctx, "C1", "a1b2c3d4", "sonnet", 100_000, 20_000)
	require.NoError(t, err)
}

func TestTaskHistory(t *testing.T) {
	path, dbPath := writeFixture(t, "")
	seedState(t, dbPath)

	code, out, _ := runCLI(t, "--config", path, "task", "history")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "a1b2c3d4")
	assert.Contains(t, out, "e5f6a7b8")

	code, out, _ = runCLI(t, "--config", path, "task", "history", "--channel", "C1", "--json")
	require.Equal(t, 0, code)
	var records []history.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, history.StatusCompleted, records[0].Status)
}

func TestTaskShow(t *testing.T) {
	path, dbPath := writeFixture(t, "")
	seedState(t, dbPath)

	code, out, _ := runCLI(t, "--config", path, "task", "show", "a1b2c3d4")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "https://github.com/o/r/pull/9")
	assert.Contains(t, out, "agent/a1b2c3d4")

	code, _, stderr := runCLI(t, "--config", path, "task", "show", "missing")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "task missing not found")
}

func TestCostStatus(t *testing.T) {
	path, dbPath := writeFixture(t, "")
	seedState(t, dbPath)

	code, out, _ := runCLI(t, "--config", path, "cost", "status", "--json")
	require.Equal(t, 0, code)

	var report costReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.InDelta(t, 100, report.BudgetUSD, 1e-9)
	assert.InDelta(t, 0.6, report.SpentUSD, 1e-9)
	require.Len(t, report.Channels, 1)
	assert.Equal(t, "C1", report.Channels[0].ChannelID)

	code, out, _ = runCLI(t, "--config", path, "cost", "status")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Monthly spend:")
	assert.Contains(t, out, "C1")
}

func TestSystemStatusNotRunning(t *testing.T) {
	path, _ := writeFixture(t, "")

	code, out, _ := runCLI(t, "--config", path, "system", "status")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "not running")
}

func TestCollectStatusQueriesHealthz(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthz", r.URL.Path)
		_ = json.NewEncoder(w).Encode(api.HealthzResponse{Status: "ok", UptimeSeconds: 90, Channels: 2, Running: 1, Pending: 3})
	}))
	defer srv.Close()

	path, dbPath := writeFixture(t, "api:\n  enabled: true\n  listen: "+strings.TrimPrefix(srv.URL, "http://")+"\n  auth:\n    api_key: k\n")
	cfg, err := config.Load(path)
	require.NoError(t, err)

	held, err := lock.AcquirePIDLock(lock.PathFor(dbPath))
	require.NoError(t, err)
	defer held.Release()

	st := collectStatus(context.Background(), cfg, srv.Client())
	assert.True(t, st.Running)
	assert.Equal(t, os.Getpid(), st.PID)
	require.NotNil(t, st.Health)
	assert.Equal(t, 3, st.Health.Pending)

	var buf bytes.Buffer
	printStatus(&buf, st)
	assert.Contains(t, buf.String(), "channels: 2  running: 1  queued: 3")
}

func TestAPIBaseURL(t *testing.T) {
	tests := []struct {
		listen string
		want   string
	}{
		{":8081", "http://127.0.0.1:8081"},
		{"0.0.0.0:8081", "http://127.0.0.1:8081"},
		{"localhost:9000", "http://localhost:9000"},
		{"https://agent.example.com/", "https://agent.example.com"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, apiBaseURL(tt.listen), tt.listen)
	}
}

func TestSplitScopes(t *testing.T) {
	assert.Equal(t, []string{"tasks:ro", "metrics:ro"}, splitScopes(" tasks:ro ,,metrics:ro "))
	assert.Nil(t, splitScopes(""))
}

func TestTokenConfigs(t *testing.T) {
	got := tokenConfigs([]config.APIToken{{Token: "t", Scopes: []string{"*"}}})
	require.Len(t, got, 1)
	assert.Equal(t, "t", got[0].Token)
	assert.Equal(t, []string{"*"}, got[0].Scopes)
}
