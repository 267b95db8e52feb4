package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/mattjoyce/slackagent/internal/api"
	"github.com/mattjoyce/slackagent/internal/auth"
	"github.com/mattjoyce/slackagent/internal/command"
	"github.com/mattjoyce/slackagent/internal/config"
	"github.com/mattjoyce/slackagent/internal/cost"
	"github.com/mattjoyce/slackagent/internal/dispatch"
	"github.com/mattjoyce/slackagent/internal/events"
	"github.com/mattjoyce/slackagent/internal/gitops"
	"github.com/mattjoyce/slackagent/internal/history"
	"github.com/mattjoyce/slackagent/internal/lock"
	"github.com/mattjoyce/slackagent/internal/log"
	"github.com/mattjoyce/slackagent/internal/metrics"
	"github.com/mattjoyce/slackagent/internal/notify"
	"github.com/mattjoyce/slackagent/internal/profile"
	"github.com/mattjoyce/slackagent/internal/runner"
	"github.com/mattjoyce/slackagent/internal/scheduler"
	"github.com/mattjoyce/slackagent/internal/storage"
	"github.com/mattjoyce/slackagent/internal/webhook"
)

const (
	shutdownTimeout = 30 * time.Second
	eventBuffer     = 256
)

func newSystemStartCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the service in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return runStart(cfg)
		},
	}
}

func runStart(cfg *config.Config) error {
	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("slackagent starting", "version", version, "config", cfg.SourcePath)

	pidLockPath := lock.PathFor(cfg.State.Path)
	pidLock, err := lock.AcquirePIDLock(pidLockPath)
	if err != nil {
		logger.Error("failed to acquire PID lock (another instance may be running)", "path", pidLockPath, "error", err)
		return err
	}
	defer pidLock.Release()
	logger.Info("acquired PID lock", "path", pidLockPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.State.Path, "error", err)
		return err
	}
	defer db.Close()
	logger.Info("database opened", "path", cfg.State.Path)

	hist := history.New(db)
	tracker := cost.NewTracker(db, cfg.Budget.MonthlyUSD, cfg.Budget.WarnPercent)
	hub := events.NewHub(eventBuffer)
	slack := notify.NewClient(cfg.Slack.BotToken, cfg.Slack.APIURL)

	profiles, err := profile.NewStore(cfg.ProfilesDir)
	if err != nil {
		logger.Error("failed to open profile store", "profiles_dir", cfg.ProfilesDir, "error", err)
		return err
	}

	channels := config.NewChannelStore(cfg.ChannelsDir)
	logger.Info("channel discovery complete", "channels_dir", cfg.ChannelsDir, "count", channels.Reload())

	watcher, err := config.NewWatcher(channels, config.WithReloadHook(func(count int) {
		profiles.Invalidate()
		hub.Publish(events.ConfigReload, map[string]any{"channels": count})
	}))
	if err != nil {
		logger.Error("failed to create channel watcher", "error", err)
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		logger.Error("failed to start channel watcher", "error", err)
		return err
	}
	defer watcher.Stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.MustNewMetrics(reg)

	disp := dispatch.New(dispatch.Deps{
		Channels: channels,
		Repo: gitops.New(gitops.Timeouts{
			Git:   cfg.Timeouts.Git,
			PR:    cfg.Timeouts.PR,
			Tests: cfg.Timeouts.Tests,
		}),
		Generator: runner.New(cfg.Claude.Path),
		Notifier:  slack,
		Costs:     tracker,
		Profiles:  profiles,
		History:   hist,
		Events:    hub,
		Metrics:   m,
	}, dispatch.Options{
		MaxWorkers:   cfg.Dispatch.MaxWorkers,
		Timeouts:     cfg.Timeouts,
		WarnPercent:  cfg.Budget.WarnPercent,
		ChannelsDir:  cfg.ChannelsDir,
		ResolveModel: cfg.ModelID,
	})

	sched := scheduler.New(scheduler.Config{
		HistoryRetention:     cfg.Maintenance.HistoryRetention,
		PruneSchedule:        cfg.Maintenance.PruneSchedule,
		BudgetReportSchedule: cfg.Maintenance.BudgetReportSchedule,
		OpsChannel:           cfg.Slack.OpsChannel,
	}, hist, tracker, slack, hub, log.WithComponent("scheduler"))
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		return err
	}
	defer sched.Stop()

	if info, err := slack.AuthTest(ctx); err != nil {
		logger.Warn("slack auth.test failed; posts may not be delivered", "error", err)
	} else {
		logger.Info("slack connected", "team", info.Team, "bot_user", info.User)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 2)

	webhookConfig, err := webhook.FromSlackConfig(cfg.Slack)
	if err != nil {
		logger.Error("failed to configure slack endpoints", "error", err)
		return err
	}
	slackServer := webhook.New(webhookConfig, command.NewRouter(disp, tracker), slack, log.WithComponent("webhook"))
	go func() {
		if err := slackServer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("slack server: %w", err)
		}
	}()

	if cfg.API.Enabled {
		apiServer := api.New(api.Config{
			Listen: cfg.API.Listen,
			APIKey: cfg.API.Auth.APIKey,
			Tokens: tokenConfigs(cfg.API.Auth.Tokens),
		}, disp, hist, hub, api.Options{
			Budget:  tracker,
			Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		}, log.WithComponent("api"))
		go func() {
			if err := apiServer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("api: %w", err)
			}
		}()
		logger.Info("API server enabled", "listen", cfg.API.Listen)
	}

	logger.Info("slackagent running (press Ctrl+C to stop)")

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case runErr = <-errCh:
		logger.Error("component failed", "error", runErr)
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := disp.Shutdown(shutdownCtx); err != nil {
		logger.Warn("dispatcher did not drain before timeout", "error", err)
	}

	logger.Info("slackagent stopped")
	return runErr
}

func tokenConfigs(tokens []config.APIToken) []auth.TokenConfig {
	out := make([]auth.TokenConfig, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, auth.TokenConfig{Token: t.Token, Scopes: t.Scopes})
	}
	return out
}

// --- status ---

type systemStatus struct {
	Running bool                 `json:"running"`
	PID     int                  `json:"pid,omitempty"`
	Lock    string               `json:"lock"`
	Health  *api.HealthzResponse `json:"health,omitempty"`
	Error   string               `json:"error,omitempty"`
}

func newSystemStatusCmd(configPath *string) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the service is running and its queue depth",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			st := collectStatus(cmd.Context(), cfg, http.DefaultClient)
			out := cmd.OutOrStdout()
			if jsonOut {
				data, err := json.MarshalIndent(st, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			} else {
				printStatus(out, st)
			}
			if !st.Running {
				return exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output in structured JSON format")
	return cmd
}

func collectStatus(ctx context.Context, cfg *config.Config, client *http.Client) systemStatus {
	st := systemStatus{Lock: lock.PathFor(cfg.State.Path)}
	st.Running = lock.Held(st.Lock)
	if pid, err := lock.ReadPID(st.Lock); err == nil {
		st.PID = pid
	}
	if !st.Running || !cfg.API.Enabled {
		return st
	}

	if ctx == nil {
		ctx = context.Background()
	}
	health, err := fetchHealthz(ctx, client, apiBaseURL(cfg.API.Listen))
	if err != nil {
		st.Error = err.Error()
		return st
	}
	st.Health = health
	return st
}

func fetchHealthz(ctx context.Context, client *http.Client, baseURL string) (*api.HealthzResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/healthz", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("healthz: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("healthz: %s", resp.Status)
	}
	var h api.HealthzResponse
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("healthz: %w", err)
	}
	return &h, nil
}

// apiBaseURL turns a listen address into a URL reachable from this host.
func apiBaseURL(listen string) string {
	if strings.HasPrefix(listen, "http://") || strings.HasPrefix(listen, "https://") {
		return strings.TrimSuffix(listen, "/")
	}
	host := listen
	switch {
	case strings.HasPrefix(host, ":"):
		host = "127.0.0.1" + host
	case strings.HasPrefix(host, "0.0.0.0:"):
		host = "127.0.0.1" + strings.TrimPrefix(host, "0.0.0.0")
	}
	return "http://" + host
}

func printStatus(w io.Writer, st systemStatus) {
	if !st.Running {
		fmt.Fprintf(w, "slackagent is not running (lock %s is free)\n", st.Lock)
		return
	}
	fmt.Fprintf(w, "slackagent is running (pid %d)\n", st.PID)
	if st.Health != nil {
		fmt.Fprintf(w, "status: %s  uptime: %s\n", st.Health.Status, time.Duration(st.Health.UptimeSeconds)*time.Second)
		fmt.Fprintf(w, "channels: %d  running: %d  queued: %d\n", st.Health.Channels, st.Health.Running, st.Health.Pending)
	}
	if st.Error != "" {
		fmt.Fprintf(w, "api unreachable: %s\n", st.Error)
	}
}
