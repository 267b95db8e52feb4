package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mattjoyce/slackagent/internal/history"
)

// handleHealthz handles GET /healthz (no auth).
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	resp := HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Followers:     s.events.Subscribers(),
	}
	for _, ch := range s.tasks.Channels() {
		resp.Channels++
		resp.Running += len(s.tasks.Running(ch))
		resp.Pending += len(s.tasks.Pending(ch))
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleListChannels handles GET /channels.
func (s *Server) handleListChannels(w http.ResponseWriter, _ *http.Request) {
	resp := ChannelsResponse{Channels: []ChannelTasksResponse{}}
	for _, ch := range s.tasks.Channels() {
		resp.Channels = append(resp.Channels, s.channelTasks(ch))
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleChannelTasks handles GET /channels/{channel}/tasks.
func (s *Server) handleChannelTasks(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.channelTasks(chi.URLParam(r, "channel")))
}

// handleCancelTask handles DELETE /channels/{channel}/task.
func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channel")
	if !s.tasks.Cancel(channelID) {
		s.writeError(w, http.StatusNotFound, "no running task")
		return
	}
	s.logger.Info("task cancelled via API", "channel_id", channelID)
	respondJSON(w, http.StatusOK, CancelResponse{ChannelID: channelID, Cancelled: true})
}

// handleListHistory handles GET /history?channel=&status=&limit=.
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := history.Filter{
		ChannelID: q.Get("channel"),
		Status:    history.Status(q.Get("status")),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		f.Limit = n
	}

	tasks, err := s.history.List(r.Context(), f)
	if err != nil {
		s.logger.Error("failed to list history", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	if tasks == nil {
		tasks = []history.Record{}
	}
	respondJSON(w, http.StatusOK, HistoryResponse{Tasks: tasks})
}

// handleGetTask handles GET /history/{taskID}.
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	rec, err := s.history.Get(r.Context(), chi.URLParam(r, "taskID"))
	if errors.Is(err, history.ErrTaskNotFound) {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get task", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// handleBudget handles GET /budget.
func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	if s.budget == nil {
		s.writeError(w, http.StatusNotFound, "cost tracking is not enabled")
		return
	}
	spent, err := s.budget.MonthlySpend(r.Context())
	if err != nil {
		s.logger.Error("failed to read monthly spend", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read budget")
		return
	}
	channels, err := s.budget.SpendByChannel(r.Context())
	if err != nil {
		s.logger.Error("failed to read channel spend", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read budget")
		return
	}

	resp := BudgetResponse{MonthlyUSD: s.budget.Budget(), SpentUSD: spent, Channels: channels}
	if resp.MonthlyUSD > 0 {
		resp.Percent = spent / resp.MonthlyUSD * 100
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) channelTasks(channelID string) ChannelTasksResponse {
	return ChannelTasksResponse{
		ChannelID: channelID,
		Running:   s.tasks.Running(channelID),
		Pending:   s.tasks.Pending(channelID),
	}
}

func respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
