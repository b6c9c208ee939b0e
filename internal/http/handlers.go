package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"monotrack/internal/ledger"
)

type statsResponse struct {
	Months         int       `json:"months"`
	MonthlyHistory []int64   `json:"monthlyHistory"`
	DailyHistory   []float64 `json:"dailyHistory"`
	Monthly        float64   `json:"monthly"`
	Daily          float64   `json:"daily"`
	CurrentTotal   int64     `json:"currentTotal"`
}

type todayResponse struct {
	Date  string `json:"date"`
	Total int64  `json:"total"`
}

type editRequest struct {
	Day   int    `json:"day"`
	Index int    `json:"index"`
	Delta *int64 `json:"delta"`
}

type filterPayload struct {
	Filter string `json:"filter"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleReady probes the state store before reporting ready
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if _, err := s.store.ReadFilter(ctx, "readiness-probe"); err != nil {
		checks["state_store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["state_store"] = "ok"
	}

	checks["stats_cache"] = map[string]any{
		"entries": s.statsCache.Size(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]any{
		"status": status,
		"checks": checks,
	})
}

// handleStatement syncs the account and returns the full cached state
func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("accountID")

	state, err := s.service.FetchLatestStatement(r.Context(), accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// handleToday returns the spend recorded so far for the current day
func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("accountID")

	state, err := s.service.FetchLatestStatement(r.Context(), accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, todayResponse{
		Date:  time.Now().Format("2006-01-02"),
		Total: s.service.TodaysExpenses(state.CurrentPeriod),
	})
}

// handleStats returns trailing month totals and averages. The open
// month's running total is appended to the monthly series so charts
// always end on live data.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("accountID")

	months, err := parseMonths(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	cacheKey := fmt.Sprintf("%s|%d", accountID, months)
	if cached, ok := s.statsCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	state, err := s.service.FetchLatestStatement(r.Context(), accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	stats := ledger.StatsForPeriod(state.History, months)
	resp := statsResponse{
		Months:         months,
		MonthlyHistory: append(stats.MonthlyHistory, state.CurrentPeriod.Total),
		DailyHistory:   stats.DailyHistory,
		Monthly:        stats.Monthly,
		Daily:          stats.Daily,
		CurrentTotal:   state.CurrentPeriod.Total,
	}

	s.statsCache.Set(cacheKey, resp)
	writeJSON(w, http.StatusOK, resp)
}

// handleEditEntry adjusts or restores one cached entry's amount
func (s *Server) handleEditEntry(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("accountID")

	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	state, err := s.service.EditEntry(r.Context(), accountID, req.Day, req.Index, req.Delta)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// handleRequestSync enqueues a sync for the worker instead of running
// it inline. 503 when no queue is configured.
func (s *Server) handleRequestSync(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("accountID")

	if s.syncRequests == nil {
		writeErrorMessage(w, http.StatusServiceUnavailable, "sync queue not configured")
		return
	}

	if err := s.syncRequests.PublishSyncRequest(r.Context(), accountID); err != nil {
		writeError(w, r, fmt.Errorf("publish sync request: %w", err))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"accountId": accountID,
		"status":    "queued",
	})
}

func (s *Server) handleGetFilter(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("accountID")

	filter, err := s.service.Filter(r.Context(), accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, filterPayload{Filter: filter})
}

func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("accountID")

	var req filterPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.service.SetFilter(r.Context(), accountID, req.Filter); err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Filter updated",
		"account_id", accountID,
		"exclusions", len(ledger.ParseExclusions(req.Filter)))

	writeJSON(w, http.StatusOK, filterPayload{Filter: req.Filter})
}
