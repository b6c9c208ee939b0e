package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"monotrack/internal/ledger"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeError maps engine sentinels onto HTTP status codes
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, ledger.ErrAuthRequired):
		status = http.StatusUnauthorized
	case errors.Is(err, ledger.ErrNoAccount), errors.Is(err, ledger.ErrEntryNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrSource):
		status = http.StatusBadGateway
	case errors.Is(err, ledger.ErrStore):
		status = http.StatusInternalServerError
	}

	slog.ErrorContext(r.Context(), "Request failed",
		"method", r.Method,
		"url", r.URL.Path,
		"status", status,
		"error", err)

	writeErrorMessage(w, status, err.Error())
}

// parseMonths extracts the trailing month count from the query string.
func parseMonths(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("months"))
	if v == "" {
		return ledger.DefaultStatsMonths, nil
	}

	months, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid months %q: must be a number", v)
	}
	if months < 1 || months > 120 {
		return 0, fmt.Errorf("invalid months %d: must be between 1 and 120", months)
	}
	return months, nil
}
