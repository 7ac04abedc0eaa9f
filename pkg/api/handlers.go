package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	defaultTestListLimit = 50
	maxTestListLimit     = 1000
	reportListLimit      = 20
)

// errorResponse is a standard error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// messageResponse is returned by endpoints with nothing else to report.
type messageResponse struct {
	Message string `json:"message"`
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// writeInternalError logs err and writes a generic 500 response.
func (s *server) writeInternalError(
	w http.ResponseWriter, err error, msg string,
) {
	s.log.WithError(err).Error(msg)
	writeJSON(w, http.StatusInternalServerError,
		errorResponse{"internal error"})
}

// writeValidationError flattens a joined validation error into one line.
func writeValidationError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest,
		errorResponse{strings.ReplaceAll(err.Error(), "\n", "; ")})
}

// parseIDParam extracts the {id} URL parameter as a uint.
func parseIDParam(r *http.Request) (uint, error) {
	raw := chi.URLParam(r, "id")

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id: %q", raw)
	}

	return uint(id), nil
}

// parseLimit reads the limit query parameter, falling back to def.
func parseLimit(r *http.Request, def, maxLimit int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, errors.New("limit must be a positive integer")
	}

	if limit > maxLimit {
		return 0, fmt.Errorf("limit must not exceed %d", maxLimit)
	}

	return limit, nil
}

// --- Public handlers ---

// handleRoot returns the API banner.
func (s *server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "QA-Hub API",
		"docs":    "/api/docs",
	})
}

type routeInfo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// handleDocs lists every registered route.
func (s *server) handleDocs(w http.ResponseWriter, _ *http.Request) {
	routes := make([]routeInfo, 0, 32)

	err := chi.Walk(s.router, func(
		method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler,
	) error {
		routes = append(routes, routeInfo{Method: method, Path: route})

		return nil
	})
	if err != nil {
		s.writeInternalError(w, err, "Failed to walk routes")

		return
	}

	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}

		return routes[i].Method < routes[j].Method
	})

	writeJSON(w, http.StatusOK, map[string]any{"routes": routes})
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// handleHealth returns server health status.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   s.version,
	})
}

// handleStats returns aggregate statistics over recorded test runs.
func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	result, err := s.stats.Compute(r.Context())
	if err != nil {
		s.writeInternalError(w, err, "Failed to compute stats")

		return
	}

	writeJSON(w, http.StatusOK, result)
}

// --- Test records ---

// handleListTests returns the most recent test records.
func (s *server) handleListTests(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, defaultTestListLimit, maxTestListLimit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})

		return
	}

	tests, err := s.store.ListTests(r.Context(), limit)
	if err != nil {
		s.writeInternalError(w, err, "Failed to list tests")

		return
	}

	writeJSON(w, http.StatusOK, tests)
}

// handleRunTests performs a simulated run over the known test names.
func (s *server) handleRunTests(w http.ResponseWriter, r *http.Request) {
	result, err := s.simulator.Run(r.Context())
	if err != nil {
		s.writeInternalError(w, err, "Failed to run tests")

		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleDeleteTest deletes a single test record.
func (s *server) handleDeleteTest(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})

		return
	}

	deleted, err := s.store.DeleteTest(r.Context(), id)
	if err != nil {
		s.writeInternalError(w, err, "Failed to delete test")

		return
	}

	if deleted == 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{"test not found"})

		return
	}

	writeJSON(w, http.StatusOK,
		messageResponse{fmt.Sprintf("Test %d deleted", id)})
}

// handleDeleteAllTests clears the test history.
func (s *server) handleDeleteAllTests(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.store.DeleteAllTests(r.Context())
	if err != nil {
		s.writeInternalError(w, err, "Failed to delete tests")

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "All tests deleted",
		"deleted": deleted,
	})
}
