package apihttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"mediaplayer/internal/domain"
	"mediaplayer/internal/usecase"
)

type errorEnvelope struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "media item not found")
	case errors.Is(err, domain.ErrScanInFlight):
		writeError(w, http.StatusConflict, "scan_in_flight", "a library scan is already running")
	case errors.Is(err, domain.ErrNoSession):
		writeError(w, http.StatusNotFound, "no_session", "no active playback session")
	case errors.Is(err, domain.ErrSessionClosed):
		writeError(w, http.StatusConflict, "session_closed", "playback session is closed")
	case errors.Is(err, domain.ErrSessionBusy):
		writeError(w, http.StatusConflict, "session_busy", "playback session is busy")
	case errors.Is(err, usecase.ErrIndex):
		writeError(w, http.StatusInternalServerError, "index_error", err.Error())
	case errors.Is(err, usecase.ErrStore):
		writeError(w, http.StatusInternalServerError, "store_error", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorPayload{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// pathSuffix extracts the trailing path element after the given prefix.
func pathSuffix(r *http.Request, prefix string) string {
	return strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
}

func parseLibraryFilter(r *http.Request) domain.LibraryFilter {
	q := r.URL.Query()
	filter := domain.LibraryFilter{
		FolderPath: strings.TrimSpace(q.Get("folder")),
		Search:     strings.TrimSpace(q.Get("search")),
		SortBy:     strings.TrimSpace(q.Get("sortBy")),
	}
	if q.Get("sortOrder") == string(domain.SortDesc) {
		filter.SortOrder = domain.SortDesc
	}
	filter.Limit = parseIntParam(q.Get("limit"), 0)
	filter.Offset = parseIntParam(q.Get("offset"), 0)
	return filter
}

func parseIntParam(raw string, fallback int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return false
	}
	return true
}
