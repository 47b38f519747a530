package apihttp

import (
	"net/http"

	"mediaplayer/internal/domain"
)

type scanResponse struct {
	ItemCount int `json:"itemCount"`
}

// handleScan runs a full reconcile. A scan already in flight yields 409; the
// client retries after the running one finishes.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	count, err := s.reconcile.Execute(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.BroadcastScanResult(count)
	writeJSON(w, http.StatusOK, scanResponse{ItemCount: count})
}

func (s *Server) handleFolders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.listFolders == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "library browsing not configured")
		return
	}
	folders, err := s.listFolders.Execute(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, folders)
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.listItems == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "library browsing not configured")
		return
	}
	items, err := s.listItems.Execute(r.Context(), parseLibraryFilter(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleItemByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.getItem == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "library browsing not configured")
		return
	}
	id := pathSuffix(r, "/library/items/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "media id is required")
		return
	}
	item, err := s.getItem.Execute(r.Context(), domain.MediaID(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.listRecent == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "library browsing not configured")
		return
	}
	limit := parseIntParam(r.URL.Query().Get("limit"), 0)
	items, err := s.listRecent.Execute(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
