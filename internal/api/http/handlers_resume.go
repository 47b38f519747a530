package apihttp

import (
	"net/http"

	"mediaplayer/internal/domain"
)

type resumeResponse struct {
	MediaID        domain.MediaID `json:"mediaId"`
	PositionMs     int64          `json:"positionMs"`
	PlayedAtUnixMs int64          `json:"playedAtMs"`
}

type resumeUpdateRequest struct {
	PositionMs int64 `json:"positionMs"`
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	id := pathSuffix(r, "/resume/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "media id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		if s.getItem == nil {
			writeError(w, http.StatusNotImplemented, "not_configured", "resume state not configured")
			return
		}
		item, err := s.getItem.Execute(r.Context(), domain.MediaID(id))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resumeResponse{
			MediaID:        item.ID,
			PositionMs:     item.Resume.PositionMs,
			PlayedAtUnixMs: item.Resume.PlayedAtUnixMs,
		})

	case http.MethodPut:
		if s.saveResume == nil {
			writeError(w, http.StatusNotImplemented, "not_configured", "resume state not configured")
			return
		}
		var req resumeUpdateRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.PositionMs < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "positionMs must be non-negative")
			return
		}
		if err := s.saveResume.Execute(r.Context(), domain.MediaID(id), req.PositionMs); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
