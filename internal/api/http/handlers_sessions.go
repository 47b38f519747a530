package apihttp

import (
	"net/http"

	"mediaplayer/internal/domain"
)

type openSessionRequest struct {
	MediaID domain.MediaID `json:"mediaId"`
}

type seekRequest struct {
	TargetMs int64 `json:"targetMs"`
}

type speedRequest struct {
	Factor float64 `json:"factor"`
}

type loopRequest struct {
	Enabled bool `json:"enabled"`
}

type abLoopRequest struct {
	AMs   *int64 `json:"aMs"`
	BMs   *int64 `json:"bMs"`
	Clear bool   `json:"clear"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.sessions == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "playback not configured")
		return
	}
	var req openSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.MediaID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "mediaId is required")
		return
	}
	snapshot, err := s.sessions.Open(r.Context(), req.MediaID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snapshot)
}

func (s *Server) handleCurrentSession(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "playback not configured")
		return
	}
	switch r.Method {
	case http.MethodGet:
		snapshot, err := s.sessions.Snapshot()
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
	case http.MethodDelete:
		if err := s.sessions.Close(r.Context()); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSessionOp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.sessions == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "playback not configured")
		return
	}

	var err error
	switch op := pathSuffix(r, "/sessions/current/"); op {
	case "seek":
		var req seekRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.TargetMs < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "targetMs must be non-negative")
			return
		}
		err = s.sessions.Seek(req.TargetMs)
	case "play":
		err = s.sessions.Play()
	case "pause":
		err = s.sessions.Pause()
	case "speed":
		var req speedRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Factor <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "factor must be positive")
			return
		}
		err = s.sessions.SetSpeed(req.Factor)
	case "loop":
		var req loopRequest
		if !decodeBody(w, r, &req) {
			return
		}
		err = s.sessions.SetLoop(req.Enabled)
	case "abloop":
		var req abLoopRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Clear {
			err = s.sessions.SetABLoop(nil)
			break
		}
		if req.AMs == nil || req.BMs == nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "aMs and bMs are required")
			return
		}
		loop := domain.ABLoop{AMs: *req.AMs, BMs: *req.BMs}
		if !loop.Active() {
			writeError(w, http.StatusBadRequest, "invalid_request", "bMs must exceed aMs")
			return
		}
		err = s.sessions.SetABLoop(&loop)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown session operation")
		return
	}

	if err != nil {
		writeDomainError(w, err)
		return
	}
	snapshot, err := s.sessions.Snapshot()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}
