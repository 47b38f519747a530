package apihttp

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"mediaplayer/internal/domain"
)

type stubSessions struct {
	mu       sync.Mutex
	snapshot domain.SessionSnapshot
	err      error
	seeks    []int64
	ops      []string
	abLoop   *domain.ABLoop
}

func (s *stubSessions) record(op string) {
	s.mu.Lock()
	s.ops = append(s.ops, op)
	s.mu.Unlock()
}

func (s *stubSessions) Open(_ context.Context, id domain.MediaID) (domain.SessionSnapshot, error) {
	s.record("open")
	if s.err != nil {
		return domain.SessionSnapshot{}, s.err
	}
	snap := s.snapshot
	snap.MediaID = id
	return snap, nil
}

func (s *stubSessions) Close(context.Context) error {
	s.record("close")
	return s.err
}

func (s *stubSessions) Snapshot() (domain.SessionSnapshot, error) {
	if s.err != nil {
		return domain.SessionSnapshot{}, s.err
	}
	return s.snapshot, nil
}

func (s *stubSessions) Seek(targetMs int64) error {
	s.mu.Lock()
	s.seeks = append(s.seeks, targetMs)
	s.mu.Unlock()
	return s.err
}

func (s *stubSessions) Play() error  { s.record("play"); return s.err }
func (s *stubSessions) Pause() error { s.record("pause"); return s.err }

func (s *stubSessions) SetSpeed(float64) error { s.record("speed"); return s.err }
func (s *stubSessions) SetLoop(bool) error     { s.record("loop"); return s.err }

func (s *stubSessions) SetABLoop(loop *domain.ABLoop) error {
	s.mu.Lock()
	s.abLoop = loop
	s.mu.Unlock()
	return s.err
}

func activeSnapshot() domain.SessionSnapshot {
	return domain.SessionSnapshot{
		SessionID: "sess-1",
		MediaID:   "a1",
		Phase:     domain.PhaseIdle,
		Backend:   domain.BackendPrimary,
		Speed:     1.0,
	}
}

func TestOpenSession(t *testing.T) {
	sessions := &stubSessions{snapshot: activeSnapshot()}
	srv, _ := newTestServer(t, nil, sessions)

	rec := doRequest(t, srv, http.MethodPost, "/sessions", `{"mediaId":"a1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	snap := decodeJSON[domain.SessionSnapshot](t, rec)
	if snap.SessionID != "sess-1" || snap.MediaID != "a1" {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestOpenSessionValidation(t *testing.T) {
	srv, _ := newTestServer(t, nil, &stubSessions{})

	if rec := doRequest(t, srv, http.MethodPost, "/sessions", `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing mediaId status = %d, want 400", rec.Code)
	}
	if rec := doRequest(t, srv, http.MethodPost, "/sessions", `not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d, want 400", rec.Code)
	}
}

func TestOpenSessionUnknownMedia(t *testing.T) {
	sessions := &stubSessions{err: domain.ErrNotFound}
	srv, _ := newTestServer(t, nil, sessions)

	rec := doRequest(t, srv, http.MethodPost, "/sessions", `{"mediaId":"nope"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCurrentSession(t *testing.T) {
	sessions := &stubSessions{snapshot: activeSnapshot()}
	srv, _ := newTestServer(t, nil, sessions)

	rec := doRequest(t, srv, http.MethodGet, "/sessions/current", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodDelete, "/sessions/current", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
}

func TestCurrentSessionMissing(t *testing.T) {
	sessions := &stubSessions{err: domain.ErrNoSession}
	srv, _ := newTestServer(t, nil, sessions)

	rec := doRequest(t, srv, http.MethodGet, "/sessions/current", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	env := decodeJSON[errorEnvelope](t, rec)
	if env.Error.Code != "no_session" {
		t.Fatalf("code = %s", env.Error.Code)
	}
}

func TestSeekOp(t *testing.T) {
	sessions := &stubSessions{snapshot: activeSnapshot()}
	srv, _ := newTestServer(t, nil, sessions)

	rec := doRequest(t, srv, http.MethodPost, "/sessions/current/seek", `{"targetMs":60000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(sessions.seeks) != 1 || sessions.seeks[0] != 60000 {
		t.Fatalf("seeks = %v", sessions.seeks)
	}

	if rec := doRequest(t, srv, http.MethodPost, "/sessions/current/seek", `{"targetMs":-1}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("negative target status = %d, want 400", rec.Code)
	}
}

func TestPlaybackOps(t *testing.T) {
	sessions := &stubSessions{snapshot: activeSnapshot()}
	srv, _ := newTestServer(t, nil, sessions)

	for _, tt := range []struct {
		op   string
		body string
	}{
		{"play", ""},
		{"pause", ""},
		{"speed", `{"factor":1.5}`},
		{"loop", `{"enabled":true}`},
	} {
		rec := doRequest(t, srv, http.MethodPost, "/sessions/current/"+tt.op, tt.body)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d, body %s", tt.op, rec.Code, rec.Body.String())
		}
	}
	if len(sessions.ops) != 4 {
		t.Fatalf("ops = %v", sessions.ops)
	}

	if rec := doRequest(t, srv, http.MethodPost, "/sessions/current/speed", `{"factor":0}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("zero speed status = %d, want 400", rec.Code)
	}
	if rec := doRequest(t, srv, http.MethodPost, "/sessions/current/rewind", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown op status = %d, want 404", rec.Code)
	}
}

func TestABLoopOp(t *testing.T) {
	sessions := &stubSessions{snapshot: activeSnapshot()}
	srv, _ := newTestServer(t, nil, sessions)

	rec := doRequest(t, srv, http.MethodPost, "/sessions/current/abloop", `{"aMs":1000,"bMs":5000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if sessions.abLoop == nil || sessions.abLoop.AMs != 1000 || sessions.abLoop.BMs != 5000 {
		t.Fatalf("abLoop = %+v", sessions.abLoop)
	}

	rec = doRequest(t, srv, http.MethodPost, "/sessions/current/abloop", `{"clear":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rec.Code)
	}
	if sessions.abLoop != nil {
		t.Fatalf("abLoop after clear = %+v", sessions.abLoop)
	}

	if rec := doRequest(t, srv, http.MethodPost, "/sessions/current/abloop", `{"aMs":5000,"bMs":1000}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("inverted markers status = %d, want 400", rec.Code)
	}
	if rec := doRequest(t, srv, http.MethodPost, "/sessions/current/abloop", `{"aMs":1000}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing bMs status = %d, want 400", rec.Code)
	}
}

func TestSessionOpsWithoutController(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	rec := doRequest(t, srv, http.MethodPost, "/sessions", `{"mediaId":"a1"}`)
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", rec.Code)
	}
}
