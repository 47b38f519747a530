package player

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediaplayer/internal/domain"
	"mediaplayer/internal/domain/ports"
	"mediaplayer/internal/metrics"
)

// Manager owns at most one live session. Opening a new one tears the old
// one down first, so two backends never contend for the decode surface.
type Manager struct {
	store     ports.LibraryStore
	factory   ports.BackendFactory
	logger    *slog.Logger
	tun       Tunables
	saveEvery time.Duration

	mu      sync.Mutex
	current *Session
}

func NewManager(store ports.LibraryStore, factory ports.BackendFactory, tun Tunables, saveEvery time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:     store,
		factory:   factory,
		logger:    logger,
		tun:       tun,
		saveEvery: saveEvery,
	}
}

// Open starts playback of the given item, replacing any active session.
// The previous session's teardown completes before the new backend is
// constructed.
func (m *Manager) Open(ctx context.Context, id domain.MediaID) (domain.SessionSnapshot, error) {
	item, err := m.store.Get(ctx, id)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		if err := m.current.Close(ctx); err != nil {
			return domain.SessionSnapshot{}, err
		}
		m.current = nil
	}

	sess := newSession(sessionParams{
		id:        uuid.NewString(),
		media:     item,
		factory:   m.factory,
		store:     m.store,
		logger:    m.logger,
		tun:       m.tun,
		saveEvery: m.saveEvery,
	})
	sess.start()
	m.current = sess
	metrics.ActiveSessions.Inc()
	go func() {
		<-sess.Done()
		metrics.ActiveSessions.Dec()
	}()

	m.logger.Info("session opened",
		slog.String("sessionId", sess.ID()),
		slog.String("mediaId", string(item.ID)),
		slog.Int64("resumeMs", item.Resume.PositionMs),
	)
	return sess.Snapshot(), nil
}

// Close tears down the active session, if any.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	sess := m.current
	m.current = nil
	m.mu.Unlock()
	if sess == nil {
		return domain.ErrNoSession
	}
	return sess.Close(ctx)
}

func (m *Manager) session() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, domain.ErrNoSession
	}
	return m.current, nil
}

// Snapshot returns the state of the active session.
func (m *Manager) Snapshot() (domain.SessionSnapshot, error) {
	sess, err := m.session()
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	return sess.Snapshot(), nil
}

func (m *Manager) Seek(targetMs int64) error {
	sess, err := m.session()
	if err != nil {
		return err
	}
	return sess.CommitSeek(targetMs)
}

func (m *Manager) Play() error {
	sess, err := m.session()
	if err != nil {
		return err
	}
	return sess.Play()
}

func (m *Manager) Pause() error {
	sess, err := m.session()
	if err != nil {
		return err
	}
	return sess.Pause()
}

func (m *Manager) SetSpeed(factor float64) error {
	sess, err := m.session()
	if err != nil {
		return err
	}
	return sess.SetSpeed(factor)
}

func (m *Manager) SetLoop(enabled bool) error {
	sess, err := m.session()
	if err != nil {
		return err
	}
	return sess.SetLoop(enabled)
}

func (m *Manager) SetABLoop(loop *domain.ABLoop) error {
	sess, err := m.session()
	if err != nil {
		return err
	}
	return sess.SetABLoop(loop)
}

// Shutdown closes any active session during process exit.
func (m *Manager) Shutdown(ctx context.Context) {
	if err := m.Close(ctx); err != nil && err != domain.ErrNoSession {
		m.logger.Warn("session shutdown failed", slog.String("error", err.Error()))
	}
}
