// Package player owns playback sessions: one decode backend at a time, a
// seek-commit lifecycle with snap-to-zero recovery, and a one-way failover
// to a slower but reliable secondary backend.
package player

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"mediaplayer/internal/domain"
	"mediaplayer/internal/domain/ports"
	"mediaplayer/internal/metrics"
)

type commandKind int

const (
	cmdSeek commandKind = iota
	cmdPlay
	cmdPause
	cmdSpeed
	cmdLoop
	cmdABLoop
)

type command struct {
	kind     commandKind
	targetMs int64
	speed    float64
	enabled  bool
	abLoop   *domain.ABLoop
}

// Session is one playback instance. All backend interaction and all state
// mutation happen on the run() goroutine; exported methods only enqueue
// commands or read a snapshot.
type Session struct {
	id    string
	media domain.MediaItem

	factory ports.BackendFactory
	store   ports.LibraryStore
	logger  *slog.Logger
	tun     Tunables
	now     func() time.Time

	pollEvery time.Duration
	saveEvery time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	cmds   chan command
	done   chan struct{}

	// Owned by run().
	backend      ports.DecodeBackend
	backendID    domain.BackendID
	events       <-chan domain.BackendEvent
	phase        domain.PlaybackPhase
	pendingMs    int64 // initial resume seek, queued until readiness
	commitMs     int64
	retries      int
	guard        displayGuard
	scrubLimiter *rate.Limiter
	lastScrubMs  int64
	abLoop       *domain.ABLoop

	snap *snapshotHolder
}

type sessionParams struct {
	id        string
	media     domain.MediaItem
	factory   ports.BackendFactory
	store     ports.LibraryStore
	logger    *slog.Logger
	tun       Tunables
	pollEvery time.Duration
	saveEvery time.Duration
	now       func() time.Time
}

func newSession(p sessionParams) *Session {
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.pollEvery <= 0 {
		p.pollEvery = 250 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:        p.id,
		media:     p.media,
		factory:   p.factory,
		store:     p.store,
		logger:    p.logger,
		tun:       p.tun,
		now:       p.now,
		pollEvery: p.pollEvery,
		saveEvery: p.saveEvery,
		ctx:       ctx,
		cancel:    cancel,
		cmds:      make(chan command, 8),
		done:      make(chan struct{}),
		backendID: domain.BackendPrimary,
		phase:     domain.PhaseIdle,
		snap:      newSnapshotHolder(p.id, p.media),
	}
	return s
}

func (s *Session) ID() string { return s.id }

// Snapshot returns the externally visible session state.
func (s *Session) Snapshot() domain.SessionSnapshot {
	return s.snap.get()
}

// Done is closed once teardown has finished and both backends are released.
func (s *Session) Done() <-chan struct{} { return s.done }

// CommitSeek requests a seek through the commit pipeline (or the plain
// throttled path once failed over). The result is observed asynchronously.
func (s *Session) CommitSeek(targetMs int64) error {
	if targetMs < 0 {
		targetMs = 0
	}
	return s.send(command{kind: cmdSeek, targetMs: targetMs})
}

func (s *Session) Play() error  { return s.send(command{kind: cmdPlay}) }
func (s *Session) Pause() error { return s.send(command{kind: cmdPause}) }

func (s *Session) SetSpeed(factor float64) error {
	if factor <= 0 {
		return fmt.Errorf("speed factor must be positive, got %v", factor)
	}
	return s.send(command{kind: cmdSpeed, speed: factor})
}

func (s *Session) SetLoop(enabled bool) error {
	return s.send(command{kind: cmdLoop, enabled: enabled})
}

// SetABLoop installs A-B repeat markers; nil clears them.
func (s *Session) SetABLoop(loop *domain.ABLoop) error {
	if loop != nil && !loop.Active() {
		return fmt.Errorf("ab loop markers invalid: a=%d b=%d", loop.AMs, loop.BMs)
	}
	return s.send(command{kind: cmdABLoop, abLoop: loop})
}

func (s *Session) send(c command) error {
	select {
	case s.cmds <- c:
		return nil
	case <-s.ctx.Done():
		return domain.ErrSessionClosed
	}
}

// Close tears the session down: pending recovery work is cancelled, the
// final position is persisted best-effort, and every backend is released.
// It blocks until teardown completes or ctx expires.
func (s *Session) Close(ctx context.Context) error {
	s.cancel()
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) start() {
	go s.run()
}

// ---- FSM loop ----

func (s *Session) run() {
	defer close(s.done)
	defer s.teardown()

	backend, err := s.factory.New(domain.BackendPrimary)
	if err != nil {
		s.fatal(fmt.Errorf("construct primary backend: %w", err))
		return
	}
	s.backend = backend
	s.events = backend.Events()

	if err := s.backend.Prepare(s.ctx, s.media.SourceLocator, 0); err != nil {
		s.fatal(fmt.Errorf("prepare %q: %w", s.media.SourceLocator, err))
		return
	}

	resumeMs := s.media.Resume.PositionMs
	if s.media.DurationMs > 0 && resumeMs >= s.media.DurationMs {
		// Stale resume state past the end of the file starts over.
		resumeMs = 0
	}
	if resumeMs > 0 {
		s.pendingMs = resumeMs
		s.transitionTo(domain.PhasePendingInitialSeek)
	}

	if err := s.backend.Play(s.ctx); err != nil {
		s.logger.Warn("session: initial play failed",
			slog.String("sessionId", s.id),
			slog.String("error", err.Error()),
		)
	}

	poll := time.NewTicker(s.pollEvery)
	defer poll.Stop()

	var save <-chan time.Time
	if s.saveEvery > 0 && s.store != nil {
		saveTicker := time.NewTicker(s.saveEvery)
		defer saveTicker.Stop()
		save = saveTicker.C
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case ev, ok := <-s.events:
			if !ok {
				// Backend went away without an error event.
				s.events = nil
				continue
			}
			s.handleEvent(ev)
		case c := <-s.cmds:
			s.handleCommand(c)
		case <-poll.C:
			s.pollPosition()
		case <-save:
			s.persistResume("periodic")
		}
		if s.phase == domain.PhaseClosed {
			return
		}
	}
}

func (s *Session) handleEvent(ev domain.BackendEvent) {
	switch ev.Kind {
	case domain.EventReady:
		s.handleReady(ev)
	case domain.EventBuffering:
		s.snap.update(func(sn *domain.SessionSnapshot) { sn.Buffering = ev.Buffering })
	case domain.EventEnded:
		s.handleEnded()
	case domain.EventError:
		s.fatal(fmt.Errorf("backend %s: %s", s.backendID, ev.Message))
	case domain.EventFirstFrame:
		s.logger.Debug("session: first frame",
			slog.String("sessionId", s.id),
			slog.String("backend", string(s.backendID)),
		)
	}
}

// handleReady is where landings are observed. A ready event carries the
// position the backend actually settled on after a prepare or seek.
func (s *Session) handleReady(ev domain.BackendEvent) {
	if ev.DurationMs > 0 {
		s.snap.update(func(sn *domain.SessionSnapshot) { sn.DurationMs = ev.DurationMs })
	}

	switch s.phase {
	case domain.PhasePendingInitialSeek:
		// The backend is ready for input; commit the queued resume seek
		// through the same pipeline as a user seek.
		target := s.pendingMs
		s.pendingMs = 0
		s.commit(target)

	case domain.PhaseAwaitingCommit:
		s.classifyLanding(ev.PositionMs)

	default:
		s.setDisplayed(ev.PositionMs)
	}
}

func (s *Session) classifyLanding(actualMs int64) {
	if landingAccepted(s.tun, s.commitMs, actualMs) {
		metrics.SeekCommitsTotal.WithLabelValues("accepted").Inc()
		s.setRetries(0)
		s.guard.clear()
		s.transitionTo(domain.PhaseIdle)
		s.setDisplayed(actualMs)
		return
	}

	if s.retries < s.tun.MaxRetries {
		s.setRetries(s.retries + 1)
		metrics.SeekRetriesTotal.Inc()
		s.logger.Warn("session: seek snapped to zero, retrying",
			slog.String("sessionId", s.id),
			slog.Int64("targetMs", s.commitMs),
			slog.Int64("actualMs", actualMs),
			slog.Int("attempt", s.retries),
		)
		s.transitionTo(domain.PhaseRetrying)
		if err := s.backend.Seek(s.ctx, s.commitMs); err != nil {
			s.logger.Error("session: retry seek failed",
				slog.String("sessionId", s.id),
				slog.String("error", err.Error()),
			)
			s.failover()
			return
		}
		s.transitionTo(domain.PhaseAwaitingCommit)
		return
	}

	s.logger.Warn("session: retries exhausted",
		slog.String("sessionId", s.id),
		slog.Int64("targetMs", s.commitMs),
		slog.Int64("actualMs", actualMs),
	)
	s.failover()
}

// failover is one-way: the primary backend is released first so the
// rendering surface is free before the secondary attaches to it.
func (s *Session) failover() {
	metrics.SeekCommitsTotal.WithLabelValues("failed_over").Inc()
	metrics.FailoversTotal.Inc()
	s.transitionTo(domain.PhaseFailedOver)

	target := s.commitMs
	if err := s.backend.Release(); err != nil {
		s.logger.Warn("session: primary release failed",
			slog.String("sessionId", s.id),
			slog.String("error", err.Error()),
		)
	}
	s.events = nil

	next, err := s.factory.New(domain.BackendSecondary)
	if err != nil {
		s.fatal(fmt.Errorf("construct secondary backend: %w", err))
		return
	}
	if err := next.Prepare(s.ctx, s.media.SourceLocator, target); err != nil {
		_ = next.Release()
		s.fatal(fmt.Errorf("prepare secondary at %dms: %w", target, err))
		return
	}

	s.backend = next
	s.backendID = domain.BackendSecondary
	s.events = next.Events()
	s.scrubLimiter = rate.NewLimiter(rate.Every(s.tun.ScrubMinGap), 1)
	s.lastScrubMs = target
	s.setRetries(0)
	s.guard.clear()
	s.setDisplayed(target)
	s.snap.update(func(sn *domain.SessionSnapshot) { sn.Backend = domain.BackendSecondary })

	if err := s.backend.Play(s.ctx); err != nil {
		s.logger.Warn("session: play after failover failed",
			slog.String("sessionId", s.id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("session: failed over to secondary backend",
		slog.String("sessionId", s.id),
		slog.Int64("targetMs", target),
	)
}

func (s *Session) handleEnded() {
	// Natural completion: the next open of this item starts from the top.
	s.setRetries(0)
	s.commitMs = 0
	s.pendingMs = 0
	s.guard.clear()
	s.setDisplayed(0)
	s.snap.update(func(sn *domain.SessionSnapshot) { sn.Paused = true })
	if s.phase != domain.PhaseIdle {
		s.transitionTo(domain.PhaseIdle)
	}
	if s.store != nil {
		saveCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		state := domain.ResumeState{PositionMs: 0, PlayedAtUnixMs: s.now().UnixMilli()}
		if err := s.store.UpdateResume(saveCtx, s.media.ID, state); err != nil {
			s.logger.Warn("session: completion resume reset failed",
				slog.String("sessionId", s.id),
				slog.String("error", err.Error()),
			)
			return
		}
		metrics.ResumeSavesTotal.WithLabelValues("completion").Inc()
	}
}

func (s *Session) handleCommand(c command) {
	switch c.kind {
	case cmdSeek:
		if s.backendID == domain.BackendSecondary {
			s.scrubSeek(c.targetMs)
		} else {
			s.commit(c.targetMs)
		}
	case cmdPlay:
		if err := s.backend.Play(s.ctx); err != nil {
			s.logger.Warn("session: play failed", slog.String("error", err.Error()))
			return
		}
		s.snap.update(func(sn *domain.SessionSnapshot) { sn.Paused = false })
	case cmdPause:
		if err := s.backend.Pause(s.ctx); err != nil {
			s.logger.Warn("session: pause failed", slog.String("error", err.Error()))
			return
		}
		s.snap.update(func(sn *domain.SessionSnapshot) { sn.Paused = true })
	case cmdSpeed:
		if err := s.backend.SetSpeed(s.ctx, c.speed); err != nil {
			s.logger.Warn("session: set speed failed", slog.String("error", err.Error()))
			return
		}
		s.snap.update(func(sn *domain.SessionSnapshot) { sn.Speed = c.speed })
	case cmdLoop:
		if err := s.backend.SetLoop(s.ctx, c.enabled); err != nil {
			s.logger.Warn("session: set loop failed", slog.String("error", err.Error()))
			return
		}
		s.snap.update(func(sn *domain.SessionSnapshot) { sn.Looping = c.enabled })
	case cmdABLoop:
		s.abLoop = c.abLoop
		s.snap.update(func(sn *domain.SessionSnapshot) { sn.ABLoop = c.abLoop })
	}
}

// commit issues a seek through the recovery pipeline. A newer commit
// supersedes any pending one: bookkeeping restarts for the new target.
func (s *Session) commit(targetMs int64) {
	s.commitMs = targetMs
	s.setRetries(0)
	s.pendingMs = 0
	s.guard.arm(s.tun, targetMs, s.now())
	s.transitionTo(domain.PhaseAwaitingCommit)
	if err := s.backend.Seek(s.ctx, targetMs); err != nil {
		s.logger.Error("session: commit seek failed",
			slog.String("sessionId", s.id),
			slog.Int64("targetMs", targetMs),
			slog.String("error", err.Error()),
		)
		s.failover()
		return
	}
	s.setDisplayed(targetMs)
}

// scrubSeek is the plain path used after failover. The secondary backend
// seeks reliably but slowly, so rapid scrubbing is thinned out.
func (s *Session) scrubSeek(targetMs int64) {
	delta := targetMs - s.lastScrubMs
	if delta < 0 {
		delta = -delta
	}
	if delta < s.tun.ScrubMinDeltaMs {
		metrics.ScrubSeeksSuppressed.WithLabelValues("small_delta").Inc()
		return
	}
	if s.scrubLimiter != nil && !s.scrubLimiter.Allow() {
		metrics.ScrubSeeksSuppressed.WithLabelValues("throttled").Inc()
		return
	}
	if err := s.backend.Seek(s.ctx, targetMs); err != nil {
		s.logger.Warn("session: scrub seek failed",
			slog.String("sessionId", s.id),
			slog.Int64("targetMs", targetMs),
			slog.String("error", err.Error()),
		)
		return
	}
	s.lastScrubMs = targetMs
	s.setDisplayed(targetMs)
}

func (s *Session) pollPosition() {
	if s.backend == nil {
		return
	}
	pos, err := s.backend.PositionMs(s.ctx)
	if err != nil {
		if s.ctx.Err() == nil {
			s.logger.Debug("session: position poll failed", slog.String("error", err.Error()))
		}
		return
	}
	if s.guard.allows(s.tun, pos, s.now()) {
		s.setDisplayed(pos)
	}
	s.checkABLoop(pos)
}

// checkABLoop jumps back to A when playback crosses B. The jump is a plain
// seek: it is small, frequent, and must not feed the recovery pipeline.
func (s *Session) checkABLoop(positionMs int64) {
	if s.abLoop == nil || !s.abLoop.Active() {
		return
	}
	if s.phase != domain.PhaseIdle && s.phase != domain.PhaseFailedOver {
		return
	}
	if positionMs < s.abLoop.BMs {
		return
	}
	if err := s.backend.Seek(s.ctx, s.abLoop.AMs); err != nil {
		s.logger.Warn("session: ab loop seek failed", slog.String("error", err.Error()))
		return
	}
	s.setDisplayed(s.abLoop.AMs)
}

func (s *Session) teardown() {
	if s.backend != nil {
		s.persistResume("teardown")
		if err := s.backend.Release(); err != nil {
			s.logger.Warn("session: backend release failed",
				slog.String("sessionId", s.id),
				slog.String("backend", string(s.backendID)),
				slog.String("error", err.Error()),
			)
		}
		s.backend = nil
	}
	if s.phase != domain.PhaseClosed {
		s.transitionTo(domain.PhaseClosed)
	}
	s.logger.Info("session closed",
		slog.String("sessionId", s.id),
		slog.String("mediaId", string(s.media.ID)),
	)
}

// persistResume saves the displayed position, never a raw backend reading
// that the guard is currently suppressing.
func (s *Session) persistResume(trigger string) {
	if s.store == nil {
		return
	}
	if s.phase == domain.PhaseAwaitingCommit || s.phase == domain.PhaseRetrying {
		// Mid-recovery positions are unreliable; skip this cycle.
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	state := domain.ResumeState{
		PositionMs:     s.snap.get().PositionMs,
		PlayedAtUnixMs: s.now().UnixMilli(),
	}
	if err := s.store.UpdateResume(ctx, s.media.ID, state); err != nil {
		s.logger.Warn("session: resume save failed",
			slog.String("sessionId", s.id),
			slog.String("trigger", trigger),
			slog.String("error", err.Error()),
		)
		return
	}
	metrics.ResumeSavesTotal.WithLabelValues(trigger).Inc()
}

func (s *Session) fatal(err error) {
	s.logger.Error("session fatal",
		slog.String("sessionId", s.id),
		slog.String("phase", string(s.phase)),
		slog.String("error", err.Error()),
	)
	s.snap.update(func(sn *domain.SessionSnapshot) { sn.Error = err.Error() })
	s.transitionTo(domain.PhaseClosed)
	s.cancel()
}

func (s *Session) transitionTo(to domain.PlaybackPhase) {
	from := s.phase
	if from == to {
		return
	}
	if !domain.CanTransitionPhase(from, to) {
		s.logger.Error("session: invalid phase transition",
			slog.String("sessionId", s.id),
			slog.String("from", string(from)),
			slog.String("to", string(to)),
		)
		return
	}
	s.phase = to
	metrics.PhaseTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	s.snap.update(func(sn *domain.SessionSnapshot) { sn.Phase = to })
	s.logger.Info("session phase transition",
		slog.String("sessionId", s.id),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)
}

func (s *Session) setRetries(n int) {
	s.retries = n
	s.snap.update(func(sn *domain.SessionSnapshot) { sn.RetryCount = n })
}

func (s *Session) setDisplayed(positionMs int64) {
	if positionMs < 0 {
		positionMs = 0
	}
	s.snap.update(func(sn *domain.SessionSnapshot) { sn.PositionMs = positionMs })
}
