// Package apihttp exposes the player over HTTP: library browsing and
// scanning, resume state, playback session control, a WebSocket event feed,
// and Prometheus metrics.
package apihttp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"mediaplayer/internal/domain"
)

type ReconcileLibraryUseCase interface {
	Execute(ctx context.Context) (int, error)
}

type ListFoldersUseCase interface {
	Execute(ctx context.Context) ([]domain.Folder, error)
}

type ListItemsUseCase interface {
	Execute(ctx context.Context, filter domain.LibraryFilter) ([]domain.MediaItem, error)
}

type GetItemUseCase interface {
	Execute(ctx context.Context, id domain.MediaID) (domain.MediaItem, error)
}

type ListRecentUseCase interface {
	Execute(ctx context.Context, limit int) ([]domain.MediaItem, error)
}

type SaveResumeUseCase interface {
	Execute(ctx context.Context, id domain.MediaID, positionMs int64) error
}

// SessionController is the playback surface the handlers talk to.
type SessionController interface {
	Open(ctx context.Context, id domain.MediaID) (domain.SessionSnapshot, error)
	Close(ctx context.Context) error
	Snapshot() (domain.SessionSnapshot, error)
	Seek(targetMs int64) error
	Play() error
	Pause() error
	SetSpeed(factor float64) error
	SetLoop(enabled bool) error
	SetABLoop(loop *domain.ABLoop) error
}

type Server struct {
	reconcile      ReconcileLibraryUseCase
	listFolders    ListFoldersUseCase
	listItems      ListItemsUseCase
	getItem        GetItemUseCase
	listRecent     ListRecentUseCase
	saveResume     SaveResumeUseCase
	sessions       SessionController
	allowedOrigins []string
	logger         *slog.Logger
	handler        http.Handler
	wsHub          *wsHub
}

type ServerOption func(*Server)

func WithListFolders(uc ListFoldersUseCase) ServerOption {
	return func(s *Server) { s.listFolders = uc }
}

func WithListItems(uc ListItemsUseCase) ServerOption {
	return func(s *Server) { s.listItems = uc }
}

func WithGetItem(uc GetItemUseCase) ServerOption {
	return func(s *Server) { s.getItem = uc }
}

func WithListRecent(uc ListRecentUseCase) ServerOption {
	return func(s *Server) { s.listRecent = uc }
}

func WithSaveResume(uc SaveResumeUseCase) ServerOption {
	return func(s *Server) { s.saveResume = uc }
}

func WithSessions(ctrl SessionController) ServerOption {
	return func(s *Server) { s.sessions = ctrl }
}

// WithAllowedOrigins configures the CORS whitelist. When empty (default),
// any origin is permitted.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) { s.allowedOrigins = origins }
}

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

func NewServer(reconcile ReconcileLibraryUseCase, opts ...ServerOption) *Server {
	s := &Server{reconcile: reconcile}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.wsHub = newWSHub(s.logger)
	go s.wsHub.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/library/scan", s.handleScan)
	mux.HandleFunc("/library", s.handleFolders)
	mux.HandleFunc("/library/items", s.handleItems)
	mux.HandleFunc("/library/items/", s.handleItemByID)
	mux.HandleFunc("/library/recent", s.handleRecent)
	mux.HandleFunc("/resume/", s.handleResume)
	mux.HandleFunc("/sessions", s.handleSessions)
	mux.HandleFunc("/sessions/current", s.handleCurrentSession)
	mux.HandleFunc("/sessions/current/", s.handleSessionOp)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", s.handleWS)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "mediaplayer",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/healthz" && !strings.HasPrefix(p, "/ws")
		}),
	)
	s.handler = recoveryMiddleware(s.logger, rateLimitMiddleware(100, 200, metricsMiddleware(corsMiddleware(s.allowedOrigins, traced))))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	client := &wsClient{
		hub:  s.wsHub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	s.wsHub.register <- client
	go client.writePump()
	go client.readPump()
}

// BroadcastSession pushes the current session snapshot to every WS client.
func (s *Server) BroadcastSession(snapshot domain.SessionSnapshot) {
	s.wsHub.Broadcast("session", snapshot)
}

// BroadcastScanResult announces a finished library scan.
func (s *Server) BroadcastScanResult(itemCount int) {
	s.wsHub.Broadcast("library_scanned", map[string]int{"itemCount": itemCount})
}

// Close disconnects all WebSocket clients.
func (s *Server) Close() {
	s.wsHub.Close()
}
