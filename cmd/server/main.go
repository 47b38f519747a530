package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	apihttp "mediaplayer/internal/api/http"
	"mediaplayer/internal/app"
	"mediaplayer/internal/domain"
	"mediaplayer/internal/domain/ports"
	"mediaplayer/internal/metrics"
	mongorepo "mediaplayer/internal/repository/mongo"
	"mediaplayer/internal/services/index/ffprobe"
	"mediaplayer/internal/services/index/fsindex"
	"mediaplayer/internal/services/playback/mpv"
	"mediaplayer/internal/services/session/player"
	"mediaplayer/internal/storage/memory"
	"mediaplayer/internal/telemetry"
	"mediaplayer/internal/usecase"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "mediaplayer")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "mediaplayer"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("storeMode", cfg.StoreMode),
		slog.Any("mediaRoots", cfg.MediaRoots),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
	defer cancel()

	var store ports.LibraryStore
	var mongoClient *mongo.Client
	if cfg.StoreMode == "memory" {
		store = memory.NewStore()
	} else {
		mongoClient, err = mongorepo.Connect(ctx, cfg.MongoURI,
			options.Client().SetMonitor(otelmongo.NewMonitor()))
		if err != nil {
			logger.Error("mongo connect failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := mongoClient.Ping(ctx, readpref.Primary()); err != nil {
			logger.Error("mongo ping failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		repo := mongorepo.NewLibraryRepository(mongoClient, cfg.MongoDatabase)
		if err := repo.EnsureIndexes(ctx); err != nil {
			logger.Warn("mongo ensure indexes failed", slog.String("error", err.Error()))
		}
		store = repo
	}

	prober := ffprobe.New(cfg.FFProbePath)
	index := fsindex.New(cfg.MediaRoots, prober, logger)

	reconcileUC := &usecase.ReconcileLibrary{Index: index, Store: store, Logger: logger}
	foldersUC := usecase.ListFolders{Store: store}
	itemsUC := usecase.ListItems{Store: store}
	getItemUC := usecase.GetItem{Store: store}
	recentUC := usecase.ListRecent{Store: store}
	saveResumeUC := usecase.SaveResume{Store: store}

	backendFactory := mpv.NewFactory(cfg.MPVPath, cfg.MPVSocketDir, logger)
	sessions := player.NewManager(store, backendFactory, player.Tunables{
		SmallTargetMs:   cfg.Seek.SmallTargetMs,
		FailedLandingMs: cfg.Seek.FailedLandingMs,
		MaxRetries:      cfg.Seek.MaxRetries,
		ScrubMinGap:     time.Duration(cfg.Seek.ScrubMinGapMs) * time.Millisecond,
		ScrubMinDeltaMs: cfg.Seek.ScrubMinDeltaMs,
		SuppressWindow:  time.Duration(cfg.Seek.SuppressWindowMs) * time.Millisecond,
	}, time.Duration(cfg.PositionSaveSec)*time.Second, logger)

	handler := apihttp.NewServer(reconcileUC,
		apihttp.WithLogger(logger),
		apihttp.WithListFolders(foldersUC),
		apihttp.WithListItems(itemsUC),
		apihttp.WithGetItem(getItemUC),
		apihttp.WithListRecent(recentUC),
		apihttp.WithSaveResume(saveResumeUC),
		apihttp.WithSessions(sessions),
		apihttp.WithAllowedOrigins(cfg.CORSAllowedOrigins),
	)

	// Startup scan so the library is usable immediately; failures are not
	// fatal, the client can retry over HTTP.
	go func() {
		if _, err := reconcileUC.Execute(rootCtx); err != nil {
			logger.Warn("startup scan failed", slog.String("error", err.Error()))
		}
	}()

	go broadcastSessionState(rootCtx, sessions, handler)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("server started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	sessions.Shutdown(shutdownCtx)
	handler.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", slog.String("error", err.Error()))
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Warn("mongo disconnect error", slog.String("error", err.Error()))
		}
	}

	logger.Info("server stopped")
}

// broadcastSessionState pushes session snapshots to WebSocket clients so
// UIs can track position and phase without polling.
func broadcastSessionState(ctx context.Context, sessions *player.Manager, handler *apihttp.Server) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot, err := sessions.Snapshot()
			if err != nil {
				if !errors.Is(err, domain.ErrNoSession) {
					slog.Debug("session snapshot failed", slog.String("error", err.Error()))
				}
				continue
			}
			handler.BroadcastSession(snapshot)
		}
	}
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	if strings.ToLower(strings.TrimSpace(formatRaw)) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
