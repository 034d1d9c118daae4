package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	apihttp "torrentcore/internal/api/http"
	"torrentcore/internal/app"
	"torrentcore/internal/domain/ports"
	"torrentcore/internal/metrics"
	memoryrepo "torrentcore/internal/repository/memory"
	mongorepo "torrentcore/internal/repository/mongo"
	"torrentcore/internal/services/engine/anacrolix"
	"torrentcore/internal/services/engine/qbittorrent"
	"torrentcore/internal/services/session"
	"torrentcore/internal/telemetry"
	"torrentcore/internal/usecase"

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

	shutdownTracer, err := telemetry.Init(context.Background(), "torrentcore")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "torrentcore"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.String("engineBackend", cfg.EngineBackend),
		slog.Int("listenPortStart", cfg.ListenPortStart),
		slog.Int("listenPortEnd", cfg.ListenPortEnd),
		slog.String("dataDir", cfg.DataDir),
		slog.String("defaultSavePath", cfg.DefaultSavePath),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, mongoClient, err := newRepository(rootCtx, cfg, logger)
	if err != nil {
		logger.Error("repository init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	engine, err := newEngine(cfg, logger)
	if err != nil {
		logger.Error("torrent engine init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sess := session.New(engine, session.WithLogger(logger))

	// Restore persisted torrents in background so the HTTP server starts immediately.
	restoreUC := usecase.RestoreTorrents{Registry: sess, Repo: repo, Logger: logger}
	go func() {
		if count, err := restoreUC.Execute(rootCtx); err != nil {
			logger.Warn("restore torrents failed", slog.String("error", err.Error()))
		} else if count > 0 {
			logger.Info("torrents restored", slog.Int("count", count))
		}
	}()

	// Start background state sync.
	syncUC := usecase.SyncState{Registry: sess, Repo: repo, Logger: logger, Interval: cfg.SyncInterval}
	go syncUC.Run(rootCtx)

	addUC := usecase.AddTorrent{Registry: sess, Repo: repo, Now: time.Now}
	removeUC := usecase.RemoveTorrent{Registry: sess, Repo: repo}
	pauseUC := usecase.PauseTorrent{Registry: sess, Repo: repo}
	resumeUC := usecase.ResumeTorrent{Registry: sess, Repo: repo}
	retryUC := usecase.RetryTorrent{Registry: sess, Repo: repo}
	statusUC := usecase.StatusTorrent{Registry: sess}
	listUC := usecase.ListStatuses{Registry: sess}
	snapshotUC := usecase.SnapshotTorrents{Registry: sess}
	nameUC := usecase.LookupName{Registry: sess}

	handler := apihttp.NewServer(addUC,
		apihttp.WithRemoveTorrent(removeUC),
		apihttp.WithPauseTorrent(pauseUC),
		apihttp.WithResumeTorrent(resumeUC),
		apihttp.WithRetryTorrent(retryUC),
		apihttp.WithStatusTorrent(statusUC),
		apihttp.WithListStatuses(listUC),
		apihttp.WithSnapshot(snapshotUC),
		apihttp.WithLookupName(nameUC),
		apihttp.WithDefaultSavePath(cfg.DefaultSavePath),
		apihttp.WithAllowedOrigins(cfg.CORSAllowedOrigins),
		apihttp.WithLogger(logger),
	)

	// Periodically push live statuses to websocket clients and Prometheus gauges.
	go broadcastStatuses(rootCtx, sess, handler, cfg.BroadcastInterval)

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

	// Flush the latest progress once more so a restart resumes from fresh records.
	syncUC.RunOnce(shutdownCtx)

	handler.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", slog.String("error", err.Error()))
	}
	if err := sess.Close(); err != nil {
		logger.Warn("session close error", slog.String("error", err.Error()))
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Warn("mongo disconnect error", slog.String("error", err.Error()))
		}
	}

	logger.Info("server stopped")
}

// newRepository picks the persistence backend: Mongo when MONGO_URI is set,
// a process-local store otherwise.
func newRepository(ctx context.Context, cfg app.Config, logger *slog.Logger) (ports.TorrentRepository, *mongo.Client, error) {
	if strings.TrimSpace(cfg.MongoURI) == "" {
		logger.Info("using in-memory torrent repository")
		return memoryrepo.NewRepository(), nil, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongorepo.Connect(connectCtx, cfg.MongoURI, options.Client().SetMonitor(otelmongo.NewMonitor()))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	repo := mongorepo.NewRepository(client, cfg.MongoDatabase, cfg.MongoCollection)
	if err := repo.EnsureIndexes(connectCtx); err != nil {
		logger.Warn("mongo ensure indexes failed", slog.String("error", err.Error()))
	}

	logger.Info("using mongo torrent repository", slog.String("database", cfg.MongoDatabase))
	return repo, client, nil
}

func newEngine(cfg app.Config, logger *slog.Logger) (ports.Engine, error) {
	switch cfg.EngineBackend {
	case app.EngineBackendQBittorrent:
		return qbittorrent.New(qbittorrent.Config{
			Host:         cfg.QBitHost,
			Username:     cfg.QBitUsername,
			Password:     cfg.QBitPassword,
			PollInterval: cfg.PollInterval,
			Logger:       logger,
		})
	case app.EngineBackendAnacrolix, "":
		return anacrolix.New(anacrolix.Config{
			ListenPortStart: cfg.ListenPortStart,
			ListenPortEnd:   cfg.ListenPortEnd,
			DataDir:         cfg.DataDir,
			PollInterval:    cfg.PollInterval,
			MetadataTimeout: cfg.MetadataTimeout,
			Logger:          logger,
		})
	default:
		return nil, fmt.Errorf("unknown engine backend %q", cfg.EngineBackend)
	}
}

// broadcastStatuses pushes the live status list to websocket clients and
// refreshes the Prometheus gauges until ctx is cancelled.
func broadcastStatuses(ctx context.Context, sess *session.Session, handler *apihttp.Server, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			statuses := sess.Statuses()
			metrics.ObserveStatuses(statuses)
			handler.BroadcastStatuses(statuses)
		}
	}
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
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
