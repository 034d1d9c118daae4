package apihttp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"torrentcore/internal/domain"
	"torrentcore/internal/usecase"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type AddTorrentUseCase interface {
	Execute(ctx context.Context, input usecase.AddTorrentInput) (domain.TorrentRecord, error)
}

type RemoveTorrentUseCase interface {
	Execute(ctx context.Context, id domain.TorrentID) error
}

type PauseTorrentUseCase interface {
	Execute(ctx context.Context, id domain.TorrentID) (domain.TorrentStatus, error)
}

type ResumeTorrentUseCase interface {
	Execute(ctx context.Context, id domain.TorrentID) (domain.TorrentStatus, error)
}

type RetryTorrentUseCase interface {
	Execute(ctx context.Context, id domain.TorrentID) (domain.TorrentStatus, error)
}

type StatusTorrentUseCase interface {
	Execute(ctx context.Context, id domain.TorrentID) (domain.TorrentStatus, error)
}

type ListStatusesUseCase interface {
	Execute(ctx context.Context) []domain.TorrentStatus
}

type SnapshotTorrentsUseCase interface {
	Execute(ctx context.Context, maxItems int) ([]domain.TorrentStatus, error)
}

type LookupNameUseCase interface {
	Execute(ctx context.Context, index int) (string, error)
}

type Server struct {
	addTorrent      AddTorrentUseCase
	removeTorrent   RemoveTorrentUseCase
	pauseTorrent    PauseTorrentUseCase
	resumeTorrent   ResumeTorrentUseCase
	retryTorrent    RetryTorrentUseCase
	statusTorrent   StatusTorrentUseCase
	listStatuses    ListStatusesUseCase
	snapshot        SnapshotTorrentsUseCase
	lookupName      LookupNameUseCase
	defaultSavePath string
	allowedOrigins  []string
	logger          *slog.Logger
	handler         http.Handler
	wsHub           *wsHub
}

type ServerOption func(*Server)

func WithRemoveTorrent(uc RemoveTorrentUseCase) ServerOption {
	return func(s *Server) {
		s.removeTorrent = uc
	}
}

func WithPauseTorrent(uc PauseTorrentUseCase) ServerOption {
	return func(s *Server) {
		s.pauseTorrent = uc
	}
}

func WithResumeTorrent(uc ResumeTorrentUseCase) ServerOption {
	return func(s *Server) {
		s.resumeTorrent = uc
	}
}

func WithRetryTorrent(uc RetryTorrentUseCase) ServerOption {
	return func(s *Server) {
		s.retryTorrent = uc
	}
}

func WithStatusTorrent(uc StatusTorrentUseCase) ServerOption {
	return func(s *Server) {
		s.statusTorrent = uc
	}
}

func WithListStatuses(uc ListStatusesUseCase) ServerOption {
	return func(s *Server) {
		s.listStatuses = uc
	}
}

func WithSnapshot(uc SnapshotTorrentsUseCase) ServerOption {
	return func(s *Server) {
		s.snapshot = uc
	}
}

func WithLookupName(uc LookupNameUseCase) ServerOption {
	return func(s *Server) {
		s.lookupName = uc
	}
}

// WithDefaultSavePath sets the directory used for add requests that omit
// savePath.
func WithDefaultSavePath(path string) ServerOption {
	return func(s *Server) {
		s.defaultSavePath = strings.TrimSpace(path)
	}
}

// WithAllowedOrigins configures the CORS allowed origins whitelist.
// When empty (default), any origin is permitted (development mode).
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func NewServer(add AddTorrentUseCase, opts ...ServerOption) *Server {
	s := &Server{addTorrent: add}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.wsHub = newWSHub(s.logger)
	go s.wsHub.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/torrents", s.handleTorrents)
	mux.HandleFunc("/torrents/", s.handleTorrentByID)
	mux.HandleFunc("/internal/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", s.handleWS)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "torrentcore",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/internal/health"
		}),
	)
	s.handler = recoveryMiddleware(s.logger, rateLimitMiddleware(100, 200, metricsMiddleware(corsMiddleware(s.allowedOrigins, traced))))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.wsHub == nil {
		http.Error(w, "websocket not available", http.StatusServiceUnavailable)
		return
	}
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

// BroadcastStatuses pushes the current status list to every connected
// WebSocket client.
func (s *Server) BroadcastStatuses(statuses []domain.TorrentStatus) {
	if s.wsHub != nil {
		s.wsHub.BroadcastStatuses(statuses)
	}
}

// Close stops the WebSocket hub, disconnecting all clients.
func (s *Server) Close() {
	if s.wsHub != nil {
		s.wsHub.Close()
	}
}
