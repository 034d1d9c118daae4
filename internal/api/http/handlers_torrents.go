package apihttp

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"torrentcore/internal/domain"
	"torrentcore/internal/metrics"
	"torrentcore/internal/usecase"
)

// maxTorrentFileBytes caps uploaded .torrent files. Metainfo for even very
// large content stays well under this.
const maxTorrentFileBytes = 5 << 20

func (s *Server) handleTorrents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleAddTorrent(w, r)
	case http.MethodGet:
		s.handleListStatuses(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleAddTorrent(w http.ResponseWriter, r *http.Request) {
	if s.addTorrent == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "add torrent use case not configured")
		return
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}

	switch mediaType {
	case "application/json":
		s.handleAddTorrentJSON(w, r)
	case "multipart/form-data":
		s.handleAddTorrentMultipart(w, r)
	default:
		writeError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "unsupported content type")
	}
}

type addTorrentJSON struct {
	Magnet   string `json:"magnet"`
	SavePath string `json:"savePath,omitempty"`
}

func (s *Server) handleAddTorrentJSON(w http.ResponseWriter, r *http.Request) {
	var body addTorrentJSON
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json")
		return
	}

	input := usecase.AddTorrentInput{
		Magnet:   strings.TrimSpace(body.Magnet),
		SavePath: s.savePathOrDefault(body.SavePath),
	}
	s.executeAdd(w, r, input)
}

func (s *Server) handleAddTorrentMultipart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxTorrentFileBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("torrent")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing torrent file")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxTorrentFileBytes+1))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to read torrent file")
		return
	}
	if len(raw) > maxTorrentFileBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "invalid_request", "torrent file too large")
		return
	}

	input := usecase.AddTorrentInput{
		MetaInfo: raw,
		SavePath: s.savePathOrDefault(r.FormValue("savePath")),
	}
	s.executeAdd(w, r, input)
}

func (s *Server) executeAdd(w http.ResponseWriter, r *http.Request, input usecase.AddTorrentInput) {
	// Cap the handler execution time so we never block indefinitely.
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	record, err := s.addTorrent.Execute(ctx, input)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	metrics.TorrentsAddedTotal.Inc()
	writeJSON(w, http.StatusCreated, record)
}

func (s *Server) savePathOrDefault(savePath string) string {
	savePath = strings.TrimSpace(savePath)
	if savePath == "" {
		return s.defaultSavePath
	}
	return savePath
}

type statusList struct {
	Items []domain.TorrentStatus `json:"items"`
	Count int                    `json:"count"`
}

func (s *Server) handleListStatuses(w http.ResponseWriter, r *http.Request) {
	if s.listStatuses == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "list statuses use case not configured")
		return
	}

	limit, err := parseOptionalIntQuery(r.URL.Query().Get("limit"), -1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}

	statuses := s.listStatuses.Execute(r.Context())
	if limit >= 0 && limit < len(statuses) {
		statuses = statuses[:limit]
	}
	if statuses == nil {
		statuses = []domain.TorrentStatus{}
	}
	writeJSON(w, http.StatusOK, statusList{Items: statuses, Count: len(statuses)})
}

func (s *Server) handleTorrentByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/torrents/")
	if path == "" {
		http.NotFound(w, r)
		return
	}

	if path == "snapshot" {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.handleSnapshot(w, r)
		return
	}

	if path == "name" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.handleNameAt(w, r)
		return
	}

	parts := strings.Split(path, "/")
	if len(parts) == 1 {
		id := parts[0]
		switch r.Method {
		case http.MethodGet:
			s.handleTorrentStatus(w, r, id)
		case http.MethodDelete:
			s.handleRemoveTorrent(w, r, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	if len(parts) == 2 {
		id, action := parts[0], parts[1]
		if id == "" || action == "" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		switch action {
		case "pause":
			s.handleControl(w, r, s.pauseTorrent, id, "pause")
		case "resume":
			s.handleControl(w, r, s.resumeTorrent, id, "resume")
		case "retry":
			s.handleControl(w, r, s.retryTorrent, id, "retry")
		default:
			http.NotFound(w, r)
		}
		return
	}

	http.NotFound(w, r)
}

func (s *Server) handleTorrentStatus(w http.ResponseWriter, r *http.Request, id string) {
	if s.statusTorrent == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "status use case not configured")
		return
	}

	status, err := s.statusTorrent.Execute(r.Context(), domain.TorrentID(id))
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleRemoveTorrent(w http.ResponseWriter, r *http.Request, id string) {
	if s.removeTorrent == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "remove torrent use case not configured")
		return
	}

	if err := s.removeTorrent.Execute(r.Context(), domain.TorrentID(id)); err != nil {
		writeUseCaseError(w, err)
		return
	}
	metrics.TorrentsRemovedTotal.Inc()
	w.WriteHeader(http.StatusNoContent)
}

type controlUseCase interface {
	Execute(ctx context.Context, id domain.TorrentID) (domain.TorrentStatus, error)
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request, uc controlUseCase, id, action string) {
	if uc == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", action+" use case not configured")
		return
	}

	status, err := uc.Execute(r.Context(), domain.TorrentID(id))
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.snapshot == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "snapshot use case not configured")
		return
	}

	// Absent max keeps every status in the snapshot.
	maxItems, err := parseOptionalIntQuery(r.URL.Query().Get("max"), -1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid max")
		return
	}

	statuses, err := s.snapshot.Execute(r.Context(), maxItems)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	metrics.SnapshotsTakenTotal.Inc()
	if statuses == nil {
		statuses = []domain.TorrentStatus{}
	}
	writeJSON(w, http.StatusOK, statusList{Items: statuses, Count: len(statuses)})
}

type nameAtResponse struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

func (s *Server) handleNameAt(w http.ResponseWriter, r *http.Request) {
	if s.lookupName == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "name lookup use case not configured")
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("index"))
	if raw == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "index is required")
		return
	}
	index, err := parseOptionalIntQuery(raw, 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid index")
		return
	}

	name, err := s.lookupName.Execute(r.Context(), index)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nameAtResponse{Index: index, Name: name})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
