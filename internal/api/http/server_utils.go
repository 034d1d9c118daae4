package apihttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"torrentcore/internal/domain"
	"torrentcore/internal/usecase"
)

type errorEnvelope struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeUseCaseError maps the domain sentinels onto HTTP status codes. The
// sentinel text stays out of 5xx bodies so driver details never leak.
func writeUseCaseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidSource):
		writeError(w, http.StatusBadRequest, "invalid_request", "exactly one of magnet or torrent file is required")
	case errors.Is(err, domain.ErrInvalidMagnet):
		writeError(w, http.StatusBadRequest, "invalid_magnet", err.Error())
	case errors.Is(err, domain.ErrInvalidMetaInfo):
		writeError(w, http.StatusBadRequest, "invalid_metainfo", err.Error())
	case errors.Is(err, domain.ErrSavePath):
		writeError(w, http.StatusBadRequest, "invalid_save_path", err.Error())
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already_exists", "torrent already exists")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "torrent not found")
	case errors.Is(err, domain.ErrIndexOutOfRange):
		writeError(w, http.StatusNotFound, "index_out_of_range", err.Error())
	case errors.Is(err, domain.ErrNoSnapshot):
		writeError(w, http.StatusConflict, "no_snapshot", "take a snapshot first")
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, domain.ErrSessionClosed):
		writeError(w, http.StatusServiceUnavailable, "session_closed", "session is shutting down")
	case errors.Is(err, usecase.ErrRepository):
		writeError(w, http.StatusInternalServerError, "repository_error", "repository failure")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorPayload{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// parseOptionalIntQuery parses an integer query parameter, returning the
// default when the parameter is absent or blank.
func parseOptionalIntQuery(value string, defaultValue int) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}
