// Package client is a typed HTTP client for the torrentcore API, used by
// the corectl command and by anything else that drives a server remotely.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"torrentcore/internal/domain"
)

const defaultTimeout = 30 * time.Second

// APIError carries a non-2xx response decoded from the server's error
// envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("server returned status %d", e.StatusCode)
}

// IsNotFound reports whether err is an APIError for a missing resource.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type Client struct {
	base string
	hc   *http.Client
}

// New validates baseURL and builds a client. A non-positive timeout falls
// back to the default.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, errors.New("server url is empty")
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("server url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{base: base, hc: &http.Client{Timeout: timeout}}, nil
}

// StatusList mirrors the server's list envelope.
type StatusList struct {
	Items []domain.TorrentStatus `json:"items"`
	Count int                    `json:"count"`
}

type nameAtResponse struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// AddMagnet registers a magnet link. An empty savePath lets the server use
// its default directory.
func (c *Client) AddMagnet(ctx context.Context, magnet, savePath string) (domain.TorrentRecord, error) {
	payload := struct {
		Magnet   string `json:"magnet"`
		SavePath string `json:"savePath,omitempty"`
	}{Magnet: magnet, SavePath: savePath}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.TorrentRecord{}, err
	}
	var rec domain.TorrentRecord
	err = c.do(ctx, http.MethodPost, "/torrents", "application/json", bytes.NewReader(body), &rec)
	return rec, err
}

// AddTorrentFile uploads raw .torrent file contents as a multipart form.
func (c *Client) AddTorrentFile(ctx context.Context, filename string, raw []byte, savePath string) (domain.TorrentRecord, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("torrent", filename)
	if err != nil {
		return domain.TorrentRecord{}, err
	}
	if _, err := fw.Write(raw); err != nil {
		return domain.TorrentRecord{}, err
	}
	if savePath != "" {
		if err := mw.WriteField("savePath", savePath); err != nil {
			return domain.TorrentRecord{}, err
		}
	}
	if err := mw.Close(); err != nil {
		return domain.TorrentRecord{}, err
	}

	var rec domain.TorrentRecord
	err = c.do(ctx, http.MethodPost, "/torrents", mw.FormDataContentType(), &buf, &rec)
	return rec, err
}

// Statuses reads the live status list without touching the server's held
// snapshot. A negative limit keeps every entry.
func (c *Client) Statuses(ctx context.Context, limit int) (StatusList, error) {
	path := "/torrents"
	if limit >= 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out StatusList
	err := c.do(ctx, http.MethodGet, path, "", nil, &out)
	return out, err
}

// Snapshot takes a new server-side snapshot and returns it. Indexes handed
// to NameAt afterwards refer to this view until the next Snapshot call.
func (c *Client) Snapshot(ctx context.Context, maxItems int) (StatusList, error) {
	path := "/torrents/snapshot"
	if maxItems >= 0 {
		path += "?max=" + strconv.Itoa(maxItems)
	}
	var out StatusList
	err := c.do(ctx, http.MethodPost, path, "", nil, &out)
	return out, err
}

// NameAt resolves an index against the server's most recent snapshot.
func (c *Client) NameAt(ctx context.Context, index int) (string, error) {
	var out nameAtResponse
	err := c.do(ctx, http.MethodGet, "/torrents/name?index="+strconv.Itoa(index), "", nil, &out)
	return out.Name, err
}

// Status reads the live status of one torrent.
func (c *Client) Status(ctx context.Context, id string) (domain.TorrentStatus, error) {
	var st domain.TorrentStatus
	err := c.do(ctx, http.MethodGet, "/torrents/"+url.PathEscape(id), "", nil, &st)
	return st, err
}

func (c *Client) Pause(ctx context.Context, id string) (domain.TorrentStatus, error) {
	return c.control(ctx, id, "pause")
}

func (c *Client) Resume(ctx context.Context, id string) (domain.TorrentStatus, error) {
	return c.control(ctx, id, "resume")
}

func (c *Client) Retry(ctx context.Context, id string) (domain.TorrentStatus, error) {
	return c.control(ctx, id, "retry")
}

func (c *Client) control(ctx context.Context, id, action string) (domain.TorrentStatus, error) {
	var st domain.TorrentStatus
	err := c.do(ctx, http.MethodPost, "/torrents/"+url.PathEscape(id)+"/"+action, "", nil, &st)
	return st, err
}

// Remove drops the torrent from the session, keeping payload files in place.
func (c *Client) Remove(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/torrents/"+url.PathEscape(id), "", nil, nil)
}

// Health probes the server's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/internal/health", "", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError maps a non-2xx response onto an APIError. Bodies that are not
// the expected envelope still yield the status code.
func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var env errorEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env); err == nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
	}
	return apiErr
}
