package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	appLog "calbook/internal/log"
	"calbook/internal/model"
)

// Source is one event feed: a local .ics file or an http(s) URL.
type Source struct {
	ID       string
	Location string
}

// IsRemote reports whether the source is fetched over HTTP.
func (s Source) IsRemote() bool {
	return strings.HasPrefix(s.Location, "http://") || strings.HasPrefix(s.Location, "https://")
}

// cacheEntry holds HTTP validators for one remote feed.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Loader reads event feeds. Remote feeds are fetched with conditional
// requests and cached on disk; a failed fetch falls back to the cache.
type Loader struct {
	client   *http.Client
	cacheDir string
}

// NewLoader returns a Loader caching remote feeds under cacheDir. An empty
// cacheDir disables the disk cache.
func NewLoader(cacheDir string) *Loader {
	return &Loader{
		client:   &http.Client{Timeout: 15 * time.Second},
		cacheDir: cacheDir,
	}
}

// Load returns the raw body of src.
func (l *Loader) Load(ctx context.Context, src Source) ([]byte, error) {
	if src.Location == "" {
		return nil, errors.New("ics: source location is empty")
	}
	if !src.IsRemote() {
		body, err := os.ReadFile(src.Location)
		if err != nil {
			return nil, fmt.Errorf("ics: read %s: %w", src.Location, err)
		}
		return body, nil
	}
	return l.fetch(ctx, src)
}

// Events loads, parses and expands every source into the DayEvents of
// cfg.Year. A failing source aborts the whole load.
func (l *Loader) Events(ctx context.Context, sources []Source, cfg ExpandConfig) ([]model.DayEvent, error) {
	var parsed []ParsedEvent
	for _, src := range sources {
		body, err := l.Load(ctx, src)
		if err != nil {
			return nil, err
		}
		evs, err := ParseICS(src, body)
		if err != nil {
			return nil, fmt.Errorf("ics: parse %s: %w", src.ID, err)
		}
		parsed = append(parsed, evs...)
	}
	return ExpandYear(parsed, cfg), nil
}

func (l *Loader) fetch(ctx context.Context, src Source) ([]byte, error) {
	cachePath := l.cachePath(src.Location)
	var (
		meta   cacheEntry
		cached []byte
	)
	if cachePath != "" {
		if err := os.MkdirAll(cachePath, 0o700); err != nil {
			return nil, err
		}
		meta, _ = loadCacheMeta(cachePath)
		cached, _ = os.ReadFile(filepath.Join(cachePath, "body.ics"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.Location, nil)
	if err != nil {
		return nil, err
	}
	if len(cached) > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	appLog.Debug("ics fetch start", "id", src.ID, "location", redact(src.Location))
	resp, err := l.client.Do(req)
	if err != nil {
		if len(cached) > 0 {
			appLog.Error("ics fetch failed, using cached body", err, "id", src.ID, "location", redact(src.Location))
			return cached, nil
		}
		return nil, fmt.Errorf("ics: fetch %s: %w", src.ID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("ics: read %s: %w", src.ID, err)
		}
		if cachePath != "" {
			entry := cacheEntry{
				URL:          src.Location,
				ETag:         resp.Header.Get("ETag"),
				LastModified: resp.Header.Get("Last-Modified"),
			}
			if err := saveCache(cachePath, entry, body); err != nil {
				appLog.Error("ics cache save failed", err, "id", src.ID)
			}
		}
		appLog.Info("ics fetch success", "id", src.ID, "location", redact(src.Location), "bytes", len(body))
		return body, nil

	case http.StatusNotModified:
		if len(cached) == 0 {
			return nil, fmt.Errorf("ics: fetch %s: 304 without cached body", src.ID)
		}
		appLog.Debug("ics not modified, using cache", "id", src.ID)
		return cached, nil

	default:
		if len(cached) > 0 {
			appLog.Error("ics fetch non-OK, using cached body", errors.New(resp.Status), "id", src.ID, "status", resp.StatusCode)
			return cached, nil
		}
		return nil, fmt.Errorf("ics: fetch %s: %s", src.ID, resp.Status)
	}
}

func (l *Loader) cachePath(location string) string {
	if l.cacheDir == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(location))
	return filepath.Join(l.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

// saveCache writes the body before the metadata so validators never
// refer to a missing body.
func saveCache(cachePath string, meta cacheEntry, body []byte) error {
	if err := os.WriteFile(filepath.Join(cachePath, "body.ics"), body, 0o600); err != nil {
		return err
	}
	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// redact keeps only scheme and host of a feed URL for logging. Local
// paths are returned unchanged.
func redact(location string) string {
	u, err := url.Parse(location)
	if err != nil || u.Host == "" {
		if strings.Contains(location, "://") {
			return "ics://...(redacted)"
		}
		return location
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
