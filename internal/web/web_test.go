package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calbook/internal/config"
	"calbook/internal/metrics"
	"calbook/internal/model"
)

func newTestServer(t *testing.T, cfg *config.Config, gen GenerateFunc) (*Server, http.Handler) {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
		cfg.Year = 2025
	}
	s := NewServer(cfg, metrics.New(), gen)
	return s, s.Handler()
}

func do(h http.Handler, method, target string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t, nil, nil)
	rec := do(h, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestIndexRendersUsage(t *testing.T) {
	_, h := newTestServer(t, nil, nil)
	rec := do(h, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<h1>calbook</h1>")
	assert.Contains(t, rec.Body.String(), "<table>")
}

func TestHolidays(t *testing.T) {
	_, h := newTestServer(t, nil, nil)
	rec := do(h, http.MethodGet, "/api/holidays?year=2025")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Year     int               `json:"year"`
		Holidays []holidayResponse `json:"holidays"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2025, resp.Year)

	dates := map[string]string{}
	for _, hd := range resp.Holidays {
		dates[hd.Kind] = hd.Date
	}
	assert.Equal(t, "2025-04-20", dates["easter"])
	assert.Equal(t, "2025-11-27", dates["thanksgiving"])
	assert.Equal(t, "2025-05-11", dates["mothers_day"])

	rec = do(h, http.MethodGet, "/api/holidays?year=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLayout(t *testing.T) {
	_, h := newTestServer(t, nil, nil)
	rec := do(h, http.MethodGet, "/api/layout?year=2026&month=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp layoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "February 2026", resp.Title)
	assert.Equal(t, 4, resp.Weeks)
	assert.Equal(t, [7]int{1, 2, 3, 4, 5, 6, 7}, resp.Days[0])
	assert.Equal(t, "SUN", resp.Weekdays[0])

	rec = do(h, http.MethodGet, "/api/layout?year=2026&month=13")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocument(t *testing.T) {
	s, h := newTestServer(t, nil, nil)

	rec := do(h, http.MethodGet, "/document")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.SetDocument(&model.GeneratedDocument{
		ID:       "doc-1",
		Type:     model.CalendarOnly,
		Year:     2025,
		Filename: "calendar_2025_only.pdf",
		PDF:      []byte("%PDF-1.3 fake"),
	})
	rec = do(h, http.MethodGet, "/document")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="calendar_2025_only.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "doc-1", rec.Header().Get("X-Document-Id"))
	assert.Equal(t, "%PDF-1.3 fake", rec.Body.String())

	rec = do(h, http.MethodDelete, "/document")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRegenerate(t *testing.T) {
	calls := 0
	gen := func(ctx context.Context) (*model.GeneratedDocument, error) {
		calls++
		return &model.GeneratedDocument{
			ID:       "regen",
			Type:     model.Combined,
			Year:     2025,
			Filename: "calendar_2025_combined_spread.pdf",
			PDF:      []byte("pdf"),
			Pages:    []model.PageRef{{Origin: model.OriginCalendar, Index: 0, Title: "January 2025"}},
		}, nil
	}
	s, h := newTestServer(t, nil, gen)

	rec := do(h, http.MethodPost, "/document")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp documentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "regen", resp.ID)
	assert.Equal(t, "combined", resp.Type)
	require.Len(t, resp.Pages, 1)
	assert.Equal(t, "regen", s.Document().ID)

	// Burst of two, then limited.
	rec = do(h, http.MethodPost, "/document")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(h, http.MethodPost, "/document")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 2, calls)
}

func TestRegenerateErrors(t *testing.T) {
	_, h := newTestServer(t, nil, nil)
	rec := do(h, http.MethodPost, "/document")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	s, h := newTestServer(t, nil, func(context.Context) (*model.GeneratedDocument, error) {
		return nil, errors.New("header missing")
	})
	rec = do(h, http.MethodPost, "/document")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "header missing")
	assert.Nil(t, s.Document())
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "s3cret"}
	_, h := newTestServer(t, cfg, nil)

	rec := do(h, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code, "health is never protected")

	rec = do(h, http.MethodGet, "/api/holidays")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	rec = do(h, http.MethodGet, "/api/holidays", func(r *http.Request) { r.SetBasicAuth("admin", "wrong") })
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(h, http.MethodGet, "/api/holidays", func(r *http.Request) { r.SetBasicAuth("admin", "s3cret") })
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsUseRouteTemplate(t *testing.T) {
	_, h := newTestServer(t, nil, nil)
	do(h, http.MethodGet, "/api/layout?year=2025&month=3")

	rec := do(h, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `calbook_http_requests_total{method="GET",route="/api/layout",status="OK"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	_, h := newTestServer(t, nil, nil)
	rec := do(h, http.MethodOptions, "/document", func(r *http.Request) {
		r.Header.Set("Origin", "http://example.com")
		r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, secureCompare("abc", "abc"))
	assert.False(t, secureCompare("abc", "abd"))
	assert.False(t, secureCompare("abc", "ab"))
}
