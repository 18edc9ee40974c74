package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	_ "embed"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/time/rate"

	"calbook/internal/config"
	appLog "calbook/internal/log"
	"calbook/internal/metrics"
	"calbook/internal/model"
)

// GenerateFunc produces a fresh document from the current configuration.
type GenerateFunc func(ctx context.Context) (*model.GeneratedDocument, error)

// Server exposes the last generated document and read-only calendar
// helpers over HTTP.
type Server struct {
	cfg      *config.Config
	metrics  *metrics.Metrics
	generate GenerateFunc
	router   *mux.Router

	// regenerate limits POST /document.
	regenerate *rate.Limiter

	docMu sync.RWMutex
	doc   *model.GeneratedDocument

	indexOnce sync.Once
	indexHTML []byte
}

//go:embed usage.md
var usageMarkdown []byte

// NewServer constructs a Server. generate may be nil, which disables
// POST /document.
func NewServer(cfg *config.Config, m *metrics.Metrics, generate GenerateFunc) *Server {
	s := &Server{
		cfg:        cfg,
		metrics:    m,
		generate:   generate,
		router:     mux.NewRouter(),
		regenerate: rate.NewLimiter(rate.Every(30*time.Second), 2),
	}
	s.router.Use(s.monitor)
	s.registerRoutes()
	return s
}

// SetDocument publishes doc as the latest generated document.
func (s *Server) SetDocument(doc *model.GeneratedDocument) {
	s.docMu.Lock()
	s.doc = doc
	s.docMu.Unlock()
}

// Document returns the latest generated document, if any.
func (s *Server) Document() *model.GeneratedDocument {
	s.docMu.RLock()
	defer s.docMu.RUnlock()
	return s.doc
}

// Handler returns the root handler with CORS, metrics and optional basic
// auth applied.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled")
		h = s.basicAuthMiddleware(h)
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		handlers.ExposedHeaders([]string{"Content-Length", "Content-Disposition"}),
	)
	return cors(h)
}

// StartServer serves s on listen until ctx is cancelled, then shuts down
// gracefully.
func StartServer(ctx context.Context, s *Server, listen string) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		appLog.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	r := s.router
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/holidays", s.handleHolidays).Methods(http.MethodGet)
	api.HandleFunc("/layout", s.handleLayout).Methods(http.MethodGet)

	r.HandleFunc("/document", s.handleDocument).Methods(http.MethodGet)
	r.HandleFunc("/document", s.handleRegenerate).Methods(http.MethodPost)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleIndex renders the embedded usage notes as HTML.
func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.indexOnce.Do(func() {
		var buf bytes.Buffer
		buf.WriteString("<!doctype html><html><head><meta charset=\"utf-8\"><title>calbook</title></head><body>\n")
		md := goldmark.New(goldmark.WithExtensions(extension.GFM))
		if err := md.Convert(usageMarkdown, &buf); err != nil {
			appLog.Error("render usage page failed", err)
			buf.Reset()
			buf.Write(usageMarkdown)
		}
		buf.WriteString("</body></html>\n")
		s.indexHTML = buf.Bytes()
	})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(s.indexHTML)
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="calbook", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// monitor records per-route request metrics. Routes are labelled by their
// template, not the raw path.
func (s *Server) monitor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		s.metrics.ObserveRequest(route, r.Method, ww.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
