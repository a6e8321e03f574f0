// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "beacon-network/internal/common/errors"
	"beacon-network/internal/common/logger"
	"beacon-network/internal/models"
	"beacon-network/internal/network/engine"
	"beacon-network/internal/network/metadata"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	filteringTermsSuffix = "/filtering_terms"
	maxBodyBytes         = 10 << 20
)

// Views serves the documents derived from backend metadata.
type Views interface {
	Info() *models.NetworkInfoResponse
	Map() *models.MapResponse
	Configuration() *models.ConfigurationResponse
	EntryTypes() *models.EntryTypesResponse
	ServiceInfo() *models.ServiceInfo
	FilteringTerms(path string) (*models.FilteringTermsResponse, bool)
}

type Refresher interface {
	RefreshAll(ctx context.Context)
}

type Aggregator interface {
	Aggregate(ctx context.Context, in *engine.Inbound) (*models.BeaconResponse, error)
}

// Inspector checks a backend that is not necessarily registered.
type Inspector interface {
	Inspect(ctx context.Context, endpoint string) []metadata.Finding
}

type Options struct {
	Views      Views
	Refresher  Refresher
	Aggregator Aggregator
	// Inspector serves /validate; the route is absent when nil.
	Inspector Inspector
	// Ready reports whether the backend list has been loaded. Nil means always ready.
	Ready  func() bool
	Logger logger.Logger
}

// Server is the network's public HTTP surface.
type Server struct {
	config     *Config
	views      Views
	refresher  Refresher
	aggregator Aggregator
	inspector  Inspector
	ready      func() bool
	errors     *apperrors.ErrorHandler
	logger     logger.Logger
	http       *http.Server
}

func New(config *Config, opts Options) *Server {
	log := opts.Logger.WithFields(map[string]interface{}{"component": "http"})
	s := &Server{
		config:     config,
		views:      opts.Views,
		refresher:  opts.Refresher,
		aggregator: opts.Aggregator,
		inspector:  opts.Inspector,
		ready:      opts.Ready,
		errors:     apperrors.NewErrorHandler(log, config.BeaconID, config.APIVersion),
		logger:     log,
	}
	s.http = &http.Server{
		Addr:         config.Address,
		Handler:      s.Routes(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s
}

// Routes builds the router: operational endpoints at the root, the Beacon
// API below the configured prefix.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	api := chi.NewRouter()
	api.Get("/", s.handleInfo)
	api.Get("/info", s.handleInfo)
	api.Get("/service-info", s.handleServiceInfo)
	api.Get("/configuration", s.handleConfiguration)
	api.Get("/map", s.handleMap)
	api.Get("/entry_types", s.handleEntryTypes)
	if s.inspector != nil {
		api.Get("/validate", s.handleValidate)
	}
	api.Get("/*", s.handleQuery)
	api.Post("/*", s.handleQuery)

	mount := s.config.PathPrefix
	if mount == "" {
		mount = "/"
	}
	r.Mount(mount, api)
	return r
}

func (s *Server) ListenAndServe() error {
	s.logger.Info("listening", map[string]interface{}{
		"address": s.config.Address,
		"prefix":  s.config.PathPrefix,
	})
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// ==========================
// Operational endpoints
// ==========================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil && !s.ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"time":   time.Now().Format(time.RFC3339),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// ==========================
// Network metadata
// ==========================

// handleInfo answers / and /info. "Cache-Control: no-cache" reloads every
// backend first.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(strings.ToLower(r.Header.Get("Cache-Control")), "no-cache") && s.refresher != nil {
		s.logger.Info("metadata reload requested", nil)
		s.refresher.RefreshAll(context.WithoutCancel(r.Context()))
	}
	writeJSON(w, http.StatusOK, s.views.Info())
}

func (s *Server) handleServiceInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.views.ServiceInfo())
}

func (s *Server) handleConfiguration(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.views.Configuration())
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.views.Map())
}

func (s *Server) handleEntryTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.views.EntryTypes())
}

// handleValidate checks the metadata of the backend at ?endpoint= and lists
// the findings. Nothing is registered.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	endpoint := r.URL.Query().Get("endpoint")
	if err := metadata.CheckEndpoint(endpoint); err != nil {
		s.errors.WriteHTTPError(w, r, apperrors.NewInvalidRequestError(err.Error()))
		return
	}
	findings := s.inspector.Inspect(r.Context(), endpoint)
	if findings == nil {
		findings = []metadata.Finding{}
	}
	writeJSON(w, http.StatusOK, findings)
}

// ==========================
// Aggregated queries
// ==========================

// handleQuery serves filtering terms known to the network and forwards
// everything else to the backends.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	path := s.innerPath(r)

	if r.Method == http.MethodGet && strings.HasSuffix(path, filteringTermsSuffix) {
		if doc, ok := s.views.FilteringTerms(path); ok {
			writeJSON(w, http.StatusOK, doc)
			return
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.errors.WriteHTTPError(w, r, apperrors.NewInvalidRequestError(err.Error()))
		return
	}

	resp, err := s.aggregator.Aggregate(r.Context(), &engine.Inbound{
		Method:        r.Method,
		Path:          path,
		RawQuery:      r.URL.RawQuery,
		Body:          body,
		Authorization: r.Header.Values("Authorization"),
	})
	if err != nil {
		s.errors.WriteHTTPError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) innerPath(r *http.Request) string {
	path := strings.TrimPrefix(r.URL.Path, s.config.PathPrefix)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http request", map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"durationMs": time.Since(start).Milliseconds(),
			"requestId":  middleware.GetReqID(r.Context()),
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
