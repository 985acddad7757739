package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/baedrik/skulls2/internal/logging"
	"github.com/baedrik/skulls2/internal/metrics"
	"github.com/baedrik/skulls2/internal/traits"
	"github.com/baedrik/skulls2/pkg/types"
)

// Route paths.
const (
	PathExecute = "/v1/execute"
	PathQuery   = "/v1/query"
	PathHealth  = "/healthz"
	PathMetrics = "/metrics"
)

// maxBodyBytes bounds request bodies. Variant art makes add_categories
// requests large.
const maxBodyBytes = 32 << 20

// Config configures a Server. Empty tokens disable the corresponding check.
type Config struct {
	AdminToken      string
	ViewerToken     string
	CacheExpiration time.Duration
}

// Server serves the registry over HTTP.
type Server struct {
	reg     *traits.Registry
	cfg     Config
	log     *logrus.Logger
	metrics *metrics.Metrics
	cache   *answerCache
	router  *mux.Router
}

// NewServer builds the router for reg. m may be nil, in which case no
// metrics are recorded and /metrics is not served.
func NewServer(reg *traits.Registry, cfg Config, log *logrus.Logger, m *metrics.Metrics) *Server {
	if log == nil {
		log = logging.Discard()
	}
	if cfg.CacheExpiration == 0 {
		cfg.CacheExpiration = DefaultCacheExpiration
	}
	s := &Server{
		reg:     reg,
		cfg:     cfg,
		log:     log,
		metrics: m,
		cache:   newAnswerCache(cfg.CacheExpiration, DefaultCleanupInterval),
		router:  mux.NewRouter(),
	}

	s.router.Use(s.loggingMiddleware)
	if m != nil {
		s.router.Use(s.metricsMiddleware)
		s.router.Handle(PathMetrics, m.Handler()).Methods(http.MethodGet)
	}
	s.router.HandleFunc(PathHealth, s.handleHealth).Methods(http.MethodGet)
	s.router.Handle(PathExecute, s.requireToken(http.HandlerFunc(s.handleExecute), cfg.AdminToken)).Methods(http.MethodPost)
	s.router.Handle(PathQuery, s.requireToken(http.HandlerFunc(s.handleQuery), cfg.ViewerToken, cfg.AdminToken)).Methods(http.MethodPost)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"category_count": s.reg.CategoryCount(),
	})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	op, err := DecodeExecute(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	answer, err := Execute(s.reg, op)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.cache.Flush()
	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	op, err := DecodeQuery(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	_, cacheable := op.(ServeBulkExportQuery)
	if cacheable {
		if answer, ok := s.cache.Get(op.Key()); ok {
			logging.FromContext(r.Context(), s.log).WithField("query", op.Key()).Debug("cache hit")
			writeJSON(w, http.StatusOK, answer)
			return
		}
	}

	gen := s.cache.Generation()
	answer, err := Query(s.reg, op)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if cacheable {
		s.cache.Set(op.Key(), answer, gen)
	}
	writeJSON(w, http.StatusOK, answer)
}

// requireToken accepts a request carrying any of tokens as a bearer token.
// With no non-empty tokens the route is open.
func (s *Server) requireToken(next http.Handler, tokens ...string) http.Handler {
	allowed := make(map[string]bool)
	for _, t := range tokens {
		if t != "" {
			allowed[t] = true
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(allowed) > 0 {
			token, ok := bearerToken(r)
			if !ok || !allowed[token] {
				s.writeError(w, r, types.ErrUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) <= len(prefix) || h[:len(prefix)] != prefix {
		return "", false
	}
	return h[len(prefix):], true
}

// StatusFor maps an engine error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrDuplicate), errors.Is(err, types.ErrConflictingDependency):
		return http.StatusConflict
	case errors.Is(err, types.ErrOverflow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, types.ErrInvalidComposition),
		errors.Is(err, types.ErrInvalidRequest),
		errors.Is(err, types.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	entry := logging.FromContext(r.Context(), s.log).WithError(err).WithField("status", status)
	if status == http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
