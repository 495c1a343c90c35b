// Package api exposes the settlement engine over HTTP. Every mutating
// endpoint maps one-to-one onto an engine operation; the engine's own guards
// decide whether a call is permitted, the handlers only translate transport.
// Events stream to subscribers over a websocket hub.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"ghostpool/internal/authgate"
	"ghostpool/internal/engine"
	"ghostpool/internal/observability"
)

// Server holds the HTTP surface over one engine.
type Server struct {
	engine     *engine.Engine
	hub        *Hub
	metrics    *observability.Metrics
	logger     *log.Logger
	adminToken string
}

// Options configures a new Server.
type Options struct {
	Engine *engine.Engine
	Hub    *Hub

	// Metrics instruments request latency and errors. Optional.
	Metrics *observability.Metrics

	// AdminToken gates the /v1/admin endpoints. Empty disables them.
	AdminToken string

	Logger *log.Logger
}

// NewServer creates a Server. The engine is required.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[api] ", log.LstdFlags)
	}
	return &Server{
		engine:     opts.Engine,
		hub:        opts.Hub,
		metrics:    opts.Metrics,
		logger:     logger,
		adminToken: opts.AdminToken,
	}
}

// Routes returns the full route table.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Position lifecycle
	mux.HandleFunc("POST /v1/position/open", s.instrument("position_open", s.handleOpen))
	mux.HandleFunc("POST /v1/position/add", s.instrument("position_add", s.handleAddStake))
	mux.HandleFunc("POST /v1/position/extract", s.instrument("position_extract", s.handleExtract))
	mux.HandleFunc("POST /v1/position/claim", s.instrument("position_claim", s.handleClaim))
	mux.HandleFunc("POST /v1/position/collect", s.instrument("position_collect", s.handleCollect))
	mux.HandleFunc("POST /v1/position/emergency", s.instrument("position_emergency", s.handleEmergencyWithdraw))
	mux.HandleFunc("GET /v1/position", s.instrument("position_get", s.handleGetPosition))

	// Views
	mux.HandleFunc("GET /v1/levels", s.instrument("levels", s.handleLevels))
	mux.HandleFunc("GET /v1/level", s.instrument("level", s.handleLevel))
	mux.HandleFunc("GET /v1/reset", s.instrument("reset_view", s.handleResetView))

	// Permissionless keeper operations
	mux.HandleFunc("POST /v1/scan/execute", s.instrument("scan_execute", s.handleExecuteScan))
	mux.HandleFunc("POST /v1/scan/deaths", s.instrument("scan_deaths", s.handleSubmitDeaths))
	mux.HandleFunc("POST /v1/scan/finalize", s.instrument("scan_finalize", s.handleFinalizeScan))
	mux.HandleFunc("POST /v1/reset/trigger", s.instrument("reset_trigger", s.handleTriggerReset))

	// Boosts
	mux.HandleFunc("POST /v1/boost", s.instrument("boost_apply", s.handleApplyBoost))

	// Admin
	mux.HandleFunc("POST /v1/admin/pause", s.admin(s.handlePause))
	mux.HandleFunc("POST /v1/admin/unpause", s.admin(s.handleUnpause))
	mux.HandleFunc("POST /v1/admin/level", s.admin(s.handleUpdateLevelConfig))
	mux.HandleFunc("POST /v1/admin/signer", s.admin(s.handleSetBoostSigner))

	// Event stream
	if s.hub != nil {
		mux.HandleFunc("GET /ws", s.hub.ServeWS)
	}

	return mux
}

// instrument wraps a handler with request duration and error metrics.
func (s *Server) instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	if s.metrics == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		s.metrics.RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		if rec.status >= 400 {
			s.metrics.RequestErrors.WithLabelValues(endpoint).Inc()
		}
	}
}

// admin requires the bearer token before dispatching.
func (s *Server) admin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" {
			writeError(w, http.StatusForbidden, errors.New("admin endpoints disabled"))
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+s.adminToken {
			writeError(w, http.StatusUnauthorized, errors.New("invalid admin token"))
			return
		}
		next(w, r)
	}
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// errorResponse is the JSON body of every failed call.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeEngineError maps engine errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	writeError(w, engineStatus(err), err)
}

func engineStatus(err error) int {
	switch {
	case errors.Is(err, engine.ErrNoPositionExists),
		errors.Is(err, engine.ErrInvalidLevel),
		errors.Is(err, engine.ErrScanNotActive):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrPositionAlreadyExists),
		errors.Is(err, engine.ErrScanAlreadyActive),
		errors.Is(err, engine.ErrScanAlreadyFinalized),
		errors.Is(err, engine.ErrNonceAlreadyUsed):
		return http.StatusConflict
	case errors.Is(err, engine.ErrInvalidAmount),
		errors.Is(err, engine.ErrBelowMinimumStake),
		errors.Is(err, engine.ErrBatchTooLarge),
		errors.Is(err, engine.ErrUserNotDead),
		errors.Is(err, authgate.ErrInvalidSigner):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrPaused),
		errors.Is(err, engine.ErrPositionLocked),
		errors.Is(err, engine.ErrPositionDead):
		return http.StatusForbidden
	case errors.Is(err, engine.ErrScanNotReady),
		errors.Is(err, engine.ErrSystemResetNotReady),
		errors.Is(err, engine.ErrSubmissionWindowClosed),
		errors.Is(err, engine.ErrSubmissionWindowNotClosed):
		return http.StatusPreconditionFailed
	case errors.Is(err, engine.ErrNoBoostSigner),
		errors.Is(err, authgate.ErrInvalidSignature),
		errors.Is(err, authgate.ErrSignatureExpired):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// queryInt parses an integer query parameter.
func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, errors.New("missing query parameter: " + key)
	}
	return strconv.Atoi(raw)
}
