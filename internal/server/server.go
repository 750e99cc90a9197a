// Package server exposes the journal and the analysis cycle over a local
// HTTP JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/uhhbyss/PA-AIPJC/internal/classifier"
	"github.com/uhhbyss/PA-AIPJC/internal/insight"
	"github.com/uhhbyss/PA-AIPJC/internal/seed"
	"github.com/uhhbyss/PA-AIPJC/internal/store"
)

// Analyzer runs one analysis cycle. *insight.Orchestrator implements it.
type Analyzer interface {
	Run(ctx context.Context, req insight.Request) (*insight.Event, error)
}

type Server struct {
	store    *store.Store
	analyzer Analyzer
	defaults classifier.Options
	logger   *zap.Logger
	now      func() time.Time
	mux      *http.ServeMux
}

// New wires the routes. analyzer may be nil, in which case POST /analyze
// answers 503. defaults fill in mode and use_remote when a request omits
// them.
func New(s *store.Store, analyzer Analyzer, defaults classifier.Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &Server{
		store:    s,
		analyzer: analyzer,
		defaults: defaults,
		logger:   logger.Named("server"),
		now:      time.Now,
		mux:      http.NewServeMux(),
	}
	srv.routes()
	return srv
}

func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// ListenAndServe serves on addr until ctx is done, then shuts down within
// shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("aipjc: listen %s: %w", addr, err)
	}

	httpSrv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.Serve(ln)
	}()
	s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("aipjc: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /entries", s.handleCreateEntry)
	s.mux.HandleFunc("GET /entries", s.handleListEntries)
	s.mux.HandleFunc("GET /entries/{id}", s.handleGetEntry)
	s.mux.HandleFunc("PATCH /entries/{id}", s.handleUpdateEntry)
	s.mux.HandleFunc("DELETE /entries/{id}", s.handleDeleteEntry)
	s.mux.HandleFunc("GET /search", s.handleSearch)

	s.mux.HandleFunc("GET /loops", s.handleListLoops)
	s.mux.HandleFunc("POST /analyze", s.handleAnalyze)

	s.mux.HandleFunc("GET /stats", s.handleStats)
	s.mux.HandleFunc("POST /reset", s.handleReset)
	s.mux.HandleFunc("POST /seed", s.handleSeed)
	s.mux.HandleFunc("GET /export", s.handleExport)
	s.mux.HandleFunc("POST /import", s.handleImport)
}

// ─── Handlers ────────────────────────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok", "service": "aipjc"})
}

type createEntryRequest struct {
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ts := s.now()
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}

	id, err := s.store.InsertEntry(r.Context(), req.Content, ts)
	if err != nil {
		s.storeError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, map[string]any{"id": id, "status": "saved"})
}

// handleListEntries returns every entry oldest first, entries since a given
// RFC 3339 time with ?since=, or the newest N with ?limit=N.
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		entries []store.Entry
		err     error
	)
	switch {
	case q.Get("since") != "":
		since, perr := time.Parse(time.RFC3339, q.Get("since"))
		if perr != nil {
			jsonError(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		entries, err = s.store.ListEntriesSince(r.Context(), since)
	case q.Get("limit") != "":
		limit, ok := queryInt(w, r, "limit")
		if !ok {
			return
		}
		entries, err = s.store.RecentEntries(r.Context(), limit)
	default:
		entries, err = s.store.ListEntries(r.Context())
	}
	if err != nil {
		s.storeError(w, err)
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	jsonResponse(w, http.StatusOK, entries)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := s.store.GetEntry(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, e)
}

type updateEntryRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateEntryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.store.UpdateEntry(r.Context(), id, req.Content, s.now()); err != nil {
		s.storeError(w, err)
		return
	}
	e, err := s.store.GetEntry(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, e)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteEntry(r.Context(), id); err != nil {
		s.storeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"id": id, "status": "deleted"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		jsonError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := 10
	if r.URL.Query().Get("limit") != "" {
		var ok bool
		if limit, ok = queryInt(w, r, "limit"); !ok {
			return
		}
	}

	results, err := s.store.SearchEntries(r.Context(), query, limit)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if results == nil {
		results = []store.SearchResult{}
	}
	jsonResponse(w, http.StatusOK, results)
}

func (s *Server) handleListLoops(w http.ResponseWriter, r *http.Request) {
	status := store.LoopStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		jsonError(w, http.StatusBadRequest, "status must be active or resolved")
		return
	}
	loops, err := s.store.ListLoops(r.Context(), status)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if loops == nil {
		loops = []store.ThoughtLoop{}
	}
	jsonResponse(w, http.StatusOK, loops)
}

type analyzeRequest struct {
	Draft     string `json:"draft"`
	Mode      string `json:"mode"`
	UseRemote *bool  `json:"use_remote"`
}

// handleAnalyze runs a cycle bound to the request: a client that hangs up
// abandons the cycle and nothing from it is committed.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.analyzer == nil {
		jsonError(w, http.StatusServiceUnavailable, "analysis is not configured")
		return
	}

	var req analyzeRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	opts := s.defaults
	if req.Mode != "" {
		mode, err := classifier.ParseMode(req.Mode)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.Mode = mode
	}
	if req.UseRemote != nil {
		opts.UseRemote = *req.UseRemote
	}

	ev, err := s.analyzer.Run(r.Context(), insight.Request{Draft: req.Draft, Options: opts})
	switch {
	case errors.Is(err, insight.ErrCycleInFlight):
		jsonError(w, http.StatusConflict, "an analysis is already running")
		return
	case err != nil:
		s.logger.Info("analysis abandoned", zap.Error(err))
		jsonError(w, http.StatusServiceUnavailable, "analysis abandoned")
		return
	}
	jsonResponse(w, http.StatusOK, ev)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Reset(r.Context()); err != nil {
		s.storeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	n, err := seed.Load(r.Context(), s.store, s.now())
	if err != nil {
		s.storeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"status": "seeded", "entries": n})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.store.Export(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="aipjc-export.json"`)
	jsonResponse(w, http.StatusOK, data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var data store.ExportData
	if !decodeBody(w, r, &data) {
		return
	}
	result, err := s.store.Import(r.Context(), &data)
	if err != nil {
		s.storeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// storeError maps store sentinels to status codes and hides everything else
// behind a 500.
func (s *Server) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrEmptyContent),
		errors.Is(err, store.ErrContentTooLong),
		errors.Is(err, store.ErrEmptyTopic),
		errors.Is(err, store.ErrInvalidStatus):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrDuplicateTopic):
		jsonError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("store failure", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func jsonResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	jsonResponse(w, status, map[string]string{"error": msg})
}

const maxBodyBytes = 8 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func queryInt(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		jsonError(w, http.StatusBadRequest, key+" must be a positive integer")
		return 0, false
	}
	return n, true
}
