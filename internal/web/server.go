package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
	"wisecal/internal/domain"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type StatusReader interface {
	View() domain.StatusView
}

type Triggerer interface {
	Trigger() bool
}

type Server struct {
	srv *http.Server
}

func NewRouter(status StatusReader, trigger Triggerer) *mux.Router {
	r := mux.NewRouter()
	r.Use(logger)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, status.View())
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/sync", func(w http.ResponseWriter, _ *http.Request) {
		if !trigger.Trigger() {
			writeJSON(w, http.StatusConflict, map[string]string{"status": "running"})
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	}).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func New(addr string, status StatusReader, trigger Triggerer) *Server {
	return &Server{srv: &http.Server{
		Addr:         addr,
		Handler:      NewRouter(status, trigger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}}
}

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.srv.Addr).Msg("status server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("status server error")
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("error writing response")
	}
}

type recorder struct {
	http.ResponseWriter
	code int
}

func (r *recorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &recorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.code).
			Dur("took", time.Since(start)).
			Msg("http request")
	})
}
