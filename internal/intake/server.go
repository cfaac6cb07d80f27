// Package intake is a small HTTP endpoint reports can be uploaded to.
// It exists for local development and testing of the upload path: it
// writes each uploaded report JSON into a directory and indexes it in
// the archive so `crashtrack report` can browse what arrived.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/renameio/v2"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/signalhouse/crashtrack/internal/core"
	"github.com/signalhouse/crashtrack/internal/crash"
	"github.com/signalhouse/crashtrack/internal/logging"
)

// maxReportBytes caps one uploaded report. Reports carry attached
// files, so the cap is generous.
const maxReportBytes = 64 << 20

// Server accepts crash report uploads.
type Server struct {
	router chi.Router
	dir    string
	store  core.ReportStore
	log    *logging.Logger
}

// NewServer creates an intake server writing into dir. store may be
// nil; uploads are then kept on disk only.
func NewServer(dir string, store core.ReportStore, log *logging.Logger) (*Server, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, core.ErrStorage(core.CodeSpoolUnwritable, "creating intake directory").WithCause(err)
	}
	s := &Server{dir: dir, store: store, log: log}
	s.router = s.setupRouter()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(s.loggingMiddleware)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Crashtrack-Api-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	r.Use(corsHandler.Handler)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/crash", s.handleCrash)
		r.Get("/crashes", s.handleListCrashes)
	})

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleCrash accepts one report upload. The body must be a report
// JSON document with a uuid; anything else is a 400.
func (s *Server) handleCrash(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxReportBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "reading request body")
		return
	}

	var report crash.Report
	if err := json.Unmarshal(body, &report); err != nil {
		respondError(w, http.StatusBadRequest, "body is not a crash report")
		return
	}
	if report.UUID == "" {
		respondError(w, http.StatusBadRequest, "report has no uuid")
		return
	}

	path := filepath.Join(s.dir, report.UUID+".json")
	if err := renameio.WriteFile(path, body, 0o640); err != nil {
		s.log.Error("writing uploaded report failed", "report_id", report.UUID, "error", err)
		respondError(w, http.StatusInternalServerError, "storing report")
		return
	}

	if s.store != nil {
		if err := s.store.Save(r.Context(), &report); err != nil {
			// The file on disk is authoritative; index failure is not fatal.
			s.log.Warn("indexing uploaded report failed", "report_id", report.UUID, "error", err)
		}
	}

	s.log.Info("report received", "report_id", report.UUID,
		"is_crash", report.IsCrash, "incomplete", report.Incomplete)
	respondJSON(w, http.StatusAccepted, map[string]string{"uuid": report.UUID})
}

func (s *Server) handleListCrashes(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondJSON(w, http.StatusOK, []crash.Summary{})
		return
	}
	sums, err := s.store.List(r.Context(), core.ReportFilter{})
	if err != nil {
		s.log.Error("listing reports failed", "error", err)
		respondError(w, http.StatusInternalServerError, "listing reports")
		return
	}
	if sums == nil {
		sums = []crash.Summary{}
	}
	respondJSON(w, http.StatusOK, sums)
}

// ListenAndServe runs the server until ctx is cancelled or SIGINT/
// SIGTERM arrives, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("starting intake server", "addr", addr, "dir", s.dir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
