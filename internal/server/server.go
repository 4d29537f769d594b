// Package server exposes one analysis session over a small JSON API used by
// the correction UI.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KaramelBytes/classreport-cli/internal/grades"
	"github.com/KaramelBytes/classreport-cli/internal/report"
	"github.com/KaramelBytes/classreport-cli/internal/session"
)

const (
	maxUploadBytes = 32 << 20
	xlsxType       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Config wires a Server.
type Config struct {
	Session *session.Session
	Logger  *slog.Logger
	// Registry receives the metrics; nil means a fresh registry.
	Registry       *prometheus.Registry
	AllowedOrigins []string
	// Policies are the tier policies a client may switch to.
	Policies []grades.TierPolicy
}

// Server serializes every access to its session with one mutex.
type Server struct {
	mu       sync.Mutex
	sess     *session.Session
	log      *slog.Logger
	metrics  *Metrics
	reg      *prometheus.Registry
	origins  []string
	policies []grades.TierPolicy
}

// New creates a server around cfg.Session.
func New(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	policies := cfg.Policies
	if len(policies) == 0 {
		policies = grades.Policies()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	return &Server{
		sess:     cfg.Session,
		log:      log,
		metrics:  NewMetrics(reg),
		reg:      reg,
		origins:  origins,
		policies: policies,
	}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/sources", s.uploadSources)
		r.Get("/analysis", s.getAnalysis)
		r.Get("/matrix", s.getMatrix)
		r.Put("/matrix", s.putMatrix)
		r.Post("/undo", s.undo)
		r.Get("/policies", s.listPolicies)
		r.Put("/settings", s.putSettings)
		r.Get("/report.xlsx", s.reportXLSX)
		r.Get("/report.md", s.reportMarkdown)
		r.Get("/matrix.xlsx", s.matrixXLSX)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr, "session", s.sess.ID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

type analysisResponse struct {
	Version  int               `json:"version"`
	Sources  []string          `json:"sources,omitempty"`
	Warnings []session.Warning `json:"warnings"`
	Analysis grades.Analysis   `json:"analysis"`
}

type matrixResponse struct {
	Version int           `json:"version"`
	Matrix  grades.Matrix `json:"matrix"`
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	v := s.sess.Version()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "session": s.sess.ID, "version": v})
}

// uploadSources ingests multipart "files". With ?mode=append the batch is
// merged into the current dataset instead of replacing it.
func (s *Server) uploadSources(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload: "+err.Error())
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, `no files in form field "files"`)
		return
	}
	inputs := make([]session.Input, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s: %v", fh.Filename, err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s: %v", fh.Filename, err))
			return
		}
		inputs = append(inputs, session.Input{Name: fh.Filename, Data: data})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		snap *session.Snapshot
		err  error
	)
	trigger := string(session.OriginIngest)
	if r.URL.Query().Get("mode") == "append" {
		trigger = string(session.OriginAppend)
		snap, err = s.sess.Append(r.Context(), inputs)
	} else {
		snap, err = s.sess.Ingest(r.Context(), inputs)
	}
	if err != nil {
		var be *session.BatchError
		if errors.As(err, &be) {
			s.metrics.observeSources(0, warningKinds(be.Warnings))
			s.metrics.EmptyBatches.Inc()
		}
		s.fail(w, r, err)
		return
	}
	s.metrics.observeSources(len(snap.Sources), warningKinds(snap.Warnings))
	s.metrics.Recomputations.WithLabelValues(trigger).Inc()
	s.respondAnalysis(w, r, http.StatusCreated, snap)
}

func (s *Server) getAnalysis(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.sess.Current()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondAnalysis(w, r, http.StatusOK, snap)
}

func (s *Server) getMatrix(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.sess.Analysis()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matrixResponse{Version: s.sess.Version(), Matrix: a.Matrix})
}

type matrixRequest struct {
	// Version, when set, must match the current version.
	Version int           `json:"version"`
	Matrix  grades.Matrix `json:"matrix"`
}

func (s *Server) putMatrix(w http.ResponseWriter, r *http.Request) {
	var req matrixRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid matrix: "+err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.sess.Current(); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Version != 0 && req.Version != s.sess.Version() {
		writeError(w, http.StatusConflict, fmt.Sprintf("matrix was edited from version %d, current is %d", req.Version, s.sess.Version()))
		return
	}
	snap, err := s.sess.Correct(req.Matrix)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.Recomputations.WithLabelValues(string(session.OriginCorrection)).Inc()
	s.respondAnalysis(w, r, http.StatusOK, snap)
}

func (s *Server) undo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.sess.Current(); err != nil {
		s.fail(w, r, err)
		return
	}
	snap, err := s.sess.Undo()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.Recomputations.WithLabelValues("undo").Inc()
	s.respondAnalysis(w, r, http.StatusOK, snap)
}

func (s *Server) listPolicies(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	current := s.sess.Options().Policy.Name
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"current": current, "policies": s.policies})
}

type settingsRequest struct {
	Threshold *float64 `json:"threshold"`
	Policy    string   `json:"policy"`
}

// putSettings changes the pass mark or tier policy. The dataset is untouched.
func (s *Server) putSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings: "+err.Error())
		return
	}
	if req.Threshold != nil && *req.Threshold <= 0 {
		writeError(w, http.StatusBadRequest, "threshold must be positive")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.Policy != "" {
		p, ok := s.policy(req.Policy)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown policy %q", req.Policy))
			return
		}
		if err := s.sess.SetPolicy(p); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	if req.Threshold != nil {
		s.sess.SetThreshold(*req.Threshold)
	}
	snap, err := s.sess.Current()
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"policy": s.sess.Options().Policy.Name, "threshold": s.sess.Options().Threshold})
		return
	}
	s.respondAnalysis(w, r, http.StatusOK, snap)
}

func (s *Server) policy(name string) (grades.TierPolicy, bool) {
	for _, p := range s.policies {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return grades.TierPolicy{}, false
}

func (s *Server) reportXLSX(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	a, err := s.sess.Analysis()
	s.mu.Unlock()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	f, err := report.Workbook(a)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition", `attachment; filename="class-report.xlsx"`)
	if err := f.Write(w); err != nil {
		s.log.Error("write workbook", "err", err)
	}
}

func (s *Server) reportMarkdown(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	a, err := s.sess.Analysis()
	s.mu.Unlock()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = io.WriteString(w, report.Markdown(a))
}

func (s *Server) matrixXLSX(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	a, err := s.sess.Analysis()
	s.mu.Unlock()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	b, err := report.MatrixBytes("matrix.xlsx", a.Matrix)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition", `attachment; filename="matrix.xlsx"`)
	_, _ = w.Write(b)
}

func (s *Server) respondAnalysis(w http.ResponseWriter, r *http.Request, status int, snap *session.Snapshot) {
	a, err := s.sess.Analysis()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	warnings := snap.Warnings
	if warnings == nil {
		warnings = []session.Warning{}
	}
	writeJSON(w, status, analysisResponse{
		Version:  snap.Version,
		Sources:  snap.Sources,
		Warnings: warnings,
		Analysis: a,
	})
}

func warningKinds(ws []session.Warning) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = string(w.Kind)
	}
	return out
}
