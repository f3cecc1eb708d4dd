// Package server exposes the analysis pipeline behind a small upload form.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/doc-analyzer/internal/config"
	"github.com/sells-group/doc-analyzer/internal/extract"
	"github.com/sells-group/doc-analyzer/internal/model"
	"github.com/sells-group/doc-analyzer/internal/pipeline"
)

// formOverhead is the multipart framing allowed on top of the file cap.
const formOverhead = 1 << 20

// Runner runs one upload through a pipeline.
type Runner interface {
	Run(ctx context.Context, pdf []byte, provider model.Provider) string
}

// RunnerFactory returns the Runner for a variant.
type RunnerFactory func(variant model.Variant) Runner

// Server serves the upload form, POST /analyze and GET /health.
type Server struct {
	runners  RunnerFactory
	maxBytes int64
	limiter  *rate.Limiter
	origins  []string
}

// New creates a Server. A zero RatePerMinute disables throttling and a
// maxBytes <= 0 disables the upload cap.
func New(cfg config.ServerConfig, maxBytes int64, runners RunnerFactory) *Server {
	s := &Server{
		runners:  runners,
		maxBytes: maxBytes,
		origins:  cfg.AllowedOrigins,
	}
	if cfg.RatePerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), cfg.RatePerMinute)
	}
	if len(s.origins) == 0 {
		s.origins = []string{"*"}
	}
	return s
}

// FromPipelines adapts pipelines keyed by variant into a RunnerFactory.
// Unknown variants get a pipeline that reports them as unsupported.
func FromPipelines(pipelines map[model.Variant]*pipeline.Pipeline) RunnerFactory {
	return func(v model.Variant) Runner {
		if p, ok := pipelines[v]; ok {
			return p
		}
		return unsupported(v)
	}
}

type unsupported model.Variant

func (u unsupported) Run(context.Context, []byte, model.Provider) string {
	return pipeline.FormatFailure(&pipeline.UnknownVariantError{Variant: model.Variant(u)})
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleForm)
	r.Get("/health", handleHealth)
	r.With(s.throttle).Post("/analyze", s.handleAnalyze)
	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"}) //nolint:errcheck
}

func (s *Server) handleForm(w http.ResponseWriter, _ *http.Request) {
	render(w, http.StatusOK, page{Providers: model.Providers()})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes+formOverhead)
	}
	if err := r.ParseMultipartForm(formOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.reply(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("%s File exceeds %d bytes.", pipeline.FailureMarker, s.maxBytes))
			return
		}
		s.reply(w, r, http.StatusBadRequest, pipeline.FailureMarker+" Invalid upload.")
		return
	}

	provider, err := model.ParseProvider(r.FormValue("provider"))
	if err != nil {
		s.reply(w, r, http.StatusBadRequest, pipeline.FailureMarker+" "+err.Error())
		return
	}
	variant, err := model.ParseVariant(r.FormValue("variant"))
	if err != nil {
		s.reply(w, r, http.StatusBadRequest, pipeline.FailureMarker+" "+err.Error())
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		s.reply(w, r, http.StatusBadRequest, pipeline.FailureMarker+" No file uploaded.")
		return
	}
	defer file.Close() //nolint:errcheck

	data, err := extract.ReadAll(file, s.maxBytes)
	if err != nil {
		s.reply(w, r, http.StatusRequestEntityTooLarge, pipeline.FailureMarker+" "+err.Error())
		return
	}

	out := s.runners(variant).Run(r.Context(), data, provider)
	s.reply(w, r, http.StatusOK, out)
}

// throttle rejects requests beyond the configured per-minute budget.
func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			zap.L().Warn("server: rate limit exceeded", zap.String("remote", r.RemoteAddr))
			w.Header().Set("Retry-After", "60")
			s.reply(w, r, http.StatusTooManyRequests, pipeline.FailureMarker+" Too many requests, try again in a minute.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// reply writes the result as plain text, or inside the form page for
// browser submissions.
func (s *Server) reply(w http.ResponseWriter, r *http.Request, status int, text string) {
	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		render(w, status, page{Providers: model.Providers(), Result: text})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprint(w, text) //nolint:errcheck
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("server: request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
