// Package devserver serves a project's resolved middleware chain over HTTP
// for local development, alongside introspection endpoints exposing the
// resolution result.
package devserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/ui5-community/plugin-loader/pkg/dispatch"
	"github.com/ui5-community/plugin-loader/pkg/extension"
	"github.com/ui5-community/plugin-loader/pkg/host"
	"github.com/ui5-community/plugin-loader/pkg/ordergraph"
	"github.com/ui5-community/plugin-loader/pkg/pipeline"
)

// requestIDHeader carries the per-request UUID on responses.
const requestIDHeader = "X-Request-Id"

// Server hosts one project's composed middleware chain.
type Server struct {
	attachment *host.Attachment
	router     chi.Router
	logger     *log.Logger
}

// New resolves and mounts the project's extensions and builds the router.
func New(ctx context.Context, opts host.Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	att, err := host.Attach(ctx, opts)
	if err != nil {
		return nil, err
	}

	s := &Server{attachment: att, logger: logger}
	s.router = s.buildRouter()

	logger.Info("dev server ready",
		"run_id", att.RunID,
		"mounted", len(att.Loaded),
		"skipped", len(att.Skipped))
	return s, nil
}

// Attachment exposes the underlying resolution result.
func (s *Server) Attachment() *host.Attachment { return s.attachment }

// Handler returns the complete router: introspection endpoints plus the
// extension chain handling everything else.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks serving on addr until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	s.logger.Info("listening", "addr", addr)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(chimiddleware.Recoverer)

	r.Route("/_loader", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/extensions", s.handleExtensions)
		r.Get("/graph.dot", s.handleGraphDOT)
		r.Get("/graph.svg", s.handleGraphSVG)
	})

	// Everything else goes through the extension chain.
	r.Handle("/*", s.attachment.Handler)
	return r
}

// requestID tags every request and response with a UUID.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// statusResponse is the JSON body of GET /_loader/status.
type statusResponse struct {
	RunID      string          `json:"run_id"`
	Middleware []string        `json:"middleware"`
	Tasks      []string        `json:"tasks"`
	Mounted    []string        `json:"mounted"`
	Skipped    []skipResponse  `json:"skipped,omitempty"`
	Warnings   []string        `json:"warnings,omitempty"`
	Stats      *pipeline.Stats `json:"stats,omitempty"`
}

type skipResponse struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	att := s.attachment
	resp := statusResponse{
		RunID:      att.RunID,
		Middleware: descriptorNames(att.Middleware),
		Tasks:      descriptorNames(att.Tasks),
		Mounted:    loadedNames(att.Loaded),
		Warnings:   att.Warnings,
		Stats:      &att.Stats,
	}
	for _, skip := range att.Skipped {
		resp.Skipped = append(resp.Skipped, skipResponse{Name: skip.Name, Reason: skip.Reason.Error()})
	}
	s.writeJSON(w, resp)
}

func (s *Server) handleExtensions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.attachment.Middleware)
}

func (s *Server) handleGraphDOT(w http.ResponseWriter, r *http.Request) {
	dot := ordergraph.ToDOT(s.allDescriptors(), ordergraph.Options{Detailed: r.URL.Query().Get("detailed") == "true"})
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	_, _ = w.Write([]byte(dot))
}

func (s *Server) handleGraphSVG(w http.ResponseWriter, r *http.Request) {
	dot := ordergraph.ToDOT(s.allDescriptors(), ordergraph.Options{})
	svg, err := ordergraph.RenderSVG(dot)
	if err != nil {
		s.logger.Error("render order graph", "err", err)
		http.Error(w, "graph rendering failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}

func (s *Server) allDescriptors() []extension.Descriptor {
	att := s.attachment
	out := make([]extension.Descriptor, 0, len(att.Middleware)+len(att.Tasks))
	out = append(out, att.Middleware...)
	return append(out, att.Tasks...)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "err", err)
	}
}

func descriptorNames(list []extension.Descriptor) []string {
	out := make([]string, len(list))
	for i, d := range list {
		out[i] = d.Name
	}
	return out
}

func loadedNames(list []dispatch.Named) []string {
	out := make([]string, len(list))
	for i, n := range list {
		out[i] = n.Name
	}
	return out
}
