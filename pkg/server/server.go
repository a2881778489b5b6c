// Package server exposes a diagram controller over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ha1tch/fsm-designer/pkg/diagram"
	"github.com/ha1tch/fsm-designer/pkg/docfile"
	"github.com/ha1tch/fsm-designer/pkg/interact"
)

// maxDocument bounds the size of an uploaded document.
const maxDocument = 8 << 20

// GraphSaver persists the graph after each change.
type GraphSaver interface {
	SaveGraph(ctx context.Context, slot string, g *diagram.Graph) error
}

// Server serves one diagram. All controller access goes through mu.
// Saves are serialised by saveMu and never go backwards in version.
type Server struct {
	mu      sync.Mutex
	ctrl    *interact.Controller
	log     *zap.Logger
	saver   GraphSaver
	slot    string
	title   string
	version uint64

	saveMu sync.Mutex
	saved  uint64
}

// snapshot is a copy of the graph taken under mu.
type snapshot struct {
	graph   *diagram.Graph
	version uint64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithSaver persists every committed change into slot.
func WithSaver(sv GraphSaver, slot string) Option {
	return func(s *Server) {
		s.saver = sv
		s.slot = slot
	}
}

// WithTitle sets the title used for DOT exports.
func WithTitle(t string) Option {
	return func(s *Server) { s.title = t }
}

// New creates a server around ctrl.
func New(ctrl *interact.Controller, opts ...Option) *Server {
	s := &Server{ctrl: ctrl, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/diagram", s.getDiagram)
		r.Put("/diagram", s.putDiagram)
		r.Post("/undo", s.undo)
		r.Post("/redo", s.redo)
		r.Post("/arrange", s.arrange)
	})

	r.Get("/export.svg", s.exportSVG)
	r.Get("/export.png", s.exportPNG)
	r.Get("/export.dot", s.exportDOT)

	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("serving", zap.String("addr", addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}

func (s *Server) getDiagram(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	doc := docfile.FromGraph(s.ctrl.Graph())
	s.mu.Unlock()
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) putDiagram(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxDocument))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	s.mu.Lock()
	err = s.ctrl.ReplaceDocument(data)
	doc := docfile.FromGraph(s.ctrl.Graph())
	snap := s.snapshot()
	s.mu.Unlock()
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.persist(r.Context(), snap)
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) undo(w http.ResponseWriter, r *http.Request) {
	s.step(w, r, s.ctrl.Undo)
}

func (s *Server) redo(w http.ResponseWriter, r *http.Request) {
	s.step(w, r, s.ctrl.Redo)
}

func (s *Server) step(w http.ResponseWriter, r *http.Request, fn func() bool) {
	s.mu.Lock()
	ok := fn()
	doc := docfile.FromGraph(s.ctrl.Graph())
	snap := s.snapshot()
	s.mu.Unlock()
	if !ok {
		s.respondError(w, http.StatusConflict, "nothing to apply")
		return
	}
	s.persist(r.Context(), snap)
	s.respondJSON(w, http.StatusOK, doc)
}

// arrange lays the diagram out; ?layout= picks layered (default), grid or
// circle.
func (s *Server) arrange(w http.ResponseWriter, r *http.Request) {
	layout := diagram.LayoutLayered
	if q := r.URL.Query().Get("layout"); q != "" {
		l, err := diagram.ParseLayout(q)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		layout = l
	}

	s.mu.Lock()
	s.ctrl.Arrange(layout)
	doc := docfile.FromGraph(s.ctrl.Graph())
	snap := s.snapshot()
	s.mu.Unlock()

	s.persist(r.Context(), snap)
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) exportSVG(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	svg := docfile.GenerateSVG(s.ctrl.Graph())
	s.mu.Unlock()

	w.Header().Set("Content-Type", "image/svg+xml")
	io.WriteString(w, svg)
}

func (s *Server) exportPNG(w http.ResponseWriter, r *http.Request) {
	scale := docfile.DefaultPNGScale
	if v := r.URL.Query().Get("scale"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 || f > 8 {
			s.respondError(w, http.StatusBadRequest, "scale must be a number in (0, 8]")
			return
		}
		scale = f
	}

	var buf bytes.Buffer
	s.mu.Lock()
	err := docfile.RenderPNG(s.ctrl.Graph(), &buf, scale)
	s.mu.Unlock()
	if errors.Is(err, docfile.ErrImageTooLarge) {
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		s.log.Error("png export failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

func (s *Server) exportDOT(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if title == "" {
		title = s.title
	}
	s.mu.Lock()
	dot := docfile.GenerateDOT(s.ctrl.Graph(), title)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/vnd.graphviz")
	io.WriteString(w, dot)
}

// snapshot copies the graph for persist. Callers hold mu.
func (s *Server) snapshot() snapshot {
	if s.saver == nil {
		return snapshot{}
	}
	s.version++
	return snapshot{graph: s.ctrl.Graph().Clone(), version: s.version}
}

// persist saves snap unless a newer snapshot has already been saved.
func (s *Server) persist(ctx context.Context, snap snapshot) {
	if s.saver == nil || snap.graph == nil {
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if snap.version <= s.saved {
		return
	}
	if err := s.saver.SaveGraph(ctx, s.slot, snap.graph); err != nil {
		s.log.Error("failed to persist diagram", zap.String("slot", s.slot), zap.Error(err))
		return
	}
	s.saved = snap.version
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("requestID", middleware.GetReqID(r.Context())),
		)
	})
}
