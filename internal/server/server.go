// Package server implements the development composition server. It
// loads fragment templates into the registry, composes them into host
// pages rendered through a headless document, and pushes live reload
// notifications to browsers as templates change on disk.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/umbralabs/umbra/internal/config"
	"github.com/umbralabs/umbra/internal/errors"
	"github.com/umbralabs/umbra/internal/logging"
	"github.com/umbralabs/umbra/internal/registry"
	"github.com/umbralabs/umbra/internal/version"
	"github.com/umbralabs/umbra/internal/watcher"
)

// PreviewServer serves composed fragment pages with live reload.
type PreviewServer struct {
	config     *config.Config
	logger     logging.Logger
	registry   *registry.FragmentRegistry
	watcher    *watcher.FileWatcher
	loader     *Loader
	composer   *Composer
	loadErrors *errors.Collector

	httpServer  *http.Server
	serverMutex sync.RWMutex

	clients      map[*websocket.Conn]*Client
	clientsMutex sync.RWMutex
	broadcast    chan []byte
	register     chan *Client
	unregister   chan *websocket.Conn

	done         chan struct{}
	shutdownOnce sync.Once
}

// New assembles a server from the configuration. Nothing is loaded or
// listening until Start.
func New(cfg *config.Config, logger logging.Logger) (*PreviewServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = logging.NewLogger(nil)
	}

	debounce := time.Duration(cfg.Dev.DebounceMS) * time.Millisecond
	fw, err := watcher.NewFileWatcher(debounce)
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	fw.SetLogger(logger.WithComponent("watcher"))

	reg := registry.NewFragmentRegistry()
	loadErrors := errors.NewCollector()

	return &PreviewServer{
		config:     cfg,
		logger:     logger.WithComponent("server"),
		registry:   reg,
		watcher:    fw,
		loader:     NewLoader(cfg, reg, loadErrors, logger),
		composer:   NewComposer(cfg, reg, logger),
		loadErrors: loadErrors,
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
	}, nil
}

// Registry exposes the fragment registry backing the server.
func (s *PreviewServer) Registry() *registry.FragmentRegistry {
	return s.registry
}

// Start loads fragments, begins watching templates, and serves until
// the listener is shut down.
func (s *PreviewServer) Start(ctx context.Context) error {
	loaded := s.loader.LoadAll(ctx)
	s.logger.Info(ctx, "fragments loaded", "count", loaded, "failed", len(s.loadErrors.Errors()))

	if err := s.setupWatcher(ctx); err != nil {
		return err
	}
	go s.runHub(ctx)

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.serverMutex.Lock()
	s.httpServer = srv
	s.serverMutex.Unlock()

	s.logger.Info(ctx, "composition server listening", "addr", addr, "fragments", s.registry.Count())
	if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown stops the watcher, disconnects reload clients, and shuts
// the HTTP listener down. Safe to call more than once.
func (s *PreviewServer) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		close(s.done)

		if werr := s.watcher.Stop(); werr != nil {
			s.logger.Warn(ctx, werr, "watcher stop failed")
		}

		s.clientsMutex.Lock()
		for conn, client := range s.clients {
			close(client.send)
			conn.Close(websocket.StatusGoingAway, "server shutting down")
		}
		s.clients = make(map[*websocket.Conn]*Client)
		s.clientsMutex.Unlock()

		s.serverMutex.RLock()
		srv := s.httpServer
		s.serverMutex.RUnlock()
		if srv != nil {
			err = srv.Shutdown(ctx)
		}
	})
	return err
}

// setupWatcher points the file watcher at the fragments directory and
// wires template changes back into the loader.
func (s *PreviewServer) setupWatcher(ctx context.Context) error {
	dir := s.config.Fragments.Dir
	if filepath.IsAbs(dir) {
		if err := s.watcher.SetRoot(dir); err != nil {
			return err
		}
	}
	s.watcher.AddFilter(watcher.TemplateFilter)
	s.watcher.AddFilter(watcher.NoTempFilter)
	s.watcher.AddFilter(watcher.NoHiddenFilter)
	s.watcher.AddHandler(s.handleFileChanges)
	if err := s.watcher.AddRecursive(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	return s.watcher.Start(ctx)
}

// handleFileChanges is the watcher callback. Deleted templates drop
// their fragments; everything else funnels through a full reload of
// the configured entries. Reloading the whole entry set instead of
// trusting event bookkeeping means the content hash keeps untouched
// templates cheap and the collector converges to exactly the entries
// that fail to load.
func (s *PreviewServer) handleFileChanges(events []watcher.ChangeEvent) error {
	ctx := context.Background()

	changed := make(map[string]struct{})
	for _, event := range events {
		var names []string
		switch event.Type {
		case watcher.EventTypeDeleted, watcher.EventTypeRenamed:
			names = s.loader.RemovePath(ctx, event.Path)
		default:
			names = s.loader.NamesForPath(event.Path)
		}
		if len(names) == 0 {
			continue
		}
		s.logger.Info(ctx, "template changed", "path", event.Path, "event", event.Type.String(), "fragments", strings.Join(names, ","))
		for _, name := range names {
			changed[name] = struct{}{}
		}
	}

	s.loadErrors.Clear()
	s.loader.LoadAll(ctx)

	if len(changed) == 0 {
		return nil
	}

	direct := make([]string, 0, len(changed))
	for name := range changed {
		direct = append(direct, name)
	}
	for _, name := range direct {
		for _, dep := range s.registry.Dependents(name) {
			changed[dep] = struct{}{}
		}
	}
	targets := make([]string, 0, len(changed))
	for name := range changed {
		targets = append(targets, name)
	}
	sort.Strings(targets)

	if errs := s.loadErrors.Errors(); len(errs) > 0 {
		s.broadcastMessage(UpdateMessage{
			Type:    "fragment_error",
			Target:  strings.Join(targets, ","),
			Content: fmt.Sprintf("%d template errors", len(errs)),
		})
		return nil
	}
	s.broadcastMessage(UpdateMessage{
		Type:   "fragment_update",
		Target: strings.Join(targets, ","),
	})
	return nil
}

func (s *PreviewServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logRequests)
	r.Use(s.corsHeaders)

	r.Get("/", s.handleIndex)
	r.Get("/fragments/{name}", s.handleFragment)
	r.Get("/api/fragments", s.handleFragmentList)
	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)
	return r
}

func (s *PreviewServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug(r.Context(), "request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start).String())
	})
}

func (s *PreviewServer) corsHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.isAllowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isAllowedOrigin reports whether a browser origin may talk to the
// server. The server's own host is always allowed, as are localhost
// spellings of its port; anything else must appear in the configured
// allow list. A configured "*" admits every origin.
func (s *PreviewServer) isAllowedOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := u.Host

	port := strconv.Itoa(s.config.Server.Port)
	for _, local := range []string{
		s.config.Server.Host + ":" + port,
		"localhost:" + port,
		"127.0.0.1:" + port,
	} {
		if host == local {
			return true
		}
	}

	for _, allowed := range s.config.Server.AllowedOrigins {
		if allowed == "*" {
			return true
		}
		if allowed == origin || allowed == host {
			return true
		}
		if au, err := url.Parse(allowed); err == nil && au.Host != "" && au.Host == host {
			return true
		}
	}
	return false
}

func (s *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	col := errors.NewCollector()
	col.Merge(s.loadErrors)

	page, err := s.composer.ComposeAll(r.Context(), col)
	if err != nil {
		s.renderComposeFailure(w, r, col, err)
		return
	}
	s.writeHTML(w, http.StatusOK, page)
}

func (s *PreviewServer) handleFragment(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	col := errors.NewCollector()
	col.Merge(s.loadErrors)

	page, err := s.composer.ComposeOne(r.Context(), name, col)
	if err != nil {
		if stderrors.Is(err, ErrUnknownFragment) {
			http.Error(w, fmt.Sprintf("unknown fragment %q", name), http.StatusNotFound)
			return
		}
		s.renderComposeFailure(w, r, col, err)
		return
	}
	s.writeHTML(w, http.StatusOK, page)
}

// renderComposeFailure serves the overlay-only error page. Composition
// failures are development states, not blank 500s.
func (s *PreviewServer) renderComposeFailure(w http.ResponseWriter, r *http.Request, col *errors.Collector, err error) {
	s.logger.Error(r.Context(), err, "composition failed", "path", r.URL.Path)
	col.Add(errors.RenderError{Op: "compose", Message: err.Error(), Severity: errors.SeverityError})
	page := s.composer.ErrorPage(r.Context(), col)
	s.writeHTML(w, http.StatusInternalServerError, page)
}

// fragmentSummary is one row in the fragment listing.
type fragmentSummary struct {
	Name         string    `json:"name"`
	Tag          string    `json:"tag"`
	Template     string    `json:"template"`
	Selector     string    `json:"selector,omitempty"`
	Mode         string    `json:"mode"`
	Kind         string    `json:"kind"`
	Hash         string    `json:"hash,omitempty"`
	Dependencies []string  `json:"dependencies,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (s *PreviewServer) handleFragmentList(w http.ResponseWriter, r *http.Request) {
	all := s.registry.GetAll()
	summaries := make([]fragmentSummary, 0, len(all))
	for _, name := range s.registry.Names() {
		f, ok := all[name]
		if !ok {
			continue
		}
		summaries = append(summaries, fragmentSummary{
			Name:         f.Name,
			Tag:          f.Tag,
			Template:     f.TemplatePath,
			Selector:     f.Selector,
			Mode:         f.Mode.String(),
			Kind:         f.Kind.String(),
			Hash:         f.Hash,
			Dependencies: f.Dependencies,
			UpdatedAt:    f.LastMod,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"fragments": summaries,
		"count":     len(summaries),
		"timestamp": time.Now().UTC(),
	})
}

func (s *PreviewServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	loaderCheck := map[string]any{"status": "healthy"}
	if errs := s.loadErrors.Errors(); len(errs) > 0 {
		status = "degraded"
		loaderCheck = map[string]any{"status": "degraded", "failures": len(errs)}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   version.Short(),
		"checks": map[string]any{
			"registry": map[string]any{"status": "healthy", "fragments": s.registry.Count()},
			"loader":   loaderCheck,
			"reload":   map[string]any{"status": "healthy", "clients": s.clientCount()},
		},
	})
}

func (s *PreviewServer) writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (s *PreviewServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn(context.Background(), err, "failed to encode response")
	}
}
