package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dbehnke/dsd-nexus/pkg/config"
	"github.com/dbehnke/dsd-nexus/pkg/database"
	"github.com/dbehnke/dsd-nexus/pkg/event"
	"github.com/dbehnke/dsd-nexus/pkg/logger"
	"github.com/dbehnke/dsd-nexus/pkg/trunk"
)

// Server represents the web dashboard HTTP server
type Server struct {
	config config.WebConfig
	logger *logger.Logger
	server *http.Server
	hub    *WebSocketHub
	api    *API
	addr   string
	mu     sync.RWMutex

	smProvider     *trunk.StateMachine
	eventsProvider *event.Publisher
}

// spaHandler wraps an http.FileSystem to serve a Single Page Application.
// It tries to serve the requested file, and if not found, serves index.html instead.
// This is necessary for client-side routing (e.g., Vue Router with HTML5 history mode).
func spaHandler(fsys http.FileSystem) http.Handler {
	fileServer := http.FileServer(fsys)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Try to open the requested file
		path := r.URL.Path
		if path == "/" {
			path = "/index.html"
		}
		f, err := fsys.Open(path)
		if err == nil {
			// File exists, serve it normally
			f.Close()
			fileServer.ServeHTTP(w, r)
			return
		}

		// File not found, serve index.html for SPA routing
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}

// NewServer creates a new web server instance
func NewServer(cfg config.WebConfig, log *logger.Logger) *Server {
	return &Server{
		config: cfg,
		logger: log,
		hub:    NewWebSocketHub(log),
		api:    NewAPI(log),
	}
}

// WithTrunk injects the trunk state machine for API/websocket exposure.
func (s *Server) WithTrunk(sm *trunk.StateMachine) *Server {
	s.smProvider = sm
	s.api.SetDeps(sm, s.eventsProvider)
	return s
}

// WithEvents injects the event publisher for API/websocket exposure.
func (s *Server) WithEvents(pub *event.Publisher) *Server {
	s.eventsProvider = pub
	s.api.SetDeps(s.smProvider, pub)
	return s
}

// WithCallRecordRepo injects the call-history repository for API exposure.
func (s *Server) WithCallRecordRepo(repo *database.CallRecordRepository) *Server {
	s.api.SetCallRecordRepo(repo)
	return s
}

// Start starts the web server
func Start(ctx context.Context, cfg config.WebConfig, log *logger.Logger) error {
	srv := NewServer(cfg, log)
	return srv.Start(ctx)
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Web server is disabled")
		return nil
	}

	// Start WebSocket hub
	go s.hub.Run(ctx)
	// Broadcast a periodic trunk/iden/patch snapshot so clients can
	// render a live view without polling the REST endpoints.
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.broadcastSnapshot()
			}
		}
	}()

	// Create HTTP router
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", s.handleHealth)

	// API endpoints
	mux.HandleFunc("/api/status", s.api.HandleStatus)
	mux.HandleFunc("/api/trunk", s.api.HandleTrunk)
	mux.HandleFunc("/api/iden", s.api.HandleIden)
	mux.HandleFunc("/api/patch", s.api.HandlePatch)
	mux.HandleFunc("/api/events", s.api.HandleEvents)
	mux.HandleFunc("/api/calls", s.api.HandleCallHistory)

	// WebSocket endpoint
	mux.Handle("/ws", s.hub.Handler())

	// Try embedded static assets first (built into the binary via go:embed)
	if fsys, err := embeddedStaticFS(); err == nil && fsys != nil {
		s.logger.Info("Serving embedded frontend assets")
		mux.Handle("/", spaHandler(fsys))
	} else {
		// Fallback to filesystem directory
		staticDir := "frontend/dist"
		if fi, err := os.Stat(staticDir); err == nil && fi.IsDir() {
			s.logger.Info("Serving static frontend assets", logger.String("dir", staticDir))
			mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
				// Clean the path and try to serve the requested file
				reqPath := filepath.Clean(r.URL.Path)
				// Disallow path traversal outside staticDir
				if reqPath == "/" {
					http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
					return
				}
				// Trim leading '/'
				if len(reqPath) > 0 && reqPath[0] == '/' {
					reqPath = reqPath[1:]
				}
				fullPath := filepath.Join(staticDir, reqPath)
				if fi, err := os.Stat(fullPath); err == nil && !fi.IsDir() {
					http.ServeFile(w, r, fullPath)
					return
				}
				// Fallback to index.html for SPA routes
				http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
			})
		} else {
			s.logger.Info("No static frontend assets found; SPA not served", logger.String("dir", staticDir))
		}
	}

	// Determine address
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	// Create HTTP server
	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start listener to get actual address (especially for port 0)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	// Store the actual address
	s.mu.Lock()
	s.addr = listener.Addr().String()
	s.mu.Unlock()

	s.logger.Info("Starting web server",
		logger.String("address", s.addr))

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// broadcastSnapshot pushes the trunk SM's current role/frequencies and
// the patch table over the websocket hub, the "double-buffered snapshot"
// SPEC_FULL.md §6 describes: readers always see a complete, internally
// consistent view rather than a field-by-field stream of mutations.
func (s *Server) broadcastSnapshot() {
	if s.smProvider == nil {
		return
	}
	sm := s.smProvider
	patch := make([]PatchEntryDTO, 0)
	if sm.Patch != nil {
		for _, e := range sm.Patch.Snapshot() {
			patch = append(patch, PatchEntryDTO{SG: e.SG, Members: e.Members, Active: e.Active})
		}
	}
	s.hub.Broadcast(Event{
		Type:      "trunk_snapshot",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"trunk": TrunkStatusDTO{
				Role:        int(sm.Role),
				CurrentCC:   sm.CurrentCC(),
				VCFrequency: []uint64{sm.VCFrequency(0), sm.VCFrequency(1)},
			},
			"patch": patch,
		},
	})
}

// GetAddr returns the address the server is listening on
func (s *Server) GetAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// GetHub returns the WebSocket hub
func (s *Server) GetHub() *WebSocketHub {
	return s.hub
}

// GetAPI returns the API instance
func (s *Server) GetAPI() *API {
	return s.api
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "dsd-nexus",
		"time":    time.Now().Unix(),
	}); err != nil {
		s.logger.Warn("Failed to encode health response", logger.Error(err))
	}
}
