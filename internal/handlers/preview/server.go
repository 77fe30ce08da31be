package preview

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"

	"timelapse-desktop/internal/cache"
	"timelapse-desktop/internal/earthengine"
)

// Server serves cached frames and on-demand window previews to the frontend
// over a local HTTP server
type Server struct {
	ctx        context.Context
	session    *earthengine.Session
	frameCache *cache.FrameCache
	serverURL  string
	httpServer *http.Server
}

// NewServer creates a new preview server instance
func NewServer(ctx context.Context, session *earthengine.Session, frameCache *cache.FrameCache) *Server {
	return &Server{
		ctx:        ctx,
		session:    session,
		frameCache: frameCache,
	}
}

// GetServerURL returns the preview server URL
func (s *Server) GetServerURL() string {
	return s.serverURL
}

// corsMiddleware adds CORS headers to allow requests from Wails frontend
// On macOS/Linux, Wails uses wails://wails origin which requires CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Allow all origins (needed for wails://wails on macOS/Linux)
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")

		// Handle preflight OPTIONS request
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Start starts a local HTTP server on a random port
func (s *Server) Start() error {
	// Create a new mux to avoid global state conflicts
	mux := http.NewServeMux()
	mux.HandleFunc("/frames/", s.handleFrame)
	mux.HandleFunc("/preview", s.handlePreview)

	// Listen on a random available port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to start preview server: %w", err)
	}

	port := listener.Addr().(*net.TCPAddr).Port
	s.serverURL = fmt.Sprintf("http://127.0.0.1:%d", port)
	log.Printf("[PreviewServer] Started on %s", s.serverURL)

	// Wrap mux with CORS middleware
	s.httpServer = &http.Server{
		Handler: corsMiddleware(mux),
	}

	// Start server in goroutine
	go func() {
		if err := s.httpServer.Serve(listener); err != nil {
			log.Printf("[PreviewServer] Stopped: %v", err)
		}
	}()

	return nil
}

// Stop shuts the server down
func (s *Server) Stop() {
	if s.httpServer != nil {
		s.httpServer.Close()
	}
}
