package status

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mcdev12/streamagenda/go/internal/agenda"
	"github.com/mcdev12/streamagenda/go/internal/models"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// StateProvider exposes the live session state.
type StateProvider interface {
	State() agenda.State
}

// AddonProvider exposes the addon states of the room.
type AddonProvider interface {
	Snapshot() map[string]models.AddonState
}

// Server serves read-only session state for overlays and health checks.
type Server struct {
	session StateProvider
	addons  AddonProvider
}

// NewServer creates a status server. addons may be nil.
func NewServer(session StateProvider, addons AddonProvider) *Server {
	return &Server{session: session, addons: addons}
}

// Handler returns the routes wrapped with CORS and h2c.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodHead, http.MethodGet},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	return h2c.NewHandler(c.Handler(mux), &http2.Server{})
}

// RegisterRoutes registers the status routes with an HTTP mux
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("GET /addons", s.handleAddons)
}

// HTTPServer builds the listener for port.
func (s *Server) HTTPServer(port int) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := Check(s.session.State())
	code := http.StatusOK
	if !health.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, health)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.State())
}

func (s *Server) handleAddons(w http.ResponseWriter, r *http.Request) {
	if s.addons == nil {
		http.Error(w, "addon tracking disabled", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.addons.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode status response")
	}
}
