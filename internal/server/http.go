package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
)

// Server binds the dispatcher to HTTP routes.
type Server struct {
	dispatcher *Dispatcher
	debug      bool
}

// NewServer wraps a dispatcher for HTTP serving. Debug enables
// per-request envelope logging.
func NewServer(d *Dispatcher, debug bool) *Server {
	return &Server{dispatcher: d, debug: debug}
}

// Handler returns the route table:
//
//	POST /rpc    - request envelope dispatch
//	GET  /health - liveness probe
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", s.handleRPC)
	mux.HandleFunc("/health", handleHealth)
	return mux
}

// handleRPC decodes one request envelope, dispatches it, and writes the
// response envelope. Every request gets a correlation ID for log
// matching.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reqID := uuid.NewString()

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("rpc[%s] bad envelope: %v", reqID, err)
		http.Error(w, "invalid request envelope", http.StatusBadRequest)
		return
	}

	if s.debug {
		log.Printf("rpc[%s] get=%v set=%v delete=%v", reqID, req.Get != nil, req.Set != nil, req.Delete != nil)
	}

	resp := s.dispatcher.Dispatch(req)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("rpc[%s] write error: %v", reqID, err)
	}
}

// handleHealth reports liveness for monitoring.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
