package http

import (
	"net"
	"net/http"
	"strings"

	"ledgerchat/internal/dispatch"
	"ledgerchat/internal/view"
)

// Server exposes the chat and dashboard API and pushes live view updates
// over websockets. It implements view.Renderer so the coordinator can hand
// it every new view.
type Server struct {
	http.Server

	dispatcher  *dispatch.Dispatcher
	coordinator *view.Coordinator
	rateLimiter *rateLimiter
	hub         *wsHub
}

func NewServer(addr string, dispatcher *dispatch.Dispatcher, coordinator *view.Coordinator) *Server {
	s := &Server{
		dispatcher:  dispatcher,
		coordinator: coordinator,
		rateLimiter: newRateLimiter(),
		hub:         newWSHub(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/message", s.handleMessage)
	mux.HandleFunc("/api/dashboard", s.handleDashboard)
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealthz)

	s.Server = http.Server{
		Addr:    addr,
		Handler: s.withMiddleware(mux),
	}
	return s
}

// Render implements view.Renderer by broadcasting the new view to every
// connected websocket client.
func (s *Server) Render(v view.View) {
	s.hub.broadcast(v)
}

// CloseClients shuts down the rate limiter and disconnects websocket clients.
func (s *Server) CloseClients() {
	s.rateLimiter.stop()
	s.hub.closeAll()
}

func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return traceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.allow(clientIP(r)) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		next.ServeHTTP(w, r)
	}))
}

// clientIP extracts the caller's address, honoring X-Forwarded-For from a
// fronting proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx > 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
