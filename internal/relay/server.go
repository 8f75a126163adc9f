package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"mql_bridge/internal/domain"
	"mql_bridge/internal/engine"
	"mql_bridge/internal/infra"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

// StateSource is the read side of the bridge served over HTTP.
type StateSource interface {
	State() engine.State
	Session() string
	OpenOrders() map[string]domain.Order
	AccountInfo() domain.AccountInfo
	MarketData() domain.MarketData
}

// newUpgrader accepts any Origin on a loopback listener (local dashboards
// served from other ports). Any other listener gets gorilla's same-origin check.
func newUpgrader(loopback bool) websocket.Upgrader {
	u := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if loopback {
		u.CheckOrigin = func(r *http.Request) bool { return true }
	}
	return u
}

// isLoopback reports whether addr ("host:port") only listens on loopback.
// An empty host binds every interface.
func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil || host == "" {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Server exposes the hub and bridge state over HTTP.
type Server struct {
	hub     *Hub
	state   StateSource
	metrics *infra.Metrics
	logger  *slog.Logger
	srv     *http.Server

	upgrader websocket.Upgrader
}

func NewServer(addr string, hub *Hub, state StateSource, metrics *infra.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		hub:     hub,
		state:   state,
		metrics: metrics,
		logger:  logger.With(slog.String("module", "relay_http")),
	}
	loopback := isLoopback(addr)
	if !loopback {
		s.logger.Warn("Relay listens beyond loopback, cross-origin websocket clients are rejected", slog.String("addr", addr))
	}
	s.upgrader = newUpgrader(loopback)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	r.Route("/state", func(r chi.Router) {
		r.Get("/orders", s.handleOrders)
		r.Get("/market", s.handleMarket)
	})
	r.Mount("/debug", middleware.Profiler()) // pprof
	return r
}

// ListenAndServe blocks until Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("Relay listening", slog.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"state":   s.state.State().String(),
		"session": s.state.Session(),
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"account_info": s.state.AccountInfo(),
		"orders":       s.state.OpenOrders(),
	})
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.MarketData())
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Failed to upgrade websocket", slog.Any("error", err))
		return
	}

	c := &client{
		hub:    s.hub,
		conn:   conn,
		send:   make(chan []byte, clientBuffer),
		remote: r.RemoteAddr,
	}
	select {
	case s.hub.register <- c:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
