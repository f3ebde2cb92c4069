// Package server exposes the registry's books over a REST API and a
// websocket stream. It only ever reads cloned views; ingestion is never
// blocked by a slow client.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"lighterbook/internal/config"
	"lighterbook/internal/registry"
)

// Server serves book queries and streams book updates.
type Server struct {
	reg *registry.Registry
	cfg config.ServerConfig
	log zerolog.Logger

	upgrader   websocket.Upgrader
	clientsMux sync.Mutex
	clients    map[*websocket.Conn]struct{}
}

// New creates a server around a registry.
func New(reg *registry.Registry, cfg config.ServerConfig, log zerolog.Logger) *Server {
	return &Server{
		reg:     reg,
		cfg:     cfg,
		log:     log.With().Str("component", "server").Logger(),
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/books", s.handleBooks).Methods(http.MethodGet)
	r.HandleFunc("/api/books/{market}", s.handleBook).Methods(http.MethodGet)
	r.HandleFunc("/api/books/{market}/depth", s.handleDepth).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWebSocket)
	return r
}

// Run serves HTTP until ctx is cancelled, pushing registry updates to
// websocket clients in the background.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: s.Router(),
	}

	go s.streamUpdates(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info().Int("port", s.cfg.Port).Msg("query server listening")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// streamUpdates fans registry notifications out to websocket clients.
func (s *Server) streamUpdates(ctx context.Context) {
	updates, cancel := s.reg.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			b, found := s.reg.Snapshot(upd.MarketID)
			if !found {
				continue
			}
			s.broadcast(StreamMessage{Type: "book", Book: summarize(b)})
		}
	}
}

func (s *Server) broadcast(msg StreamMessage) {
	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()

	for conn := range s.clients {
		if err := conn.WriteJSON(msg); err != nil {
			s.log.Debug().Err(err).Msg("dropping websocket client")
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	s.clientsMux.Lock()
	s.clients[conn] = struct{}{}
	s.clientsMux.Unlock()
	s.log.Info().Str("remote", r.RemoteAddr).Msg("websocket client connected")

	defer func() {
		s.clientsMux.Lock()
		delete(s.clients, conn)
		s.clientsMux.Unlock()
		conn.Close()
	}()

	// Drain the client until it disconnects; inbound frames are not
	// part of the protocol.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
