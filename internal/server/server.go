// Package server is the network layer: it accepts TCP and WebSocket
// connections, speaks the framed msgpack protocol and drives the per-table
// game engines.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/datamonsterr/Cardio-sub000/internal/config"
	"github.com/datamonsterr/Cardio-sub000/internal/store"
)

// Server owns the listeners, the table set and the connection registry.
type Server struct {
	cfg      *config.Config
	store    store.Store
	logger   zerolog.Logger
	clock    quartz.Clock
	registry *Registry
	tables   *TableSet
	metrics  *Metrics
	promReg  *prometheus.Registry
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*Conn]struct{}

	boundAddr  string
	wsBound    string
	adminBound string
	ready      chan struct{}
}

// Option adjusts server construction. Tests inject a mock clock this way.
type Option func(*Server)

// WithClock substitutes the timer source.
func WithClock(clk quartz.Clock) Option {
	return func(s *Server) { s.clock = clk }
}

// New builds a server from a validated config and an open store.
func New(cfg *config.Config, st store.Store, logger zerolog.Logger, opts ...Option) *Server {
	promReg := prometheus.NewRegistry()
	s := &Server{
		cfg:      cfg,
		store:    st,
		logger:   logger.With().Str("component", "server").Logger(),
		clock:    quartz.NewReal(),
		registry: NewRegistry(),
		tables:   NewTableSet(),
		metrics:  NewMetrics(promReg),
		promReg:  promReg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Clients are native programs, not browsers, so origin
			// checks do not apply.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*Conn]struct{}),
		ready: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// createTable validates the parameters and registers a fresh table.
func (s *Server) createTable(name string, maxPlayers, minBet int) (*Table, error) {
	if maxPlayers < 2 || maxPlayers > 9 {
		return nil, fmt.Errorf("max_player must be between 2 and 9")
	}
	if minBet < 2 || minBet%2 != 0 {
		return nil, fmt.Errorf("min_bet must be an even amount of at least 2")
	}
	t := s.tables.Insert(func(id int) *Table {
		return newTable(s, id, name, maxPlayers, minBet)
	})
	s.metrics.Tables.Inc()
	return t, nil
}

// Addr reports the bound TCP address once Run has opened its listeners.
// It blocks until then, which lets tests listen on port 0.
func (s *Server) Addr(ctx context.Context) (string, error) {
	select {
	case <-s.ready:
		return s.boundAddr, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// WSAddr is the bound websocket address, empty when disabled. Valid once
// Addr has returned.
func (s *Server) WSAddr() string { return s.wsBound }

// AdminAddr is the bound admin address, empty when disabled. Valid once
// Addr has returned.
func (s *Server) AdminAddr() string { return s.adminBound }

// Run serves until ctx is cancelled. It owns the TCP listener, the optional
// WebSocket and admin HTTP listeners and the action-timer sweep.
func (s *Server) Run(ctx context.Context) error {
	for _, tbl := range s.cfg.Tables {
		t, err := s.createTable(tbl.Name, tbl.MaxPlayers, tbl.MinBet)
		if err != nil {
			return fmt.Errorf("boot table %q: %w", tbl.Name, err)
		}
		s.logger.Info().Int("table_id", t.ID).Str("name", t.Name).
			Int("min_bet", t.MinBet).Msg("boot table ready")
	}

	ln, err := net.Listen("tcp", s.cfg.ListenAddress())
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	var wsLn, adminLn net.Listener
	if s.cfg.Server.WSAddr != "" {
		if wsLn, err = net.Listen("tcp", s.cfg.Server.WSAddr); err != nil {
			_ = ln.Close()
			return fmt.Errorf("listen websocket: %w", err)
		}
		s.wsBound = wsLn.Addr().String()
	}
	if s.cfg.Server.AdminAddr != "" {
		if adminLn, err = net.Listen("tcp", s.cfg.Server.AdminAddr); err != nil {
			_ = ln.Close()
			if wsLn != nil {
				_ = wsLn.Close()
			}
			return fmt.Errorf("listen admin: %w", err)
		}
		s.adminBound = adminLn.Addr().String()
	}
	s.boundAddr = ln.Addr().String()
	close(s.ready)
	s.logger.Info().Str("addr", s.boundAddr).Msg("listening")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})
	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("accept: %w", err)
			}
			go s.serveConn(ctx, newTCPTransport(conn))
		}
	})

	if wsLn != nil {
		mux := http.NewServeMux()
		mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
			ws, err := s.upgrader.Upgrade(w, r, nil)
			if err != nil {
				s.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
				return
			}
			s.serveConn(ctx, newWSTransport(ws))
		})
		g.Go(s.serveHTTP(ctx, "websocket", wsLn, mux))
	}

	if adminLn != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{}))
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		g.Go(s.serveHTTP(ctx, "admin", adminLn, mux))
	}

	// Sweep expired action timers once a second.
	sweep := s.clock.TickerFunc(ctx, time.Second, func() error {
		s.sweepTables()
		return nil
	}, "sweep")
	g.Go(func() error {
		if err := sweep.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	err = g.Wait()

	s.mu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.logger.Info().Msg("server stopped")
	return err
}

// serveHTTP runs one auxiliary HTTP listener under the errgroup and shuts it
// down when ctx ends.
func (s *Server) serveHTTP(ctx context.Context, name string, ln net.Listener, mux *http.ServeMux) func() error {
	srv := &http.Server{Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return func() error {
		s.logger.Info().Str("addr", ln.Addr().String()).Msgf("%s listener up", name)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s listener: %w", name, err)
		}
		return nil
	}
}

// serveConn runs one client session: handshake, then a strictly sequential
// read-dispatch loop. It blocks until the client goes away.
func (s *Server) serveConn(ctx context.Context, tr transport) {
	logger := s.logger.With().Str("remote", tr.RemoteAddr()).Logger()
	if err := tr.Handshake(); err != nil {
		logger.Warn().Err(err).Msg("handshake failed")
		_ = tr.Close()
		return
	}
	c := newConn(tr, s.logger)

	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	s.metrics.Connections.Inc()
	logger.Info().Msg("client connected")

	go c.writePump()
	defer func() {
		s.teardown(c)
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		s.metrics.Connections.Dec()
		logger.Info().Msg("client disconnected")
	}()

	for {
		typ, m, err := tr.ReadPacket()
		if err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-c.Done():
			return
		default:
		}
		s.dispatch(c, typ, m)
	}
}

// teardown releases everything a dying connection holds: its table seat
// (bot conversion mid-hand) and its registry slot.
func (s *Server) teardown(c *Conn) {
	if tableID := c.TableID(); tableID != 0 {
		if t, ok := s.tables.Get(tableID); ok {
			t.Leave(c, true)
		} else {
			c.SetTable(0, -1)
		}
	}
	if c.Authenticated() {
		s.registry.Remove(c.Username(), c)
	}
	c.Close()
}

// sweepTables forces the fill-in move on any actor whose deadline passed.
func (s *Server) sweepTables() {
	now := s.clock.Now()
	for _, t := range s.tables.Snapshot() {
		t.sweepActionTimer(now)
	}
}
