package chat

import (
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/savvita/BroadcastClientServer/internal/wire"
)

// PeerRecorder receives every distinct remote address the server accepts.
// Recording is best-effort and never read back by the chat core.
type PeerRecorder interface {
	Record(addr string)
}

// ServerConfig carries the knobs the launcher wires in. Zero values get
// sensible defaults in NewServer.
type ServerConfig struct {
	Addr         string
	WriteTimeout time.Duration
	ShutdownWait time.Duration
	Peers        PeerRecorder
	NotifyBuffer int
}

// Server owns the listening endpoint, the Registry and the Broadcaster.
// One instance listens on exactly one address.
type Server struct {
	cfg    ServerConfig
	logger *slog.Logger
	reg    *Registry
	bc     *Broadcaster

	listener net.Listener
	running  atomic.Bool

	mu   sync.Mutex
	live map[*Session]struct{} // every session with an open transport, registered or not

	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewServer(cfg ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.ShutdownWait <= 0 {
		cfg.ShutdownWait = 5 * time.Second
	}

	reg := NewRegistry(logger)
	reg.notifier = NewNotifier(cfg.NotifyBuffer)
	bc := NewBroadcaster(reg, logger)
	reg.notices = bc

	return &Server{
		cfg:    cfg,
		logger: logger,
		reg:    reg,
		bc:     bc,
		live:   make(map[*Session]struct{}),
	}
}

func (s *Server) Registry() *Registry { return s.reg }

// Events exposes the membership change feed for a roster UI.
func (s *Server) Events() <-chan MemberEvent {
	return s.reg.notifier.Events()
}

// Addr reports the bound listen address, useful when the config asked for
// an ephemeral port.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.cfg.Addr
	}
	return s.listener.Addr().String()
}

// Listen binds the endpoint and starts accepting in the background.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.running.Store(true)

	go s.acceptLoop(ln)

	s.logger.Info("server started", "addr", ln.Addr().String())
	return nil
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !s.running.Load() {
				// Listener closed during shutdown.
				return
			}
			s.logger.Error("accept failed", "error", err)
			go s.Close()
			return
		}

		addr := conn.RemoteAddr().String()
		s.logger.Info("client connected", "addr", addr)
		if s.cfg.Peers != nil {
			s.cfg.Peers.Record(addr)
		}

		sess := NewSession(wire.NewConn(conn, s.cfg.WriteTimeout), s.reg, s.bc, s.logger)
		s.track(sess)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(sess)
			sess.Run()
		}()
	}
}

func (s *Server) track(sess *Session) {
	s.mu.Lock()
	s.live[sess] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(sess *Session) {
	s.mu.Lock()
	delete(s.live, sess)
	s.mu.Unlock()
}

// Ban suppresses a member's messages without disconnecting them.
func (s *Server) Ban(id string) bool { return s.reg.Ban(id) }

// Unban lifts a suppression.
func (s *Server) Unban(id string) bool { return s.reg.Unban(id) }

// Whisper sends an operator line to a single member. Unknown ids and
// delivery failures are no-ops reported only to the log.
func (s *Server) Whisper(id, text string) bool {
	sess, ok := s.reg.Lookup(id)
	if !ok {
		return false
	}
	if err := sess.transport.SendLine(stamp("Server: " + text)); err != nil {
		s.logger.Warn("whisper failed", "session", id, "error", err)
		return false
	}
	MessagesTotal.WithLabelValues("whisper").Inc()
	return true
}

// Close shuts the server down: stop accepting, tell every member to leave
// via the stop code, force-close every live transport so all session
// workers unblock, clear the Registry, then drain the workers under a
// bounded wait. Safe to call once from any goroutine, including
// concurrently with the accept loop or an in-flight broadcast.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.logger.Info("shutting down")
		s.running.Store(false)

		if s.listener != nil {
			_ = s.listener.Close()
		}

		s.bc.Broadcast(wire.StopCode)

		s.mu.Lock()
		live := make([]*Session, 0, len(s.live))
		for sess := range s.live {
			live = append(live, sess)
		}
		s.mu.Unlock()
		for _, sess := range live {
			_ = sess.transport.Close()
		}

		s.reg.Clear()

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			s.logger.Info("shutdown complete")
		case <-time.After(s.cfg.ShutdownWait):
			s.logger.Warn("shutdown wait elapsed with session workers still running")
		}
	})
}
