package chat

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/savvita/BroadcastClientServer/internal/wire"
)

// Session owns one accepted connection for its whole lifetime: handshake,
// receive loop, deregistration, transport close. Every transport fault is
// absorbed here and downgraded to the leaving transition; nothing
// propagates to the accept loop or to other sessions.
type Session struct {
	id     string
	name   string
	banned atomic.Bool
	state  atomic.Int32

	transport LineTransport
	reg       *Registry
	bc        *Broadcaster
	logger    *slog.Logger
	closeOnce sync.Once
}

func NewSession(t LineTransport, reg *Registry, bc *Broadcaster, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &Session{
		id:        id,
		transport: t,
		reg:       reg,
		bc:        bc,
		logger:    logger.With("session", id),
	}
}

func (s *Session) ID() string   { return s.id }
func (s *Session) Name() string { return s.name }

func (s *Session) Banned() bool { return s.banned.Load() }

func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// Run drives the session end to end. It is the body of the per-connection
// goroutine and returns only when the session is closed.
func (s *Session) Run() {
	defer s.close()

	if !s.enterChat() {
		return
	}
	s.receiveLoop()
	s.leave()
}

// enterChat performs the handshake: the first received line is the display
// name, verbatim. Empty and non-unique names are legal. A transport fault
// here closes the session without it ever having been registered.
func (s *Session) enterChat() bool {
	s.state.Store(int32(StateAwaitingName))

	name, err := s.transport.ReceiveLine()
	if err != nil {
		s.logger.Warn("handshake failed", "error", err)
		return false
	}
	s.name = name

	if err := s.reg.Add(s); err != nil {
		s.logger.Error("registration failed", "error", err)
		return false
	}
	s.state.Store(int32(StateActive))

	MessagesTotal.WithLabelValues("join").Inc()
	s.bc.Broadcast(stamp(s.name + " joined the chat"))
	return true
}

func (s *Session) receiveLoop() {
	for {
		line, err := s.transport.ReceiveLine()
		if err != nil {
			s.logger.Warn("read failed", "name", s.name, "error", err)
			s.announceLeave()
			return
		}

		switch {
		case line == wire.StopCode:
			s.announceLeave()
			return
		case s.banned.Load():
			// Told privately, on every attempt.
			MessagesTotal.WithLabelValues("suppressed").Inc()
			if err := s.transport.SendLine(stamp("You cannot write to this chat")); err != nil {
				s.logger.Warn("reply failed", "name", s.name, "error", err)
				s.announceLeave()
				return
			}
		case line == "":
			// Deliberate no-op: no broadcast, no reply.
		default:
			MessagesTotal.WithLabelValues("chat").Inc()
			s.bc.Broadcast(stamp(s.name + ": " + line))
		}
	}
}

// announceLeave is best-effort: per-recipient failures are already
// swallowed by the Broadcaster.
func (s *Session) announceLeave() {
	MessagesTotal.WithLabelValues("leave").Inc()
	s.bc.Broadcast(stamp(s.name + " leave the chat"))
}

func (s *Session) leave() {
	s.state.Store(int32(StateLeaving))
	s.reg.Remove(s.id)
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		_ = s.transport.Close()
	})
	s.state.Store(int32(StateClosed))
}
