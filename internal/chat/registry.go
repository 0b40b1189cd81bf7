package chat

import (
	"log/slog"
	"sync"

	"github.com/samber/lo"
)

// notices is how the Registry reports moderation actions to the room. The
// Broadcaster satisfies it; Server wires the two together.
type notices interface {
	Broadcast(text string)
}

// Registry is the authoritative set of active sessions. Mutations hold the
// write lock; broadcast reads take a point-in-time snapshot under the read
// lock and release it before any network write happens, so one stalled
// peer never blocks membership changes or delivery to the others.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string // join order, kept for roster display

	logger   *slog.Logger
	notifier *Notifier
	notices  notices
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// Add registers a session that completed its handshake. A duplicate id
// means the generator is broken; the registration fails, nothing else.
func (r *Registry) Add(s *Session) error {
	r.mu.Lock()
	if _, exists := r.sessions[s.id]; exists {
		r.mu.Unlock()
		return ErrDuplicateID
	}
	r.sessions[s.id] = s
	r.order = append(r.order, s.id)
	n := len(r.sessions)
	r.mu.Unlock()

	ConnectedSessions.Set(float64(n))
	r.logger.Info("session registered", "session", s.id, "name", s.name, "total", n)
	r.notifier.publish(MemberEvent{Type: MemberJoined, ID: s.id, Name: s.name})
	return nil
}

// Remove deregisters a session. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.sessions, id)
	r.order = lo.Without(r.order, id)
	n := len(r.sessions)
	r.mu.Unlock()

	ConnectedSessions.Set(float64(n))
	r.logger.Info("session removed", "session", id, "name", s.name, "total", n)
	r.notifier.publish(MemberEvent{Type: MemberLeft, ID: id, Name: s.name})
	return true
}

func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Snapshot returns the current members in join order. The copy is safe to
// traverse while other goroutines mutate the Registry.
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, id := range r.order {
		if s, ok := r.sessions[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Names returns the roster in join order, for a UI collaborator.
func (r *Registry) Names() []string {
	return lo.Map(r.Snapshot(), func(s *Session, _ int) string {
		return s.name
	})
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Clear empties the Registry during shutdown.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.sessions = make(map[string]*Session)
	r.order = nil
	r.mu.Unlock()
	ConnectedSessions.Set(0)
}

// Ban suppresses a member's outbound messages without disconnecting them.
// Banning an unknown or already-banned id is a no-op and emits nothing.
func (r *Registry) Ban(id string) bool {
	return r.setBanned(id, true)
}

// Unban lifts a suppression. Same no-op rules as Ban.
func (r *Registry) Unban(id string) bool {
	return r.setBanned(id, false)
}

func (r *Registry) setBanned(id string, banned bool) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok || s.banned.Load() == banned {
		r.mu.Unlock()
		return false
	}
	s.banned.Store(banned)
	name := s.name
	r.mu.Unlock()

	action, event := "banned", MemberBanned
	if !banned {
		action, event = "unbanned", MemberUnbanned
	}
	MessagesTotal.WithLabelValues(action).Inc()
	r.logger.Info("moderation action", "session", id, "name", name, "action", action)
	r.notifier.publish(MemberEvent{Type: event, ID: id, Name: name})
	if r.notices != nil {
		r.notices.Broadcast(stamp("Server: " + name + " is " + action))
	}
	return true
}
