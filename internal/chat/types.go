package chat

import "time"

// LineTransport is the reliable line-oriented stream a Session owns. The
// concrete implementation lives in internal/wire; tests substitute
// in-memory fakes.
type LineTransport interface {
	ReceiveLine() (string, error)
	SendLine(line string) error
	Close() error
	RemoteAddr() string
}

// SessionState tracks where a Session is in its lifecycle. Transitions are
// one-way: Connected → AwaitingName → Active → Leaving → Closed.
type SessionState int32

const (
	StateConnected SessionState = iota
	StateAwaitingName
	StateActive
	StateLeaving
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateAwaitingName:
		return "awaiting_name"
	case StateActive:
		return "active"
	case StateLeaving:
		return "leaving"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrDuplicateID signals an id generator or logic bug; it fails the
// affected registration only, never the server.
var ErrDuplicateID = errorString("duplicate session id")

type errorString string

func (e errorString) Error() string { return string(e) }

const stampLayout = "2006-01-02 15:04:05"

// stamp prefixes chat text with the wall-clock timestamp every
// user-visible line carries.
func stamp(text string) string {
	return "[" + time.Now().Format(stampLayout) + "] " + text
}
