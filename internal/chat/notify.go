package chat

// MemberEventType enumerates membership changes a UI collaborator can
// observe.
type MemberEventType int

const (
	MemberJoined MemberEventType = iota
	MemberLeft
	MemberBanned
	MemberUnbanned
)

type MemberEvent struct {
	Type MemberEventType
	ID   string
	Name string
}

// Notifier is an optional change feed for roster displays. The core never
// depends on a subscriber existing: publishes are non-blocking and drop
// when the buffer is full or nobody attached a Notifier at all.
type Notifier struct {
	ch chan MemberEvent
}

func NewNotifier(buffer int) *Notifier {
	if buffer <= 0 {
		buffer = 64
	}
	return &Notifier{ch: make(chan MemberEvent, buffer)}
}

func (n *Notifier) Events() <-chan MemberEvent {
	return n.ch
}

func (n *Notifier) publish(ev MemberEvent) {
	if n == nil {
		return
	}
	select {
	case n.ch <- ev:
	default:
		// A slow or absent UI never stalls membership changes.
	}
}
