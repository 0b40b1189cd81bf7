package chat

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/savvita/BroadcastClientServer/internal/wire"
)

// fakeTransport is an in-memory LineTransport. Lines the fake peer types
// go into in; lines delivered to the peer accumulate in sent.
type fakeTransport struct {
	in chan string

	mu         sync.Mutex
	sent       []string
	failWrites bool
	closed     bool
	closeCount int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{in: make(chan string, 16)}
}

func (t *fakeTransport) ReceiveLine() (string, error) {
	line, ok := <-t.in
	if !ok {
		return "", &wire.TransportError{Op: "read", Err: io.EOF}
	}
	return line, nil
}

func (t *fakeTransport) SendLine(line string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.failWrites {
		return &wire.TransportError{Op: "write", Err: errors.New("forced write failure")}
	}
	t.sent = append(t.sent, line)
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeCount++
	if !t.closed {
		t.closed = true
		close(t.in)
	}
	return nil
}

func (t *fakeTransport) RemoteAddr() string { return "fake:0" }

func (t *fakeTransport) setFailWrites(fail bool) {
	t.mu.Lock()
	t.failWrites = fail
	t.mu.Unlock()
}

func (t *fakeTransport) sentLines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.sent...)
}

func (t *fakeTransport) sentContaining(substr string) int {
	n := 0
	for _, line := range t.sentLines() {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}

func (t *fakeTransport) closes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeCount
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRig() (*Registry, *Broadcaster) {
	logger := newTestLogger()
	reg := NewRegistry(logger)
	reg.notifier = NewNotifier(64)
	bc := NewBroadcaster(reg, logger)
	reg.notices = bc
	return reg, bc
}

// joinMember runs a full session goroutine through its handshake and waits
// until it is registered.
func joinMember(t *testing.T, reg *Registry, bc *Broadcaster, name string) (*Session, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport()
	s := NewSession(ft, reg, bc, newTestLogger())
	go s.Run()
	ft.in <- name
	require.Eventually(t, func() bool {
		_, ok := reg.Lookup(s.id)
		return ok
	}, time.Second, 5*time.Millisecond)
	return s, ft
}
