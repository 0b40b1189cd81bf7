package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastReachesEveryMember(t *testing.T) {
	reg, bc := newTestRig()
	_, t1 := joinMember(t, reg, bc, "a")
	_, t2 := joinMember(t, reg, bc, "b")
	_, t3 := joinMember(t, reg, bc, "c")

	bc.Broadcast("hello room")

	for _, ft := range []*fakeTransport{t1, t2, t3} {
		assert.Equal(t, 1, ft.sentContaining("hello room"))
	}
}

func TestBroadcastIsolatesFailingRecipient(t *testing.T) {
	reg, bc := newTestRig()
	bad, badT := joinMember(t, reg, bc, "bad")
	_, t1 := joinMember(t, reg, bc, "a")
	_, t2 := joinMember(t, reg, bc, "b")

	badT.setFailWrites(true)
	bc.Broadcast("still delivered")

	assert.Equal(t, 1, t1.sentContaining("still delivered"))
	assert.Equal(t, 1, t2.sentContaining("still delivered"))
	assert.Equal(t, 0, badT.sentContaining("still delivered"))

	// The Broadcaster never removes a failing recipient.
	_, ok := reg.Lookup(bad.id)
	require.True(t, ok)
}

func TestBroadcastExceptSkipsExcludedID(t *testing.T) {
	reg, bc := newTestRig()
	sender, senderT := joinMember(t, reg, bc, "sender")
	_, otherT := joinMember(t, reg, bc, "other")

	bc.BroadcastExcept("no echo", sender.id)

	assert.Equal(t, 0, senderT.sentContaining("no echo"))
	assert.Equal(t, 1, otherT.sentContaining("no echo"))
}

func TestBroadcastToEmptyRegistry(t *testing.T) {
	reg, bc := newTestRig()
	require.Zero(t, reg.Len())
	bc.Broadcast("into the void") // must simply not panic
}
