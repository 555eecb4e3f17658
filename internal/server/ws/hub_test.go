package ws

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/misionbonos/bondgame/internal/store/memory"
)

func newTestHub(t *testing.T) (*Hub, context.CancelFunc, chan error) {
	t.Helper()

	h := NewHub(memory.NewSignalBus(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	ran := make(chan error, 1)
	go func() { ran <- h.Run(ctx) }()
	return h, cancel, ran
}

func newTestSession(h *Hub, games ...string) *session {
	s := &session{
		hub:   h,
		out:   make(chan []byte, sessionBuffer),
		games: make(map[string]struct{}),
	}
	for _, g := range games {
		s.games[g] = struct{}{}
	}
	return s
}

func recvWithin(t *testing.T, ch <-chan []byte, d time.Duration) []byte {
	t.Helper()
	select {
	case data := <-ch:
		return data
	case <-time.After(d):
		t.Fatal("no event delivered in time")
		return nil
	}
}

func TestHubDeliversByGameFilter(t *testing.T) {
	h, cancel, ran := newTestHub(t)
	defer func() { cancel(); <-ran }()

	watching := newTestSession(h, "MB-001")
	other := newTestSession(h, "MB-999")
	all := newTestSession(h)
	require.True(t, h.join(watching))
	require.True(t, h.join(other))
	require.True(t, h.join(all))

	event := []byte(`{"game_code":"MB-001","kind":"round.publish"}`)
	h.events <- event

	assert.Equal(t, event, recvWithin(t, watching.out, time.Second))
	assert.Equal(t, event, recvWithin(t, all.out, time.Second))
	select {
	case data := <-other.out:
		t.Fatalf("session watching another game received %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubStopReleasesSessions(t *testing.T) {
	h, cancel, ran := newTestHub(t)

	s := newTestSession(h)
	require.True(t, h.join(s))

	cancel()
	require.ErrorIs(t, <-ran, context.Canceled)

	// The stopped hub closed every session's out channel.
	_, open := <-s.out
	assert.False(t, open)

	// A read pump handing its session back after shutdown must not block.
	released := make(chan struct{})
	go func() {
		h.leave(s)
		close(released)
	}()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("leave blocked after hub shutdown")
	}

	assert.False(t, h.join(newTestSession(h)), "join after shutdown is refused")
}
