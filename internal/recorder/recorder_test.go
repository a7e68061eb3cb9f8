package recorder

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go.klb.dev/nozzle/internal/clip"
	"go.klb.dev/nozzle/internal/history"
	"go.klb.dev/nozzle/internal/history/historytest"
)

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func texts(t *testing.T, s history.Store) []string {
	t.Helper()
	records, err := s.List(context.Background())
	require.NoError(t, err)
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Text
	}
	return out
}

func newRecorder(t *testing.T, baseline string) (*Recorder, *clip.Memory, *historytest.Memory, *manualClock) {
	t.Helper()
	backend := clip.NewMemory()
	require.NoError(t, backend.WriteText(baseline))
	select {
	case <-backend.Watch():
	default:
	}
	store := historytest.NewMemory(0)
	c := &manualClock{t: time.Unix(0, 0)}
	return New(store, backend, WithNow(c.now)), backend, store, c
}

func TestRecorder_RecordsChangesNotBaseline(t *testing.T) {
	r, backend, store, _ := newRecorder(t, "already there")
	r.absorb()

	require.NoError(t, backend.WriteText("first"))
	r.handle(context.Background())
	require.NoError(t, backend.WriteText("second"))
	r.handle(context.Background())
	r.handle(context.Background())

	require.Equal(t, []string{"second", "first"}, texts(t, store))
	require.False(t, r.LastRecorded().IsZero())
}

func TestRecorder_IgnoresBlank(t *testing.T) {
	r, backend, store, _ := newRecorder(t, "")
	require.NoError(t, backend.WriteText("  \n"))
	r.handle(context.Background())
	require.Empty(t, texts(t, store))
}

func TestRecorder_SuppressedWritesAreNotRecorded(t *testing.T) {
	r, backend, store, _ := newRecorder(t, "base")
	r.absorb()

	r.SetSuppressed(true, time.Minute, "popup")
	require.True(t, r.Suppressed())
	require.NoError(t, backend.WriteText("prompt"))
	r.handle(context.Background())
	require.NoError(t, backend.WriteText("item"))

	// The last write is only noticed after suppression ends.
	r.SetSuppressed(false, 0, "popup")
	r.handle(context.Background())
	require.Empty(t, texts(t, store))

	require.NoError(t, backend.WriteText("user copy"))
	r.handle(context.Background())
	require.Equal(t, []string{"user copy"}, texts(t, store))
}

func TestRecorder_SuppressionExpires(t *testing.T) {
	r, backend, store, c := newRecorder(t, "base")
	r.absorb()

	r.SetSuppressed(true, time.Second, "popup")
	c.advance(2 * time.Second)
	require.False(t, r.Suppressed())

	require.NoError(t, backend.WriteText("after expiry"))
	r.handle(context.Background())
	require.Equal(t, []string{"after expiry"}, texts(t, store))
}

func TestRecorder_Run(t *testing.T) {
	backend := clip.NewMemory()
	store := historytest.NewMemory(0)
	r := New(store, backend)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	// Writes racing the startup baseline are absorbed, so keep changing it.
	n := 0
	require.Eventually(t, func() bool {
		n++
		_ = backend.WriteText(fmt.Sprintf("hello %d", n))
		return len(texts(t, store)) > 0
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.Contains(t, texts(t, store)[0], "hello")
}
