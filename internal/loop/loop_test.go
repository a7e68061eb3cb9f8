package loop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go.klb.dev/nozzle/internal/clock"
)

func start(t *testing.T, c clock.Clock) (*Loop, context.CancelFunc) {
	t.Helper()
	l := New(c)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	return l, cancel
}

func TestLoop_RunsInPostOrder(t *testing.T) {
	l, _ := start(t, clock.Real())

	var got []int
	for i := range 5 {
		require.True(t, l.Post(func() { got = append(got, i) }))
	}
	require.True(t, l.Do(func() {}))
	require.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestLoop_PostFromLoopDoesNotDeadlock(t *testing.T) {
	l, _ := start(t, clock.Real())

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})
	l.Post(func() {
		mu.Lock()
		got = append(got, "outer")
		mu.Unlock()
		l.Post(func() {
			mu.Lock()
			got = append(got, "inner")
			mu.Unlock()
			close(done)
		})
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("nested post never ran")
	}
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"outer", "inner"}, got)
}

func TestLoop_AfterFuncRunsOnLoop(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	l, _ := start(t, fake)

	ran := make(chan struct{})
	l.AfterFunc(50*time.Millisecond, func() { close(ran) })

	fake.Advance(50 * time.Millisecond)
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("timer callback never reached the loop")
	}
}

func TestLoop_StoppedRejectsWork(t *testing.T) {
	l := New(clock.Real())
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = l.Run(ctx) }()
	cancel()
	<-l.Done()

	require.False(t, l.Post(func() {}))
	require.False(t, l.Do(func() {}))
}
