package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFake_AfterFuncFiresInDeadlineOrder(t *testing.T) {
	c := Fake(epoch)
	var order []string

	c.AfterFunc(30*time.Millisecond, func() { order = append(order, "c") })
	c.AfterFunc(10*time.Millisecond, func() { order = append(order, "a") })
	c.AfterFunc(20*time.Millisecond, func() { order = append(order, "b") })

	c.Advance(15 * time.Millisecond)
	require.Equal(t, []string{"a"}, order)

	c.Advance(15 * time.Millisecond)
	require.Equal(t, []string{"a", "b", "c"}, order)
	require.Equal(t, epoch.Add(30*time.Millisecond), c.Now())
}

func TestFake_ChainedCallbacksSeeTheirDeadline(t *testing.T) {
	c := Fake(epoch)
	var seen []time.Duration

	c.AfterFunc(10*time.Millisecond, func() {
		seen = append(seen, c.Now().Sub(epoch))
		c.AfterFunc(10*time.Millisecond, func() {
			seen = append(seen, c.Now().Sub(epoch))
		})
	})

	c.Advance(time.Second)
	require.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, seen)
}

func TestFake_StopPreventsFiring(t *testing.T) {
	c := Fake(epoch)
	fired := false
	timer := c.AfterFunc(time.Millisecond, func() { fired = true })

	require.True(t, timer.Stop())
	require.False(t, timer.Stop(), "second stop reports already stopped")

	c.Advance(time.Second)
	require.False(t, fired)
	require.Zero(t, c.Pending())
}

func TestFake_ZeroDelayWaitsForAdvance(t *testing.T) {
	c := Fake(epoch)
	fired := false
	c.AfterFunc(0, func() { fired = true })
	require.False(t, fired)

	c.Advance(0)
	require.True(t, fired)
}

func TestFake_Flush(t *testing.T) {
	c := Fake(epoch)
	n := 0
	var step func()
	step = func() {
		n++
		if n < 4 {
			c.AfterFunc(50*time.Millisecond, step)
		}
	}
	c.AfterFunc(50*time.Millisecond, step)

	elapsed := c.Flush(time.Minute)
	require.Equal(t, 4, n)
	require.Equal(t, 200*time.Millisecond, elapsed)
}

func TestNilTimerStop(t *testing.T) {
	var timer *Timer
	require.False(t, timer.Stop())
}
