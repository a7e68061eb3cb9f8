package clip

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"go.klb.dev/nozzle/internal/history"
)

func TestSystem(t *testing.T) {
	mem := NewMemory()
	var calls []bool
	sys := NewSystem(context.Background(), mem, nil, SuppressorFunc(func(_ context.Context, on bool) error {
		calls = append(calls, on)
		if !on {
			return errors.New("daemon gone")
		}
		return nil
	}))

	require.NoError(t, sys.WriteRecord(history.Record{ID: "1", Text: "from history"}))
	got, _ := mem.ReadText()
	require.Equal(t, "from history", got)

	require.NoError(t, sys.WriteText("plain"))
	got, _ = mem.ReadText()
	require.Equal(t, "plain", got)

	require.ErrorIs(t, sys.EmitPaste(), ErrNoPaster)

	sys.SetSuppressed(true)
	sys.SetSuppressed(false)
	require.Equal(t, []bool{true, false}, calls)

	NewSystem(context.Background(), mem, nil, nil).SetSuppressed(true)
}
