package message

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSuppressRoundTrip(t *testing.T) {
	raw, err := Suppress("popup", true, 30*time.Second).Encode()
	require.NoError(t, err)
	require.NotContains(t, string(raw), "\n")

	m, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, TypeSuppress, m.Type)
	require.True(t, m.On)
	require.Equal(t, 30*time.Second, m.TTL)
	require.NoError(t, m.Err())
}

func TestDecodeRejects(t *testing.T) {
	_, err := Decode([]byte(`{`))
	require.Error(t, err)
	_, err = Decode([]byte(`{"source":"x"}`))
	require.Error(t, err)
}

func TestErrorf(t *testing.T) {
	m := Errorf("unknown type %q", "NOPE")
	require.EqualError(t, m.Err(), `daemon: unknown type "NOPE"`)
}
