package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	key, err := DeriveKey("hunter2")
	require.NoError(t, err)

	ct, err := Seal([]byte("secret clip"), key)
	require.NoError(t, err)
	require.NotContains(t, string(ct), "secret clip")

	pt, err := Open(ct, key)
	require.NoError(t, err)
	require.Equal(t, "secret clip", string(pt))

	other, err := DeriveKey("hunter3")
	require.NoError(t, err)
	_, err = Open(ct, other)
	require.ErrorIs(t, err, ErrOpen)

	_, err = Open([]byte("short"), key)
	require.Error(t, err)
}

func TestSealUsesFreshNonce(t *testing.T) {
	key, err := DeriveKey("t")
	require.NoError(t, err)
	a, err := Seal([]byte("same"), key)
	require.NoError(t, err)
	b, err := Seal([]byte("same"), key)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestDigest(t *testing.T) {
	plain := Digest("hello", nil)
	require.Len(t, plain, 64)
	require.Equal(t, plain, Digest("hello", nil))
	require.NotEqual(t, plain, Digest("hello!", nil))

	k1, err := DeriveDigestKey("a")
	require.NoError(t, err)
	k2, err := DeriveDigestKey("b")
	require.NoError(t, err)
	require.NotEqual(t, plain, Digest("hello", k1))
	require.NotEqual(t, Digest("hello", k1), Digest("hello", k2))
	require.Equal(t, Digest("hello", k1), Digest("hello", k1))

	seal, err := DeriveKey("a")
	require.NoError(t, err)
	require.NotEqual(t, *seal, *k1)
}
