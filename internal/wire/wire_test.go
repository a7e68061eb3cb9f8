package wire

import (
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"go.klb.dev/nozzle/internal/crypto"
	"go.klb.dev/nozzle/internal/message"
)

func pipe(t *testing.T, keyA, keyB *crypto.Key) (*Conn, *Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})
	return New(a, keyA), New(b, keyB)
}

func send(c *Conn, m *message.Message) chan error {
	errc := make(chan error, 1)
	go func() { errc <- c.WriteMsg(m) }()
	return errc
}

func TestConn_Plain(t *testing.T) {
	a, b := pipe(t, nil, nil)
	errc := send(a, &message.Message{Type: message.TypePing, Source: "test"})

	got, err := b.ReadMsg()
	require.NoError(t, err)
	require.NoError(t, <-errc)
	require.Equal(t, message.TypePing, got.Type)
	require.Equal(t, "test", got.Source)
}

func TestConn_Encrypted(t *testing.T) {
	key, err := crypto.DeriveKey("tok")
	require.NoError(t, err)
	a, b := pipe(t, key, key)
	errc := send(a, &message.Message{Type: message.TypeStatus})

	got, err := b.ReadMsg()
	require.NoError(t, err)
	require.NoError(t, <-errc)
	require.Equal(t, message.TypeStatus, got.Type)
}

func TestConn_WrongKey(t *testing.T) {
	k1, _ := crypto.DeriveKey("one")
	k2, _ := crypto.DeriveKey("two")
	a, b := pipe(t, k1, k2)
	send(a, &message.Message{Type: message.TypePing})

	_, err := b.ReadMsg()
	require.ErrorIs(t, err, crypto.ErrOpen)
}

func TestConn_TooLarge(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	go func() { _, _ = a.Write([]byte(strings.Repeat("x", MaxMessageSize+10) + "\n")) }()

	_, err := New(b, nil).ReadMsg()
	require.ErrorContains(t, err, "too large")
}
