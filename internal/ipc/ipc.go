// Package ipc carries the local control channel between the nozzle daemon
// and the popup and CLI sub-commands: a Unix domain socket (a named pipe on
// Windows) speaking the message protocol through wire framing.
//
// The daemon serves the socket; clients probe for it and degrade gracefully
// when it is absent.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"runtime"
	"sync"
	"time"

	"go.klb.dev/nozzle/internal/clip"
	"go.klb.dev/nozzle/internal/crypto"
	"go.klb.dev/nozzle/internal/message"
	"go.klb.dev/nozzle/internal/wire"
)

const requestTimeout = 5 * time.Second

// SocketPath returns the platform-appropriate path for the IPC socket.
//
//   - Linux:   $XDG_RUNTIME_DIR/nozzle.sock
//   - macOS:   $TMPDIR/nozzle.sock
//   - Windows: \\.\pipe\nozzle
//
// $NOZZLE_SOCKET overrides all of them.
func SocketPath() string {
	if s := os.Getenv("NOZZLE_SOCKET"); s != "" {
		return s
	}
	return socketPath()
}

// IsRunning reports whether a daemon appears to be listening on path. It
// does a cheap dial-and-close; no data is exchanged.
func IsRunning(path string) bool {
	c, err := dialIPC(path)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Listen creates a listener on path, removing any stale socket file first.
// It refuses to start when another daemon is already serving path.
func Listen(path string) (net.Listener, error) {
	if IsRunning(path) {
		return nil, fmt.Errorf("daemon already running on %s", path)
	}
	if runtime.GOOS != "windows" {
		// Remove stale socket from a previous (crashed) run.
		_ = os.Remove(path)
	}
	return listenIPC(path)
}

// Handler answers one request.
type Handler func(req *message.Message) *message.Message

// Serve accepts connections on ln until ctx is done, answering each request
// with h. Connections may carry any number of requests.
func Serve(ctx context.Context, ln net.Listener, key *crypto.Key, h Handler) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveConn(ctx, wire.New(conn, key), h)
		}()
	}
}

func serveConn(ctx context.Context, c *wire.Conn, h Handler) {
	defer c.Close()
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		req, err := c.ReadMsg()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.EOF) {
				slog.Debug("ipc read failed", "err", err)
			}
			return
		}
		resp := h(req)
		if resp == nil {
			resp = message.Errorf("no reply for %s", req.Type)
		}
		if err := c.WriteMsg(resp); err != nil {
			slog.Debug("ipc write failed", "err", err)
			return
		}
	}
}

// Client sends requests to the daemon over one connection.
type Client struct {
	mu   sync.Mutex
	conn *wire.Conn
}

// Dial connects to the daemon at path.
func Dial(path string, key *crypto.Key) (*Client, error) {
	conn, err := dialIPC(path)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon at %s: %w", path, err)
	}
	return &Client{conn: wire.New(conn, key)}, nil
}

// Request sends req and waits for the reply. ERROR replies are returned as
// errors.
func (c *Client) Request(ctx context.Context, req *message.Message) (*message.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	timeout := requestTimeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	if err := c.conn.WriteMsg(req); err != nil {
		return nil, fmt.Errorf("send %s: %w", req.Type, err)
	}
	c.conn.SetReadDeadline(timeout)
	resp, err := c.conn.ReadMsg()
	c.conn.SetReadDeadline(0)
	if err != nil {
		return nil, fmt.Errorf("read %s reply: %w", req.Type, err)
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp, nil
}

// Suppressor returns a function asking the daemon to pause recording for
// at most ttl, for use as a clip.SuppressorFunc.
func (c *Client) Suppressor(source string, ttl time.Duration) func(ctx context.Context, on bool) error {
	return func(ctx context.Context, on bool) error {
		_, err := c.Request(ctx, message.Suppress(source, on, ttl))
		return err
	}
}

// Copy asks the daemon to put text on the clipboard.
func (c *Client) Copy(ctx context.Context, source, text string) error {
	_, err := c.Request(ctx, &message.Message{Type: message.TypeCopy, Source: source, Text: text})
	return err
}

// Backend returns b with clipboard writes routed through the daemon, so the
// text stays available after this process exits. Reads and change
// notifications still come from b.
func (c *Client) Backend(b clip.Backend, source string) clip.Backend {
	return &remoteBackend{Backend: b, client: c, source: source}
}

type remoteBackend struct {
	clip.Backend
	client *Client
	source string
}

func (r *remoteBackend) Name() string { return r.Backend.Name() + " via daemon" }

func (r *remoteBackend) WriteText(text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	return r.client.Copy(ctx, r.source, text)
}

// Status fetches the daemon's status.
func (c *Client) Status(ctx context.Context) (*message.Status, error) {
	resp, err := c.Request(ctx, &message.Message{Type: message.TypeStatus})
	if err != nil {
		return nil, err
	}
	if resp.Status == nil {
		return nil, fmt.Errorf("daemon sent %s without status", resp.Type)
	}
	return resp.Status, nil
}

// Close closes the connection.
func (c *Client) Close() error { return c.conn.Close() }
