package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/nozzle/internal/clip"
	"go.klb.dev/nozzle/internal/ipc"
	"go.klb.dev/nozzle/internal/message"
	"go.klb.dev/nozzle/internal/recorder"
	"go.klb.dev/nozzle/internal/store"
)

func newDaemonCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Record clipboard changes into the history",
		Long: `Watches the system clipboard and records every new text into the history
database. The popup asks the daemon over the IPC socket to stop recording while
it pastes, so the pipeline's own clipboard writes never enter the history.

Config file search order:
  /etc/nozzle/nozzle.toml
  $HOME/.config/nozzle/nozzle.toml
  path supplied via --config

Precedence (lowest → highest): defaults → config file → NOZZLE_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runDaemon(cmd.Context(), v) },
	}

	f := cmd.Flags()
	f.Duration("suppress-timeout", recorder.DefaultSuppressTTL, "longest a suppression request may last")
	addStoreFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runDaemon(ctx context.Context, v *viper.Viper) error {
	setupLogging(v)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	key, err := wireKey(v)
	if err != nil {
		return err
	}

	st, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer st.Close()

	ln, err := ipc.Listen(ipc.SocketPath())
	if err != nil {
		return fmt.Errorf("ipc: %w", err)
	}

	backend := clip.New()
	defer backend.Close()
	rec := recorder.New(st, backend)

	d := &daemon{
		store:   st,
		rec:     rec,
		clip:    backend,
		maxTTL:  v.GetDuration("suppress-timeout"),
		started: time.Now(),
	}

	slog.Info("nozzle daemon starting",
		"version", Version,
		"db", st.Path(),
		"sealed", st.Sealed(),
		"ipc", ipc.SocketPath(),
		"encrypted", key != nil,
	)

	errc := make(chan error, 2)
	go func() { errc <- rec.Run(ctx) }()
	go func() { errc <- ipc.Serve(ctx, ln, key, d.handle) }()

	var first error
	for range 2 {
		if err := <-errc; err != nil && !errors.Is(err, context.Canceled) && first == nil {
			first = err
			stop()
		}
	}
	slog.Info("nozzle daemon stopped")
	return first
}

// daemon answers IPC requests.
type daemon struct {
	store   *store.SQLite
	rec     *recorder.Recorder
	clip    clip.Backend
	maxTTL  time.Duration
	started time.Time
}

func (d *daemon) handle(req *message.Message) *message.Message {
	switch req.Type {
	case message.TypeSuppress:
		ttl := req.TTL
		if ttl <= 0 || (d.maxTTL > 0 && ttl > d.maxTTL) {
			ttl = d.maxTTL
		}
		d.rec.SetSuppressed(req.On, ttl, req.Source)
		return &message.Message{Type: message.TypeAck}

	case message.TypeCopy:
		if err := d.clip.WriteText(req.Text); err != nil {
			return message.Errorf("write clipboard: %v", err)
		}
		slog.Debug("clipboard written for client", "source", req.Source, "len", len(req.Text))
		return &message.Message{Type: message.TypeAck}

	case message.TypePing:
		return &message.Message{Type: message.TypePong}

	case message.TypeStatus:
		return &message.Message{Type: message.TypeStatusResponse, Status: d.status()}

	default:
		return message.Errorf("unsupported message type %q", req.Type)
	}
}

func (d *daemon) status() *message.Status {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	records := -1
	if list, err := d.store.List(ctx); err != nil {
		slog.Warn("status: history list failed", "err", err)
	} else {
		records = len(list)
	}
	return &message.Status{
		PID:          os.Getpid(),
		Version:      Version,
		Backend:      d.clip.Name(),
		DB:           d.store.Path(),
		Sealed:       d.store.Sealed(),
		Records:      records,
		Suppressed:   d.rec.Suppressed(),
		StartedAt:    d.started,
		LastRecorded: d.rec.LastRecorded(),
	}
}
