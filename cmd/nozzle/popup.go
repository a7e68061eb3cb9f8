package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/nozzle/internal/app"
	"go.klb.dev/nozzle/internal/clip"
	"go.klb.dev/nozzle/internal/clock"
	"go.klb.dev/nozzle/internal/ipc"
	"go.klb.dev/nozzle/internal/loop"
	"go.klb.dev/nozzle/internal/orchestrator"
	"go.klb.dev/nozzle/internal/popup"
	"go.klb.dev/nozzle/internal/recorder"
	"go.klb.dev/nozzle/internal/selection"
)

func newPopupCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "popup",
		Short: "Open the history picker",
		Long: `Opens the clipboard history in the terminal. Type to filter, enter to check
entries, tab to write a prompt, ctrl+s to paste the prompt and checked entries
into the focused application one after another, ctrl+y to copy them as one
block.

The paste starts after the picker closes and the settle delay passes, so run
the popup in a terminal window that goes away when the command's screen
closes (a drop-down terminal or a tmux popup).`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runPopup(cmd.Context(), v) },
	}

	f := cmd.Flags()
	f.String("filter", "fuzzy", "search matching: fuzzy|exact")
	f.Duration("preview-delay", selection.DefaultPreviewDelay, "delay before a requested preview shows")
	f.String("paste-command", "", "command that sends the paste keystroke (default: detected per platform)")
	f.Duration("suppress-timeout", recorder.DefaultSuppressTTL, "upper bound on how long the daemon stops recording")
	f.Duration("poll-interval", 500*time.Millisecond, "how often to check the database for changes by the daemon")
	f.String("editor", "", "editor for preferences (default $VISUAL, $EDITOR, vi)")
	f.String("log-file", defaultLogPath(), "log file (the terminal belongs to the picker)")
	f.String("log-format", "json", "log format: text|json")
	f.String("log-level", "", "log level: debug|info|warn|error (default: info)")
	addTimingFlags(cmd)
	addStoreFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runPopup(ctx context.Context, v *viper.Viper) error {
	logs, err := setupFileLogging(v)
	if err != nil {
		return err
	}
	defer logs.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer st.Close()
	go func() {
		if err := st.Watch(ctx, v.GetDuration("poll-interval")); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("history watch stopped", "err", err)
		}
	}()

	backend := clip.New()
	defer backend.Close()

	paster, err := clip.NewPaster(v.GetString("paste-command"))
	if err != nil {
		slog.Warn("paste keystroke unavailable; combined paste will fail", "err", err)
		paster = nil
	}

	var suppressor clip.Suppressor
	var writer clip.Backend = backend
	key, err := wireKey(v)
	if err != nil {
		return err
	}
	if client, err := ipc.Dial(ipc.SocketPath(), key); err != nil {
		slog.Info("no daemon; pastes will not be hidden from history", "err", err)
	} else {
		defer client.Close()
		source := defaultSource("popup")
		suppressor = clip.SuppressorFunc(client.Suppressor(source, v.GetDuration("suppress-timeout")))
		writer = client.Backend(backend, source)
	}
	system := clip.NewSystem(ctx, writer, paster, suppressor)

	l := loop.New(clock.Real())
	go func() { _ = l.Run(ctx) }()

	cfg := app.Config{
		Template:     v.GetString("template"),
		Timing:       timing(v),
		PreviewDelay: v.GetDuration("preview-delay"),
		FilterMode:   v.GetString("filter"),
	}
	bridge := popup.NewBridge()

	var (
		a       *app.App
		loadErr error
	)
	l.Do(func() {
		a = app.New(ctx, st, system, l, l.Post, cfg, bridge.Hooks())
		loadErr = a.Load()
	})
	if loadErr != nil {
		return fmt.Errorf("load history: %w", loadErr)
	}

	m := popup.New(a, l.Do, bridge, popup.Options{
		ConfigPath: configPath(v),
		Editor:     v.GetString("editor"),
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx))
	bridge.Attach(p)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		l.Do(a.Teardown)
		return fmt.Errorf("popup: %w", err)
	}

	var busy bool
	l.Do(func() { busy = a.Busy() })
	if busy {
		waitForRun(bridge.Finished(), v.GetDuration("suppress-timeout"))
	}
	l.Do(a.Teardown)
	return nil
}

// waitForRun keeps the process alive until the paste run ends, or at most
// limit; the daemon's suppression would lapse by then anyway.
func waitForRun(done <-chan orchestrator.Result, limit time.Duration) {
	t := time.NewTimer(limit)
	defer t.Stop()
	select {
	case res := <-done:
		switch {
		case res.Err == nil:
			slog.Info("paste finished", "stale", res.Stale)
		case errors.Is(res.Err, orchestrator.ErrCancelled):
			slog.Info("paste cancelled")
		default:
			slog.Error("paste failed", "err", res.Err)
		}
	case <-t.C:
		slog.Warn("paste still running; giving up", "after", limit)
	}
}
