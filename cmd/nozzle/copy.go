package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/nozzle/internal/clip"
	"go.klb.dev/nozzle/internal/ipc"
)

func newCopyCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "copy [text...]",
		Short: "Copy arguments or stdin to the clipboard and history (like pbcopy)",
		Long: `Puts text on the system clipboard and records it in the history. With no
arguments, stdin is read.

The entry is added directly, so it lands in the history even when no daemon
is running. When a daemon runs it writes the clipboard, so the text outlives
this command on X11; it sees the same text and does not duplicate it.`,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, args []string) error { return runCopy(cmd.Context(), v, args) },
	}

	f := cmd.Flags()
	f.Bool("history-only", false, "record in history without touching the clipboard")
	addStoreFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runCopy(ctx context.Context, v *viper.Viper, args []string) error {
	setupLogging(v)

	text := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	st, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.Add(ctx, text)
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}
	slog.Debug("copied into history", "id", rec.ID)

	if v.GetBool("history-only") {
		return nil
	}

	key, err := wireKey(v)
	if err != nil {
		return err
	}
	if client, err := ipc.Dial(ipc.SocketPath(), key); err == nil {
		defer client.Close()
		err := client.Copy(ctx, defaultSource("copy"), text)
		if err == nil {
			return nil
		}
		slog.Warn("daemon copy failed; writing the clipboard directly", "err", err)
	}

	backend := clip.New()
	defer backend.Close()
	if err := backend.WriteText(text); err != nil {
		return fmt.Errorf("write clipboard (%s): %w", backend.Name(), err)
	}
	return nil
}
