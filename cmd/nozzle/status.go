package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/nozzle/internal/ipc"
	"go.klb.dev/nozzle/internal/message"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the running daemon",
		Long: `Asks the daemon over the IPC socket for its state: clipboard backend,
history database, record count and whether recording is suppressed.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runStatus(cmd.Context(), v) },
	}

	f := cmd.Flags()
	f.Bool("json", false, "output raw JSON")
	f.String("seal-token", "", "secret the daemon was started with")
	addConfigFlag(cmd)

	return cmd
}

func runStatus(ctx context.Context, v *viper.Viper) error {
	path := ipc.SocketPath()
	if !ipc.IsRunning(path) {
		return fmt.Errorf("no daemon listening on %s", path)
	}
	key, err := wireKey(v)
	if err != nil {
		return err
	}
	client, err := ipc.Dial(path, key)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	st, err := client.Status(ctx)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	if v.GetBool("json") {
		enc, _ := json.MarshalIndent(st, "", "  ")
		fmt.Println(string(enc))
		return nil
	}

	printStatus(st, path)
	return nil
}

func printStatus(st *message.Status, socket string) {
	w := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Daemon:\tpid %d, %s\n", st.PID, st.Version)
	fmt.Fprintf(w, "Socket:\t%s\n", socket)
	fmt.Fprintf(w, "Up since:\t%s (%s)\n", st.StartedAt.Format(time.RFC3339), fmtAge(st.StartedAt))
	fmt.Fprintf(w, "Clipboard:\t%s\n", st.Backend)
	fmt.Fprintf(w, "History:\t%s\n", st.DB)
	if st.Records >= 0 {
		fmt.Fprintf(w, "Records:\t%d\n", st.Records)
	}
	fmt.Fprintf(w, "Sealed:\t%t\n", st.Sealed)
	fmt.Fprintf(w, "Recording:\t%s\n", recordingState(st.Suppressed))
	fmt.Fprintf(w, "Last recorded:\t%s\n", fmtAge(st.LastRecorded))
	_ = w.Flush()
}

func recordingState(suppressed bool) string {
	if suppressed {
		return "suppressed"
	}
	return "on"
}
