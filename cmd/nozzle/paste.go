package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/nozzle/internal/format"
	"go.klb.dev/nozzle/internal/history"
	"go.klb.dev/nozzle/internal/store"
)

func newPasteCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "paste",
		Short: "Print a history entry to stdout (like pbpaste)",
		Long: `Prints the newest history entry, or the n-th with --index (1 = newest,
in popup order). With --combined, prints the saved popup session's prompt and
checked entries formatted with the copy-combined template.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runPaste(cmd.Context(), v) },
	}

	f := cmd.Flags()
	f.Int("index", 1, "entry to print, 1-based in popup order")
	f.Bool("combined", false, "print the saved session as one formatted block")
	f.String("template", "", `template for --combined (default "{prompt}\nContext:\n{items}")`)
	addStoreFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runPaste(ctx context.Context, v *viper.Viper) error {
	st, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.List(ctx)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}

	if v.GetBool("combined") {
		text, err := combinedSession(ctx, st, records, v.GetString("template"))
		if err != nil {
			return err
		}
		if text != "" {
			fmt.Fprintln(os.Stdout, text)
		}
		return nil
	}

	i := v.GetInt("index")
	if i < 1 || i > len(records) {
		if len(records) == 0 {
			return nil
		}
		return fmt.Errorf("index %d out of range 1..%d", i, len(records))
	}
	_, err = fmt.Fprint(os.Stdout, records[i-1].Text)
	return err
}

// combinedSession formats the saved prompt and checked records in history
// order, skipping checks whose record is gone.
func combinedSession(ctx context.Context, st *store.SQLite, records []history.Record, template string) (string, error) {
	sess, err := st.LoadSession(ctx)
	if err != nil {
		return "", fmt.Errorf("session: %w", err)
	}
	checked := make(map[history.ID]bool, len(sess.Checked))
	for _, id := range sess.Checked {
		checked[id] = true
	}
	var items []string
	for _, r := range records {
		if checked[r.ID] {
			items = append(items, r.Text)
		}
	}
	if template == "" {
		template = format.DefaultTemplate
	}
	return format.Combine(template, sess.Prompt, items), nil
}
