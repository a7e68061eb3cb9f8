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
)

func newListCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Print the clipboard history",
		Long: `Prints the history in popup order: pinned entries first, then newest first.
Entries checked in the saved popup session are marked with *.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runList(cmd.Context(), v) },
	}

	f := cmd.Flags()
	f.Int("limit", 0, "print at most this many entries (0 = all)")
	f.Bool("json", false, "output JSON")
	addStoreFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

type listEntry struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Pinned    bool      `json:"pinned"`
	Checked   bool      `json:"checked"`
	CreatedAt time.Time `json:"created_at"`
}

func runList(ctx context.Context, v *viper.Viper) error {
	st, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.List(ctx)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	if n := v.GetInt("limit"); n > 0 && n < len(records) {
		records = records[:n]
	}

	checked := make(map[string]bool)
	if sess, err := st.LoadSession(ctx); err == nil {
		for _, id := range sess.Checked {
			checked[string(id)] = true
		}
	}

	entries := make([]listEntry, len(records))
	for i, r := range records {
		entries[i] = listEntry{
			ID:        string(r.ID),
			Text:      r.Text,
			Pinned:    r.Pinned,
			Checked:   checked[string(r.ID)],
			CreatedAt: r.CreatedAt,
		}
	}

	if v.GetBool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Println("History is empty.")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "\t#\tID\tPIN\tAGE\tTEXT\n")
	_, _ = fmt.Fprintf(tw, "\t-\t--\t---\t---\t----\n")
	for i, e := range entries {
		marker := ""
		if e.Checked {
			marker = "*"
		}
		pin := ""
		if e.Pinned {
			pin = "yes"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
			marker, i+1, shortID(e.ID), pin, fmtAge(e.CreatedAt), oneLine(e.Text, 60))
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
