// nozzle: clipboard history with combined paste.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go.klb.dev/nozzle/internal/logging"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "nozzle",
		Short: "Clipboard history with combined paste",
		Long: `nozzle records everything you copy and lets you pick several history
entries, add a prompt, and paste them into the focused application one after
another, or copy them as a single block.

Run "nozzle daemon" once per login session to record the clipboard. Bind
"nozzle popup" to a hotkey in a terminal that closes when the command exits.
Use "nozzle list/copy/paste/status" as CLI tools.

Config file search order (first found wins):
  /etc/nozzle/nozzle.toml
  $HOME/.config/nozzle/nozzle.toml
  path supplied via --config

All flags can be set via NOZZLE_<FLAG> env vars or config-file keys.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newDaemonCmd(),
		newPopupCmd(),
		newListCmd(),
		newCopyCmd(),
		newPasteCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("nozzle %s\n", Version)
		},
	}
}

// resolveLogging sets up the global slog logger after flags are parsed.
func resolveLogging(interactive bool, formatStr, levelStr string) {
	format := logging.ParseFormat(formatStr)
	level := logging.ParseLevel(levelStr)
	if levelStr == "" {
		if interactive {
			level = logging.ParseLevel("debug")
		} else {
			level = logging.ParseLevel("info")
		}
	}
	logging.Setup(format, level)
}
