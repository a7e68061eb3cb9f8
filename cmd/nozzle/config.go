package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/nozzle/internal/crypto"
	"go.klb.dev/nozzle/internal/logging"
	"go.klb.dev/nozzle/internal/orchestrator"
	"go.klb.dev/nozzle/internal/store"
)

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and NOZZLE_* env var prefix.
//
// Precedence (lowest → highest): defaults → config file → NOZZLE_* env vars → flags
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	configFlag, _ := cmd.Flags().GetString("config")
	if configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName("nozzle")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/nozzle/")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(fmt.Sprintf("%s/.config/nozzle", home))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix("NOZZLE")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-background", false, "run interactively: tinter logs + debug level")
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
	cmd.Flags().String("log-level", "", "log level: debug|info|warn|error (default: info for service, debug for interactive)")
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// addStoreFlags adds the flags every command that opens the history needs.
func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("db", defaultDBPath(), "history database path")
	cmd.Flags().Int("max-history", 200, "unpinned records kept (0 = unbounded)")
	cmd.Flags().String("seal-token", "", "encrypt history at rest and the IPC channel with this secret")
}

// addTimingFlags adds the paste pipeline and popup tunables.
func addTimingFlags(cmd *cobra.Command) {
	d := orchestrator.DefaultTiming()
	f := cmd.Flags()
	f.Duration("settle-delay", d.Settle, "wait after closing the popup before the first paste")
	f.Duration("prompt-paste-delay", d.AfterPrompt, "wait after pasting the prompt")
	f.Duration("item-paste-delay", d.AfterItem, "wait after pasting each item")
	f.Duration("separator-paste-delay", d.AfterSeparator, "wait after pasting a separator")
	f.String("separator", d.Separator, "text pasted between entries (empty = none)")
	f.String("template", "", `copy-combined template with {prompt} and {items} (default "{prompt}\nContext:\n{items}")`)
}

// setupLogging reads logging flags from viper and configures slog.
func setupLogging(v *viper.Viper) {
	interactive := v.GetBool("no-background") || logging.IsTTY(os.Stderr)
	resolveLogging(interactive, v.GetString("log-format"), v.GetString("log-level"))
}

// setupFileLogging sends logs to the log-file key. The caller closes the
// returned closer on exit.
func setupFileLogging(v *viper.Viper) (io.Closer, error) {
	level := v.GetString("log-level")
	if level == "" {
		level = "info"
	}
	return logging.SetupFile(v.GetString("log-file"),
		logging.ParseFormat(v.GetString("log-format")), logging.ParseLevel(level))
}

// openStore opens the history database named by the db key.
func openStore(ctx context.Context, v *viper.Viper) (*store.SQLite, error) {
	return store.Open(ctx, v.GetString("db"), store.Options{
		Limit:     v.GetInt("max-history"),
		SealToken: v.GetString("seal-token"),
	})
}

// wireKey derives the IPC key from seal-token; nil means plaintext.
func wireKey(v *viper.Viper) (*crypto.Key, error) {
	token := v.GetString("seal-token")
	if token == "" {
		return nil, nil
	}
	key, err := crypto.DeriveKey(token)
	if err != nil {
		return nil, fmt.Errorf("key derivation: %w", err)
	}
	return key, nil
}

// timing reads the paste pipeline delays.
func timing(v *viper.Viper) orchestrator.Timing {
	return orchestrator.Timing{
		Settle:         nonNegative(v.GetDuration("settle-delay")),
		AfterPrompt:    nonNegative(v.GetDuration("prompt-paste-delay")),
		AfterItem:      nonNegative(v.GetDuration("item-paste-delay")),
		AfterSeparator: nonNegative(v.GetDuration("separator-paste-delay")),
		Separator:      v.GetString("separator"),
	}
}

func nonNegative(d time.Duration) time.Duration { return max(d, 0) }

// configPath is the file the preferences action edits: the loaded config,
// or the per-user location when none was found.
func configPath(v *viper.Viper) string {
	if p := v.ConfigFileUsed(); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "nozzle", "nozzle.toml")
}
