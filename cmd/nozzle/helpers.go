package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// envKeyReplacer maps config keys like seal-token to NOZZLE_SEAL_TOKEN.
var envKeyReplacer = strings.NewReplacer("-", "_")

func getenv(key string) string { return os.Getenv(key) }

// dataDir is where the history database lives.
//
//   - Linux:   $XDG_DATA_HOME/nozzle, else ~/.local/share/nozzle
//   - macOS:   ~/Library/Application Support/nozzle
//   - Windows: %LOCALAPPDATA%\nozzle
func dataDir() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "nozzle")
	case "windows":
		if d := getenv("LOCALAPPDATA"); d != "" {
			return filepath.Join(d, "nozzle")
		}
	}
	if d := getenv("XDG_DATA_HOME"); d != "" {
		return filepath.Join(d, "nozzle")
	}
	return filepath.Join(home, ".local", "share", "nozzle")
}

// stateDir is where the popup log goes.
func stateDir() string {
	if d := getenv("XDG_STATE_HOME"); d != "" {
		return filepath.Join(d, "nozzle")
	}
	if runtime.GOOS != "linux" {
		return dataDir()
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "nozzle")
}

func defaultDBPath() string  { return filepath.Join(dataDir(), "history.db") }
func defaultLogPath() string { return filepath.Join(stateDir(), "popup.log") }

// defaultSource names this process in daemon logs.
func defaultSource(role string) string {
	h, err := os.Hostname()
	if err != nil {
		h = "unknown"
	}
	return fmt.Sprintf("%s:%s:%d", role, h, os.Getpid())
}

func fmtAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

// oneLine collapses whitespace and cuts s to n runes for table output.
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}
