package clip

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// ErrNoPaster means no keystroke tool was found for this desktop.
var ErrNoPaster = errors.New("no paste keystroke tool found (install xdotool, wtype or ydotool, or set paste-command)")

// Paster synthesizes the platform paste keystroke in whatever window has
// focus by running an external tool.
type Paster struct {
	argv    []string
	timeout time.Duration
}

// NewPaster returns a Paster running command, split on whitespace. An
// empty command picks a tool for the current desktop.
func NewPaster(command string) (*Paster, error) {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		argv = detectPaster(runtime.GOOS, os.Getenv, exec.LookPath)
	}
	if len(argv) == 0 {
		return nil, ErrNoPaster
	}
	return &Paster{argv: argv, timeout: 5 * time.Second}, nil
}

// Command returns the argv the Paster runs.
func (p *Paster) Command() []string { return append([]string(nil), p.argv...) }

// Paste sends the keystroke and waits for the tool to exit.
func (p *Paster) Paste(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.argv[0], p.argv[1:]...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", p.argv[0], err, msg)
		}
		return fmt.Errorf("%s: %w", p.argv[0], err)
	}
	return nil
}

// detectPaster picks a keystroke command for goos. Tools that are not
// installed are skipped.
func detectPaster(goos string, getenv func(string) string, lookPath func(string) (string, error)) []string {
	have := func(name string) bool {
		_, err := lookPath(name)
		return err == nil
	}
	switch goos {
	case "darwin":
		return []string{"osascript", "-e", `tell application "System Events" to keystroke "v" using command down`}
	case "windows":
		return []string{"powershell", "-NoProfile", "-Command",
			`(New-Object -ComObject WScript.Shell).SendKeys('^v')`}
	}

	wayland := getenv("WAYLAND_DISPLAY") != ""
	switch {
	case wayland && have("wtype"):
		return []string{"wtype", "-M", "ctrl", "v", "-m", "ctrl"}
	case wayland && have("ydotool"):
		// KEY_LEFTCTRL=29, KEY_V=47
		return []string{"ydotool", "key", "29:1", "47:1", "47:0", "29:0"}
	case getenv("DISPLAY") != "" && have("xdotool"):
		return []string{"xdotool", "key", "--clearmodifiers", "ctrl+v"}
	case have("ydotool"):
		return []string{"ydotool", "key", "29:1", "47:1", "47:0", "29:0"}
	}
	return nil
}
