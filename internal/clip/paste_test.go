package clip

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectPaster(t *testing.T) {
	tests := []struct {
		name      string
		goos      string
		env       map[string]string
		installed []string
		want      string
	}{
		{name: "macos", goos: "darwin", want: "osascript"},
		{name: "windows", goos: "windows", want: "powershell"},
		{name: "wayland prefers wtype", goos: "linux", env: map[string]string{"WAYLAND_DISPLAY": "wayland-0"}, installed: []string{"wtype", "ydotool", "xdotool"}, want: "wtype"},
		{name: "wayland falls back to ydotool", goos: "linux", env: map[string]string{"WAYLAND_DISPLAY": "wayland-0"}, installed: []string{"ydotool"}, want: "ydotool"},
		{name: "x11", goos: "linux", env: map[string]string{"DISPLAY": ":0"}, installed: []string{"xdotool"}, want: "xdotool"},
		{name: "x11 without xdotool", goos: "linux", env: map[string]string{"DISPLAY": ":0"}, installed: []string{"ydotool"}, want: "ydotool"},
		{name: "nothing installed", goos: "linux", env: map[string]string{"DISPLAY": ":0"}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getenv := func(k string) string { return tt.env[k] }
			lookPath := func(name string) (string, error) {
				for _, n := range tt.installed {
					if n == name {
						return "/usr/bin/" + n, nil
					}
				}
				return "", errors.New("not found")
			}
			argv := detectPaster(tt.goos, getenv, lookPath)
			if tt.want == "" {
				require.Empty(t, argv)
				return
			}
			require.NotEmpty(t, argv)
			require.Equal(t, tt.want, argv[0])
		})
	}
}

func TestNewPasterOverride(t *testing.T) {
	p, err := NewPaster("  xdotool key shift+Insert ")
	require.NoError(t, err)
	require.Equal(t, []string{"xdotool", "key", "shift+Insert"}, p.Command())
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.WriteText("a"))
	<-m.Watch()

	got, err := m.ReadText()
	require.NoError(t, err)
	require.Equal(t, "a", got)

	require.NoError(t, m.WriteText("a"))
	select {
	case <-m.Watch():
		t.Fatal("unchanged write signalled")
	default:
	}
}
