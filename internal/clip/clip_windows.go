//go:build windows

package clip

// #cgo LDFLAGS: -luser32
//
// #include <windows.h>
// #include <stdlib.h>
//
// static HWND nozzle_create_listener_window();
// static void nozzle_pump_messages(HWND hwnd, int* changed);
//
// static LRESULT CALLBACK nozzle_wnd_proc(HWND hwnd, UINT msg, WPARAM wp, LPARAM lp) {
//     if (msg == WM_CLIPBOARDUPDATE) {
//         PostMessage(hwnd, WM_USER + 1, 0, 0);
//         return 0;
//     }
//     return DefWindowProc(hwnd, msg, wp, lp);
// }
//
// static HWND nozzle_create_listener_window() {
//     WNDCLASS wc = {0};
//     wc.lpfnWndProc   = nozzle_wnd_proc;
//     wc.hInstance     = GetModuleHandle(NULL);
//     wc.lpszClassName = "NozzleClipboard";
//     RegisterClass(&wc);
//     HWND hwnd = CreateWindowEx(0, "NozzleClipboard", NULL, 0,
//         0, 0, 0, 0, HWND_MESSAGE, NULL, GetModuleHandle(NULL), NULL);
//     AddClipboardFormatListener(hwnd);
//     return hwnd;
// }
//
// static void nozzle_pump_messages(HWND hwnd, int* changed) {
//     MSG msg;
//     *changed = 0;
//     while (PeekMessage(&msg, hwnd, 0, 0, PM_REMOVE)) {
//         if (msg.message == WM_USER + 1) { *changed = 1; }
//         TranslateMessage(&msg);
//         DispatchMessage(&msg);
//     }
// }
import "C"

import (
	"log/slog"
	"time"

	"golang.design/x/clipboard"
)

type windowsBackend struct {
	hwnd    C.HWND
	watchCh chan struct{}
	done    chan struct{}
}

// New returns the Windows clipboard backend using AddClipboardFormatListener.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard init failed", "err", err)
	}
	b := &windowsBackend{
		hwnd:    C.nozzle_create_listener_window(),
		watchCh: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go b.pump()
	return b
}

func (b *windowsBackend) Name() string { return "Windows Clipboard" }

func (b *windowsBackend) pump() {
	t := time.NewTicker(50 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-t.C:
			var changed C.int
			C.nozzle_pump_messages(b.hwnd, &changed)
			if changed != 0 {
				notify(b.watchCh)
			}
		}
	}
}

func (b *windowsBackend) ReadText() (string, error) {
	return string(clipboard.Read(clipboard.FmtText)), nil
}

func (b *windowsBackend) WriteText(text string) error {
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

func (b *windowsBackend) Watch() <-chan struct{} { return b.watchCh }
func (b *windowsBackend) Close()                { close(b.done) }
