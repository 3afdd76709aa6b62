// platform/platform.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package platform provides the window the renderer presents to.
package platform

// Window abstracts the native window and its swap chain.
type Window interface {
	// SwapBuffers presents the back buffer(s).
	SwapBuffers()
	// EnableVSync specifies whether buffer swaps wait for vertical
	// blank; it's on by default.
	EnableVSync(sync bool)
	// FramebufferSize returns the size of the default framebuffer in
	// pixels, which may differ from the window size on high-DPI
	// displays.
	FramebufferSize() (w, h int)
	// HasStereoPixelFormat reports whether the window has separate left
	// and right back buffers.
	HasStereoPixelFormat() bool
	// ProcessEvents handles pending window events and returns true if
	// there were any.
	ProcessEvents() bool
	// ShouldStop returns true if the window is to be closed.
	ShouldStop() bool
	// Keyboard returns the keys pressed since the last call to
	// ProcessEvents.
	Keyboard() *KeyboardState
	SetWindowTitle(text string)
	EnableFullScreen(fullscreen bool)
	IsFullScreen() bool
	// Dispose releases the window and the graphics context.
	Dispose()
}

type Config struct {
	InitialWindowSize     [2]int `toml:"initial_window_size"`
	InitialWindowPosition [2]int `toml:"initial_window_position"`

	StartInFullScreen bool `toml:"start_in_full_screen"`
	FullScreenMonitor int  `toml:"full_screen_monitor"`

	// Stereo requests a quad-buffered pixel format. If the driver
	// doesn't offer one, a regular window is created instead.
	Stereo bool `toml:"stereo"`
	VSync  bool `toml:"vsync"`
}

// Key identifies the keys the demo responds to.
type Key int

const (
	KeyEscape Key = iota
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	KeySpace
	KeyTab
)

type KeyboardState struct {
	// A key shows up here once each time it is pressed (though repeatedly
	// if key repeat kicks in.)
	Pressed map[Key]any
}

func (k *KeyboardState) WasPressed(key Key) bool {
	if k == nil {
		return false
	}
	_, ok := k.Pressed[key]
	return ok
}
