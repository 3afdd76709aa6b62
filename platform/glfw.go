// platform/glfw.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package platform

import (
	"fmt"
	"runtime"
	"strconv"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/neovr/neo/log"
	"github.com/neovr/neo/util"
)

// glfwWindow implements the Window interface using GLFW.
type glfwWindow struct {
	window *glfw.Window
	config *Config
	lg     *log.Logger

	stereo    bool
	anyEvents bool
	pressed   map[Key]any
}

var glfwKeys = map[glfw.Key]Key{
	glfw.KeyEscape: KeyEscape,
	glfw.KeyF1:     KeyF1,
	glfw.KeyF2:     KeyF2,
	glfw.KeyF3:     KeyF3,
	glfw.KeyF4:     KeyF4,
	glfw.KeyF5:     KeyF5,
	glfw.KeyF6:     KeyF6,
	glfw.KeyF7:     KeyF7,
	glfw.KeyF8:     KeyF8,
	glfw.KeyF9:     KeyF9,
	glfw.KeyF10:    KeyF10,
	glfw.KeyF11:    KeyF11,
	glfw.KeyF12:    KeyF12,
	glfw.KeySpace:  KeySpace,
	glfw.KeyTab:    KeyTab,
}

// New creates a window with an OpenGL 4.1 core profile context and makes
// the context current. It must be called from the main thread.
func New(config *Config, lg *log.Logger) (Window, error) {
	lg.Info("Starting GLFW initialization")
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize glfw: %w", err)
	}
	lg.Infof("GLFW: %s", glfw.GetVersionString())

	vm := glfw.GetPrimaryMonitor().GetVideoMode()
	if config.InitialWindowSize[0] == 0 || config.InitialWindowSize[1] == 0 {
		config.InitialWindowSize = [2]int{vm.Width - 150, vm.Height - 150}
	}
	// If window position is out of bounds, create the window at (100, 100)
	if config.InitialWindowPosition[0] < 0 || config.InitialWindowPosition[1] < 0 ||
		config.InitialWindowPosition[0] > vm.Width || config.InitialWindowPosition[1] > vm.Height {
		config.InitialWindowPosition = [2]int{100, 100}
	}
	monitors := glfw.GetMonitors()
	if config.FullScreenMonitor >= len(monitors) {
		// Monitor saved in config not found, fallback to default
		config.FullScreenMonitor = 0
	}

	w := &glfwWindow{config: config, lg: lg, pressed: make(map[Key]any)}

	window, err := w.create(config.Stereo)
	if err != nil && config.Stereo {
		lg.Warnf("no stereo pixel format: %v", err)
		window, err = w.create(false)
	} else if err == nil {
		w.stereo = config.Stereo
	}
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	w.window = window

	window.SetPos(config.InitialWindowPosition[0], config.InitialWindowPosition[1])
	window.Show()
	window.MakeContextCurrent()
	window.SetKeyCallback(w.keyChange)
	window.SetFramebufferSizeCallback(func(*glfw.Window, int, int) { w.anyEvents = true })
	w.EnableVSync(config.VSync)

	glfw.SetMonitorCallback(w.monitorCallback)

	lg.Info("Finished GLFW initialization", "stereo", w.stereo)
	return w, nil
}

func (w *glfwWindow) create(stereo bool) (*glfw.Window, error) {
	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.DepthBits, 24)
	glfw.WindowHint(glfw.StencilBits, 8)
	if stereo {
		glfw.WindowHint(glfw.Stereo, glfw.True)
	}
	// Start with an invisible window so that we can position it first
	glfw.WindowHint(glfw.Visible, glfw.False)
	// Disable GLFW_AUTO_ICONIFY to stop the window from automatically minimizing in fullscreen
	glfw.WindowHint(glfw.AutoIconify, glfw.False)

	if w.config.StartInFullScreen {
		monitor := glfw.GetMonitors()[w.config.FullScreenMonitor]
		vm := monitor.GetVideoMode()
		return glfw.CreateWindow(vm.Width, vm.Height, "neo", monitor, nil)
	}
	return glfw.CreateWindow(w.config.InitialWindowSize[0], w.config.InitialWindowSize[1], "neo", nil, nil)
}

func (w *glfwWindow) SwapBuffers() {
	w.window.SwapBuffers()
}

func (w *glfwWindow) EnableVSync(sync bool) {
	glfw.SwapInterval(util.Select(sync, 1, 0))
}

func (w *glfwWindow) FramebufferSize() (int, int) {
	return w.window.GetFramebufferSize()
}

func (w *glfwWindow) HasStereoPixelFormat() bool {
	return w.stereo
}

func (w *glfwWindow) ProcessEvents() bool {
	w.anyEvents = false
	clear(w.pressed)
	glfw.PollEvents()
	return w.anyEvents
}

func (w *glfwWindow) ShouldStop() bool {
	return w.window.ShouldClose()
}

func (w *glfwWindow) Keyboard() *KeyboardState {
	ks := &KeyboardState{Pressed: make(map[Key]any, len(w.pressed))}
	for k := range w.pressed {
		ks.Pressed[k] = nil
	}
	return ks
}

func (w *glfwWindow) keyChange(window *glfw.Window, keycode glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	w.anyEvents = true
	if action != glfw.Press && action != glfw.Repeat {
		return
	}
	if k, ok := glfwKeys[keycode]; ok {
		w.pressed[k] = nil
	}
}

func (w *glfwWindow) SetWindowTitle(text string) {
	w.window.SetTitle(text)
}

func (w *glfwWindow) GetAllMonitorNames() []string {
	var names []string
	for i, monitor := range glfw.GetMonitors() {
		names = append(names, "("+strconv.Itoa(i)+") "+monitor.GetName())
	}
	return names
}

func (w *glfwWindow) monitorCallback(monitor *glfw.Monitor, event glfw.PeripheralEvent) {
	if event == glfw.Disconnected {
		w.config.FullScreenMonitor = 0
		w.config.StartInFullScreen = false
	}
}

func (w *glfwWindow) IsFullScreen() bool {
	return w.window.GetMonitor() != nil
}

func (w *glfwWindow) EnableFullScreen(fullscreen bool) {
	monitors := glfw.GetMonitors()
	if w.config.FullScreenMonitor >= len(monitors) {
		// Shouldn't happen, but just to be sure
		w.config.FullScreenMonitor = 0
	}

	monitor := monitors[w.config.FullScreenMonitor]
	vm := monitor.GetVideoMode()
	if fullscreen {
		w.window.SetMonitor(monitor, 0, 0, vm.Width, vm.Height, vm.RefreshRate)
		return
	}

	size := w.config.InitialWindowSize
	if size[0] == 0 || size[1] == 0 {
		size = [2]int{vm.Width - 150, vm.Height - 150}
	}
	if runtime.GOOS == "darwin" {
		// Leave room for the menu bar.
		size[1] = min(size[1], vm.Height-50)
	}
	w.window.SetMonitor(nil, w.config.InitialWindowPosition[0], w.config.InitialWindowPosition[1],
		size[0], size[1], glfw.DontCare)
}

func (w *glfwWindow) Dispose() {
	w.window.Destroy()
	glfw.Terminate()
}
