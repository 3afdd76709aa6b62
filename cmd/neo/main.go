// cmd/neo/main.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

// This file contains the implementation of the main() function, which
// initializes the window and the render backend and then runs the frame
// loop until the window is closed.

import (
	"embed"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/apenwarr/fixconsole"
	"github.com/goforj/godump"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"

	"github.com/neovr/neo/gpu"
	"github.com/neovr/neo/gpu/ogl"
	"github.com/neovr/neo/hmd"
	"github.com/neovr/neo/log"
	"github.com/neovr/neo/platform"
	"github.com/neovr/neo/renderer"
	"github.com/neovr/neo/util"
)

var (
	configPath = flag.String("config", "", "configuration file (default: config.toml in the user config directory)")
	logLevel   = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir     = flag.String("logdir", "", "log file directory")
	headless   = flag.Int("headless", 0, "render this many frames without a window or GPU and exit")
	dumpState  = flag.Bool("dumpstate", false, "print the GPU state after the first frame")
	stereo     = flag.String("stereo", "", "stereo mode: off, quad-buffer, side-by-side, side-by-side-compressed, top-bottom-compressed, interlaced, hdmi-720, hmd")
)

//go:embed shaders
var embeddedShaders embed.FS

func init() {
	// OpenGL and friends require that all calls be made from the primary
	// application thread, while by default, go allows the main thread to
	// run on different hardware threads over the course of
	// execution. Therefore, we must lock the main thread at startup time.
	runtime.LockOSThread()
}

func main() {
	flag.Parse()

	if err := fixconsole.FixConsoleIfNeeded(); err != nil {
		// Not sure this will actually appear, but what else are we going
		// to do...
		fmt.Printf("FixConsole: %v\n", err)
	}

	// Initialize the logging system first and foremost.
	lg := log.New(*logLevel, *logDir)
	defer lg.CatchAndReportCrash()

	logSystemInfo(lg)

	path := *configPath
	if path == "" {
		path = configFilePath(lg)
	}
	config, configErr := LoadConfig(path, lg)
	if *stereo != "" {
		st, err := renderer.ParseStereoTopology(*stereo)
		if err != nil {
			fmt.Fprintf(os.Stderr, "-stereo: %v\n", err)
			os.Exit(1)
		}
		config.Renderer.Stereo = st
	}

	source := shaderSource(config, lg)

	h := hmd.Probe(config.HMD, lg)
	defer h.Close()

	if *headless > 0 {
		if configErr != nil {
			lg.Errorf("%v", configErr)
		}
		if err := runHeadless(config, source, h, *headless, lg); err != nil {
			lg.Errorf("%v", err)
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	config.Window.Stereo = config.Renderer.Stereo == renderer.StereoQuadBuffer
	plat, err := platform.New(&config.Window, lg)
	if err != nil {
		ShowFatalErrorDialog(lg, "Unable to create window: %v", err)
	}
	defer plat.Dispose()

	if configErr != nil {
		ShowErrorDialog(lg, "Saved configuration file is corrupt. Using defaults. (%v)", configErr)
	}

	dev, err := ogl.New(lg)
	if err != nil {
		ShowFatalErrorDialog(lg, "%v", err)
	}
	defer dev.Dispose()

	b := renderer.NewBackend(dev, plat, h, source, lg)
	b.Prompter = dialogPrompter{lg: lg}
	b.PersistTimings = config.PersistTimings
	b.SetConfig(config.Renderer)
	if err := b.Init(); errors.Is(err, renderer.ErrUserQuit) {
		lg.Info("user declined the software renderer")
		return
	} else if err != nil {
		ShowFatalErrorDialog(lg, "Unable to initialize the renderer:\n\n%v", err)
	}
	defer b.Shutdown()
	logBuiltins(b, lg)

	if config.ShaderDir != "" {
		if w, err := renderer.WatchShaders(config.ShaderDir, b.ReloadShaders, lg); err != nil {
			lg.Warnf("%s: not watching for changes: %v", config.ShaderDir, err)
		} else {
			defer w.Close()
		}
	}

	scene := NewScene(b, h)
	defer scene.Release()

	if err := runFrameLoop(plat, b, scene, scene.Frame, lg); err != nil {
		ShowFatalErrorDialog(lg, "Rendering failed:\n\n%v", err)
	}

	config.Renderer = b.Config()
	config.Window.StartInFullScreen = plat.IsFullScreen()
	if err := config.Save(path, lg); err != nil {
		lg.Errorf("%s: %v", path, err)
	}
}

// shaderSource returns the shaders to draw with: the configured shader
// directory if there is one, otherwise the built-in shaders.
func shaderSource(config *Config, lg *log.Logger) *renderer.FSSource {
	if config.ShaderDir != "" {
		return renderer.NewFSSource(os.DirFS(config.ShaderDir), ".", lg)
	}
	fsys, err := fs.Sub(embeddedShaders, "shaders")
	if err != nil {
		// Only possible if the embed directive is broken.
		panic(err)
	}
	return renderer.NewFSSource(fsys, ".", lg)
}

func logSystemInfo(lg *log.Logger) {
	if info, err := cpu.Info(); err != nil {
		lg.Warnf("cpu info: %v", err)
	} else if len(info) > 0 {
		lg.Info("CPU", slog.String("model", info[0].ModelName), slog.Int("cores", len(info)))
	}
	if vm, err := mem.VirtualMemory(); err != nil {
		lg.Warnf("memory info: %v", err)
	} else {
		lg.Info("Memory", slog.Uint64("total_mb", vm.Total/(1024*1024)))
	}
}

// logBuiltins notes how many of the builtin programs are usable; the
// optional ones only disable effects.
func logBuiltins(b *renderer.Backend, lg *log.Logger) {
	snap := b.GetCurrentGPUStateSnapshot()
	n := util.ReduceMap(snap.Builtins, func(_ string, ok bool, n int) int {
		return n + util.Select(ok, 1, 0)
	}, 0)
	lg.Info("builtin programs", slog.Int("linked", n), slog.Int("total", len(snap.Builtins)),
		slog.Any("features", snap.Features))
}

// runFrameLoop draws the frames that build returns until the window is
// closed. A malformed command list can't be drawn correctly, so it ends
// the loop with an error rather than presenting a partial frame.
func runFrameLoop(plat platform.Window, b *renderer.Backend, scene *Scene,
	build func(time.Duration) *renderer.CommandList, lg *log.Logger) error {
	lg.Info("Starting main loop")
	start := time.Now()

	for frame := 0; ; frame++ {
		plat.ProcessEvents()
		kb := plat.Keyboard()
		if plat.ShouldStop() || kb.WasPressed(platform.KeyEscape) {
			return nil
		}
		handleKeys(kb, plat, b, scene, lg)

		cl := build(time.Since(start))
		err := b.ExecuteCommands(cl)
		renderer.ReturnCommandList(cl)
		if errors.Is(err, renderer.ErrUnknownCommand) || errors.Is(err, renderer.ErrEyeNotRendered) {
			return fmt.Errorf("frame %d: %w", frame, err)
		} else if err != nil {
			lg.Errorf("frame %d: %v", frame, err)
		}
		b.BlockingPresent()

		if frame == 0 && *dumpState {
			godump.Dump(b.GetCurrentGPUStateSnapshot())
		}
		if frame%60 == 0 {
			plat.SetWindowTitle(fmt.Sprintf("neo: %s %s", b.Config().Stereo, b.SwapStats()))
		}
		// Every 5min at 60fps, starting 2.5min after launch
		if frame%18000 == 9000 {
			lg.Info("performance", slog.Any("frame", b.FrameCounters()), slog.Any("swap", b.SwapStats()),
				slog.Any("total", b.Counters()))
		}
	}
}

// handleKeys applies the debugging toggles. Config changes are staged
// and take effect at the start of the next frame.
func handleKeys(kb *platform.KeyboardState, plat platform.Window, b *renderer.Backend, scene *Scene, lg *log.Logger) {
	cfg := b.Config()
	changed := true
	switch {
	case kb.WasPressed(platform.KeyF1):
		cfg.Stereo = (cfg.Stereo + 1) % (renderer.StereoHMD + 1)
		lg.Infof("stereo: %s", cfg.Stereo)
	case kb.WasPressed(platform.KeyF2):
		cfg.DrawFlickerBox = !cfg.DrawFlickerBox
	case kb.WasPressed(platform.KeyF3):
		cfg.SyncEveryFrame = !cfg.SyncEveryFrame
	case kb.WasPressed(platform.KeyF4):
		cfg.ShowSwapTiming = !cfg.ShowSwapTiming
	case kb.WasPressed(platform.KeyF6):
		cfg.ShowOverdraw = !cfg.ShowOverdraw
	case kb.WasPressed(platform.KeyF7):
		cfg.RenderLogLevel = (cfg.RenderLogLevel + 1) % 3
	default:
		changed = false
	}
	if changed {
		b.SetConfig(cfg)
	}

	if kb.WasPressed(platform.KeyF5) {
		b.ReloadShaders()
	}
	if kb.WasPressed(platform.KeyF11) {
		plat.EnableFullScreen(!plat.IsFullScreen())
	}
	if kb.WasPressed(platform.KeyF12) {
		lg.Info("GPU state", slog.Any("snapshot", b.GetCurrentGPUStateSnapshot()))
	}
	if kb.WasPressed(platform.KeySpace) {
		// Toggle the fixed screen an HMD shows while the game is in a
		// menu.
		scene.Motion.ShellActive = !scene.Motion.ShellActive
	}
}

// headlessWindow stands in for the window when rendering to a recording
// device.
type headlessWindow struct {
	w, h   int
	stereo bool
	swaps  int
}

func (w *headlessWindow) SwapBuffers()                { w.swaps++ }
func (w *headlessWindow) FramebufferSize() (int, int) { return w.w, w.h }
func (w *headlessWindow) HasStereoPixelFormat() bool  { return w.stereo }

// runHeadless renders frames with the recording device, which is handy
// for checking what the backend does on machines without a GPU.
func runHeadless(config *Config, source renderer.ShaderSource, h hmd.Device, frames int, lg *log.Logger) error {
	rec := gpu.NewRecorder(gpu.DefaultInfo())
	size := config.Window.InitialWindowSize
	if size[0] == 0 || size[1] == 0 {
		size = [2]int{1280, 720}
	}
	win := &headlessWindow{w: size[0], h: size[1], stereo: true}

	b := renderer.NewBackend(rec, win, h, source, lg)
	b.SetConfig(config.Renderer)
	if err := b.Init(); err != nil {
		return err
	}
	defer b.Shutdown()

	scene := NewScene(b, h)
	defer scene.Release()

	step := time.Second / 60
	for i := range frames {
		cl := scene.Frame(time.Duration(i) * step)
		err := b.ExecuteCommands(cl)
		renderer.ReturnCommandList(cl)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		b.BlockingPresent()
		if i == 0 && *dumpState {
			godump.Dump(b.GetCurrentGPUStateSnapshot())
		}
		// The recorder keeps every call; only the last frame's are
		// interesting.
		if i != frames-1 {
			rec.Reset()
		}
	}

	fmt.Printf("%d frames, %d swaps, %d GPU calls in the last frame\n", frames, win.swaps, len(rec.Ops))
	c := b.Counters()
	fmt.Printf("totals: %s\n", c.String())
	lg.Info("headless run", slog.Int("frames", frames), slog.Any("counters", b.Counters()))
	return nil
}
