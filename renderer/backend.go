// renderer/backend.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package renderer is the back end of the renderer: it executes the
// command lists the front end produces, drawing through a state cache
// that elides redundant GPU calls, composites stereo eye images and
// paces presentation with fences.
package renderer

import (
	"errors"
	"io/fs"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/brunoga/deep"

	"github.com/neovr/neo/gpu"
	"github.com/neovr/neo/hmd"
	"github.com/neovr/neo/log"
	"github.com/neovr/neo/math"
	"github.com/neovr/neo/renderer/state"
	"github.com/neovr/neo/util"
)

// Window is the surface the backend draws to.
type Window interface {
	Presenter
	FramebufferSize() (w, h int)
	// HasStereoPixelFormat reports whether the window has separate left
	// and right back buffers.
	HasStereoPixelFormat() bool
}

// Prompter asks the user whether to keep going when the GPU is a
// software rasterizer. It returns false if they'd rather quit.
type Prompter interface {
	ConfirmSoftwareRenderer(renderer string) bool
}

// StateSnapshot is a copy of the backend's view of the GPU state for
// diagnostics.
type StateSnapshot struct {
	State      state.Snapshot
	Program    string
	Topology   StereoTopology
	Features   []string
	Builtins   map[string]bool
	Frame      Counters
	Swap       SwapStats
	FenceState FenceState
}

const timingCacheFile = "frametimings.msgpack"

type Backend struct {
	dev    gpu.Device
	window Window
	hmd    hmd.Device
	source ShaderSource
	lg     *log.Logger

	// Prompter is consulted if the GPU is a software renderer; if it is
	// nil, initialization proceeds.
	Prompter Prompter
	// PersistTimings saves the frame timing history at Shutdown and
	// reloads it at Init.
	PersistTimings bool

	caps     gpu.Caps
	cache    *state.Cache
	progs    *ProgramTable
	rlog     *RenderLog
	exec     *executor
	stereo   *compositor
	throttle *throttle
	quad     unitSquare

	cfg       Config
	pendingMu sync.Mutex
	pending   *Config
	reload    atomic.Bool

	frame, total Counters
	warned       map[gpu.Feature]bool
	initialized  bool
}

// NewBackend returns a Backend that draws with dev into window. h may
// be nil if there's no HMD.
func NewBackend(dev gpu.Device, window Window, h hmd.Device, source ShaderSource, lg *log.Logger) *Backend {
	if h == nil {
		h = hmd.None{}
	}
	return &Backend{
		dev:    dev,
		window: window,
		hmd:    h,
		source: source,
		lg:     lg,
		cfg:    DefaultConfig(),
		warned: make(map[gpu.Feature]bool),
	}
}

// Init checks the GPU's capabilities and creates everything the backend
// draws with. Missing required features, a missing required builtin
// program or the user declining a software renderer are returned as
// errors.
func (b *Backend) Init() error {
	if b.initialized {
		return nil
	}
	if p := b.takePendingConfig(); p != nil {
		b.cfg = *p
	}

	info := b.dev.Info()
	b.lg.Info("GPU", slog.String("vendor", info.Vendor), slog.String("renderer", info.Renderer),
		slog.String("version", info.Version), slog.String("glsl", info.GLSLVersion))

	b.caps = gpu.ProbeCaps(info)
	switch b.caps.Vendor {
	case gpu.VendorIntel:
		if !b.cfg.SkipIntelWorkarounds {
			b.lg.Info("Intel GPU: disabling sync objects and timer queries")
			b.caps.Disable(gpu.FeatureSync)
			b.caps.Disable(gpu.FeatureTimerQuery)
		}
	case gpu.VendorMesa:
		b.caps.Disable(gpu.FeatureTimerQuery)
	}

	required, optional := b.caps.Missing()
	var e util.ErrorLogger
	e.Push("GPU features")
	for _, f := range required {
		e.ErrorString("%s: required but not available", f)
	}
	e.Pop()
	if e.HaveErrors() {
		e.PrintErrors(b.lg)
		return e.Err(ErrRequiredFeature)
	}
	for _, f := range optional {
		if !b.warned[f] {
			b.lg.Warnf("%s: not available", f)
			b.warned[f] = true
		}
	}

	if info.IsSoftwareRenderer() {
		b.lg.Warnf("%s: software renderer", info.Renderer)
		if b.Prompter != nil && !b.Prompter.ConfirmSoftwareRenderer(info.Renderer) {
			return ErrUserQuit
		}
	}

	b.applyWindowLimits()

	w, h := b.window.FramebufferSize()
	b.cache = state.New(b.dev, b.lg)
	b.cache.IgnoreErrors = b.cfg.IgnoreGPUErrors
	b.cache.Reset(w, h)

	b.progs = NewProgramTable(b.cache, b.source, b.lg)
	b.progs.Skinning = b.cfg.GPUSkinning
	if err := b.progs.LoadAll(); err != nil {
		b.release()
		return err
	}

	b.quad = newUnitSquare(b.cache)
	b.rlog = NewRenderLog(b.cache, b.caps.Has(gpu.FeatureTimerQuery), b.caps.Has(gpu.FeatureDebugMarkers), b.lg)
	b.rlog.Level = b.cfg.RenderLogLevel
	b.exec = &executor{
		cache:    b.cache,
		progs:    b.progs,
		rlog:     b.rlog,
		lg:       b.lg,
		quad:     b.quad,
		counters: &b.frame,
		cfg:      b.cfg,
	}
	b.stereo = &compositor{
		cache:    b.cache,
		progs:    b.progs,
		exec:     b.exec,
		hmd:      b.hmd,
		quad:     b.quad,
		counters: &b.frame,
		lg:       b.lg,
	}
	b.throttle = &throttle{cache: b.cache, lg: b.lg, useFences: b.caps.Has(gpu.FeatureSync)}

	if b.PersistTimings {
		b.loadTimings()
	}

	b.cache.CheckErrors("Init")
	b.initialized = true
	b.lg.Info("render backend initialized", slog.String("stereo", b.cfg.Stereo.String()),
		slog.Bool("fences", b.throttle.useFences), slog.Bool("timer_queries", b.rlog.timerQueries))
	return nil
}

// Shutdown releases everything Init created.
func (b *Backend) Shutdown() {
	if b.initialized && b.PersistTimings {
		b.saveTimings()
	}
	b.release()
	b.initialized = false
}

func (b *Backend) release() {
	if b.cache == nil {
		return
	}
	if b.stereo != nil {
		b.stereo.release()
	}
	if b.exec != nil {
		b.exec.release()
	}
	if b.throttle != nil {
		b.throttle.release()
	}
	if b.rlog != nil {
		b.rlog.Release()
	}
	b.quad.release(b.cache)
	b.quad = unitSquare{}
	if b.progs != nil {
		b.progs.KillAll()
	}
	b.cache.CheckErrors("Shutdown")
	b.cache, b.progs, b.rlog, b.exec, b.stereo, b.throttle = nil, nil, nil, nil, nil, nil
}

// Restart tears down and recreates all GPU objects, for example after a
// mode change.
func (b *Backend) Restart() error {
	b.lg.Info("restarting render backend")
	b.Shutdown()
	return b.Init()
}

// SetConfig stages a new configuration; it takes effect when the next
// frame starts. It may be called from any goroutine.
func (b *Backend) SetConfig(cfg Config) {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	b.pending = &cfg
}

func (b *Backend) takePendingConfig() *Config {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	p := b.pending
	b.pending = nil
	return p
}

// Config returns the configuration in effect.
func (b *Backend) Config() Config { return b.cfg }

func (b *Backend) applyPendingConfig() {
	p := b.takePendingConfig()
	if p == nil {
		return
	}
	old := b.cfg
	b.cfg = *p
	b.applyWindowLimits()

	if old.Stereo != b.cfg.Stereo {
		b.lg.Infof("stereo: %s -> %s", old.Stereo, b.cfg.Stereo)
		b.stereo.release()
	}
	if old.GPUSkinning != b.cfg.GPUSkinning {
		b.progs.Skinning = b.cfg.GPUSkinning
		b.reload.Store(true)
	}
	b.cache.IgnoreErrors = b.cfg.IgnoreGPUErrors
	b.rlog.Level = b.cfg.RenderLogLevel
	b.exec.cfg = b.cfg
}

func (b *Backend) applyWindowLimits() {
	b.cfg.RenderLogLevel = math.Clamp(b.cfg.RenderLogLevel, 0, 2)
	if b.cfg.Stereo == StereoQuadBuffer && !b.window.HasStereoPixelFormat() {
		b.lg.Warn("quad-buffer stereo requested but the window has no stereo pixel format; stereo disabled")
		b.cfg.Stereo = StereoOff
	}
}

// ReloadShaders requests that all shaders be reloaded before the next
// frame. It may be called from any goroutine.
func (b *Backend) ReloadShaders() {
	b.reload.Store(true)
}

func (b *Backend) reloadShaders() {
	b.lg.Info("reloading shaders")
	b.progs.KillAll()
	if err := b.progs.LoadAll(); err != nil {
		b.lg.Errorf("shader reload: %v", err)
	}
}

// ExecuteCommands draws a frame. The list is only read; a nil list is
// treated like a NoOp frame. Execution stops
// at the first unknown command; in stereo, a frame where an eye drew no
// views returns ErrEyeNotRendered.
func (b *Backend) ExecuteCommands(cl *CommandList) error {
	if !b.initialized {
		return ErrNotInitialized
	}
	b.applyPendingConfig()
	if b.reload.Swap(false) {
		b.reloadShaders()
	}

	b.cache.BeginFrame()
	parity := b.cache.FrameParity()
	b.rlog.StartFrame(b.cache.FrameCounter(), parity, b.throttle.retiredSlot(parity))
	defer b.rlog.EndFrame()

	if cl == nil || cl.isNoOp() {
		return nil
	}

	b.frame = Counters{}
	b.cache.ResetStats()
	uploads := b.progs.Uploads()

	w, h := b.window.FramebufferSize()
	var err error
	if b.cfg.Stereo == StereoOff {
		err = b.executeMono(cl, w, h)
	} else {
		err = b.stereo.execute(cl, b.cfg, w, h)
	}

	st := b.cache.Stats()
	b.frame.StateEmitted, b.frame.StateSkipped = st.Emitted, st.Skipped
	b.frame.UniformUploads = b.progs.Uploads() - uploads
	b.total.Merge(b.frame)
	if b.cfg.DebugRenderToTexture {
		b.lg.Info("frame", slog.Uint64("frame", b.cache.FrameCounter()), slog.Any("counters", b.frame))
	}

	b.cache.CheckErrors("ExecuteCommands")
	return err
}

func (b *Backend) executeMono(cl *CommandList, w, h int) error {
	b.cache.SetDefaultState(w, h)
	b.cache.SetDrawBuffer(gpu.DrawBack)

	b.exec.width, b.exec.height = w, h
	b.exec.stereo = false
	if _, err := b.exec.run(cl, EyeBoth); err != nil {
		return err
	}

	b.exec.drawFlickerBox()
	// Make sure the whole frame can be cleared next time.
	b.cache.SetState(b.cache.StateBits() &^ state.ColorMaskBits)
	b.cache.Flush()
	return nil
}

// BlockingPresent presents the frame and waits until the GPU is no more
// than a frame behind.
func (b *Backend) BlockingPresent() {
	if !b.initialized {
		return
	}
	var frameStart func()
	if b.cfg.Stereo == StereoHMD {
		frameStart = b.hmd.FrameStart
	}
	b.throttle.present(b.window, b.cache.FrameParity(), b.cfg, frameStart)
	b.cache.CheckErrors("BlockingPresent")
}

// GetCurrentGPUStateSnapshot returns a deep copy of the backend's view of
// the GPU state.
func (b *Backend) GetCurrentGPUStateSnapshot() StateSnapshot {
	if !b.initialized {
		return StateSnapshot{}
	}
	snap := StateSnapshot{
		State:      b.cache.Snapshot(),
		Program:    b.progs.CurrentName(),
		Topology:   b.cfg.Stereo,
		Builtins:   make(map[string]bool),
		Frame:      b.frame,
		Swap:       b.throttle.stats,
		FenceState: b.throttle.state,
	}
	for f := range gpu.NumFeatures {
		if b.caps.Has(f) {
			snap.Features = append(snap.Features, f.String())
		}
	}
	for bi := range NumBuiltins {
		snap.Builtins[bi.String()] = b.progs.HaveBuiltin(bi)
	}

	c, err := deep.Copy(snap)
	if err != nil {
		b.lg.Errorf("snapshot: %v", err)
		return snap
	}
	return c
}

func (b *Backend) Caps() gpu.Caps { return b.caps }

// EyeRenderSize returns the size views should be laid out for under the
// current configuration: the window size in mono, otherwise the size of
// each eye's image.
func (b *Backend) EyeRenderSize() (int, int) {
	w, h := b.window.FramebufferSize()
	if b.cfg.Stereo == StereoOff {
		return w, h
	}
	return eyeRenderSize(b.cfg.Stereo, w, h, b.hmd)
}

// CreateBuffer uploads data to a new buffer the front end can reference
// from DrawSurfaces. It must be called after Init.
func (b *Backend) CreateBuffer(kind gpu.BufferKind, data []byte) uint32 {
	return b.cache.CreateBuffer(kind, data)
}

func (b *Backend) DeleteBuffer(buf uint32) {
	if b.cache != nil {
		b.cache.DeleteBuffer(buf)
	}
}

// Counters returns the totals over all frames so far.
func (b *Backend) Counters() Counters { return b.total }

// FrameCounters returns the counts for the last frame.
func (b *Backend) FrameCounters() Counters { return b.frame }

func (b *Backend) SwapStats() SwapStats {
	if b.throttle == nil {
		return SwapStats{}
	}
	return b.throttle.stats
}

// PresentTrace returns the fence states the last present went through.
func (b *Backend) PresentTrace() []FenceState {
	if b.throttle == nil {
		return nil
	}
	return b.throttle.Trace()
}

func (b *Backend) FrameTimings() []FrameTiming {
	if b.rlog == nil {
		return nil
	}
	return b.rlog.History()
}

func (b *Backend) saveTimings() {
	h := b.rlog.History()
	if len(h) == 0 {
		return
	}
	b.lg.Info("GPU timing summary", slog.String("summary", b.rlog.Summary()))
	if err := util.CacheStoreObject(timingCacheFile, h); err != nil {
		b.lg.Warnf("%s: %v", timingCacheFile, err)
	}
}

func (b *Backend) loadTimings() {
	var h []FrameTiming
	if _, err := util.CacheRetrieveObject(timingCacheFile, &h); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			b.lg.Warnf("%s: %v", timingCacheFile, err)
		}
		return
	}
	b.rlog.SetHistory(h)
	b.lg.Info("previous session GPU timings", slog.String("summary", b.rlog.Summary()))
}
