// renderer/backend_test.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neovr/neo/gpu"
	"github.com/neovr/neo/hmd"
	"github.com/neovr/neo/log"
	"github.com/neovr/neo/math"
	"github.com/neovr/neo/renderer/state"
)

type testWindow struct {
	w, h   int
	stereo bool
	swaps  int
}

func (w *testWindow) SwapBuffers()                { w.swaps++ }
func (w *testWindow) FramebufferSize() (int, int) { return w.w, w.h }
func (w *testWindow) HasStereoPixelFormat() bool  { return w.stereo }

type testPrompter struct {
	answer bool
	asked  []string
}

func (p *testPrompter) ConfirmSoftwareRenderer(r string) bool {
	p.asked = append(p.asked, r)
	return p.answer
}

const trivialShader = "#version 450\nvoid main() {}\n"

// testShaderFS returns sources for every builtin.
func testShaderFS() fstest.MapFS {
	fsys := make(fstest.MapFS)
	for _, b := range builtins {
		for _, suffix := range []string{".vs", ".fs"} {
			fsys["shaders/"+b.name+suffix] = &fstest.MapFile{Data: []byte(trivialShader)}
		}
	}
	return fsys
}

type testSetup struct {
	info   gpu.Info
	cfg    Config
	win    *testWindow
	hmd    hmd.Device
	fsys   fstest.MapFS
	prompt Prompter
}

func defaultSetup() testSetup {
	return testSetup{
		info: gpu.DefaultInfo(),
		cfg:  DefaultConfig(),
		win:  &testWindow{w: 640, h: 480},
		fsys: testShaderFS(),
	}
}

func (s testSetup) backend() (*Backend, *gpu.Recorder, error) {
	rec := gpu.NewRecorder(s.info)
	lg := log.NewDiscard()
	b := NewBackend(rec, s.win, s.hmd, NewFSSource(s.fsys, "shaders", lg), lg)
	b.Prompter = s.prompt
	b.SetConfig(s.cfg)
	return b, rec, b.Init()
}

func (s testSetup) mustBackend(t *testing.T) (*Backend, *gpu.Recorder) {
	t.Helper()
	b, rec, err := s.backend()
	require.NoError(t, err)
	t.Cleanup(b.Shutdown)
	rec.Reset()
	return b, rec
}

func newTestBackend(t *testing.T) (*Backend, *gpu.Recorder, *testWindow) {
	t.Helper()
	s := defaultSetup()
	b, rec := s.mustBackend(t)
	return b, rec, s.win
}

// testView returns a 3D view with n surfaces that all share a vertex
// buffer, an index buffer and a single-stage material drawn with the
// named shader.
func testView(eye Eye, shader string, n int) *View {
	mat := &Material{
		Name: shader,
		Cull: state.CullFrontSided,
		Stages: []MaterialStage{{
			VertexShader:   shader,
			FragmentShader: shader,
			State:          state.DepthMask | state.ColorMask,
			Color:          mgl32.Vec4{1, 1, 1, 1},
		}},
	}
	ent := &ViewEntity{ID: 1, MVP: mgl32.Translate3D(0, 0, -5), Model: mgl32.Ident4()}
	v := &View{
		ID:         1,
		Eye:        eye,
		Viewport:   math.RectXYWH(0, 0, 640, 480),
		Scissor:    math.RectXYWH(0, 0, 640, 480),
		WorldSpace: ViewEntity{MVP: mgl32.Ident4(), Model: mgl32.Ident4()},
		Entities:   []*ViewEntity{ent},
	}
	for i := range n {
		v.Surfaces = append(v.Surfaces, &DrawSurface{
			VertexBuffer: 1000,
			IndexBuffer:  1001,
			Layout:       gpu.LayoutDrawVert,
			FirstIndex:   6 * i,
			NumIndexes:   6,
			Material:     mat,
			Space:        ent,
		})
	}
	return v
}

func monoList(n int) (*CommandList, *View) {
	view := testView(EyeBoth, "texture", n)
	cl := &CommandList{}
	cl.SetBuffer(gpu.DrawBack)
	cl.DrawView3D(view)
	cl.PostProcess(view)
	return cl, view
}

func opInts(t *testing.T, op gpu.Op) []uint32 {
	t.Helper()
	var v []uint32
	for _, f := range strings.Split(op.Args, ",") {
		n, err := strconv.Atoi(f)
		require.NoError(t, err, "%s", op)
		v = append(v, uint32(n))
	}
	return v
}

func countOps(rec *gpu.Recorder, name, args string) int {
	return len(slices.DeleteFunc(rec.Filter(name), func(op gpu.Op) bool { return op.Args != args }))
}

func builtinHandle(b *Backend, bi Builtin) uint32 {
	return b.progs.programs[b.progs.builtins[bi]].prog
}

func frame(t *testing.T, b *Backend, cl *CommandList) {
	t.Helper()
	require.NoError(t, b.ExecuteCommands(cl))
	b.BlockingPresent()
}

func TestMonoFrame(t *testing.T) {
	b, rec, win := newTestBackend(t)
	cl, _ := monoList(12)

	frame(t, b, cl)

	fc := b.FrameCounters()
	assert.Equal(t, 1, fc.Draw3D)
	assert.Equal(t, 1, fc.SetBuffers)
	assert.Equal(t, 12, fc.DrawCalls)
	assert.Equal(t, 72, fc.Indexes)
	assert.Equal(t, 1, fc.PostProcesses)

	draws := rec.Filter("DrawElements")
	require.Len(t, draws, 13)
	tex, pp := builtinHandle(b, BuiltinTexture), builtinHandle(b, BuiltinPostProcess)
	for _, d := range draws[:12] {
		assert.Equal(t, tex, opInts(t, d)[1])
	}
	assert.Equal(t, pp, opInts(t, draws[12])[1])

	// All surfaces share their buffers and program.
	assert.Equal(t, 1, countOps(rec, "BindBuffer", "vertex,1000"))
	assert.Equal(t, 1, countOps(rec, "BindBuffer", "index,1001"))
	assert.Equal(t, 1, countOps(rec, "UseProgram", strconv.Itoa(int(tex))))
	// Uniforms go once to each program.
	assert.Equal(t, 2, rec.Count("Uniform4fv"))
	// Reset left the back buffer selected.
	assert.Empty(t, rec.Filter("DrawBuffer"))

	assert.Equal(t, 1, rec.Count("Flush"))
	assert.Equal(t, 1, win.swaps)
	assert.Equal(t, 1, rec.Count("FenceSync"))
	assert.Equal(t, 0, rec.Count("Finish"))
	assert.Greater(t, fc.StateSkipped, 0)
}

func TestTotalsAccumulate(t *testing.T) {
	b, _, _ := newTestBackend(t)
	cl, _ := monoList(3)
	for range 4 {
		frame(t, b, cl)
	}
	assert.Equal(t, 3, b.FrameCounters().DrawCalls)
	assert.Equal(t, 12, b.Counters().DrawCalls)
	assert.Equal(t, 4, b.Counters().PostProcesses)
}

func TestNoOpFrame(t *testing.T) {
	b, rec, _ := newTestBackend(t)
	cl := &CommandList{}
	cl.NoOp()

	require.NoError(t, b.ExecuteCommands(cl))
	assert.Equal(t, uint64(1), b.cache.FrameCounter())
	assert.Zero(t, rec.Count("DrawElements"))
	assert.Zero(t, rec.Count("Flush"))
	assert.Zero(t, rec.Count("Viewport"))
}

type bogusCommand struct{}

func (bogusCommand) isCommand() {}

func TestUnknownCommandStopsExecution(t *testing.T) {
	b, rec, _ := newTestBackend(t)
	cl := &CommandList{Commands: []Command{
		SetBuffer{Buffer: gpu.DrawBack},
		bogusCommand{},
		DrawView3D{View: testView(EyeBoth, "texture", 2)},
	}}

	err := b.ExecuteCommands(cl)
	require.ErrorIs(t, err, ErrUnknownCommand)
	assert.Contains(t, err.Error(), "command 1")
	assert.Zero(t, rec.Count("DrawElements"))
	assert.Equal(t, 1, b.FrameCounters().UnknownCommands)
	assert.Equal(t, 1, b.FrameCounters().SetBuffers)
	assert.Contains(t, b.FrameCounters().LogValue().Group(), slog.Int("unknown_commands", 1))
}

func TestExecutionIsDeterministic(t *testing.T) {
	b, rec, _ := newTestBackend(t)
	cl, _ := monoList(4)
	gui := testView(EyeBoth, "gui", 2)
	gui.Entities = nil
	cl.DrawViewGUI(gui)
	cl.CopyRender(1000, 0, 0, 64, 64, true)
	b.exec.width, b.exec.height = 640, 480

	run := func() []gpu.Op {
		b.cache.Reset(640, 480)
		b.progs.ZeroUniforms()
		rec.Reset()
		b.rlog.StartFrame(1, 1, false)
		_, err := b.exec.run(cl, EyeBoth)
		require.NoError(t, err)
		b.rlog.EndFrame()
		return slices.Clone(rec.Ops)
	}

	// The first run creates the postprocess texture and timer queries.
	run()
	first := run()
	assert.Equal(t, first, run())
}

func TestSetConfigAppliesAtFrameBoundary(t *testing.T) {
	b, rec, _ := newTestBackend(t)
	cfg := b.Config()
	cfg.DrawFlickerBox = true
	cfg.Stereo = StereoQuadBuffer
	b.SetConfig(cfg)
	assert.False(t, b.Config().DrawFlickerBox)

	cl, _ := monoList(1)
	frame(t, b, cl)
	assert.True(t, b.Config().DrawFlickerBox)
	// No stereo pixel format
	assert.Equal(t, StereoOff, b.Config().Stereo)

	// Frame 1 is odd, so the box is red.
	assert.Equal(t, 1, countOps(rec, "Scissor", "0,0,256,256"))
	assert.Equal(t, 1, countOps(rec, "ClearColor", "1,0,0,1"))
}

func TestScissorClippedToViewport(t *testing.T) {
	b, rec, _ := newTestBackend(t)
	cl, view := monoList(1)
	view.Scissor = math.RectXYWH(200, 100, 1000, 1000)

	frame(t, b, cl)
	assert.Equal(t, 1, countOps(rec, "Scissor", "200,100,440,380"))
	assert.Zero(t, countOps(rec, "Scissor", "200,100,1000,1000"))
}

func TestNilCommandList(t *testing.T) {
	b, rec, _ := newTestBackend(t)
	require.NoError(t, b.ExecuteCommands(nil))
	assert.Zero(t, rec.Count("DrawElements"))
	assert.Zero(t, b.FrameCounters().SetBuffers)
}

func TestRenderLogLevelClamped(t *testing.T) {
	b, _, _ := newTestBackend(t)
	cfg := b.Config()
	cfg.RenderLogLevel = 7
	b.SetConfig(cfg)

	cl, _ := monoList(1)
	frame(t, b, cl)
	assert.Equal(t, 2, b.Config().RenderLogLevel)
	assert.Equal(t, 2, b.rlog.Level)
}

func TestClearOnSetBuffer(t *testing.T) {
	s := defaultSetup()
	s.cfg.Clear = "2"
	b, rec := s.mustBackend(t)
	cl, _ := monoList(1)

	frame(t, b, cl)
	assert.Equal(t, 1, countOps(rec, "ClearColor", "0,0,0,1"))

	s.cfg.Clear = "0"
	b.SetConfig(s.cfg)
	rec.Reset()
	frame(t, b, cl)
	// Only the fence clear remains.
	assert.Equal(t, 1, rec.Count("Clear"))
}

func TestInitRequiredFeatureMissing(t *testing.T) {
	s := defaultSetup()
	s.info = gpu.Info{Vendor: "neo", Renderer: "old", Version: "2.1", Major: 2, Minor: 1}
	_, _, err := s.backend()
	require.ErrorIs(t, err, ErrRequiredFeature)
	assert.Contains(t, err.Error(), "vertex_array_object")
}

func TestIntelWorkarounds(t *testing.T) {
	s := defaultSetup()
	s.info.Vendor = "Intel"
	s.info.Renderer = "Intel(R) UHD Graphics 630"
	b, rec := s.mustBackend(t)

	assert.Equal(t, gpu.VendorIntel, b.Caps().Vendor)
	assert.False(t, b.Caps().Has(gpu.FeatureSync))
	assert.False(t, b.Caps().Has(gpu.FeatureTimerQuery))

	cl, _ := monoList(2)
	frame(t, b, cl)
	assert.Zero(t, rec.Count("GenQuery"))
	assert.Zero(t, rec.Count("QueryTimestamp"))
	assert.Zero(t, rec.Count("FenceSync"))
	assert.Equal(t, 1, rec.Count("Finish"))
	assert.Equal(t, []FenceState{FenceSubmitted, FenceReleased}, b.PresentTrace())
	assert.False(t, b.SwapStats().FencesUsed)

	s.cfg.SkipIntelWorkarounds = true
	b2, _ := s.mustBackend(t)
	assert.True(t, b2.Caps().Has(gpu.FeatureSync))
	assert.True(t, b2.Caps().Has(gpu.FeatureTimerQuery))
}

func TestSoftwareRendererPrompt(t *testing.T) {
	s := defaultSetup()
	s.info.Vendor = "Mesa"
	s.info.Renderer = "llvmpipe (LLVM 17.0.6, 256 bits)"
	p := &testPrompter{}
	s.prompt = p

	_, _, err := s.backend()
	require.ErrorIs(t, err, ErrUserQuit)
	assert.Equal(t, []string{s.info.Renderer}, p.asked)

	p.answer = true
	b, _ := s.mustBackend(t)
	// Mesa timer queries are unreliable.
	assert.False(t, b.Caps().Has(gpu.FeatureTimerQuery))
	assert.True(t, b.Caps().Has(gpu.FeatureSync))
}

func TestMissingBuiltins(t *testing.T) {
	t.Run("required", func(t *testing.T) {
		s := defaultSetup()
		delete(s.fsys, "shaders/gui.fs")
		_, _, err := s.backend()
		require.ErrorIs(t, err, ErrMissingBuiltin)
		assert.Contains(t, err.Error(), "gui")
	})
	t.Run("compile error", func(t *testing.T) {
		s := defaultSetup()
		s.fsys["shaders/depth.vs"] = &fstest.MapFile{Data: []byte("#error broken\n")}
		_, _, err := s.backend()
		require.ErrorIs(t, err, ErrMissingBuiltin)
	})
	t.Run("optional", func(t *testing.T) {
		s := defaultSetup()
		delete(s.fsys, "shaders/fog.vs")
		b, _ := s.mustBackend(t)
		assert.False(t, b.progs.HaveBuiltin(BuiltinFog))
		assert.True(t, b.progs.HaveBuiltin(BuiltinGUI))
	})
}

func TestReloadShaders(t *testing.T) {
	s := defaultSetup()
	b, rec := s.mustBackend(t)
	cl, _ := monoList(3)
	frame(t, b, cl)
	assert.Equal(t, 3, b.FrameCounters().DrawCalls)

	// A failed reload is reported but the frame still runs; surfaces
	// whose program doesn't link are skipped.
	s.fsys["shaders/texture.fs"] = &fstest.MapFile{Data: []byte("#error typo\n")}
	b.ReloadShaders()
	rec.Reset()
	frame(t, b, cl)
	assert.Positive(t, rec.Count("DeleteProgram"))
	assert.Zero(t, b.FrameCounters().DrawCalls)
	assert.Equal(t, 1, b.FrameCounters().PostProcesses)

	s.fsys["shaders/texture.fs"] = &fstest.MapFile{Data: []byte(trivialShader)}
	b.ReloadShaders()
	frame(t, b, cl)
	assert.Equal(t, 3, b.FrameCounters().DrawCalls)
}

func TestSnapshotIsACopy(t *testing.T) {
	b, _, _ := newTestBackend(t)
	cl, _ := monoList(1)
	frame(t, b, cl)

	snap := b.GetCurrentGPUStateSnapshot()
	assert.True(t, snap.Builtins["gui"])
	assert.Contains(t, snap.Features, "sync")
	assert.Equal(t, uint64(1), snap.State.FrameCounter)
	assert.Equal(t, FenceReleased, snap.FenceState)
	assert.Equal(t, 1, snap.Frame.DrawCalls)

	snap.Builtins["gui"] = false
	snap.Features[0] = "bogus"
	again := b.GetCurrentGPUStateSnapshot()
	assert.True(t, again.Builtins["gui"])
	assert.NotEqual(t, "bogus", again.Features[0])
}

func TestRestart(t *testing.T) {
	b, rec, _ := newTestBackend(t)
	cl, _ := monoList(2)
	frame(t, b, cl)
	frame(t, b, cl)
	assert.Equal(t, 2, rec.LiveFences())

	require.NoError(t, b.Restart())
	assert.Zero(t, rec.LiveFences())
	frame(t, b, cl)
	assert.Equal(t, 2, b.FrameCounters().DrawCalls)

	b.Shutdown()
	assert.ErrorIs(t, b.ExecuteCommands(cl), ErrNotInitialized)
	assert.Equal(t, StateSnapshot{}, b.GetCurrentGPUStateSnapshot())
}
