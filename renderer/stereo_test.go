// renderer/stereo_test.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"bytes"
	"log/slog"
	"strconv"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neovr/neo/gpu"
	"github.com/neovr/neo/hmd"
	"github.com/neovr/neo/log"
	"github.com/neovr/neo/math"
)

// stereoList draws a left-eye view with the color program and a
// right-eye view with the texture program.
func stereoList(n int) *CommandList {
	cl := &CommandList{}
	cl.SetBuffer(gpu.DrawBack)
	cl.DrawView3D(testView(EyeLeft, "color", n))
	cl.DrawView3D(testView(EyeRight, "texture", n))
	return cl
}

func stereoBackend(t *testing.T, topology StereoTopology, w, h int, dev hmd.Device) (*Backend, *gpu.Recorder) {
	t.Helper()
	s := defaultSetup()
	s.cfg.Stereo = topology
	s.win = &testWindow{w: w, h: h, stereo: true}
	s.hmd = dev
	return s.mustBackend(t)
}

type compositeDraw struct {
	fb           uint32
	buffer       string
	program      uint32
	unit0, unit1 uint32
}

// replayDraws walks the recorded calls, tracking the bound draw buffer
// and 2D textures on units 0 and 1, and returns the state at each draw.
func replayDraws(t *testing.T, rec *gpu.Recorder) []compositeDraw {
	t.Helper()
	buffer := "back"
	units := make(map[int]uint32)
	var draws []compositeDraw
	for _, op := range rec.Ops {
		switch op.Name {
		case "DrawBuffer":
			buffer = op.Args
		case "BindTexture":
			a := strings.Split(op.Args, ",")
			if a[1] == gpu.Texture2D.String() {
				unit, _ := strconv.Atoi(a[0])
				tex, _ := strconv.Atoi(a[2])
				units[unit] = uint32(tex)
			}
		case "DrawElements":
			a := opInts(t, op)
			draws = append(draws, compositeDraw{fb: a[0], buffer: buffer, program: a[1], unit0: units[0], unit1: units[1]})
		}
	}
	return draws
}

func lastViewports(rec *gpu.Recorder, n int) []string {
	var vps []string
	for _, op := range rec.Filter("Viewport") {
		vps = append(vps, op.Args)
	}
	return vps[max(0, len(vps)-n):]
}

func TestQuadBufferStereo(t *testing.T) {
	b, rec := stereoBackend(t, StereoQuadBuffer, 640, 480, nil)
	require.Equal(t, StereoQuadBuffer, b.Config().Stereo)

	require.NoError(t, b.ExecuteCommands(stereoList(12)))

	fc := b.FrameCounters()
	assert.Equal(t, 24, fc.DrawCalls)
	assert.Equal(t, 2, fc.Draw3D)
	assert.Equal(t, 2, fc.EyePasses)
	assert.Equal(t, 2, fc.CompositeDraws)

	left, right := b.stereo.eyes[0].tex, b.stereo.eyes[1].tex
	target := b.stereo.eyeTarget.fb

	// Each pass draws only its eye's views into the eye target, and the
	// result goes to that eye's texture. Left goes first.
	var passes [][]uint32
	var copies []uint32
	var cur []uint32
	for _, op := range rec.Filter("DrawElements", "CopyTexSubImage2D") {
		a := opInts(t, op)
		if op.Name == "CopyTexSubImage2D" {
			assert.Equal(t, target, a[0])
			copies = append(copies, a[1])
			passes = append(passes, cur)
			cur = nil
		} else if a[0] == target {
			cur = append(cur, a[1])
		}
	}
	assert.Equal(t, []uint32{left, right}, copies)
	require.Len(t, passes, 2)
	require.Len(t, passes[0], 12)
	require.Len(t, passes[1], 12)
	for i := range 12 {
		assert.Equal(t, builtinHandle(b, BuiltinColor), passes[0][i])
		assert.Equal(t, builtinHandle(b, BuiltinTexture), passes[1][i])
	}

	var composites []compositeDraw
	for _, d := range replayDraws(t, rec) {
		if d.fb == 0 {
			composites = append(composites, d)
		}
	}
	tex := builtinHandle(b, BuiltinTexture)
	assert.Equal(t, []compositeDraw{
		{fb: 0, buffer: "back_right", program: tex, unit0: right, unit1: left},
		{fb: 0, buffer: "back_left", program: tex, unit0: left, unit1: right},
	}, composites)
}

func TestQuadBufferNeedsStereoWindow(t *testing.T) {
	s := defaultSetup()
	s.cfg.Stereo = StereoQuadBuffer
	b, _ := s.mustBackend(t)
	assert.Equal(t, StereoOff, b.Config().Stereo)
}

func TestEyeNotRendered(t *testing.T) {
	b, rec := stereoBackend(t, StereoSideBySide, 640, 480, nil)
	cl := &CommandList{}
	cl.DrawView3D(testView(EyeLeft, "texture", 3))

	err := b.ExecuteCommands(cl)
	require.ErrorIs(t, err, ErrEyeNotRendered)
	assert.Zero(t, b.FrameCounters().CompositeDraws)
	for _, d := range replayDraws(t, rec) {
		assert.NotZero(t, d.fb)
	}

	// Views for both eyes satisfy both passes.
	cl.Reset()
	cl.DrawView3D(testView(EyeBoth, "texture", 3))
	require.NoError(t, b.ExecuteCommands(cl))
	assert.Equal(t, 6, b.FrameCounters().DrawCalls)
}

func TestGUIStereoSeparation(t *testing.T) {
	b, _ := stereoBackend(t, StereoSideBySide, 640, 480, nil)
	gui := testView(EyeBoth, "gui", 1)
	gui.Entities = nil
	cl := &CommandList{}
	cl.DrawViewGUI(gui)

	b.exec.width, b.exec.height = 320, 480
	b.exec.stereo = true
	_, err := b.exec.run(cl, EyeLeft)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec4{-0.01, 0, 0, 0}, b.progs.Uniform(ParmScreenOffset))

	_, err = b.exec.run(cl, EyeRight)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec4{0.01, 0, 0, 0}, b.progs.Uniform(ParmScreenOffset))
	assert.Equal(t, 2, b.FrameCounters().Draw2D)
}

func TestSideBySideComposite(t *testing.T) {
	b, rec := stereoBackend(t, StereoSideBySide, 640, 480, nil)
	require.NoError(t, b.ExecuteCommands(stereoList(1)))

	// Eyes render at half width.
	assert.Equal(t, [2]int{320, 480}, rec.TextureSizes[b.stereo.eyes[0].tex])
	assert.Equal(t, []string{"0,0,320,480", "320,0,320,480"}, lastViewports(rec, 2))
	assert.Equal(t, 2, b.FrameCounters().CompositeDraws)
}

func TestHDMI720GuardBand(t *testing.T) {
	b, rec := stereoBackend(t, StereoHDMI720, 1280, 1470, nil)
	require.NoError(t, b.ExecuteCommands(stereoList(1)))

	assert.Equal(t, [2]int{1280, 720}, rec.TextureSizes[b.stereo.eyes[1].tex])
	assert.Equal(t, []string{"0,750,1280,720", "0,0,1280,720"}, lastViewports(rec, 2))
	assert.Equal(t, 1, countOps(rec, "Scissor", "0,720,1280,30"))
}

func TestInterlaced(t *testing.T) {
	b, rec := stereoBackend(t, StereoInterlaced, 640, 480, nil)
	require.NoError(t, b.ExecuteCommands(stereoList(1)))

	left, right := b.stereo.eyes[0].tex, b.stereo.eyes[1].tex
	for _, tex := range []uint32{left, right} {
		assert.Equal(t, 1, countOps(rec, "TexFilter", "2D,"+strconv.Itoa(int(tex))+",1"))
		assert.Equal(t, gpu.FilterLinear, rec.Filters[tex])
	}

	draws := replayDraws(t, rec)
	last := draws[len(draws)-1]
	assert.Equal(t, builtinHandle(b, BuiltinStereoInterlace), last.program)
	assert.Equal(t, left, last.unit0)
	assert.Equal(t, right, last.unit1)
	assert.Equal(t, 1, b.FrameCounters().CompositeDraws)
}

func TestInterlacedWithoutProgram(t *testing.T) {
	s := defaultSetup()
	s.cfg.Stereo = StereoInterlaced
	s.win = &testWindow{w: 640, h: 480, stereo: true}
	delete(s.fsys, "shaders/stereoInterlace.fs")
	b, _ := s.mustBackend(t)

	var buf bytes.Buffer
	b.stereo.lg = &log.Logger{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	for range 3 {
		require.NoError(t, b.ExecuteCommands(stereoList(1)))
		b.BlockingPresent()
	}
	assert.Equal(t, 1, strings.Count(buf.String(), "stereoInterlace program unavailable"))
	assert.Equal(t, 3, b.Counters().CompositeDraws)
}

func TestHMDSubmit(t *testing.T) {
	sim := hmd.NewSimulated(800, 900, 100, log.NewDiscard())
	b, rec := stereoBackend(t, StereoHMD, 640, 480, sim)

	frame(t, b, stereoList(2))
	require.Len(t, sim.Submitted, 1)
	assert.Equal(t, [2]uint32{b.stereo.eyes[0].tex, b.stereo.eyes[1].tex}, sim.Submitted[0])
	assert.Equal(t, 1, sim.Frames)
	assert.Equal(t, [2]int{800, 900}, rec.TextureSizes[b.stereo.eyes[0].tex])
	// The mirror.
	assert.Equal(t, 1, b.FrameCounters().CompositeDraws)
	assert.Equal(t, []string{"0,0,640,480"}, lastViewports(rec, 1))

	cfg := b.Config()
	cfg.HMDMirror = false
	b.SetConfig(cfg)
	frame(t, b, stereoList(2))
	assert.Zero(t, b.FrameCounters().CompositeDraws)
	assert.Len(t, sim.Submitted, 2)
}

func TestHMDStaticScreen(t *testing.T) {
	sim := hmd.NewSimulated(800, 900, 100, log.NewDiscard())
	b, rec := stereoBackend(t, StereoHMD, 640, 480, sim)
	cl := stereoList(2)
	cl.Motion.Loading = true

	require.NoError(t, b.ExecuteCommands(cl))
	left, right := b.stereo.eyes[0].tex, b.stereo.eyes[1].tex
	hud := b.stereo.hud
	require.Len(t, sim.Submitted, 1)
	assert.Equal(t, [2]uint32{hud[0].tex, hud[1].tex}, sim.Submitted[0])

	// Loading screens aren't stereoscopic: both eyes see the left image.
	var hudDraws []compositeDraw
	for _, d := range replayDraws(t, rec) {
		if d.fb == hud[0].fb || d.fb == hud[1].fb {
			hudDraws = append(hudDraws, d)
		}
	}
	require.Len(t, hudDraws, 2)
	assert.Equal(t, left, hudDraws[0].unit0)
	assert.Equal(t, left, hudDraws[1].unit0)
	assert.Equal(t, 3, b.FrameCounters().CompositeDraws)

	// The screen stays where it was when tracking stopped.
	anchor := b.stereo.staticAnchor
	sim.SetPose(hmd.Pose{Orientation: mgl32.QuatRotate(1, mgl32.Vec3{0, 1, 0}), Valid: true})
	cl.Motion = MotionState{PlayerDead: true}
	rec.Reset()
	require.NoError(t, b.ExecuteCommands(cl))
	assert.Equal(t, anchor, b.stereo.staticAnchor)
	for _, d := range replayDraws(t, rec) {
		if d.fb == hud[1].fb {
			assert.Equal(t, right, d.unit0)
		}
	}

	cl.Motion = MotionState{}
	require.NoError(t, b.ExecuteCommands(cl))
	assert.False(t, b.stereo.wasStatic)
	assert.Equal(t, [2]uint32{left, right}, sim.Submitted[len(sim.Submitted)-1])
}

func TestMotionSuppressed(t *testing.T) {
	for _, tc := range []struct {
		m    MotionState
		want bool
	}{
		{MotionState{}, false},
		{MotionState{PlayerDead: true}, true},
		{MotionState{ShellActive: true}, true},
		{MotionState{ShellActive: true, PDAForced: true}, false},
		{MotionState{DialogActive: true, PDAForced: true}, false},
		{MotionState{Loading: true}, true},
		{MotionState{IntroVideo: true}, true},
		{MotionState{InCinematic: true}, false},
		{MotionState{InCinematic: true, CinematicMode: 2}, true},
		{MotionState{InCinematic: true, CinematicMode: 2, FlicksyncCharacter: 1}, false},
	} {
		assert.Equal(t, tc.want, tc.m.Suppressed(), "%+v", tc.m)
	}
	assert.False(t, MotionState{Loading: true}.stereoscopic())
	assert.True(t, MotionState{PlayerDead: true}.stereoscopic())
}

func TestEyeRenderSize(t *testing.T) {
	sim := hmd.NewSimulated(1000, 1100, 90, log.NewDiscard())
	for _, tc := range []struct {
		topology StereoTopology
		dev      hmd.Device
		w, h     int
	}{
		{StereoQuadBuffer, nil, 1920, 1080},
		{StereoSideBySide, nil, 960, 1080},
		{StereoSideBySideCompressed, nil, 1920, 1080},
		{StereoTopBottomCompressed, nil, 1920, 1080},
		{StereoHDMI720, nil, 1280, 720},
		{StereoHMD, sim, 1000, 1100},
		{StereoHMD, hmd.None{}, 1920, 1080},
	} {
		w, h := eyeRenderSize(tc.topology, 1920, 1080, tc.dev)
		assert.Equal(t, [2]int{tc.w, tc.h}, [2]int{w, h}, "%s", tc.topology)
	}
}

func TestCompositeViewports(t *testing.T) {
	l, r, ok := compositeViewports(StereoSideBySideCompressed, 1920, 1080)
	require.True(t, ok)
	assert.Equal(t, math.RectXYWH(0, 0, 960, 1080), l)
	assert.Equal(t, math.RectXYWH(960, 0, 960, 1080), r)

	l, r, ok = compositeViewports(StereoTopBottomCompressed, 1920, 1080)
	require.True(t, ok)
	assert.Equal(t, math.RectXYWH(0, 540, 1920, 540), l)
	assert.Equal(t, math.RectXYWH(0, 0, 1920, 540), r)

	_, _, ok = compositeViewports(StereoInterlaced, 1920, 1080)
	assert.False(t, ok)
}

func TestBackendEyeRenderSize(t *testing.T) {
	b, _ := stereoBackend(t, StereoSideBySide, 1920, 1080, nil)
	w, h := b.EyeRenderSize()
	assert.Equal(t, [2]int{960, 1080}, [2]int{w, h})

	s := defaultSetup()
	s.cfg.Stereo = StereoQuadBuffer
	s.win = &testWindow{w: 800, h: 600}
	b, _ = s.mustBackend(t)
	w, h = b.EyeRenderSize()
	assert.Equal(t, [2]int{800, 600}, [2]int{w, h})
	assert.Equal(t, StereoOff, b.Config().Stereo)
}
