// renderer/stereo.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/neovr/neo/gpu"
	"github.com/neovr/neo/hmd"
	"github.com/neovr/neo/log"
	"github.com/neovr/neo/math"
	"github.com/neovr/neo/renderer/state"
)

// HDMI 720p frame packing: two 1280x720 images separated by a 30 line
// guard band.
const (
	hdmi720Width  = 1280
	hdmi720Height = 720
	hdmi720Guard  = 30
)

// Distance in meters to the fixed screen shown when head tracking is
// suppressed.
const staticScreenDistance = 1.5

// eyeRenderSize returns the resolution each eye is rendered at.
func eyeRenderSize(topology StereoTopology, fbw, fbh int, dev hmd.Device) (int, int) {
	switch topology {
	case StereoSideBySide:
		return fbw / 2, fbh
	case StereoHDMI720:
		return hdmi720Width, hdmi720Height
	case StereoHMD:
		if dev != nil {
			if w, h := dev.RecommendedEyeResolution(); w > 0 && h > 0 {
				return w, h
			}
		}
		return fbw, fbh
	default:
		return fbw, fbh
	}
}

// compositeViewports returns where the left and right eye images go in
// the window for the topologies that place them side by side.
func compositeViewports(topology StereoTopology, fbw, fbh int) (left, right math.ScreenRect, ok bool) {
	switch topology {
	case StereoSideBySide, StereoSideBySideCompressed:
		return math.RectXYWH(0, 0, fbw/2, fbh), math.RectXYWH(fbw/2, 0, fbw/2, fbh), true
	case StereoTopBottomCompressed:
		return math.RectXYWH(0, fbh/2, fbw, fbh/2), math.RectXYWH(0, 0, fbw, fbh/2), true
	case StereoHDMI720:
		return math.RectXYWH(0, hdmi720Height+hdmi720Guard, hdmi720Width, hdmi720Height),
			math.RectXYWH(0, 0, hdmi720Width, hdmi720Height), true
	default:
		return math.ScreenRect{}, math.ScreenRect{}, false
	}
}

type renderTarget struct {
	tex, fb uint32
	w, h    int
}

func (rt *renderTarget) ensure(cache *state.Cache, w, h int, withFramebuffer bool) {
	if rt.tex != 0 && rt.w == w && rt.h == h {
		return
	}
	rt.release(cache)
	rt.tex = cache.CreateTexture(0, gpu.Texture2D, w, h, gpu.FilterLinear)
	if withFramebuffer {
		rt.fb = cache.CreateFramebuffer(rt.tex, w, h)
	}
	rt.w, rt.h = w, h
}

func (rt *renderTarget) release(cache *state.Cache) {
	cache.DeleteFramebuffer(rt.fb)
	cache.DeleteTexture(rt.tex)
	*rt = renderTarget{}
}

// compositor renders the command list once per eye and combines the two
// images according to the stereo topology.
type compositor struct {
	cache    *state.Cache
	progs    *ProgramTable
	exec     *executor
	hmd      hmd.Device
	quad     unitSquare
	counters *Counters
	lg       *log.Logger

	// eyeTarget is what the eye passes draw into; each eye's result is
	// then copied to eyes[eye].
	eyeTarget renderTarget
	eyes      [2]renderTarget
	// hud holds the images submitted to the HMD when the scene is shown
	// on a fixed screen.
	hud [2]renderTarget

	staticAnchor mgl32.Quat
	wasStatic    bool
	lastSubmit   hmd.SubmitStatus

	warnedInterlace bool
}

func (c *compositor) execute(cl *CommandList, cfg Config, fbw, fbh int) error {
	ew, eh := eyeRenderSize(cfg.Stereo, fbw, fbh, c.hmd)
	c.eyeTarget.ensure(c.cache, ew, eh, true)
	for i := range c.eyes {
		c.eyes[i].ensure(c.cache, ew, eh, false)
	}

	var foundEye [2]bool
	for _, eye := range []Eye{EyeLeft, EyeRight} {
		c.cache.SetDefaultState(ew, eh)
		c.cache.SetFramebuffer(c.eyeTarget.fb)
		c.progs.Unbind()
		c.progs.ZeroUniforms()

		c.exec.width, c.exec.height = ew, eh
		c.exec.stereo = true
		found, err := c.exec.run(cl, eye)
		if err != nil {
			return err
		}
		foundEye[eye.index()] = found

		c.cache.CopyFramebufferToTexture(0, c.eyes[eye.index()].tex, 0, 0, ew, eh)
		c.counters.EyePasses++
	}
	if !foundEye[0] || !foundEye[1] {
		return fmt.Errorf("left %v right %v: %w", foundEye[0], foundEye[1], ErrEyeNotRendered)
	}

	c.setupComposite(cfg, fbw, fbh)

	switch cfg.Stereo {
	case StereoQuadBuffer:
		c.cache.SetDrawBuffer(gpu.DrawBackRight)
		c.drawEyes(1, math.RectXYWH(0, 0, fbw, fbh))
		c.cache.SetDrawBuffer(gpu.DrawBackLeft)
		c.drawEyes(0, math.RectXYWH(0, 0, fbw, fbh))

	case StereoSideBySide, StereoSideBySideCompressed, StereoTopBottomCompressed, StereoHDMI720:
		left, right, _ := compositeViewports(cfg.Stereo, fbw, fbh)
		c.drawEyes(0, left)
		c.drawEyes(1, right)
		if cfg.Stereo == StereoHDMI720 {
			c.cache.SetScissor(math.RectXYWH(0, hdmi720Height, hdmi720Width, hdmi720Guard))
			c.cache.ClearColorBuffer(0, 0, 0, 1)
		}

	case StereoInterlaced:
		c.drawInterlaced(fbw, fbh)

	case StereoHMD:
		if cl.Motion.Suppressed() {
			c.drawStatic(cl.Motion.stereoscopic(), ew, eh)
		} else {
			c.wasStatic = false
			c.submit(c.eyes[0].tex, c.eyes[1].tex)
		}
		if cfg.HMDMirror {
			c.setupComposite(cfg, fbw, fbh)
			c.drawEyes(0, math.RectXYWH(0, 0, fbw, fbh))
		}
	}

	c.exec.drawFlickerBox()
	c.cache.Flush()
	return nil
}

// setupComposite prepares to draw the eye images as textured quads into
// the window.
func (c *compositor) setupComposite(cfg Config, fbw, fbh int) {
	c.cache.SetDefaultState(fbw, fbh)
	if cfg.Stereo != StereoQuadBuffer {
		c.cache.SetDrawBuffer(gpu.DrawBack)
	}
	c.cache.SetState(state.DepthFuncAlways)
	c.cache.SetCull(state.CullTwoSided)

	c.progs.BindBuiltin(BuiltinTexture)
	c.progs.SetMatrix(ParmMVPX, mgl32.Ident4())
	c.progs.SetUniform(ParmTextureMatrixS, mgl32.Vec4{1, 0, 0, 0})
	c.progs.SetUniform(ParmTextureMatrixT, mgl32.Vec4{0, 1, 0, 0})
	c.progs.SetUniform(ParmTexGen0Enabled, mgl32.Vec4{})
	c.progs.SetUniform(ParmColor, mgl32.Vec4{1, 1, 1, 1})
}

// drawEyes draws eye's image, with the other eye's image on unit 1, as a
// quad covering the viewport.
func (c *compositor) drawEyes(eye int, vp math.ScreenRect) {
	c.cache.BindTexture(1, gpu.Texture2D, c.eyes[1-eye].tex)
	c.cache.BindTexture(0, gpu.Texture2D, c.eyes[eye].tex)
	c.cache.SetViewport(vp)
	c.cache.SetScissor(vp)
	c.progs.CommitUniforms()
	c.quad.draw(c.cache)
	c.counters.CompositeDraws++
}

func (c *compositor) drawInterlaced(fbw, fbh int) {
	for i := range c.eyes {
		c.cache.TexFilter(i, gpu.Texture2D, c.eyes[i].tex, gpu.FilterNearest)
	}
	if c.progs.HaveBuiltin(BuiltinStereoInterlace) {
		c.progs.BindBuiltin(BuiltinStereoInterlace)
	} else if !c.warnedInterlace {
		c.lg.Warn("stereoInterlace program unavailable; showing the left eye only")
		c.warnedInterlace = true
	}
	c.drawEyes(0, math.RectXYWH(0, 0, fbw, fbh))
	for i := range c.eyes {
		c.cache.TexFilter(i, gpu.Texture2D, c.eyes[i].tex, gpu.FilterLinear)
	}
}

// drawStatic shows the rendered scene on a fixed screen in front of the
// viewer instead of tracking the head. The screen is placed in the
// direction the viewer faced when tracking was suppressed. If
// stereoscopic is false both eyes see the left image.
func (c *compositor) drawStatic(stereoscopic bool, ew, eh int) {
	pose := c.hmd.Pose()
	if !c.wasStatic {
		c.staticAnchor = pose.Orientation
		c.wasStatic = true
	}

	aspect := float32(ew) / float32(eh)
	model := math.HeadLocked(c.staticAnchor, staticScreenDistance, 2, aspect)
	view := pose.Orientation.Conjugate().Mat4().Mul4(
		mgl32.Translate3D(-pose.Position.X(), -pose.Position.Y(), -pose.Position.Z()))

	for i := range c.hud {
		c.hud[i].ensure(c.cache, ew, eh, true)
	}

	c.cache.SetState(state.DepthFuncAlways)
	c.cache.SetCull(state.CullTwoSided)
	c.progs.BindBuiltin(BuiltinTexture)
	for i := range c.hud {
		c.cache.SetFramebuffer(c.hud[i].fb)
		vp := math.RectXYWH(0, 0, ew, eh)
		c.cache.SetViewport(vp)
		c.cache.SetScissor(vp)
		c.cache.ClearColorBuffer(0, 0, 0, 1)

		src := c.eyes[0].tex
		if stereoscopic {
			src = c.eyes[i].tex
		}
		c.cache.BindTexture(0, gpu.Texture2D, src)

		proj := c.hmd.ProjectionParameters(i)
		mvp := math.FrustumFromTangents(proj.Left, proj.Right, proj.Top, proj.Bottom, 0.1, 100).Mul4(view).Mul4(model)
		c.progs.SetMatrix(ParmMVPX, mvp)
		c.progs.CommitUniforms()
		c.quad.draw(c.cache)
		c.counters.CompositeDraws++
	}
	c.cache.SetFramebuffer(0)

	c.submit(c.hud[0].tex, c.hud[1].tex)
}

func (c *compositor) submit(left, right uint32) {
	st := c.hmd.SubmitEyeTextures(left, right)
	if st != c.lastSubmit {
		switch st {
		case hmd.SubmitDeviceLost:
			c.lg.Warnf("%s: HMD submit failed: %s", c.hmd.Name(), st)
		case hmd.SubmitNotVisible:
			c.lg.Infof("%s: HMD not visible", c.hmd.Name())
		default:
			c.lg.Infof("%s: HMD submit %s", c.hmd.Name(), st)
		}
		c.lastSubmit = st
	}
}

func (c *compositor) release() {
	c.eyeTarget.release(c.cache)
	for i := range c.eyes {
		c.eyes[i].release(c.cache)
	}
	for i := range c.hud {
		c.hud[i].release(c.cache)
	}
	c.wasStatic = false
}
