// renderer/executor.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/neovr/neo/gpu"
	"github.com/neovr/neo/log"
	"github.com/neovr/neo/math"
	"github.com/neovr/neo/renderer/state"
)

// executor walks a CommandList and issues the GPU work for each
// command.
type executor struct {
	cache    *state.Cache
	progs    *ProgramTable
	rlog     *RenderLog
	lg       *log.Logger
	quad     unitSquare
	counters *Counters

	cfg Config
	// Size of the target being drawn to.
	width, height int
	// During stereo eye passes the target is chosen by the compositor,
	// so SetBuffer leaves the draw buffer alone.
	stereo bool
	eye    Eye

	currentSpace  *ViewEntity
	currentRender struct {
		tex  uint32
		w, h int
	}
}

// run executes the commands that apply to eye, which is EyeBoth when
// not rendering in stereo. It reports whether any view was drawn. An
// unrecognized command stops execution.
func (e *executor) run(cl *CommandList, eye Eye) (bool, error) {
	e.eye = eye
	e.currentSpace = nil
	found := false

	for i, cmd := range cl.Commands {
		switch c := cmd.(type) {
		case NoOp:

		case DrawView3D:
			if e.wantView(c.View) {
				found = true
				e.countView(c.View)
				e.drawView(c.View, false)
			}

		case DrawViewGUI:
			if e.wantView(c.View) {
				found = true
				e.countView(c.View)
				e.drawView(c.View, true)
			}

		case SetBuffer:
			e.setBuffer(c)

		case CopyRender:
			e.copyRender(c)

		case PostProcess:
			if e.wantView(c.View) {
				e.postProcess(c.View)
			}

		default:
			e.counters.UnknownCommands++
			return found, fmt.Errorf("command %d: %T: %w", i, cmd, ErrUnknownCommand)
		}
	}
	return found, nil
}

func (e *executor) wantView(v *View) bool {
	return v != nil && (e.eye == EyeBoth || v.Eye == EyeBoth || v.Eye == e.eye)
}

func (e *executor) countView(v *View) {
	if len(v.Entities) > 0 {
		e.counters.Draw3D++
	} else {
		e.counters.Draw2D++
	}
}

func (e *executor) drawView(v *View, gui bool) {
	if gui {
		e.rlog.OpenMainBlock(MRBDrawGUI)
		e.rlog.OpenBlock("DrawViewGUI")
	} else {
		e.rlog.OpenMainBlock(MRBDrawShaderPasses)
		e.rlog.OpenBlock("DrawView3D")
	}
	defer e.rlog.CloseBlock()

	e.cache.SetViewport(v.Viewport)
	e.cache.SetScissor(v.Scissor.Intersect(v.Viewport))
	e.currentSpace = nil

	// 2D views shared by both eyes are pushed apart so they don't
	// appear at the screen plane.
	var offset mgl32.Vec4
	if gui && v.Eye == EyeBoth && e.eye != EyeBoth {
		offset[0] = math.EyeOffset(e.eye.index(), e.cfg.GUIStereoSeparation)
	}
	e.progs.SetUniform(ParmScreenOffset, offset)

	for _, surf := range v.Surfaces {
		e.drawSurface(v, surf)
	}
}

func (e *executor) drawSurface(v *View, surf *DrawSurface) {
	e.counters.Surfaces++
	if surf.Material == nil || len(surf.Material.Stages) == 0 {
		return
	}

	space := surf.Space
	if space == nil {
		space = &v.WorldSpace
	}
	if space != e.currentSpace {
		e.progs.SetMatrix(ParmMVPX, space.MVP)
		e.progs.SetMatrix(ParmModelMatrixX, space.Model)
		e.currentSpace = space
	}

	cull := surf.Material.Cull
	if v.IsMirror {
		switch cull {
		case state.CullFrontSided:
			cull = state.CullBackSided
		case state.CullBackSided:
			cull = state.CullFrontSided
		}
	}
	e.cache.SetCull(cull)

	e.cache.BindBuffer(gpu.VertexBuffer, surf.VertexBuffer)
	e.cache.BindBuffer(gpu.IndexBuffer, surf.IndexBuffer)
	e.cache.SetVertexLayout(surf.Layout)

	for i := range surf.Material.Stages {
		st := &surf.Material.Stages[i]
		p := e.progs.ResolveProgram(st.VertexShader, st.FragmentShader, st.Features)
		if !e.progs.Linked(p) {
			continue
		}
		e.progs.Bind(p)

		for _, t := range st.Textures {
			e.cache.BindTexture(t.Unit, t.Kind, t.Handle)
		}
		e.cache.SetState(st.State)
		e.progs.SetUniform(ParmColor, st.Color)
		for _, u := range st.Uniforms {
			e.progs.SetUniform(u.Slot, u.Value)
		}
		e.progs.CommitUniforms()

		e.cache.DrawElements(surf.NumIndexes, surf.FirstIndex, surf.BaseVertex)
		e.counters.DrawCalls++
		e.counters.Indexes += surf.NumIndexes
	}
}

func (e *executor) setBuffer(c SetBuffer) {
	e.counters.SetBuffers++
	if !e.stereo {
		e.cache.SetDrawBuffer(c.Buffer)
	}

	e.cache.SetScissor(math.RectXYWH(0, 0, e.width, e.height))
	if clear, color := clearMode(e.cfg.Clear, e.cfg.ShowOverdraw); clear {
		e.cache.ClearColorBuffer(color[0], color[1], color[2], color[3])
	}
}

func (e *executor) copyRender(c CopyRender) {
	e.counters.CopyRenders++
	if c.Image == 0 {
		return
	}
	e.rlog.OpenMainBlock(MRBCaptureColorBuffer)
	e.cache.CopyFramebufferToTexture(0, c.Image, c.X, c.Y, c.W, c.H)
	if c.ClearColorAfterCopy {
		e.cache.ClearColorBuffer(0, 0, 0, 0)
	}
}

func (e *executor) postProcess(v *View) {
	if !e.progs.HaveBuiltin(BuiltinPostProcess) {
		return
	}
	e.rlog.OpenMainBlock(MRBPostProcess)
	e.rlog.OpenBlock("PostProcess")
	defer e.rlog.CloseBlock()

	vp := v.Viewport
	w, h := vp.Width(), vp.Height()
	cr := &e.currentRender
	if cr.tex == 0 {
		cr.tex = e.cache.CreateTexture(0, gpu.Texture2D, w, h, gpu.FilterLinear)
		cr.w, cr.h = w, h
	} else if cr.w != w || cr.h != h {
		e.cache.ResizeTexture(0, gpu.Texture2D, cr.tex, w, h)
		cr.w, cr.h = w, h
	}

	e.cache.SetViewport(vp)
	e.cache.SetScissor(vp)
	e.cache.CopyFramebufferToTexture(0, cr.tex, vp.X1, vp.Y1, w, h)

	e.cache.SetState(state.DepthFuncAlways | state.DepthMask)
	e.cache.SetCull(state.CullTwoSided)
	e.progs.BindBuiltin(BuiltinPostProcess)
	e.progs.SetMatrix(ParmMVPX, mgl32.Ident4())
	e.progs.SetUniform(ParmWindowCoord, mgl32.Vec4{1 / float32(w), 1 / float32(h), 0, 0})
	e.currentSpace = nil
	e.progs.CommitUniforms()
	e.quad.draw(e.cache)
	e.counters.PostProcesses++
}

// drawFlickerBox alternates a corner of the screen between red and
// green each frame so that dropped frames are visible.
func (e *executor) drawFlickerBox() {
	if !e.cfg.DrawFlickerBox {
		return
	}
	e.cache.SetScissor(math.RectXYWH(0, 0, 256, 256))
	if e.cache.FrameCounter()&1 == 1 {
		e.cache.ClearColorBuffer(1, 0, 0, 1)
	} else {
		e.cache.ClearColorBuffer(0, 1, 0, 1)
	}
}

func (e *executor) release() {
	e.cache.DeleteTexture(e.currentRender.tex)
	e.currentRender.tex = 0
}
