// renderer/state/state.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package state holds the backend's shadow copy of the GPU's bound state.
// Every call that changes bound state goes through a Cache, which only
// forwards it to the device when it differs from what is already bound
// (or when forced). The device itself is private to the Cache; the rest
// of the backend can't reach it, which is what keeps the shadow copy
// accurate.
package state

import (
	"github.com/neovr/neo/gpu"
	"github.com/neovr/neo/log"
	"github.com/neovr/neo/math"
)

// MaxTextureUnits is the number of texture units tracked.
const MaxTextureUnits = 8

// maxErrorsPerCheck bounds how many pending errors CheckErrors drains so
// that a broken context can't hang it.
const maxErrorsPerCheck = 10

type CullType int

const (
	CullFrontAndBack CullType = iota
	CullFrontSided
	CullBackSided
	CullTwoSided
)

func (c CullType) String() string {
	return [...]string{"front_and_back", "front", "back", "two_sided"}[c]
}

// Snapshot is a copy of everything the Cache believes is bound.
type Snapshot struct {
	Textures     [MaxTextureUnits][gpu.NumTextureKinds]uint32
	CurrentUnit  int
	Buffers      [gpu.NumBufferKinds]uint32
	Framebuffer  uint32
	DrawBuffer   gpu.DrawBuffer
	Cull         CullType
	VertexLayout gpu.VertexLayout
	PolyOfsScale float32
	PolyOfsBias  float32
	StateBits    Bits
	Viewport     math.ScreenRect
	Scissor      math.ScreenRect
	Program      uint32
	FrameCounter uint64
	FrameParity  int
}

// Stats counts the state changes that were sent to the device and the
// ones that were elided.
type Stats struct {
	Emitted, Skipped int
}

type Cache struct {
	dev   gpu.Device
	lg    *log.Logger
	s     Snapshot
	force bool
	stats Stats

	// IgnoreErrors disables CheckErrors.
	IgnoreErrors bool
}

// New returns a Cache for the given device. The cache starts out zeroed;
// callers must call Reset before using it so that the device is brought
// into agreement with it.
func New(dev gpu.Device, lg *log.Logger) *Cache {
	return &Cache{dev: dev, lg: lg}
}

// SetForce causes subsequent changes to be sent to the device even when
// the cache already has them.
func (c *Cache) SetForce(force bool) { c.force = force }

func (c *Cache) Info() gpu.Info { return c.dev.Info() }

// Snapshot returns a copy of the current cache contents.
func (c *Cache) Snapshot() Snapshot { return c.s }

func (c *Cache) Stats() Stats { return c.stats }

func (c *Cache) ResetStats() { c.stats = Stats{} }

// changed reports whether a state change must go to the device and
// updates the statistics accordingly.
func (c *Cache) changed(same bool) bool {
	if c.force || !same {
		c.stats.Emitted++
		return true
	}
	c.stats.Skipped++
	return false
}

///////////////////////////////////////////////////////////////////////////
// Frames

// BeginFrame advances the frame counter; the low bit of the counter is
// the parity used to double-buffer per-frame GPU objects.
func (c *Cache) BeginFrame() {
	c.s.FrameCounter++
	c.s.FrameParity = int(c.s.FrameCounter & 1)
}

func (c *Cache) FrameCounter() uint64 { return c.s.FrameCounter }
func (c *Cache) FrameParity() int     { return c.s.FrameParity }

///////////////////////////////////////////////////////////////////////////
// Default state

// Reset zeroes the cache and pushes a complete default state to the
// device, including unbinding every texture unit and buffer. The frame
// counter survives.
func (c *Cache) Reset(width, height int) {
	fc, fp := c.s.FrameCounter, c.s.FrameParity
	c.s = Snapshot{FrameCounter: fc, FrameParity: fp}

	c.force = true
	for unit := MaxTextureUnits - 1; unit >= 0; unit-- {
		for kind := range gpu.NumTextureKinds {
			c.BindTexture(unit, kind, 0)
		}
	}
	for kind := range gpu.NumBufferKinds {
		c.BindBuffer(kind, 0)
	}
	c.SetVertexLayout(gpu.LayoutUnknown)
	c.force = false

	c.SetDefaultState(width, height)
	c.force = true
	c.SetDrawBuffer(gpu.DrawBack)
	c.force = false
}

// SetDefaultState forces the render state to its defaults: blend
// one/zero, depth LESS with writes on, all color channels on, culling
// enabled for both faces, the default framebuffer bound with no program
// and a full-window scissor. Texture and buffer bindings are left alone;
// the cache's record of them remains accurate.
func (c *Cache) SetDefaultState(width, height int) {
	c.force = true
	defer func() { c.force = false }()

	c.dev.ClearDepth(1)
	c.dev.Enable(gpu.CapDepthTest)
	c.dev.Enable(gpu.CapBlend)
	c.dev.Enable(gpu.CapScissorTest)

	c.SetState(0)
	c.SetPolygonOffset(0, 0)
	c.SetCull(CullFrontAndBack)
	c.SetFramebuffer(0)
	c.UseProgram(0)
	c.SetViewport(math.RectXYWH(0, 0, width, height))
	c.SetScissor(math.RectXYWH(0, 0, width, height))
}

///////////////////////////////////////////////////////////////////////////
// Bindings

func (c *Cache) selectUnit(unit int) {
	if c.changed(c.s.CurrentUnit == unit) {
		c.dev.ActiveTexture(unit)
		c.s.CurrentUnit = unit
	}
}

// BindTexture binds tex to the given unit and target. The active unit is
// only changed when a bind is actually needed.
func (c *Cache) BindTexture(unit int, kind gpu.TextureKind, tex uint32) {
	if unit < 0 || unit >= MaxTextureUnits {
		c.lg.Errorf("%d: texture unit out of range", unit)
		return
	}
	if c.force || c.s.Textures[unit][kind] != tex {
		c.selectUnit(unit)
		c.stats.Emitted++
		c.dev.BindTexture(kind, tex)
		c.s.Textures[unit][kind] = tex
	} else {
		c.stats.Skipped++
	}
}

func (c *Cache) BindBuffer(kind gpu.BufferKind, buf uint32) {
	if c.changed(c.s.Buffers[kind] == buf) {
		c.dev.BindBuffer(kind, buf)
		c.s.Buffers[kind] = buf
	}
}

func (c *Cache) SetFramebuffer(fb uint32) {
	if c.changed(c.s.Framebuffer == fb) {
		c.dev.BindFramebuffer(fb)
		c.s.Framebuffer = fb
	}
}

func (c *Cache) Framebuffer() uint32 { return c.s.Framebuffer }

// SetDrawBuffer selects the color buffer of the default framebuffer to
// draw to. The selection is per-framebuffer state, so it may only be
// changed while the default framebuffer is bound.
func (c *Cache) SetDrawBuffer(b gpu.DrawBuffer) {
	if c.s.Framebuffer != 0 {
		c.lg.Errorf("%s: draw buffer change with framebuffer %d bound", b, c.s.Framebuffer)
		return
	}
	if c.changed(c.s.DrawBuffer == b) {
		c.dev.DrawBuffer(b)
		c.s.DrawBuffer = b
	}
}

func (c *Cache) SetVertexLayout(l gpu.VertexLayout) {
	if c.changed(c.s.VertexLayout == l) {
		c.dev.SetVertexLayout(l)
		c.s.VertexLayout = l
	}
}

func (c *Cache) UseProgram(prog uint32) {
	if c.changed(c.s.Program == prog) {
		c.dev.UseProgram(prog)
		c.s.Program = prog
	}
}

func (c *Cache) Program() uint32 { return c.s.Program }

///////////////////////////////////////////////////////////////////////////
// Render state

func (c *Cache) SetCull(cull CullType) {
	if !c.changed(c.s.Cull == cull) {
		return
	}
	switch cull {
	case CullTwoSided:
		c.dev.Disable(gpu.CapCullFace)
	case CullFrontSided:
		c.dev.Enable(gpu.CapCullFace)
		c.dev.CullFace(gpu.CullFront)
	case CullBackSided:
		c.dev.Enable(gpu.CapCullFace)
		c.dev.CullFace(gpu.CullBack)
	default:
		c.dev.Enable(gpu.CapCullFace)
		c.dev.CullFace(gpu.CullFrontAndBack)
	}
	c.s.Cull = cull
}

func (c *Cache) Cull() CullType { return c.s.Cull }

// SetPolygonOffset sets the offset used when the PolygonOffset state bit
// is on.
func (c *Cache) SetPolygonOffset(scale, bias float32) {
	if c.changed(c.s.PolyOfsScale == scale && c.s.PolyOfsBias == bias) {
		c.dev.PolygonOffset(scale, bias)
		c.s.PolyOfsScale, c.s.PolyOfsBias = scale, bias
	}
}

// SetState applies the blend, depth, mask, polygon and stencil state
// described by bits, sending only the groups that changed.
func (c *Cache) SetState(bits Bits) {
	diff := bits ^ c.s.StateBits
	if c.force {
		diff = ^Bits(0)
	}
	if diff == 0 {
		c.stats.Skipped++
		return
	}
	c.stats.Emitted++

	if diff&(SrcBlendBits|DstBlendBits) != 0 {
		c.dev.BlendFunc(bits.srcBlend(), bits.dstBlend())
	}
	if diff&DepthFuncBits != 0 {
		c.dev.DepthFunc(bits.depthFunc())
	}
	if diff&DepthMask != 0 {
		c.dev.DepthMask(bits&DepthMask == 0)
	}
	if diff&ColorMaskBits != 0 {
		c.dev.ColorMask(bits&RedMask == 0, bits&GreenMask == 0, bits&BlueMask == 0, bits&AlphaMask == 0)
	}
	if diff&PolymodeLine != 0 {
		if bits&PolymodeLine != 0 {
			c.dev.PolygonMode(gpu.PolygonLine)
		} else {
			c.dev.PolygonMode(gpu.PolygonFill)
		}
	}
	if diff&PolygonOffset != 0 {
		if bits&PolygonOffset != 0 {
			c.dev.PolygonOffset(c.s.PolyOfsScale, c.s.PolyOfsBias)
			c.dev.Enable(gpu.CapPolygonOffsetFill)
			c.dev.Enable(gpu.CapPolygonOffsetLine)
		} else {
			c.dev.Disable(gpu.CapPolygonOffsetFill)
			c.dev.Disable(gpu.CapPolygonOffsetLine)
		}
	}
	if diff&(StencilFuncBits|StencilRefBits|StencilMaskBits|StencilOpBits) != 0 {
		if bits.stencilEnabled() {
			c.dev.Enable(gpu.CapStencilTest)
		} else {
			c.dev.Disable(gpu.CapStencilTest)
		}
		c.dev.StencilFunc(bits.stencilFunc(), bits.stencilRef(), bits.stencilMask())
		c.dev.StencilOp(bits.stencilOps())
	}

	c.s.StateBits = bits
}

func (c *Cache) StateBits() Bits { return c.s.StateBits }

func (c *Cache) SetViewport(r math.ScreenRect) {
	if c.changed(c.s.Viewport == r) {
		c.dev.Viewport(r.XYWH())
		c.s.Viewport = r
	}
}

func (c *Cache) SetScissor(r math.ScreenRect) {
	if c.changed(c.s.Scissor == r) {
		c.dev.Scissor(r.XYWH())
		c.s.Scissor = r
	}
}

func (c *Cache) Viewport() math.ScreenRect { return c.s.Viewport }

///////////////////////////////////////////////////////////////////////////
// Errors

// CheckErrors logs any pending device errors, reporting whether there
// were any.
func (c *Cache) CheckErrors(site string) bool {
	if c.IgnoreErrors {
		return false
	}
	found := false
	for range maxErrorsPerCheck {
		e := c.dev.GetError()
		if e == gpu.NoError {
			break
		}
		c.lg.Errorf("%s: %s", site, e)
		found = true
	}
	return found
}
