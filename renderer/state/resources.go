// renderer/state/resources.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package state

import (
	"time"

	"github.com/neovr/neo/gpu"
)

// Object creation and the remaining device calls. The device applies
// texture and framebuffer storage calls to whatever is bound, so these
// go through the same bindings as everything else.

func (c *Cache) CreateTexture(unit int, kind gpu.TextureKind, w, h int, filter gpu.Filter) uint32 {
	tex := c.dev.GenTexture()
	c.selectUnit(unit)
	c.BindTexture(unit, kind, tex)
	c.dev.TexImage2D(kind, w, h)
	c.dev.TexFilter(kind, filter)
	return tex
}

// ResizeTexture reallocates the storage of an existing texture.
func (c *Cache) ResizeTexture(unit int, kind gpu.TextureKind, tex uint32, w, h int) {
	c.selectUnit(unit)
	c.BindTexture(unit, kind, tex)
	c.dev.TexImage2D(kind, w, h)
}

func (c *Cache) TexFilter(unit int, kind gpu.TextureKind, tex uint32, filter gpu.Filter) {
	c.selectUnit(unit)
	c.BindTexture(unit, kind, tex)
	c.dev.TexFilter(kind, filter)
}

// CopyFramebufferToTexture copies a region of the current framebuffer
// into the lower-left corner of tex.
func (c *Cache) CopyFramebufferToTexture(unit int, tex uint32, x, y, w, h int) {
	c.selectUnit(unit)
	c.BindTexture(unit, gpu.Texture2D, tex)
	c.dev.CopyTexSubImage2D(gpu.Texture2D, x, y, w, h)
}

// DeleteTexture deletes tex; any units it was bound to revert to zero.
func (c *Cache) DeleteTexture(tex uint32) {
	if tex == 0 {
		return
	}
	c.dev.DeleteTexture(tex)
	for unit := range c.s.Textures {
		for kind := range c.s.Textures[unit] {
			if c.s.Textures[unit][kind] == tex {
				c.s.Textures[unit][kind] = 0
			}
		}
	}
}

// CreateFramebuffer returns a framebuffer rendering into the given 2D
// texture with a depth/stencil attachment of the same size. The
// previously bound framebuffer is restored.
func (c *Cache) CreateFramebuffer(color uint32, w, h int) uint32 {
	prev := c.s.Framebuffer
	fb := c.dev.GenFramebuffer()
	c.SetFramebuffer(fb)
	c.dev.FramebufferTexture(color)
	c.dev.FramebufferDepth(w, h)
	c.SetFramebuffer(prev)
	return fb
}

func (c *Cache) DeleteFramebuffer(fb uint32) {
	if fb == 0 {
		return
	}
	c.dev.DeleteFramebuffer(fb)
	if c.s.Framebuffer == fb {
		c.s.Framebuffer = 0
	}
}

// CreateBuffer returns a buffer of the given kind holding data. The
// buffer is left bound.
func (c *Cache) CreateBuffer(kind gpu.BufferKind, data []byte) uint32 {
	buf := c.dev.GenBuffer()
	c.BindBuffer(kind, buf)
	c.dev.BufferData(kind, data)
	return buf
}

func (c *Cache) DeleteBuffer(buf uint32) {
	if buf == 0 {
		return
	}
	c.dev.DeleteBuffer(buf)
	for kind, b := range c.s.Buffers {
		if b == buf {
			c.s.Buffers[kind] = 0
		}
	}
}

///////////////////////////////////////////////////////////////////////////
// Shaders

func (c *Cache) CompileShader(stage gpu.ShaderStage, source string) (uint32, error) {
	return c.dev.CompileShader(stage, source)
}

func (c *Cache) LinkProgram(vs, fs uint32) (uint32, error) {
	return c.dev.LinkProgram(vs, fs)
}

func (c *Cache) DeleteShader(shader uint32) {
	if shader != 0 {
		c.dev.DeleteShader(shader)
	}
}

// DeleteProgram deletes prog, unbinding it first if it is current.
func (c *Cache) DeleteProgram(prog uint32) {
	if prog == 0 {
		return
	}
	if c.s.Program == prog {
		c.UseProgram(0)
	}
	c.dev.DeleteProgram(prog)
}

func (c *Cache) UniformLocation(prog uint32, name string) int32 {
	return c.dev.UniformLocation(prog, name)
}

// Uniform4fv uploads to the current program.
func (c *Cache) Uniform4fv(loc int32, v []float32) {
	c.dev.Uniform4fv(loc, v)
}

///////////////////////////////////////////////////////////////////////////
// Drawing

func (c *Cache) ClearColor(r, g, b, a float32) { c.dev.ClearColor(r, g, b, a) }
func (c *Cache) ClearStencil(s int)            { c.dev.ClearStencil(s) }
func (c *Cache) Clear(mask gpu.ClearMask)      { c.dev.Clear(mask) }

// ClearColorBuffer clears the color buffer within the current scissor.
func (c *Cache) ClearColorBuffer(r, g, b, a float32) {
	c.dev.ClearColor(r, g, b, a)
	c.dev.Clear(gpu.ClearColor)
}

func (c *Cache) DrawElements(count, firstIndex, baseVertex int) {
	c.dev.DrawElements(count, firstIndex, baseVertex)
}

func (c *Cache) Finish() { c.dev.Finish() }
func (c *Cache) Flush()  { c.dev.Flush() }

///////////////////////////////////////////////////////////////////////////
// Queries, fences and markers

func (c *Cache) GenQuery() uint32                   { return c.dev.GenQuery() }
func (c *Cache) QueryTimestamp(q uint32)            { c.dev.QueryTimestamp(q) }
func (c *Cache) QueryResultAvailable(q uint32) bool { return c.dev.QueryResultAvailable(q) }
func (c *Cache) QueryResult(q uint32) uint64        { return c.dev.QueryResult(q) }
func (c *Cache) DeleteQuery(q uint32)               { c.dev.DeleteQuery(q) }
func (c *Cache) FenceSync() gpu.Fence               { return c.dev.FenceSync() }
func (c *Cache) DeleteSync(f gpu.Fence)             { c.dev.DeleteSync(f) }
func (c *Cache) PushDebugGroup(label string)        { c.dev.PushDebugGroup(label) }
func (c *Cache) PopDebugGroup()                     { c.dev.PopDebugGroup() }

func (c *Cache) ClientWaitSync(f gpu.Fence, timeout time.Duration) gpu.SyncStatus {
	return c.dev.ClientWaitSync(f, timeout)
}
