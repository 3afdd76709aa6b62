// gpu/ogl/device.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package ogl implements gpu.Device with OpenGL 4.1 core profile.
package ogl

import (
	"fmt"
	"strings"
	"time"

	"github.com/neovr/neo/gpu"
	"github.com/neovr/neo/log"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Device issues gpu.Device calls to the current OpenGL context. It must
// only be used from the thread that owns the context.
type Device struct {
	info    gpu.Info
	vao     uint32
	lg      *log.Logger
	created map[uint32]int
	depth   map[uint32]uint32 // framebuffer -> depth renderbuffer
}

var _ gpu.Device = (*Device)(nil)

// New loads the OpenGL entrypoints for the current context.
func New(lg *log.Logger) (*Device, error) {
	lg.Info("Starting OpenGL initialization")
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	d := &Device{lg: lg, created: make(map[uint32]int), depth: make(map[uint32]uint32)}
	d.info = gpu.Info{
		Vendor:      gl.GoStr(gl.GetString(gl.VENDOR)),
		Renderer:    gl.GoStr(gl.GetString(gl.RENDERER)),
		Version:     gl.GoStr(gl.GetString(gl.VERSION)),
		GLSLVersion: gl.GoStr(gl.GetString(gl.SHADING_LANGUAGE_VERSION)),
	}
	var major, minor, n int32
	gl.GetIntegerv(gl.MAJOR_VERSION, &major)
	gl.GetIntegerv(gl.MINOR_VERSION, &minor)
	d.info.Major, d.info.Minor = int(major), int(minor)

	gl.GetIntegerv(gl.NUM_EXTENSIONS, &n)
	for i := range uint32(n) {
		ext := gl.GoStr(gl.GetStringi(gl.EXTENSIONS, i))
		// The 4.1 bindings have no entrypoints for debug groups.
		if ext == "GL_KHR_debug" || ext == "GL_ARB_debug_output" {
			continue
		}
		d.info.Extensions = append(d.info.Extensions, ext)
	}
	lg.Infof("OpenGL vendor %s renderer %s version %s", d.info.Vendor, d.info.Renderer, d.info.Version)

	// Core profile requires a bound vertex array object for any draw.
	gl.GenVertexArrays(1, &d.vao)
	gl.BindVertexArray(d.vao)

	lg.Info("Finished OpenGL initialization")
	return d, nil
}

// Dispose releases the objects the device created for itself.
func (d *Device) Dispose() {
	gl.DeleteVertexArrays(1, &d.vao)
}

func (d *Device) Info() gpu.Info { return d.info }

var textureTargets = [...]uint32{gpu.Texture2D: gl.TEXTURE_2D, gpu.Texture2DArray: gl.TEXTURE_2D_ARRAY,
	gpu.TextureCube: gl.TEXTURE_CUBE_MAP}

var bufferTargets = [...]uint32{gpu.VertexBuffer: gl.ARRAY_BUFFER, gpu.IndexBuffer: gl.ELEMENT_ARRAY_BUFFER,
	gpu.UniformBuffer: gl.UNIFORM_BUFFER}

var capabilities = [...]uint32{gpu.CapCullFace: gl.CULL_FACE, gpu.CapDepthTest: gl.DEPTH_TEST,
	gpu.CapBlend: gl.BLEND, gpu.CapScissorTest: gl.SCISSOR_TEST, gpu.CapStencilTest: gl.STENCIL_TEST,
	gpu.CapPolygonOffsetFill: gl.POLYGON_OFFSET_FILL, gpu.CapPolygonOffsetLine: gl.POLYGON_OFFSET_LINE,
	gpu.CapDepthClamp: gl.DEPTH_CLAMP}

var cullFaces = [...]uint32{gpu.CullFront: gl.FRONT, gpu.CullBack: gl.BACK, gpu.CullFrontAndBack: gl.FRONT_AND_BACK}

var blendFactors = [...]uint32{gpu.BlendZero: gl.ZERO, gpu.BlendOne: gl.ONE, gpu.BlendDstColor: gl.DST_COLOR,
	gpu.BlendOneMinusDstColor: gl.ONE_MINUS_DST_COLOR, gpu.BlendSrcAlpha: gl.SRC_ALPHA,
	gpu.BlendOneMinusSrcAlpha: gl.ONE_MINUS_SRC_ALPHA, gpu.BlendDstAlpha: gl.DST_ALPHA,
	gpu.BlendOneMinusDstAlpha: gl.ONE_MINUS_DST_ALPHA, gpu.BlendSrcColor: gl.SRC_COLOR,
	gpu.BlendOneMinusSrcColor: gl.ONE_MINUS_SRC_COLOR}

var compareFuncs = [...]uint32{gpu.CompareLess: gl.LESS, gpu.CompareLessEqual: gl.LEQUAL,
	gpu.CompareEqual: gl.EQUAL, gpu.CompareGreater: gl.GREATER, gpu.CompareGreaterEqual: gl.GEQUAL,
	gpu.CompareAlways: gl.ALWAYS, gpu.CompareNever: gl.NEVER, gpu.CompareNotEqual: gl.NOTEQUAL}

var stencilOps = [...]uint32{gpu.StencilKeep: gl.KEEP, gpu.StencilZero: gl.ZERO, gpu.StencilReplace: gl.REPLACE,
	gpu.StencilIncr: gl.INCR, gpu.StencilDecr: gl.DECR, gpu.StencilInvert: gl.INVERT,
	gpu.StencilIncrWrap: gl.INCR_WRAP, gpu.StencilDecrWrap: gl.DECR_WRAP}

var drawBuffers = [...]uint32{gpu.DrawBack: gl.BACK, gpu.DrawBackLeft: gl.BACK_LEFT,
	gpu.DrawBackRight: gl.BACK_RIGHT, gpu.DrawFront: gl.FRONT, gpu.DrawColorAttachment0: gl.COLOR_ATTACHMENT0}

func (d *Device) ActiveTexture(unit int) { gl.ActiveTexture(gl.TEXTURE0 + uint32(unit)) }

func (d *Device) BindTexture(kind gpu.TextureKind, tex uint32) {
	gl.BindTexture(textureTargets[kind], tex)
}

func (d *Device) BindBuffer(kind gpu.BufferKind, buf uint32) {
	gl.BindBuffer(bufferTargets[kind], buf)
}

func (d *Device) BindFramebuffer(fb uint32)   { gl.BindFramebuffer(gl.FRAMEBUFFER, fb) }
func (d *Device) DrawBuffer(b gpu.DrawBuffer) { gl.DrawBuffer(drawBuffers[b]) }

// SetVertexLayout sets up the attribute pointers for the vertex formats
// the renderer draws with. DrawVert is 36 bytes: position (3 float),
// texcoord (2 float), normal, tangent, color, and color2 (4 ubyte each).
func (d *Device) SetVertexLayout(l gpu.VertexLayout) {
	for i := range uint32(6) {
		gl.DisableVertexAttribArray(i)
	}

	switch l {
	case gpu.LayoutDrawVert:
		const stride = 36
		attribs := []struct {
			size   int32
			xtype  uint32
			norm   bool
			offset uintptr
		}{
			{3, gl.FLOAT, false, 0},
			{2, gl.FLOAT, false, 12},
			{4, gl.UNSIGNED_BYTE, true, 20},
			{4, gl.UNSIGNED_BYTE, true, 24},
			{4, gl.UNSIGNED_BYTE, true, 28},
			{4, gl.UNSIGNED_BYTE, true, 32},
		}
		for i, a := range attribs {
			gl.EnableVertexAttribArray(uint32(i))
			gl.VertexAttribPointerWithOffset(uint32(i), a.size, a.xtype, a.norm, stride, a.offset)
		}

	case gpu.LayoutDrawShadowVert:
		gl.EnableVertexAttribArray(0)
		gl.VertexAttribPointerWithOffset(0, 4, gl.FLOAT, false, 16, 0)

	case gpu.LayoutDrawShadowVertSkinned:
		gl.EnableVertexAttribArray(0)
		gl.VertexAttribPointerWithOffset(0, 4, gl.FLOAT, false, 24, 0)
		gl.EnableVertexAttribArray(4)
		gl.VertexAttribPointerWithOffset(4, 4, gl.UNSIGNED_BYTE, true, 24, 16)
		gl.EnableVertexAttribArray(5)
		gl.VertexAttribPointerWithOffset(5, 4, gl.UNSIGNED_BYTE, true, 24, 20)
	}
}

func (d *Device) Enable(c gpu.Capability)  { gl.Enable(capabilities[c]) }
func (d *Device) Disable(c gpu.Capability) { gl.Disable(capabilities[c]) }
func (d *Device) CullFace(f gpu.CullFace)  { gl.CullFace(cullFaces[f]) }

func (d *Device) BlendFunc(src, dst gpu.BlendFactor) {
	gl.BlendFunc(blendFactors[src], blendFactors[dst])
}

func (d *Device) DepthFunc(f gpu.CompareFunc) { gl.DepthFunc(compareFuncs[f]) }
func (d *Device) DepthMask(write bool)        { gl.DepthMask(write) }
func (d *Device) ColorMask(r, g, b, a bool)   { gl.ColorMask(r, g, b, a) }

func (d *Device) StencilFunc(f gpu.CompareFunc, ref int, mask uint32) {
	gl.StencilFunc(compareFuncs[f], int32(ref), mask)
}

func (d *Device) StencilOp(sfail, zfail, zpass gpu.StencilOp) {
	gl.StencilOp(stencilOps[sfail], stencilOps[zfail], stencilOps[zpass])
}

func (d *Device) PolygonOffset(scale, bias float32) { gl.PolygonOffset(scale, bias) }

func (d *Device) PolygonMode(m gpu.PolygonMode) {
	if m == gpu.PolygonLine {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	} else {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}
}

func (d *Device) Viewport(x, y, w, h int)       { gl.Viewport(int32(x), int32(y), int32(w), int32(h)) }
func (d *Device) Scissor(x, y, w, h int)        { gl.Scissor(int32(x), int32(y), int32(w), int32(h)) }
func (d *Device) ClearColor(r, g, b, a float32) { gl.ClearColor(r, g, b, a) }
func (d *Device) ClearDepth(v float32)          { gl.ClearDepth(float64(v)) }
func (d *Device) ClearStencil(s int)            { gl.ClearStencil(int32(s)) }

func (d *Device) Clear(mask gpu.ClearMask) {
	var bits uint32
	if mask&gpu.ClearColor != 0 {
		bits |= gl.COLOR_BUFFER_BIT
	}
	if mask&gpu.ClearDepth != 0 {
		bits |= gl.DEPTH_BUFFER_BIT
	}
	if mask&gpu.ClearStencil != 0 {
		bits |= gl.STENCIL_BUFFER_BIT
	}
	gl.Clear(bits)
}

func (d *Device) CompileShader(stage gpu.ShaderStage, source string) (uint32, error) {
	ty := uint32(gl.VERTEX_SHADER)
	if stage == gpu.FragmentStage {
		ty = gl.FRAGMENT_SHADER
	}
	shader := gl.CreateShader(ty)

	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		msg := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(msg))
		gl.DeleteShader(shader)

		return 0, fmt.Errorf("failed to compile %s shader: %s", stage, strings.TrimRight(msg, "\x00"))
	}
	return shader, nil
}

func (d *Device) LinkProgram(vs, fs uint32) (uint32, error) {
	prog := gl.CreateProgram()
	gl.AttachShader(prog, vs)
	gl.AttachShader(prog, fs)
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLength)

		msg := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(prog, logLength, nil, gl.Str(msg))
		gl.DeleteProgram(prog)

		return 0, fmt.Errorf("failed to link program: %s", strings.TrimRight(msg, "\x00"))
	}
	return prog, nil
}

func (d *Device) DeleteShader(shader uint32) { gl.DeleteShader(shader) }
func (d *Device) DeleteProgram(prog uint32)  { gl.DeleteProgram(prog) }
func (d *Device) UseProgram(prog uint32)     { gl.UseProgram(prog) }

func (d *Device) UniformLocation(prog uint32, name string) int32 {
	return gl.GetUniformLocation(prog, gl.Str(name+"\x00"))
}

func (d *Device) Uniform4fv(loc int32, v []float32) {
	if len(v) < 4 {
		return
	}
	gl.Uniform4fv(loc, int32(len(v)/4), &v[0])
}

func (d *Device) GenTexture() uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	return tex
}

func (d *Device) boundTexture(kind gpu.TextureKind) uint32 {
	pname := map[gpu.TextureKind]uint32{gpu.Texture2D: gl.TEXTURE_BINDING_2D,
		gpu.Texture2DArray: gl.TEXTURE_BINDING_2D_ARRAY, gpu.TextureCube: gl.TEXTURE_BINDING_CUBE_MAP}[kind]
	var tex int32
	gl.GetIntegerv(pname, &tex)
	return uint32(tex)
}

func (d *Device) TexImage2D(kind gpu.TextureKind, w, h int) {
	switch kind {
	case gpu.Texture2D:
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(w), int32(h), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	case gpu.Texture2DArray:
		gl.TexImage3D(gl.TEXTURE_2D_ARRAY, 0, gl.RGBA8, int32(w), int32(h), 1, 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	case gpu.TextureCube:
		for face := range uint32(6) {
			gl.TexImage2D(gl.TEXTURE_CUBE_MAP_POSITIVE_X+face, 0, gl.RGBA8, int32(w), int32(h), 0,
				gl.RGBA, gl.UNSIGNED_BYTE, nil)
		}
	}

	faces := 1
	if kind == gpu.TextureCube {
		faces = 6
	}
	d.createdTexture(d.boundTexture(kind), 4*w*h*faces)
}

func (d *Device) createdTexture(tex uint32, bytes int) {
	_, exists := d.created[tex]
	d.created[tex] = bytes

	total := 0
	for _, b := range d.created {
		total += b
	}
	mb := float32(total) / (1024 * 1024)

	if exists {
		d.lg.Debugf("Updated tex id %d: %d bytes -> %.2f MiB of textures total", tex, bytes, mb)
	} else {
		d.lg.Debugf("Created tex id %d: %d bytes -> %.2f MiB of textures total", tex, bytes, mb)
	}
}

func (d *Device) TexFilter(kind gpu.TextureKind, f gpu.Filter) {
	mode := int32(gl.LINEAR)
	if f == gpu.FilterNearest {
		mode = gl.NEAREST
	}
	t := textureTargets[kind]
	gl.TexParameteri(t, gl.TEXTURE_MIN_FILTER, mode)
	gl.TexParameteri(t, gl.TEXTURE_MAG_FILTER, mode)
	gl.TexParameteri(t, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(t, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
}

func (d *Device) CopyTexSubImage2D(kind gpu.TextureKind, x, y, w, h int) {
	gl.CopyTexSubImage2D(textureTargets[kind], 0, 0, 0, int32(x), int32(y), int32(w), int32(h))
}

func (d *Device) DeleteTexture(tex uint32) {
	gl.DeleteTextures(1, &tex)
	delete(d.created, tex)
}

func (d *Device) GenFramebuffer() uint32 {
	var fb uint32
	gl.GenFramebuffers(1, &fb)
	return fb
}

func (d *Device) FramebufferTexture(tex uint32) {
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, tex, 0)
	if s := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); s != gl.FRAMEBUFFER_COMPLETE {
		d.lg.Warnf("framebuffer incomplete: 0x%x", s)
	}
}

func (d *Device) FramebufferDepth(w, h int) {
	var rb uint32
	gl.GenRenderbuffers(1, &rb)
	gl.BindRenderbuffer(gl.RENDERBUFFER, rb)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH24_STENCIL8, int32(w), int32(h))
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_STENCIL_ATTACHMENT, gl.RENDERBUFFER, rb)
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)

	var fb int32
	gl.GetIntegerv(gl.FRAMEBUFFER_BINDING, &fb)
	if old, ok := d.depth[uint32(fb)]; ok {
		gl.DeleteRenderbuffers(1, &old)
	}
	d.depth[uint32(fb)] = rb
}

func (d *Device) DeleteFramebuffer(fb uint32) {
	gl.DeleteFramebuffers(1, &fb)
	if rb, ok := d.depth[fb]; ok {
		gl.DeleteRenderbuffers(1, &rb)
		delete(d.depth, fb)
	}
}

func (d *Device) GenBuffer() uint32 {
	var buf uint32
	gl.GenBuffers(1, &buf)
	return buf
}

func (d *Device) BufferData(kind gpu.BufferKind, data []byte) {
	if len(data) == 0 {
		gl.BufferData(bufferTargets[kind], 0, nil, gl.STATIC_DRAW)
		return
	}
	gl.BufferData(bufferTargets[kind], len(data), gl.Ptr(data), gl.STATIC_DRAW)
}

func (d *Device) DeleteBuffer(buf uint32) { gl.DeleteBuffers(1, &buf) }

func (d *Device) DrawElements(count, firstIndex, baseVertex int) {
	gl.DrawElementsBaseVertex(gl.TRIANGLES, int32(count), gl.UNSIGNED_INT,
		gl.PtrOffset(4*firstIndex), int32(baseVertex))
}

func (d *Device) GenQuery() uint32 {
	var q uint32
	gl.GenQueries(1, &q)
	return q
}

func (d *Device) QueryTimestamp(q uint32) { gl.QueryCounter(q, gl.TIMESTAMP) }

func (d *Device) QueryResultAvailable(q uint32) bool {
	var avail int32
	gl.GetQueryObjectiv(q, gl.QUERY_RESULT_AVAILABLE, &avail)
	return avail != 0
}

func (d *Device) QueryResult(q uint32) uint64 {
	var v uint64
	gl.GetQueryObjectui64v(q, gl.QUERY_RESULT, &v)
	return v
}

func (d *Device) DeleteQuery(q uint32) { gl.DeleteQueries(1, &q) }

func (d *Device) FenceSync() gpu.Fence {
	return gpu.Fence(gl.FenceSync(gl.SYNC_GPU_COMMANDS_COMPLETE, 0))
}

func (d *Device) ClientWaitSync(f gpu.Fence, timeout time.Duration) gpu.SyncStatus {
	switch gl.ClientWaitSync(uintptr(f), gl.SYNC_FLUSH_COMMANDS_BIT, uint64(timeout.Nanoseconds())) {
	case gl.ALREADY_SIGNALED:
		return gpu.SyncAlreadySignaled
	case gl.CONDITION_SATISFIED:
		return gpu.SyncConditionSatisfied
	case gl.TIMEOUT_EXPIRED:
		return gpu.SyncTimeoutExpired
	default:
		return gpu.SyncWaitFailed
	}
}

func (d *Device) DeleteSync(f gpu.Fence) { gl.DeleteSync(uintptr(f)) }

func (d *Device) Finish() { gl.Finish() }
func (d *Device) Flush()  { gl.Flush() }

func (d *Device) GetError() gpu.ErrorCode { return gpu.ErrorCode(gl.GetError()) }

// Debug groups need KHR_debug, which the 4.1 core bindings don't
// expose; Info never reports it so callers don't expect markers.
func (d *Device) PushDebugGroup(label string) {}
func (d *Device) PopDebugGroup()              {}
