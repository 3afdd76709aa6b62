// gpu/gpu.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package gpu defines the raw graphics device interface that the render
// backend drives. Nothing outside of renderer.State should call a Device
// method that changes binding state; the state cache depends on seeing
// every change.
package gpu

import (
	"time"
)

type TextureKind int

const (
	Texture2D TextureKind = iota
	Texture2DArray
	TextureCube
	NumTextureKinds
)

func (k TextureKind) String() string {
	return [...]string{"2D", "2DArray", "Cube", "?"}[min(int(k), 3)]
}

type BufferKind int

const (
	VertexBuffer BufferKind = iota
	IndexBuffer
	UniformBuffer
	NumBufferKinds
)

func (k BufferKind) String() string {
	return [...]string{"vertex", "index", "uniform", "?"}[min(int(k), 3)]
}

// Capability enumerates the toggles set with Enable/Disable.
type Capability int

const (
	CapCullFace Capability = iota
	CapDepthTest
	CapBlend
	CapScissorTest
	CapStencilTest
	CapPolygonOffsetFill
	CapPolygonOffsetLine
	CapDepthClamp
)

func (c Capability) String() string {
	return [...]string{"cull", "depth_test", "blend", "scissor_test", "stencil_test",
		"polygon_offset_fill", "polygon_offset_line", "depth_clamp"}[c]
}

type CullFace int

const (
	CullFront CullFace = iota
	CullBack
	CullFrontAndBack
)

type BlendFactor int

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendDstColor
	BlendOneMinusDstColor
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
	BlendDstAlpha
	BlendOneMinusDstAlpha
	BlendSrcColor
	BlendOneMinusSrcColor
)

type CompareFunc int

const (
	CompareLess CompareFunc = iota
	CompareLessEqual
	CompareEqual
	CompareGreater
	CompareGreaterEqual
	CompareAlways
	CompareNever
	CompareNotEqual
)

type StencilOp int

const (
	StencilKeep StencilOp = iota
	StencilZero
	StencilReplace
	StencilIncr
	StencilDecr
	StencilInvert
	StencilIncrWrap
	StencilDecrWrap
)

type PolygonMode int

const (
	PolygonFill PolygonMode = iota
	PolygonLine
)

// DrawBuffer selects the color buffer(s) of the default framebuffer that
// draws and clears go to.
type DrawBuffer int

const (
	DrawBack DrawBuffer = iota
	DrawBackLeft
	DrawBackRight
	DrawFront
	DrawColorAttachment0
)

func (b DrawBuffer) String() string {
	return [...]string{"back", "back_left", "back_right", "front", "color_attachment0"}[b]
}

type Filter int

const (
	FilterLinear Filter = iota
	FilterNearest
)

type ShaderStage int

const (
	VertexStage ShaderStage = iota
	FragmentStage
)

func (s ShaderStage) String() string {
	return [...]string{"vertex", "fragment"}[s]
}

// VertexLayout selects the vertex attribute format used for subsequent
// draws from the bound vertex buffer.
type VertexLayout int

const (
	LayoutUnknown VertexLayout = iota
	LayoutDrawVert
	LayoutDrawShadowVertSkinned
	LayoutDrawShadowVert
)

type ClearMask int

const (
	ClearColor ClearMask = 1 << iota
	ClearDepth
	ClearStencil
)

type SyncStatus int

const (
	SyncAlreadySignaled SyncStatus = iota
	SyncConditionSatisfied
	SyncTimeoutExpired
	SyncWaitFailed
)

func (s SyncStatus) String() string {
	return [...]string{"already_signaled", "condition_satisfied", "timeout_expired", "wait_failed"}[s]
}

// Signaled reports whether the wait finished because the fence retired.
func (s SyncStatus) Signaled() bool {
	return s == SyncAlreadySignaled || s == SyncConditionSatisfied
}

// Fence is an opaque sync object; zero means none.
type Fence uintptr

// ErrorCode is a pending API error as returned by Device.GetError.
type ErrorCode uint32

const (
	NoError                     ErrorCode = 0
	InvalidEnum                 ErrorCode = 0x0500
	InvalidValue                ErrorCode = 0x0501
	InvalidOperation            ErrorCode = 0x0502
	StackOverflow               ErrorCode = 0x0503
	StackUnderflow              ErrorCode = 0x0504
	OutOfMemory                 ErrorCode = 0x0505
	InvalidFramebufferOperation ErrorCode = 0x0506
)

func (e ErrorCode) String() string {
	switch e {
	case NoError:
		return "GL_NO_ERROR"
	case InvalidEnum:
		return "GL_INVALID_ENUM"
	case InvalidValue:
		return "GL_INVALID_VALUE"
	case InvalidOperation:
		return "GL_INVALID_OPERATION"
	case StackOverflow:
		return "GL_STACK_OVERFLOW"
	case StackUnderflow:
		return "GL_STACK_UNDERFLOW"
	case OutOfMemory:
		return "GL_OUT_OF_MEMORY"
	case InvalidFramebufferOperation:
		return "GL_INVALID_FRAMEBUFFER_OPERATION"
	default:
		return "unknown error"
	}
}

// Device is the raw graphics API. Its methods map one-to-one onto API
// calls; none of them elide redundant work.
type Device interface {
	Info() Info

	ActiveTexture(unit int)
	BindTexture(kind TextureKind, tex uint32)
	BindBuffer(kind BufferKind, buf uint32)
	BindFramebuffer(fb uint32)
	DrawBuffer(b DrawBuffer)
	SetVertexLayout(l VertexLayout)

	Enable(c Capability)
	Disable(c Capability)
	CullFace(f CullFace)
	BlendFunc(src, dst BlendFactor)
	DepthFunc(f CompareFunc)
	DepthMask(write bool)
	ColorMask(r, g, b, a bool)
	StencilFunc(f CompareFunc, ref int, mask uint32)
	StencilOp(sfail, zfail, zpass StencilOp)
	PolygonOffset(scale, bias float32)
	PolygonMode(m PolygonMode)

	Viewport(x, y, w, h int)
	Scissor(x, y, w, h int)
	ClearColor(r, g, b, a float32)
	ClearDepth(d float32)
	ClearStencil(s int)
	Clear(mask ClearMask)

	CompileShader(stage ShaderStage, source string) (uint32, error)
	LinkProgram(vs, fs uint32) (uint32, error)
	DeleteShader(shader uint32)
	DeleteProgram(prog uint32)
	UseProgram(prog uint32)
	UniformLocation(prog uint32, name string) int32
	Uniform4fv(loc int32, v []float32)

	// Texture and framebuffer storage calls apply to whatever is
	// currently bound to the active unit / framebuffer.
	GenTexture() uint32
	TexImage2D(kind TextureKind, w, h int)
	TexFilter(kind TextureKind, f Filter)
	CopyTexSubImage2D(kind TextureKind, x, y, w, h int)
	DeleteTexture(tex uint32)
	GenFramebuffer() uint32
	FramebufferTexture(tex uint32)
	// FramebufferDepth gives the bound framebuffer a depth/stencil
	// attachment of the given size.
	FramebufferDepth(w, h int)
	DeleteFramebuffer(fb uint32)

	GenBuffer() uint32
	// BufferData replaces the contents of the buffer bound to kind.
	BufferData(kind BufferKind, data []byte)
	DeleteBuffer(buf uint32)

	// DrawElements draws indexed triangles from the bound buffers.
	DrawElements(count, firstIndex, baseVertex int)

	GenQuery() uint32
	QueryTimestamp(q uint32)
	QueryResultAvailable(q uint32) bool
	QueryResult(q uint32) uint64
	DeleteQuery(q uint32)

	FenceSync() Fence
	ClientWaitSync(f Fence, timeout time.Duration) SyncStatus
	DeleteSync(f Fence)

	Finish()
	Flush()
	GetError() ErrorCode

	PushDebugGroup(label string)
	PopDebugGroup()
}
