// renderer/state/bits.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package state

import (
	"fmt"
	"strings"

	"github.com/neovr/neo/gpu"
)

// Bits packs the blend, depth, color mask, polygon and stencil state
// into a single word. The zero value is the default state: blend
// one/zero, depth writes on with LESS, all color channels written,
// filled polygons without offset and the stencil test off.
type Bits uint64

const (
	SrcBlendOne              Bits = 0
	SrcBlendZero             Bits = 1
	SrcBlendDstColor         Bits = 2
	SrcBlendOneMinusDstColor Bits = 3
	SrcBlendSrcAlpha         Bits = 4
	SrcBlendOneMinusSrcAlpha Bits = 5
	SrcBlendDstAlpha         Bits = 6
	SrcBlendOneMinusDstAlpha Bits = 7
	SrcBlendBits             Bits = 0xf

	DstBlendZero             Bits = 0 << 4
	DstBlendOne              Bits = 1 << 4
	DstBlendSrcColor         Bits = 2 << 4
	DstBlendOneMinusSrcColor Bits = 3 << 4
	DstBlendSrcAlpha         Bits = 4 << 4
	DstBlendOneMinusSrcAlpha Bits = 5 << 4
	DstBlendDstAlpha         Bits = 6 << 4
	DstBlendOneMinusDstAlpha Bits = 7 << 4
	DstBlendBits             Bits = 0xf << 4

	// DepthMask disables depth writes.
	DepthMask Bits = 1 << 8
	// The color mask bits disable writes to their channel.
	RedMask       Bits = 1 << 9
	GreenMask     Bits = 1 << 10
	BlueMask      Bits = 1 << 11
	AlphaMask     Bits = 1 << 12
	ColorMask     Bits = RedMask | GreenMask | BlueMask
	ColorMaskBits Bits = RedMask | GreenMask | BlueMask | AlphaMask

	PolymodeLine  Bits = 1 << 13
	PolygonOffset Bits = 1 << 14

	DepthFuncLess    Bits = 0 << 16
	DepthFuncAlways  Bits = 1 << 16
	DepthFuncGreater Bits = 2 << 16
	DepthFuncEqual   Bits = 3 << 16
	DepthFuncBits    Bits = 3 << 16

	StencilFuncAlways       Bits = 0 << 20
	StencilFuncLess         Bits = 1 << 20
	StencilFuncLessEqual    Bits = 2 << 20
	StencilFuncEqual        Bits = 3 << 20
	StencilFuncGreater      Bits = 4 << 20
	StencilFuncGreaterEqual Bits = 5 << 20
	StencilFuncNotEqual     Bits = 6 << 20
	StencilFuncNever        Bits = 7 << 20
	StencilFuncBits         Bits = 7 << 20

	stencilRefShift  = 24
	StencilRefBits   Bits = 0xff << stencilRefShift
	stencilMaskShift = 32
	StencilMaskBits  Bits = 0xff << stencilMaskShift

	stencilFailShift  = 40
	stencilZFailShift = 43
	stencilPassShift  = 46
	StencilFailBits   Bits = 7 << stencilFailShift
	StencilZFailBits  Bits = 7 << stencilZFailShift
	StencilPassBits   Bits = 7 << stencilPassShift
	StencilOpBits     Bits = StencilFailBits | StencilZFailBits | StencilPassBits
)

// StencilRef returns the bits encoding the given stencil reference value.
func StencilRef(ref uint8) Bits { return Bits(ref) << stencilRefShift }

// StencilMask returns the bits encoding the given stencil read mask.
func StencilMask(mask uint8) Bits { return Bits(mask) << stencilMaskShift }

// StencilOps returns the bits encoding the stencil fail, depth fail and
// pass operations.
func StencilOps(sfail, zfail, zpass gpu.StencilOp) Bits {
	return Bits(sfail)<<stencilFailShift | Bits(zfail)<<stencilZFailShift | Bits(zpass)<<stencilPassShift
}

var srcFactors = [...]gpu.BlendFactor{gpu.BlendOne, gpu.BlendZero, gpu.BlendDstColor, gpu.BlendOneMinusDstColor,
	gpu.BlendSrcAlpha, gpu.BlendOneMinusSrcAlpha, gpu.BlendDstAlpha, gpu.BlendOneMinusDstAlpha}

var dstFactors = [...]gpu.BlendFactor{gpu.BlendZero, gpu.BlendOne, gpu.BlendSrcColor, gpu.BlendOneMinusSrcColor,
	gpu.BlendSrcAlpha, gpu.BlendOneMinusSrcAlpha, gpu.BlendDstAlpha, gpu.BlendOneMinusDstAlpha}

var depthFuncs = [...]gpu.CompareFunc{gpu.CompareLess, gpu.CompareAlways, gpu.CompareGreater, gpu.CompareEqual}

var stencilFuncs = [...]gpu.CompareFunc{gpu.CompareAlways, gpu.CompareLess, gpu.CompareLessEqual, gpu.CompareEqual,
	gpu.CompareGreater, gpu.CompareGreaterEqual, gpu.CompareNotEqual, gpu.CompareNever}

func (b Bits) srcBlend() gpu.BlendFactor {
	if i := int(b & SrcBlendBits); i < len(srcFactors) {
		return srcFactors[i]
	}
	return gpu.BlendOne
}

func (b Bits) dstBlend() gpu.BlendFactor {
	if i := int((b & DstBlendBits) >> 4); i < len(dstFactors) {
		return dstFactors[i]
	}
	return gpu.BlendZero
}

func (b Bits) depthFunc() gpu.CompareFunc   { return depthFuncs[(b&DepthFuncBits)>>16] }
func (b Bits) stencilFunc() gpu.CompareFunc { return stencilFuncs[(b&StencilFuncBits)>>20] }
func (b Bits) stencilRef() int              { return int((b & StencilRefBits) >> stencilRefShift) }
func (b Bits) stencilMask() uint32          { return uint32((b & StencilMaskBits) >> stencilMaskShift) }

func (b Bits) stencilOps() (sfail, zfail, zpass gpu.StencilOp) {
	return gpu.StencilOp((b & StencilFailBits) >> stencilFailShift),
		gpu.StencilOp((b & StencilZFailBits) >> stencilZFailShift),
		gpu.StencilOp((b & StencilPassBits) >> stencilPassShift)
}

// stencilEnabled reports whether the bits call for the stencil test; an
// ALWAYS test that keeps everything is the same as no test at all.
func (b Bits) stencilEnabled() bool {
	return b&(StencilFuncBits|StencilOpBits) != 0
}

func (b Bits) String() string {
	var s []string
	s = append(s, fmt.Sprintf("blend=%d/%d", b.srcBlend(), b.dstBlend()))
	s = append(s, fmt.Sprintf("depth=%d", b.depthFunc()))
	if b&DepthMask != 0 {
		s = append(s, "nodepthwrite")
	}
	if b&ColorMaskBits != 0 {
		s = append(s, fmt.Sprintf("colormask=%x", uint64(b&ColorMaskBits)>>9))
	}
	if b&PolymodeLine != 0 {
		s = append(s, "line")
	}
	if b&PolygonOffset != 0 {
		s = append(s, "offset")
	}
	if b.stencilEnabled() {
		sf, zf, zp := b.stencilOps()
		s = append(s, fmt.Sprintf("stencil=%d/%d/%x/%d,%d,%d", b.stencilFunc(), b.stencilRef(), b.stencilMask(), sf, zf, zp))
	}
	return strings.Join(s, " ")
}
