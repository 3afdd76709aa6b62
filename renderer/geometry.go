// renderer/geometry.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"encoding/binary"
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/neovr/neo/gpu"
	"github.com/neovr/neo/renderer/state"
)

// DrawVert is the vertex format of gpu.LayoutDrawVert.
type DrawVert struct {
	XYZ     mgl32.Vec3
	ST      mgl32.Vec2
	Normal  [4]uint8
	Tangent [4]uint8
	Color   [4]uint8
	Color2  [4]uint8
}

const drawVertSize = 36

// EncodeDrawVerts returns the vertices packed as the GPU expects them.
func EncodeDrawVerts(verts []DrawVert) []byte {
	b := make([]byte, 0, drawVertSize*len(verts))
	for _, v := range verts {
		for _, f := range v.XYZ {
			b = binary.LittleEndian.AppendUint32(b, gomath.Float32bits(f))
		}
		for _, f := range v.ST {
			b = binary.LittleEndian.AppendUint32(b, gomath.Float32bits(f))
		}
		b = append(b, v.Normal[:]...)
		b = append(b, v.Tangent[:]...)
		b = append(b, v.Color[:]...)
		b = append(b, v.Color2[:]...)
	}
	return b
}

func EncodeIndexes(idx []uint32) []byte {
	b := make([]byte, 0, 4*len(idx))
	for _, i := range idx {
		b = binary.LittleEndian.AppendUint32(b, i)
	}
	return b
}

// unitSquare is a quad covering clip space with texture coordinates
// running from 0 to 1.
type unitSquare struct {
	vb, ib uint32
}

func newUnitSquare(cache *state.Cache) unitSquare {
	white := [4]uint8{255, 255, 255, 255}
	verts := []DrawVert{
		{XYZ: mgl32.Vec3{-1, -1, 0}, ST: mgl32.Vec2{0, 0}, Color: white},
		{XYZ: mgl32.Vec3{1, -1, 0}, ST: mgl32.Vec2{1, 0}, Color: white},
		{XYZ: mgl32.Vec3{1, 1, 0}, ST: mgl32.Vec2{1, 1}, Color: white},
		{XYZ: mgl32.Vec3{-1, 1, 0}, ST: mgl32.Vec2{0, 1}, Color: white},
	}
	return unitSquare{
		vb: cache.CreateBuffer(gpu.VertexBuffer, EncodeDrawVerts(verts)),
		ib: cache.CreateBuffer(gpu.IndexBuffer, EncodeIndexes([]uint32{0, 1, 2, 0, 2, 3})),
	}
}

func (u unitSquare) draw(cache *state.Cache) {
	cache.BindBuffer(gpu.VertexBuffer, u.vb)
	cache.BindBuffer(gpu.IndexBuffer, u.ib)
	cache.SetVertexLayout(gpu.LayoutDrawVert)
	cache.DrawElements(6, 0, 0)
}

func (u unitSquare) release(cache *state.Cache) {
	cache.DeleteBuffer(u.vb)
	cache.DeleteBuffer(u.ib)
}
