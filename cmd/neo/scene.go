// cmd/neo/scene.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/neovr/neo/gpu"
	"github.com/neovr/neo/hmd"
	"github.com/neovr/neo/math"
	"github.com/neovr/neo/renderer"
	"github.com/neovr/neo/renderer/state"
)

const (
	zNear = 0.1
	zFar  = 100

	// Default interpupillary distance in meters when there's no HMD to
	// ask.
	defaultIPD = 0.064
	// The cube sits this far in front of the viewer.
	cubeDistance = 3
)

// Scene is the demo front end: a spinning cube under a translucent 2D
// panel. It produces a command list each frame laid out for the
// backend's current stereo configuration.
type Scene struct {
	backend *renderer.Backend
	hmd     hmd.Device

	cubeVB, cubeIB   uint32
	panelVB, panelIB uint32

	cubeMaterial  *renderer.Material
	panelMaterial *renderer.Material

	// Motion is passed along with each frame's commands.
	Motion renderer.MotionState
	Speed  float32 // radians per second
}

// NewScene creates the scene's geometry with the backend, which must
// have been initialized.
func NewScene(b *renderer.Backend, h hmd.Device) *Scene {
	s := &Scene{
		backend: b,
		hmd:     h,
		Speed:   0.8,
		cubeMaterial: &renderer.Material{
			Name: "cube",
			Cull: state.CullBackSided,
			Stages: []renderer.MaterialStage{{
				VertexShader:   "vertex_color",
				FragmentShader: "vertex_color",
				State:          state.DepthFuncAlways,
				Color:          mgl32.Vec4{1, 1, 1, 1},
			}},
		},
		panelMaterial: &renderer.Material{
			Name: "panel",
			Cull: state.CullTwoSided,
			Stages: []renderer.MaterialStage{{
				VertexShader:   "gui",
				FragmentShader: "gui",
				State:          state.SrcBlendSrcAlpha | state.DstBlendOneMinusSrcAlpha | state.DepthFuncAlways | state.DepthMask,
				Color:          mgl32.Vec4{1, 1, 1, 1},
			}},
		},
	}

	verts, idx := cubeGeometry()
	s.cubeVB = b.CreateBuffer(gpu.VertexBuffer, renderer.EncodeDrawVerts(verts))
	s.cubeIB = b.CreateBuffer(gpu.IndexBuffer, renderer.EncodeIndexes(idx))

	verts, idx = panelGeometry()
	s.panelVB = b.CreateBuffer(gpu.VertexBuffer, renderer.EncodeDrawVerts(verts))
	s.panelIB = b.CreateBuffer(gpu.IndexBuffer, renderer.EncodeIndexes(idx))

	return s
}

func (s *Scene) Release() {
	for _, buf := range []uint32{s.cubeVB, s.cubeIB, s.panelVB, s.panelIB} {
		s.backend.DeleteBuffer(buf)
	}
}

// cubeGeometry returns a unit cube with a differently colored face on
// each side, wound counter-clockwise when seen from outside.
func cubeGeometry() ([]renderer.DrawVert, []uint32) {
	faces := []struct {
		normal, u, v mgl32.Vec3
		color        [4]uint8
	}{
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}, [4]uint8{230, 60, 60, 255}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}, [4]uint8{60, 230, 60, 255}},
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}, [4]uint8{60, 60, 230, 255}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}, [4]uint8{230, 230, 60, 255}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, [4]uint8{60, 230, 230, 255}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}, [4]uint8{230, 60, 230, 255}},
	}

	var verts []renderer.DrawVert
	var idx []uint32
	for _, f := range faces {
		base := uint32(len(verts))
		for _, c := range [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			p := f.normal.Add(f.u.Mul(c[0])).Add(f.v.Mul(c[1])).Mul(0.5)
			verts = append(verts, renderer.DrawVert{
				XYZ:   p,
				ST:    mgl32.Vec2{(c[0] + 1) / 2, (c[1] + 1) / 2},
				Color: f.color,
			})
		}
		idx = append(idx, base, base+1, base+2, base, base+2, base+3)
	}
	return verts, idx
}

// panelGeometry returns a quad in the lower left of clip space.
func panelGeometry() ([]renderer.DrawVert, []uint32) {
	color := [4]uint8{20, 20, 40, 160}
	verts := []renderer.DrawVert{
		{XYZ: mgl32.Vec3{-0.95, -0.95, 0}, ST: mgl32.Vec2{0, 0}, Color: color},
		{XYZ: mgl32.Vec3{-0.35, -0.95, 0}, ST: mgl32.Vec2{1, 0}, Color: color},
		{XYZ: mgl32.Vec3{-0.35, -0.65, 0}, ST: mgl32.Vec2{1, 1}, Color: color},
		{XYZ: mgl32.Vec3{-0.95, -0.65, 0}, ST: mgl32.Vec2{0, 1}, Color: color},
	}
	return verts, []uint32{0, 1, 2, 0, 2, 3}
}

// Frame returns the commands for a frame t into the run. The caller
// returns the list with renderer.ReturnCommandList once the backend has
// executed it.
func (s *Scene) Frame(t time.Duration) *renderer.CommandList {
	cl := renderer.GetCommandList()
	cl.Motion = s.Motion

	w, h := s.backend.EyeRenderSize()
	vp := math.RectXYWH(0, 0, w, h)
	model := mgl32.Translate3D(0, 0, -cubeDistance).
		Mul4(mgl32.HomogRotate3D(s.Speed*float32(t.Seconds()), mgl32.Vec3{0.3, 1, 0.2}.Normalize()))

	cl.SetBuffer(gpu.DrawBack)

	var views []*renderer.View
	if s.backend.Config().Stereo == renderer.StereoOff {
		proj := mgl32.Perspective(mgl32.DegToRad(70), float32(w)/float32(h), zNear, zFar)
		views = append(views, s.cubeView(1, renderer.EyeBoth, vp, proj, mgl32.Ident4(), model))
	} else {
		for i, eye := range []renderer.Eye{renderer.EyeLeft, renderer.EyeRight} {
			proj, view := s.eyeTransforms(i, float32(w)/float32(h))
			views = append(views, s.cubeView(1+i, eye, vp, proj, view, model))
		}
	}
	for _, v := range views {
		cl.DrawView3D(v)
	}
	for _, v := range views {
		cl.PostProcess(v)
	}
	cl.DrawViewGUI(s.panelView(vp))

	return cl
}

// eyeTransforms returns the projection and view matrices for an eye,
// from the HMD if there is one and otherwise from a fixed frustum
// offset by half the IPD.
func (s *Scene) eyeTransforms(eye int, aspect float32) (mgl32.Mat4, mgl32.Mat4) {
	if s.hmd != nil {
		if pose := s.hmd.Pose(); pose.Valid {
			proj := s.hmd.ProjectionParameters(eye).Matrix(zNear, zFar)
			offset := math.EyeOffset(eye, defaultIPD)
			view := mgl32.Translate3D(-offset, 0, 0).
				Mul4(pose.Orientation.Inverse().Mat4()).
				Mul4(mgl32.Translate3D(-pose.Position.X(), -pose.Position.Y(), -pose.Position.Z()))
			return proj, view
		}
	}
	proj := mgl32.Perspective(mgl32.DegToRad(70), aspect, zNear, zFar)
	return proj, mgl32.Translate3D(-math.EyeOffset(eye, defaultIPD), 0, 0)
}

func (s *Scene) cubeView(id int, eye renderer.Eye, vp math.ScreenRect, proj, view, model mgl32.Mat4) *renderer.View {
	cube := &renderer.ViewEntity{ID: 1, Model: model, MVP: proj.Mul4(view).Mul4(model)}
	return &renderer.View{
		ID:       id,
		Eye:      eye,
		Viewport: vp,
		Scissor:  vp,
		WorldSpace: renderer.ViewEntity{
			MVP:   proj.Mul4(view),
			Model: mgl32.Ident4(),
		},
		Entities: []*renderer.ViewEntity{cube},
		Surfaces: []*renderer.DrawSurface{{
			VertexBuffer: s.cubeVB,
			IndexBuffer:  s.cubeIB,
			Layout:       gpu.LayoutDrawVert,
			NumIndexes:   36,
			Material:     s.cubeMaterial,
			Space:        cube,
		}},
	}
}

// panelView is drawn once for both eyes; the backend separates it in
// stereo.
func (s *Scene) panelView(vp math.ScreenRect) *renderer.View {
	return &renderer.View{
		ID:       100,
		Eye:      renderer.EyeBoth,
		Viewport: vp,
		Scissor:  vp,
		WorldSpace: renderer.ViewEntity{
			MVP:   mgl32.Ident4(),
			Model: mgl32.Ident4(),
		},
		Surfaces: []*renderer.DrawSurface{{
			VertexBuffer: s.panelVB,
			IndexBuffer:  s.panelIB,
			Layout:       gpu.LayoutDrawVert,
			NumIndexes:   6,
			Material:     s.panelMaterial,
		}},
	}
}
