// hmd/hmd.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package hmd defines the contract between the renderer and a
// head-mounted display compositor: the renderer hands over one texture
// per eye each frame and reads back projection and pose information.
package hmd

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

var ErrNoDevice = errors.New("no head-mounted display present")

// Eye indices used by all HMD calls.
const (
	LeftEye  = 0
	RightEye = 1
)

// Projection gives the tangents of the half-angles from the view
// direction to each side of an eye's field of view. Left and Bottom are
// negative for a symmetric frustum.
type Projection struct {
	Left, Right, Top, Bottom float32
}

// Matrix returns the projection matrix for the given clip planes.
func (p Projection) Matrix(near, far float32) mgl32.Mat4 {
	return mgl32.Frustum(p.Left*near, p.Right*near, p.Bottom*near, p.Top*near, near, far)
}

// Pose is a snapshot of the tracked head.
type Pose struct {
	Orientation mgl32.Quat
	Position    mgl32.Vec3
	Valid       bool
}

type SubmitStatus int

const (
	SubmitOK SubmitStatus = iota
	SubmitDeviceLost
	SubmitNotVisible
)

func (s SubmitStatus) String() string {
	switch s {
	case SubmitOK:
		return "ok"
	case SubmitDeviceLost:
		return "device lost"
	case SubmitNotVisible:
		return "not visible"
	default:
		return fmt.Sprintf("SubmitStatus(%d)", int(s))
	}
}

// Device is a head-mounted display. All methods are called from the
// render thread.
type Device interface {
	Name() string
	RecommendedEyeResolution() (w, h int)
	ProjectionParameters(eye int) Projection
	Pose() Pose
	// SubmitEyeTextures hands the finished eye images to the display's
	// compositor.
	SubmitEyeTextures(left, right uint32) SubmitStatus
	// FrameStart tells the device a new frame is beginning so it can
	// predict the pose for it.
	FrameStart()
	Close() error
}
