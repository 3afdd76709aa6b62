// math/xform.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
)

// MatrixRows returns the four rows of m; shader parameters are uploaded
// row by row into consecutive vec4 registers.
func MatrixRows(m mgl32.Mat4) [4]mgl32.Vec4 {
	return [4]mgl32.Vec4{m.Row(0), m.Row(1), m.Row(2), m.Row(3)}
}

// FrustumFromTangents returns an off-axis projection matrix given the
// tangents of the half angles to each side of the view, as head-mounted
// displays report them.
func FrustumFromTangents(left, right, top, bottom, near, far float32) mgl32.Mat4 {
	return mgl32.Frustum(left*near, right*near, bottom*near, top*near, near, far)
}

// HeadLocked returns the model matrix for a quad of the given width
// centered dist meters in front of a viewer, carrying along only the
// yaw of the provided orientation so that the quad stays level.
func HeadLocked(orientation mgl32.Quat, dist, width, aspect float32) mgl32.Mat4 {
	fwd := orientation.Rotate(mgl32.Vec3{0, 0, -1})
	yaw := float32(gomath.Atan2(float64(-fwd.X()), float64(-fwd.Z())))

	return mgl32.HomogRotate3DY(yaw).
		Mul4(mgl32.Translate3D(0, 0, -dist)).
		Mul4(mgl32.Scale3D(width/2, width/(2*aspect), 1))
}

// Eye separation offsets applied to 2D overlays drawn in stereo; positive
// separation pushes the right eye image to the right.
func EyeOffset(eye int, separation float32) float32 {
	switch eye {
	case 0:
		return -separation / 2
	case 1:
		return separation / 2
	default:
		return 0
	}
}
