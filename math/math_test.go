// math/math_test.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestClamp(t *testing.T) {
	if Clamp(5, 0, 3) != 3 || Clamp(-1, 0, 3) != 0 || Clamp(2, 0, 3) != 2 {
		t.Errorf("Clamp mismatch")
	}
	if Clamp(float32(0.5), 0, 1) != 0.5 {
		t.Errorf("Clamp float")
	}
}

func TestScreenRect(t *testing.T) {
	r := RectXYWH(10, 20, 100, 50)
	if r.Width() != 100 || r.Height() != 50 {
		t.Errorf("size %dx%d", r.Width(), r.Height())
	}
	if x, y, w, h := r.XYWH(); x != 10 || y != 20 || w != 100 || h != 50 {
		t.Errorf("XYWH %d %d %d %d", x, y, w, h)
	}

	o := RectXYWH(50, 0, 200, 40)
	i := r.Intersect(o)
	if i != (ScreenRect{X1: 50, Y1: 20, X2: 109, Y2: 39}) {
		t.Errorf("intersect %v", i)
	}
	if !r.Intersect(RectXYWH(500, 500, 1, 1)).IsEmpty() {
		t.Errorf("expected empty intersection")
	}
}

func TestHeadLockedIgnoresPitch(t *testing.T) {
	pitched := mgl32.QuatRotate(0.5, mgl32.Vec3{1, 0, 0})
	m := HeadLocked(pitched, 2, 1, 1)
	center := m.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if !mgl32.FloatEqualThreshold(center.Y(), 0, 1e-5) || !mgl32.FloatEqualThreshold(center.Z(), -2, 1e-5) {
		t.Errorf("head-locked quad center %v", center)
	}
}

func TestEyeOffset(t *testing.T) {
	if EyeOffset(0, 4) != -2 || EyeOffset(1, 4) != 2 || EyeOffset(-1, 4) != 0 {
		t.Errorf("EyeOffset")
	}
}
