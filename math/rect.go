// math/rect.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import "fmt"

// ScreenRect is an integer pixel rectangle with inclusive corners
// (X1,Y1)-(X2,Y2), matching the way viewports and scissors are specified
// to the GPU after conversion to x/y/width/height.
type ScreenRect struct {
	X1, Y1, X2, Y2 int
}

// RectXYWH returns the ScreenRect with the given lower-left corner and
// size.
func RectXYWH(x, y, w, h int) ScreenRect {
	return ScreenRect{X1: x, Y1: y, X2: x + w - 1, Y2: y + h - 1}
}

func (r ScreenRect) Width() int  { return r.X2 - r.X1 + 1 }
func (r ScreenRect) Height() int { return r.Y2 - r.Y1 + 1 }

func (r ScreenRect) IsEmpty() bool {
	return r.X1 > r.X2 || r.Y1 > r.Y2
}

// Intersect returns the overlap of the two rectangles; the result is
// empty if they don't overlap.
func (r ScreenRect) Intersect(o ScreenRect) ScreenRect {
	return ScreenRect{
		X1: Max(r.X1, o.X1),
		Y1: Max(r.Y1, o.Y1),
		X2: Min(r.X2, o.X2),
		Y2: Min(r.Y2, o.Y2),
	}
}

// XYWH returns the rectangle in the form GPU APIs expect.
func (r ScreenRect) XYWH() (x, y, w, h int) {
	return r.X1, r.Y1, r.Width(), r.Height()
}

func (r ScreenRect) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.X1, r.Y1, r.X2, r.Y2)
}
