// hmd/none.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package hmd

import (
	"github.com/neovr/neo/log"

	"github.com/go-gl/mathgl/mgl32"
)

// None stands in when there is no display; submissions go nowhere.
type None struct{}

func init() {
	Register("none", func(lg *log.Logger) (Device, error) { return None{}, nil })
}

func (None) Name() string                               { return "none" }
func (None) RecommendedEyeResolution() (int, int)       { return 0, 0 }
func (None) ProjectionParameters(int) Projection        { return Projection{Left: -1, Right: 1, Top: 1, Bottom: -1} }
func (None) Pose() Pose                                 { return Pose{Orientation: mgl32.QuatIdent()} }
func (None) SubmitEyeTextures(l, r uint32) SubmitStatus { return SubmitNotVisible }
func (None) FrameStart()                                {}
func (None) Close() error                               { return nil }
