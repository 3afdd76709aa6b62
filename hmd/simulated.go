// hmd/simulated.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package hmd

import (
	gomath "math"

	"github.com/neovr/neo/log"

	"github.com/go-gl/mathgl/mgl32"
)

// Simulated is a generic display with a fixed per-eye resolution and
// field of view. It accepts every submission and remembers it, and its
// pose can be driven by the caller; it's used for development without
// hardware and in tests.
type Simulated struct {
	Width, Height int
	FOV           float32 // full horizontal field of view, degrees
	IPD           float32 // meters

	// Status is returned from SubmitEyeTextures.
	Status    SubmitStatus
	Submitted [][2]uint32
	Frames    int

	pose Pose
	lg   *log.Logger
}

func init() {
	Register("simulated", func(lg *log.Logger) (Device, error) {
		return NewSimulated(1080, 1200, 100, lg), nil
	})
}

func NewSimulated(w, h int, fov float32, lg *log.Logger) *Simulated {
	return &Simulated{
		Width:  w,
		Height: h,
		FOV:    fov,
		IPD:    0.064,
		pose:   Pose{Orientation: mgl32.QuatIdent(), Valid: true},
		lg:     lg,
	}
}

func (s *Simulated) Name() string { return "simulated" }

func (s *Simulated) RecommendedEyeResolution() (int, int) { return s.Width, s.Height }

// ProjectionParameters returns a frustum that is slightly wider toward
// the outside of each eye, as real lenses are.
func (s *Simulated) ProjectionParameters(eye int) Projection {
	t := float32(gomath.Tan(float64(mgl32.DegToRad(s.FOV / 2))))
	v := t * float32(s.Height) / float32(s.Width)
	if eye == LeftEye {
		return Projection{Left: -1.1 * t, Right: 0.9 * t, Top: v, Bottom: -v}
	}
	return Projection{Left: -0.9 * t, Right: 1.1 * t, Top: v, Bottom: -v}
}

func (s *Simulated) SetPose(p Pose) { s.pose = p }

func (s *Simulated) Pose() Pose { return s.pose }

func (s *Simulated) SubmitEyeTextures(left, right uint32) SubmitStatus {
	s.Submitted = append(s.Submitted, [2]uint32{left, right})
	if s.Status != SubmitOK {
		s.lg.Debugf("hmd: simulated submit: %s", s.Status)
	}
	return s.Status
}

func (s *Simulated) FrameStart() { s.Frames++ }

func (s *Simulated) Close() error { return nil }
