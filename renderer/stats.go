// renderer/stats.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"fmt"
	"log/slog"
	"time"
)

// Counters tallies the work done executing command lists.
type Counters struct {
	Draw3D, Draw2D  int
	SetBuffers      int
	CopyRenders     int
	PostProcesses   int
	Surfaces        int
	DrawCalls       int
	Indexes         int
	EyePasses       int
	CompositeDraws  int
	UniformUploads  int
	StateEmitted    int
	StateSkipped    int
	UnknownCommands int
}

func (c *Counters) String() string {
	return fmt.Sprintf("%d 3D views, %d 2D views, %d set buffers, %d copy renders, %d postprocess: "+
		"%d surfaces, %d draw calls (%d indexes), %d uniform uploads, state %d emitted/%d skipped",
		c.Draw3D, c.Draw2D, c.SetBuffers, c.CopyRenders, c.PostProcesses, c.Surfaces, c.DrawCalls,
		c.Indexes, c.UniformUploads, c.StateEmitted, c.StateSkipped)
}

func (c *Counters) Merge(o Counters) {
	c.Draw3D += o.Draw3D
	c.Draw2D += o.Draw2D
	c.SetBuffers += o.SetBuffers
	c.CopyRenders += o.CopyRenders
	c.PostProcesses += o.PostProcesses
	c.Surfaces += o.Surfaces
	c.DrawCalls += o.DrawCalls
	c.Indexes += o.Indexes
	c.EyePasses += o.EyePasses
	c.CompositeDraws += o.CompositeDraws
	c.UniformUploads += o.UniformUploads
	c.StateEmitted += o.StateEmitted
	c.StateSkipped += o.StateSkipped
	c.UnknownCommands += o.UnknownCommands
}

func (c Counters) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("draw3d", c.Draw3D),
		slog.Int("draw2d", c.Draw2D),
		slog.Int("set_buffers", c.SetBuffers),
		slog.Int("copy_renders", c.CopyRenders),
		slog.Int("postprocess", c.PostProcesses),
		slog.Int("surfaces", c.Surfaces),
		slog.Int("draw_calls", c.DrawCalls),
		slog.Int("indexes", c.Indexes),
		slog.Int("eye_passes", c.EyePasses),
		slog.Int("composite_draws", c.CompositeDraws),
		slog.Int("uniform_uploads", c.UniformUploads),
		slog.Int("state_emitted", c.StateEmitted),
		slog.Int("state_skipped", c.StateSkipped),
		slog.Int("unknown_commands", c.UnknownCommands),
	)
}

// SwapStats records how long the steps of the last present took.
type SwapStats struct {
	Finish     time.Duration
	Swap       time.Duration
	FenceSync  time.Duration
	FenceWait  time.Duration
	WaitPolls  int
	SinceLast  time.Duration
	FencesUsed bool
}

func (s SwapStats) String() string {
	ms := func(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
	return fmt.Sprintf("finish %.2fms swap %.2fms fence %.2fms wait %.2fms (%d polls), %dus block-to-block",
		ms(s.Finish), ms(s.Swap), ms(s.FenceSync), ms(s.FenceWait), s.WaitPolls, s.SinceLast.Microseconds())
}

func (s SwapStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Duration("finish", s.Finish),
		slog.Duration("swap", s.Swap),
		slog.Duration("fence_sync", s.FenceSync),
		slog.Duration("fence_wait", s.FenceWait),
		slog.Int("wait_polls", s.WaitPolls),
		slog.Duration("block_to_block", s.SinceLast),
		slog.Bool("fences", s.FencesUsed),
	)
}
