// renderer/renderlog.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/neovr/neo/log"
	"github.com/neovr/neo/renderer/state"
	"github.com/neovr/neo/util"
)

// MainBlock identifies one of the fixed sections of a frame whose GPU
// time is measured.
type MainBlock int

const (
	MRBGPUTime MainBlock = iota
	MRBBeginDrawingView
	MRBFillDepthBuffer
	MRBFillGeometryBuffer
	MRBSSAOPass
	MRBAmbientPass
	MRBDrawInteractions
	MRBDrawShaderPasses
	MRBFogAllLights
	MRBBloom
	MRBDrawShaderPassesPost
	MRBDrawDebugTools
	MRBCaptureColorBuffer
	MRBPostProcess
	MRBDrawGUI
	MRBTotal
)

var mainBlockNames = [MRBTotal]string{"gpu", "begin_drawing_view", "fill_depth_buffer", "fill_geometry_buffer",
	"ssao", "ambient", "interactions", "shader_passes", "fog", "bloom", "shader_passes_post",
	"debug_tools", "capture_color", "postprocess", "gui"}

func (b MainBlock) String() string {
	if b < 0 || b >= MRBTotal {
		return fmt.Sprintf("MainBlock(%d)", int(b))
	}
	return mainBlockNames[b]
}

// FrameTiming holds the measured times for one frame.
type FrameTiming struct {
	Frame uint64
	// GPU is the GPU time spent in each main block; blocks that weren't
	// entered are zero.
	GPU [MRBTotal]time.Duration
	CPU time.Duration
}

func (ft FrameTiming) LogValue() slog.Value {
	attrs := []slog.Attr{slog.Uint64("frame", ft.Frame), slog.Duration("cpu", ft.CPU)}
	for b, d := range ft.GPU {
		if d != 0 {
			attrs = append(attrs, slog.Duration(MainBlock(b).String(), d))
		}
	}
	return slog.GroupValue(attrs...)
}

const frameTimingHistory = 256

type openBlock struct {
	label string
	start time.Time
}

// RenderLog measures the GPU time of each main block using timestamp
// queries and wraps nested sections in debug groups. Queries are double
// buffered by frame parity: a frame's results are read two frames later,
// and only once the fence covering that frame has signaled, so reading
// them never stalls.
type RenderLog struct {
	cache *state.Cache
	lg    *log.Logger

	timerQueries bool
	markers      bool
	// Level 0 disables markers, 1 marks main blocks and 2 marks all
	// blocks.
	Level int

	// queries[parity][2*block] and [2*block+1] are the begin and end
	// timestamps.
	queries [2][2 * MRBTotal]uint32
	issued  [2][MRBTotal]bool
	frames  [2]uint64
	cpu     [2]time.Duration

	parity     int
	frame      uint64
	frameStart time.Time
	openMain   MainBlock
	blocks     []openBlock

	history *util.RingBuffer[FrameTiming]
}

func NewRenderLog(cache *state.Cache, timerQueries, markers bool, lg *log.Logger) *RenderLog {
	return &RenderLog{
		cache:        cache,
		lg:           lg,
		timerQueries: timerQueries,
		markers:      markers,
		openMain:     -1,
		history:      util.NewRingBuffer[FrameTiming](frameTimingHistory),
	}
}

// StartFrame begins a frame with the given parity. retired reports
// whether the fence covering the previous frame with this parity has
// signaled; if it has, that frame's timings are collected.
func (rl *RenderLog) StartFrame(frame uint64, parity int, retired bool) {
	if retired {
		rl.collect(parity)
	}
	rl.frame, rl.parity = frame, parity
	rl.frameStart = time.Now()
	rl.issued[parity] = [MRBTotal]bool{}
	rl.frames[parity] = frame
	rl.openMain = -1
	rl.blocks = rl.blocks[:0]

	rl.openQuery(MRBGPUTime)
}

// EndFrame finishes the current frame's measurements.
func (rl *RenderLog) EndFrame() {
	for len(rl.blocks) > 0 {
		rl.lg.Warnf("%s: block left open at end of frame", rl.blocks[len(rl.blocks)-1].label)
		rl.CloseBlock()
	}
	rl.CloseMainBlock()
	rl.closeQuery(MRBGPUTime)
	rl.cpu[rl.parity] = rl.FrameCPU()
}

func (rl *RenderLog) collect(parity int) {
	if !rl.timerQueries || rl.frames[parity] == 0 {
		return
	}
	ft := FrameTiming{Frame: rl.frames[parity], CPU: rl.cpu[parity]}
	found := false
	for b := range MRBTotal {
		if !rl.issued[parity][b] {
			continue
		}
		begin, end := rl.queries[parity][2*b], rl.queries[parity][2*b+1]
		if !rl.cache.QueryResultAvailable(begin) || !rl.cache.QueryResultAvailable(end) {
			continue
		}
		t0, t1 := rl.cache.QueryResult(begin), rl.cache.QueryResult(end)
		if t1 >= t0 {
			ft.GPU[b] = time.Duration(t1 - t0)
			found = true
		}
	}
	rl.issued[parity] = [MRBTotal]bool{}
	if found {
		rl.history.Add(ft)
	}
}

func (rl *RenderLog) query(b MainBlock, end bool) uint32 {
	i := 2 * int(b)
	if end {
		i++
	}
	q := &rl.queries[rl.parity][i]
	if *q == 0 {
		*q = rl.cache.GenQuery()
	}
	return *q
}

func (rl *RenderLog) openQuery(b MainBlock) {
	if rl.timerQueries {
		rl.cache.QueryTimestamp(rl.query(b, false))
	}
}

func (rl *RenderLog) closeQuery(b MainBlock) {
	if rl.timerQueries {
		rl.cache.QueryTimestamp(rl.query(b, true))
		rl.issued[rl.parity][b] = true
	}
}

// OpenMainBlock starts timing b. Main blocks don't nest; opening one
// closes the one that was open. MRBGPUTime covers the whole frame and
// is handled by StartFrame and EndFrame.
func (rl *RenderLog) OpenMainBlock(b MainBlock) {
	if b == rl.openMain || b == MRBGPUTime {
		return
	}
	rl.CloseMainBlock()
	rl.openMain = b
	rl.openQuery(b)
	if rl.markers && rl.Level >= 1 {
		rl.cache.PushDebugGroup(b.String())
	}
}

func (rl *RenderLog) CloseMainBlock() {
	if rl.openMain == -1 {
		return
	}
	rl.closeQuery(rl.openMain)
	if rl.markers && rl.Level >= 1 {
		rl.cache.PopDebugGroup()
	}
	rl.openMain = -1
}

// OpenBlock starts a nested, labeled section of the frame.
func (rl *RenderLog) OpenBlock(label string) {
	rl.blocks = append(rl.blocks, openBlock{label: label, start: time.Now()})
	if rl.markers && rl.Level >= 2 {
		rl.cache.PushDebugGroup(label)
	}
}

func (rl *RenderLog) CloseBlock() {
	if len(rl.blocks) == 0 {
		rl.lg.Error("CloseBlock without OpenBlock")
		return
	}
	b := rl.blocks[len(rl.blocks)-1]
	rl.blocks = rl.blocks[:len(rl.blocks)-1]
	if rl.markers && rl.Level >= 2 {
		rl.cache.PopDebugGroup()
	}
	if rl.Level >= 2 {
		rl.lg.Debug("render block", slog.String("label", b.label), slog.Int("depth", len(rl.blocks)),
			slog.Duration("cpu", time.Since(b.start)))
	}
}

// Depth returns the nesting depth of open blocks.
func (rl *RenderLog) Depth() int { return len(rl.blocks) }

// FrameCPU returns the CPU time since the frame started.
func (rl *RenderLog) FrameCPU() time.Duration { return time.Since(rl.frameStart) }

// History returns the collected frame timings, oldest first.
func (rl *RenderLog) History() []FrameTiming {
	return rl.history.Slice()
}

// SetHistory replaces the collected frame timings.
func (rl *RenderLog) SetHistory(ft []FrameTiming) {
	rl.history = util.NewRingBuffer[FrameTiming](frameTimingHistory)
	rl.history.Add(ft...)
}

// Release deletes the log's queries.
func (rl *RenderLog) Release() {
	for p := range rl.queries {
		for i, q := range rl.queries[p] {
			if q != 0 {
				rl.cache.DeleteQuery(q)
				rl.queries[p][i] = 0
			}
		}
		rl.issued[p] = [MRBTotal]bool{}
		rl.frames[p] = 0
	}
}

// Summary returns the average GPU time per main block over the history.
func (rl *RenderLog) Summary() string {
	h := rl.history.Slice()
	if len(h) == 0 {
		return "no GPU timings"
	}
	var sum [MRBTotal]time.Duration
	for _, ft := range h {
		for b, d := range ft.GPU {
			sum[b] += d
		}
	}
	var parts []string
	for b, d := range sum {
		if d != 0 {
			parts = append(parts, fmt.Sprintf("%s %.3fms", MainBlock(b), float64(d/time.Duration(len(h)))/1e6))
		}
	}
	return fmt.Sprintf("%d frames: %s", len(h), strings.Join(parts, ", "))
}
