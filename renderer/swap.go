// renderer/swap.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"log/slog"
	"time"

	"github.com/neovr/neo/gpu"
	"github.com/neovr/neo/log"
	"github.com/neovr/neo/math"
	"github.com/neovr/neo/renderer/state"
	"github.com/neovr/neo/util"
)

// Presenter is the surface frames are presented to.
type Presenter interface {
	SwapBuffers()
}

// FenceState tracks a present through the throttle.
type FenceState int

const (
	FenceIdle FenceState = iota
	FenceSubmitted
	FenceInserted
	FenceTimedOut
	FenceSignaled
	FenceReleased
)

func (s FenceState) String() string {
	return [...]string{"idle", "submitted", "inserted", "timed_out", "signaled", "released"}[s]
}

// fenceWaitTimeout is how long each client wait blocks before checking
// again.
const fenceWaitTimeout = time.Millisecond

// slowStep is the time above which a present step is reported when swap
// timing is shown.
const slowStep = time.Millisecond

// stallPolls is the number of fence polls after which a wait is
// reported as a stall.
const stallPolls = 1000

// throttle keeps the CPU from running more than a frame ahead of the
// GPU. After each swap it inserts a fence for the frame just submitted
// and waits for the previous frame's fence (or this frame's, if
// SyncEveryFrame is set). Without fence support it falls back to
// finishing before the swap.
type throttle struct {
	cache *state.Cache
	lg    *log.Logger

	useFences bool
	fences    [2]gpu.Fence
	retired   [2]bool

	state     FenceState
	trace     []FenceState
	stats     SwapStats
	lastBlock time.Time
}

func (t *throttle) transition(s FenceState) {
	t.state = s
	t.trace = append(t.trace, s)
}

// retiredSlot reports whether the work covered by the fence in the given
// slot has finished.
func (t *throttle) retiredSlot(parity int) bool {
	if !t.useFences {
		return true
	}
	return t.fences[parity] != 0 && t.retired[parity]
}

func (t *throttle) present(p Presenter, parity int, cfg Config, frameStart func()) {
	t.trace = t.trace[:0]
	st := SwapStats{FencesUsed: t.useFences}

	start := time.Now()
	if !t.useFences {
		t.cache.Finish()
	}
	afterFinish := time.Now()

	t.transition(FenceSubmitted)
	p.SwapBuffers()
	afterSwap := time.Now()

	if frameStart != nil {
		frameStart()
	}

	afterFence, afterWait := afterSwap, afterSwap
	if t.useFences {
		slot := parity
		if t.fences[slot] != 0 {
			t.cache.DeleteSync(t.fences[slot])
		}
		// Give the fence some work to follow.
		t.cache.SetScissor(math.RectXYWH(0, 0, 1, 1))
		t.cache.Clear(gpu.ClearColor)
		t.fences[slot] = t.cache.FenceSync()
		t.retired[slot] = false
		t.transition(FenceInserted)
		afterFence = time.Now()

		wait := 1 - slot
		if cfg.SyncEveryFrame {
			wait = slot
		}
		if f := t.fences[wait]; f != 0 {
			for {
				s := t.cache.ClientWaitSync(f, fenceWaitTimeout)
				st.WaitPolls++
				if s == gpu.SyncTimeoutExpired {
					t.transition(FenceTimedOut)
					// Stopping at a breakpoint or running under the race
					// detector stalls the GPU legitimately.
					if st.WaitPolls == stallPolls && !util.DebuggerIsRunning() && !log.RaceEnabled {
						t.lg.Warnf("GPU still busy with the previous frame after %d fence polls", stallPolls)
					}
					continue
				}
				if s.Signaled() {
					t.retired[wait] = true
					t.transition(FenceSignaled)
				} else {
					t.lg.Errorf("fence wait: %s", s)
				}
				break
			}
		}
		afterWait = time.Now()
	}
	t.transition(FenceReleased)

	st.Finish = afterFinish.Sub(start)
	st.Swap = afterSwap.Sub(afterFinish)
	st.FenceSync = afterFence.Sub(afterSwap)
	st.FenceWait = afterWait.Sub(afterFence)
	if !t.lastBlock.IsZero() {
		st.SinceLast = afterWait.Sub(t.lastBlock)
	}
	t.lastBlock = afterWait
	t.stats = st

	if cfg.ShowSwapTiming && (st.Finish > slowStep || st.Swap > slowStep || st.FenceSync > slowStep || st.FenceWait > slowStep) {
		t.lg.Info("slow present", slog.Any("swap", st))
	}
}

// Trace returns the states the last present went through.
func (t *throttle) Trace() []FenceState {
	return t.trace
}

func (t *throttle) release() {
	for i, f := range t.fences {
		if f != 0 {
			t.cache.DeleteSync(f)
		}
		t.fences[i] = 0
		t.retired[i] = false
	}
	t.state = FenceIdle
}
