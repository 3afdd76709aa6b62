// renderer/config.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"fmt"
	"strconv"
	"strings"
)

// StereoTopology selects how the two eye images are presented.
type StereoTopology int

const (
	StereoOff StereoTopology = iota
	StereoQuadBuffer
	StereoSideBySide
	StereoSideBySideCompressed
	StereoTopBottomCompressed
	StereoInterlaced
	StereoHDMI720
	StereoHMD
)

var topologyNames = [...]string{"off", "quad-buffer", "side-by-side", "side-by-side-compressed",
	"top-bottom-compressed", "interlaced", "hdmi-720", "hmd"}

func (t StereoTopology) String() string {
	if int(t) < len(topologyNames) {
		return topologyNames[t]
	}
	return fmt.Sprintf("StereoTopology(%d)", int(t))
}

func ParseStereoTopology(s string) (StereoTopology, error) {
	for i, n := range topologyNames {
		if strings.EqualFold(n, s) {
			return StereoTopology(i), nil
		}
	}
	return StereoOff, fmt.Errorf("%s: unknown stereo topology; valid: %s", s, strings.Join(topologyNames[:], ", "))
}

func (t StereoTopology) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *StereoTopology) UnmarshalText(b []byte) error {
	var err error
	*t, err = ParseStereoTopology(string(b))
	return err
}

// Config holds the options the front end can change between frames. A
// new Config is only applied at the start of a frame.
type Config struct {
	Stereo StereoTopology `toml:"stereo"`
	// Clear is "0" (no clear), "1" (clear to the debug color), "2"
	// (clear to black) or three floats "r g b".
	Clear                string  `toml:"clear"`
	ShowOverdraw         bool    `toml:"show_overdraw"`
	DrawFlickerBox       bool    `toml:"draw_flicker_box"`
	ShowSwapTiming       bool    `toml:"show_swap_timing"`
	SyncEveryFrame       bool    `toml:"sync_every_frame"`
	IgnoreGPUErrors      bool    `toml:"ignore_gpu_errors"`
	SkipIntelWorkarounds bool    `toml:"skip_intel_workarounds"`
	DebugRenderToTexture bool    `toml:"debug_render_to_texture"`
	RenderLogLevel       int     `toml:"render_log_level"`
	HMDMirror            bool    `toml:"hmd_mirror"`
	GUIStereoSeparation  float32 `toml:"gui_stereo_separation"`
	GPUSkinning          bool    `toml:"gpu_skinning"`
}

func DefaultConfig() Config {
	return Config{
		Clear:               "0",
		HMDMirror:           true,
		GUIStereoSeparation: 0.02,
		GPUSkinning:         true,
	}
}

// debugClearColor is used when clearing is requested without a color.
var debugClearColor = [4]float32{0.4, 0, 0.25, 1}

// clearMode interprets the Clear and ShowOverdraw options, returning
// whether SetBuffer should clear and the color to clear to.
func clearMode(clear string, showOverdraw bool) (bool, [4]float32) {
	v, _ := strconv.ParseFloat(strings.TrimSpace(clear), 32)
	if v == 0 && len(clear) == 1 && !showOverdraw {
		return false, [4]float32{}
	}

	if f := strings.Fields(clear); len(f) == 3 {
		var c [4]float32
		ok := true
		for i, s := range f {
			x, err := strconv.ParseFloat(s, 32)
			if err != nil {
				ok = false
				break
			}
			c[i] = float32(x)
		}
		if ok {
			c[3] = 1
			return true, c
		}
	}

	switch {
	case v == 2:
		return true, [4]float32{0, 0, 0, 1}
	case showOverdraw:
		return true, [4]float32{1, 1, 1, 1}
	default:
		return true, debugClearColor
	}
}
