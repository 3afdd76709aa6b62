// renderer/config_test.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearMode(t *testing.T) {
	for _, tc := range []struct {
		clear     string
		overdraw  bool
		wantClear bool
		color     [4]float32
	}{
		{"0", false, false, [4]float32{}},
		{"", false, true, debugClearColor},
		{"1", false, true, debugClearColor},
		{"2", false, true, [4]float32{0, 0, 0, 1}},
		{"0", true, true, [4]float32{1, 1, 1, 1}},
		{"2", true, true, [4]float32{0, 0, 0, 1}},
		{"0.5 0.25 1", false, true, [4]float32{0.5, 0.25, 1, 1}},
		{"0.5 x 1", false, true, debugClearColor},
		{"00", false, true, debugClearColor},
	} {
		clear, color := clearMode(tc.clear, tc.overdraw)
		assert.Equal(t, tc.wantClear, clear, "%q overdraw %v", tc.clear, tc.overdraw)
		assert.Equal(t, tc.color, color, "%q overdraw %v", tc.clear, tc.overdraw)
	}
}

func TestParseStereoTopology(t *testing.T) {
	for i, name := range topologyNames {
		st, err := ParseStereoTopology(name)
		require.NoError(t, err)
		assert.Equal(t, StereoTopology(i), st)
		assert.Equal(t, name, st.String())
	}

	st, err := ParseStereoTopology("Side-By-Side")
	require.NoError(t, err)
	assert.Equal(t, StereoSideBySide, st)

	_, err = ParseStereoTopology("anaglyph")
	assert.ErrorContains(t, err, "anaglyph")
	assert.Equal(t, "StereoTopology(42)", StereoTopology(42).String())
}

func TestConfigTOML(t *testing.T) {
	var cfg Config
	_, err := toml.Decode(`
stereo = "hdmi-720"
clear = "0.1 0.2 0.3"
draw_flicker_box = true
render_log_level = 2
gui_stereo_separation = 0.05
`, &cfg)
	require.NoError(t, err)

	assert.Equal(t, StereoHDMI720, cfg.Stereo)
	assert.Equal(t, "0.1 0.2 0.3", cfg.Clear)
	assert.True(t, cfg.DrawFlickerBox)
	assert.Equal(t, 2, cfg.RenderLogLevel)
	assert.InDelta(t, 0.05, cfg.GUIStereoSeparation, 1e-6)

	_, err = toml.Decode(`stereo = "wiggle"`, &cfg)
	assert.Error(t, err)
}
