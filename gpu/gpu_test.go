// gpu/gpu_test.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package gpu

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeCapsByVersion(t *testing.T) {
	c := ProbeCaps(Info{Vendor: "NVIDIA Corporation", Major: 4, Minor: 1})
	assert.Equal(t, VendorNVIDIA, c.Vendor)

	req, opt := c.Missing()
	assert.Empty(t, req)
	assert.Contains(t, opt, FeatureAnisotropicFilter)
	assert.Contains(t, opt, FeatureDebugMarkers)
	assert.True(t, c.Has(FeatureTimerQuery))
	assert.True(t, c.Has(FeatureSync))
}

func TestProbeCapsByExtension(t *testing.T) {
	info := Info{Vendor: "Intel", Major: 2, Minor: 1,
		Extensions: []string{"GL_ARB_timer_query", "GL_ARB_vertex_array_object"}}
	c := ProbeCaps(info)
	assert.Equal(t, VendorIntel, c.Vendor)
	assert.True(t, c.Has(FeatureTimerQuery))
	assert.True(t, c.Has(FeatureVertexArrayObject))
	assert.False(t, c.Has(FeatureSync))

	req, _ := c.Missing()
	assert.Contains(t, req, FeatureUniformBufferObject)
	assert.NotContains(t, req, FeatureGLSL)

	c.Disable(FeatureTimerQuery)
	assert.False(t, c.Has(FeatureTimerQuery))
}

func TestSoftwareRenderer(t *testing.T) {
	assert.True(t, Info{Renderer: "llvmpipe (LLVM 15.0.7, 256 bits)"}.IsSoftwareRenderer())
	assert.False(t, Info{Renderer: "NVIDIA GeForce RTX 3080"}.IsSoftwareRenderer())
}

func TestRecorderFences(t *testing.T) {
	r := NewRecorder(DefaultInfo())
	r.FencePolls = 2

	f := r.FenceSync()
	assert.Equal(t, SyncTimeoutExpired, r.ClientWaitSync(f, time.Millisecond))
	assert.Equal(t, SyncTimeoutExpired, r.ClientWaitSync(f, time.Millisecond))
	assert.True(t, r.ClientWaitSync(f, time.Millisecond).Signaled())
	assert.Equal(t, 1, r.LiveFences())

	r.DeleteSync(f)
	assert.Equal(t, 0, r.LiveFences())
	assert.Equal(t, SyncWaitFailed, r.ClientWaitSync(f, time.Millisecond))
}

func TestRecorderTracksBindings(t *testing.T) {
	r := NewRecorder(DefaultInfo())
	tex := r.GenTexture()
	r.ActiveTexture(3)
	r.BindTexture(TextureCube, tex)
	r.TexImage2D(TextureCube, 64, 32)

	assert.Equal(t, tex, r.Textures[[2]int{3, int(TextureCube)}])
	assert.Equal(t, [2]int{64, 32}, r.TextureSizes[tex])
	assert.Equal(t, 1, r.Count("BindTexture"))

	_, err := r.CompileShader(FragmentStage, "#error unsupported")
	require.Error(t, err)

	r.InjectError(InvalidEnum, OutOfMemory)
	assert.Equal(t, InvalidEnum, r.GetError())
	assert.Equal(t, OutOfMemory, r.GetError())
	assert.Equal(t, NoError, r.GetError())
}
