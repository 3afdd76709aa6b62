// gpu/caps.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package gpu

import (
	"fmt"
	"slices"
	"strings"
)

// Info is the identification a device reports about itself.
type Info struct {
	Vendor       string
	Renderer     string
	Version      string
	Major, Minor int
	GLSLVersion  string
	Extensions   []string
}

func (i Info) HasExtension(ext string) bool {
	return slices.Contains(i.Extensions, ext)
}

func (i Info) atLeast(major, minor int) bool {
	return i.Major > major || (i.Major == major && i.Minor >= minor)
}

type Vendor int

const (
	VendorOther Vendor = iota
	VendorNVIDIA
	VendorAMD
	VendorIntel
	VendorMesa
)

func (v Vendor) String() string {
	return [...]string{"other", "nvidia", "amd", "intel", "mesa"}[v]
}

type Feature int

const (
	// Required: nothing can be drawn without these.
	FeatureMultitexture Feature = iota
	FeatureVertexBufferObject
	FeatureMapBufferRange
	FeatureVertexArrayObject
	FeatureDrawElementsBaseVertex
	FeatureGLSL
	FeatureUniformBufferObject
	FeatureSeparateStencil

	// Optional: each one only disables the path that depends on it.
	FeatureTimerQuery
	FeatureSync
	FeatureAnisotropicFilter
	FeatureTextureLODBias
	FeatureSeamlessCubeMap
	FeatureDepthBoundsTest
	FeatureDebugOutput
	FeatureDebugMarkers
	FeatureFramebufferBlit

	NumFeatures
)

const firstOptionalFeature = FeatureTimerQuery

var featureNames = [...]string{
	"multitexture", "vertex_buffer_object", "map_buffer_range", "vertex_array_object",
	"draw_elements_base_vertex", "glsl", "uniform_buffer_object", "separate_stencil",
	"timer_query", "sync", "anisotropic_filter", "texture_lod_bias", "seamless_cube_map",
	"depth_bounds_test", "debug_output", "debug_markers", "framebuffer_blit",
}

func (f Feature) String() string {
	if f < 0 || f >= NumFeatures {
		return fmt.Sprintf("Feature(%d)", int(f))
	}
	return featureNames[f]
}

func (f Feature) Required() bool {
	return f < firstOptionalFeature
}

// Each feature is available either as core functionality as of the given
// API version or through any of the listed extensions.
var featureSources = [NumFeatures]struct {
	major, minor int
	exts         []string
}{
	FeatureMultitexture:           {1, 3, []string{"GL_ARB_multitexture"}},
	FeatureVertexBufferObject:     {1, 5, []string{"GL_ARB_vertex_buffer_object"}},
	FeatureMapBufferRange:         {3, 0, []string{"GL_ARB_map_buffer_range"}},
	FeatureVertexArrayObject:      {3, 0, []string{"GL_ARB_vertex_array_object"}},
	FeatureDrawElementsBaseVertex: {3, 2, []string{"GL_ARB_draw_elements_base_vertex"}},
	FeatureGLSL:                   {2, 0, []string{"GL_ARB_shading_language_100"}},
	FeatureUniformBufferObject:    {3, 1, []string{"GL_ARB_uniform_buffer_object"}},
	FeatureSeparateStencil:        {2, 0, []string{"GL_ATI_separate_stencil"}},
	FeatureTimerQuery:             {3, 3, []string{"GL_ARB_timer_query", "GL_EXT_timer_query"}},
	FeatureSync:                   {3, 2, []string{"GL_ARB_sync"}},
	FeatureAnisotropicFilter:      {4, 6, []string{"GL_EXT_texture_filter_anisotropic", "GL_ARB_texture_filter_anisotropic"}},
	FeatureTextureLODBias:         {1, 4, []string{"GL_EXT_texture_lod_bias"}},
	FeatureSeamlessCubeMap:        {3, 2, []string{"GL_ARB_seamless_cube_map"}},
	FeatureDepthBoundsTest:        {99, 0, []string{"GL_EXT_depth_bounds_test"}},
	FeatureDebugOutput:            {4, 3, []string{"GL_KHR_debug", "GL_ARB_debug_output"}},
	FeatureDebugMarkers:           {4, 3, []string{"GL_KHR_debug"}},
	FeatureFramebufferBlit:        {3, 0, []string{"GL_ARB_framebuffer_object", "GL_EXT_framebuffer_blit"}},
}

// Caps records which features a device offers.
type Caps struct {
	Vendor       Vendor
	Major, Minor int
	has          [NumFeatures]bool
}

// ProbeCaps derives the device's capabilities from its version and
// extension string.
func ProbeCaps(info Info) Caps {
	c := Caps{Vendor: classifyVendor(info), Major: info.Major, Minor: info.Minor}
	for f := range NumFeatures {
		src := featureSources[f]
		c.has[f] = info.atLeast(src.major, src.minor) ||
			slices.ContainsFunc(src.exts, info.HasExtension)
	}
	return c
}

func (c Caps) Has(f Feature) bool {
	return c.has[f]
}

// Disable turns off an available feature, e.g. to work around driver
// bugs.
func (c *Caps) Disable(f Feature) {
	c.has[f] = false
}

// Enable marks f as available.
func (c *Caps) Enable(f Feature) {
	c.has[f] = true
}

// Missing returns the unavailable features, required ones first.
func (c Caps) Missing() (required, optional []Feature) {
	for f := range NumFeatures {
		if c.has[f] {
			continue
		}
		if f.Required() {
			required = append(required, f)
		} else {
			optional = append(optional, f)
		}
	}
	return
}

func classifyVendor(info Info) Vendor {
	v := strings.ToLower(info.Vendor + " " + info.Renderer)
	switch {
	case strings.Contains(v, "nvidia"):
		return VendorNVIDIA
	case strings.Contains(v, "ati technologies") || strings.Contains(v, "amd") || strings.Contains(v, "radeon"):
		return VendorAMD
	case strings.Contains(v, "intel"):
		return VendorIntel
	case strings.Contains(v, "mesa") || strings.Contains(v, "llvmpipe"):
		return VendorMesa
	default:
		return VendorOther
	}
}

// IsSoftwareRenderer reports whether the device is a CPU rasterizer
// rather than real graphics hardware.
func (i Info) IsSoftwareRenderer() bool {
	r := strings.ToLower(i.Renderer)
	for _, s := range []string{"llvmpipe", "softpipe", "software rasterizer", "gdi generic", "swiftshader"} {
		if strings.Contains(r, s) {
			return true
		}
	}
	return false
}
