// renderer/progs_test.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"testing"
	"testing/fstest"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neovr/neo/gpu"
	"github.com/neovr/neo/log"
	"github.com/neovr/neo/renderer/state"
)

func newTestProgramTable(t *testing.T, fsys fstest.MapFS) (*ProgramTable, *gpu.Recorder) {
	t.Helper()
	rec := gpu.NewRecorder(gpu.DefaultInfo())
	lg := log.NewDiscard()
	cache := state.New(rec, lg)
	cache.Reset(640, 480)
	rec.Reset()
	return NewProgramTable(cache, NewFSSource(fsys, "shaders", lg), lg), rec
}

func TestFindShaderIgnoresCase(t *testing.T) {
	pt, rec := newTestProgramTable(t, testShaderFS())

	a := pt.FindVertexShader("texture", 0)
	assert.Equal(t, a, pt.FindVertexShader("TEXTURE", 0))
	assert.Equal(t, a, pt.FindVertexShader("Texture", 0))
	assert.Equal(t, 1, rec.Count("CompileShader"))

	// Variants are distinct shaders.
	s := pt.FindVertexShader("texture", ShaderSkinning)
	assert.NotEqual(t, a, s)
	assert.Equal(t, 2, rec.Count("CompileShader"))

	// The fragment shader table is separate.
	pt.FindFragmentShader("texture", 0)
	assert.Equal(t, 3, rec.Count("CompileShader"))
}

func TestLoadProgramIsCached(t *testing.T) {
	pt, rec := newTestProgramTable(t, testShaderFS())

	vs, fs := pt.FindVertexShader("color", 0), pt.FindFragmentShader("color", 0)
	p := pt.LoadProgram(vs, fs)
	assert.Equal(t, p, pt.LoadProgram(vs, fs))
	assert.Equal(t, p, pt.ResolveProgram("color", "color", 0))
	assert.Equal(t, p, pt.ResolveProgram("color", "color", 0))
	assert.Equal(t, 1, rec.Count("LinkProgram"))
	assert.True(t, pt.Linked(p))

	other := pt.ResolveProgram("color", "texture", 0)
	assert.NotEqual(t, p, other)
	assert.Equal(t, 2, rec.Count("LinkProgram"))
}

func TestUnlinkedPrograms(t *testing.T) {
	fsys := testShaderFS()
	fsys["shaders/broken.vs"] = &fstest.MapFile{Data: []byte("#error nope\n")}
	fsys["shaders/broken.fs"] = &fstest.MapFile{Data: []byte(trivialShader)}
	pt, rec := newTestProgramTable(t, fsys)

	broken := pt.ResolveProgram("broken", "broken", 0)
	missing := pt.ResolveProgram("nonexistent", "nonexistent", 0)
	for _, p := range []int{broken, missing} {
		assert.False(t, pt.Linked(p))
		pt.Bind(p)
	}
	assert.Zero(t, rec.Count("LinkProgram"))
	assert.Zero(t, rec.Count("UseProgram"))
	assert.Equal(t, -1, pt.Current())
	assert.False(t, pt.Linked(-1))
	assert.False(t, pt.Linked(100))
}

func TestCommitUniforms(t *testing.T) {
	pt, rec := newTestProgramTable(t, testShaderFS())
	a := pt.ResolveProgram("color", "color", 0)
	b := pt.ResolveProgram("texture", "texture", 0)

	// Nothing is bound.
	pt.SetUniform(ParmColor, mgl32.Vec4{1, 0, 0, 1})
	pt.CommitUniforms()
	assert.Zero(t, rec.Count("Uniform4fv"))

	pt.Bind(a)
	pt.CommitUniforms()
	uploads := rec.Filter("Uniform4fv")
	require.Len(t, uploads, 1)
	// Location, then the five slots set so far.
	assert.Equal(t, "10,5,[0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 1 0 0 1]", uploads[0].Args)

	pt.CommitUniforms()
	pt.SetUniform(ParmColor, mgl32.Vec4{1, 0, 0, 1})
	pt.CommitUniforms()
	assert.Equal(t, 1, rec.Count("Uniform4fv"))

	pt.SetUniform(ParmColor, mgl32.Vec4{0, 1, 0, 1})
	pt.CommitUniforms()
	assert.Equal(t, 2, rec.Count("Uniform4fv"))

	// Each program gets the values once.
	pt.Bind(b)
	pt.CommitUniforms()
	pt.Bind(a)
	pt.CommitUniforms()
	assert.Equal(t, 3, rec.Count("Uniform4fv"))
	assert.Equal(t, 3, pt.Uploads())

	pt.ZeroUniforms()
	pt.CommitUniforms()
	assert.Equal(t, 4, rec.Count("Uniform4fv"))
	assert.Equal(t, mgl32.Vec4{}, pt.Uniform(ParmColor))
}

func TestSetMatrixStoresRows(t *testing.T) {
	pt, _ := newTestProgramTable(t, testShaderFS())
	m := mgl32.Translate3D(1, 2, 3)
	pt.SetMatrix(ParmMVPX, m)

	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, pt.Uniform(ParmMVPX))
	assert.Equal(t, mgl32.Vec4{0, 1, 0, 2}, pt.Uniform(ParmMVPY))
	assert.Equal(t, mgl32.Vec4{0, 0, 1, 3}, pt.Uniform(ParmMVPZ))
	assert.Equal(t, mgl32.Vec4{0, 0, 0, 1}, pt.Uniform(ParmMVPW))

	pt.SetUniform(MaxUniforms, mgl32.Vec4{1, 1, 1, 1})
	pt.SetUniform(-1, mgl32.Vec4{1, 1, 1, 1})
}

func TestLoadAllBuiltins(t *testing.T) {
	pt, rec := newTestProgramTable(t, testShaderFS())
	require.NoError(t, pt.LoadAll())

	for b := range NumBuiltins {
		assert.True(t, pt.HaveBuiltin(b), "%s", b)
	}
	assert.Equal(t, "color_skinned", BuiltinColorSkinned.String())

	pt.BindBuiltin(BuiltinGUI)
	assert.Equal(t, "gui/gui", pt.CurrentName())

	pt.KillAll()
	assert.Equal(t, -1, pt.Current())
	assert.Equal(t, "", pt.CurrentName())
	assert.False(t, pt.HaveBuiltin(BuiltinGUI))
	assert.Equal(t, rec.Count("LinkProgram"), rec.Count("DeleteProgram"))
	assert.Equal(t, rec.Count("CompileShader"), rec.Count("DeleteShader"))
}

func TestLoadAllWithoutSkinning(t *testing.T) {
	pt, _ := newTestProgramTable(t, testShaderFS())
	pt.Skinning = false
	require.NoError(t, pt.LoadAll())

	assert.True(t, pt.HaveBuiltin(BuiltinColor))
	assert.False(t, pt.HaveBuiltin(BuiltinColorSkinned))
	assert.False(t, pt.HaveBuiltin(BuiltinDepthSkinned))
}

func TestLoadAllReportsEveryMissingBuiltin(t *testing.T) {
	fsys := testShaderFS()
	delete(fsys, "shaders/gui.vs")
	delete(fsys, "shaders/postprocess.fs")
	delete(fsys, "shaders/bink.fs")
	pt, _ := newTestProgramTable(t, fsys)

	err := pt.LoadAll()
	require.ErrorIs(t, err, ErrMissingBuiltin)
	assert.Contains(t, err.Error(), "gui")
	assert.Contains(t, err.Error(), "postprocess")
	assert.NotContains(t, err.Error(), "bink")
	assert.True(t, pt.HaveBuiltin(BuiltinTexture))
}
