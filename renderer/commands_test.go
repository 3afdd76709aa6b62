// renderer/commands_test.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"encoding/binary"
	gomath "math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neovr/neo/gpu"
	"github.com/neovr/neo/log"
)

func TestCommandListPool(t *testing.T) {
	cl := GetCommandList()
	cl.SetBuffer(gpu.DrawBack)
	cl.DrawView3D(&View{ID: 3})
	cl.CopyRender(7, 1, 2, 3, 4, true)
	cl.Motion.Loading = true
	require.Len(t, cl.Commands, 3)
	assert.Equal(t, CopyRender{Image: 7, X: 1, Y: 2, W: 3, H: 4, ClearColorAfterCopy: true}, cl.Commands[2])
	assert.Equal(t, "DrawView3D(3)", cl.Commands[1].(DrawView3D).String())
	assert.False(t, cl.isNoOp())

	ReturnCommandList(cl)
	assert.Empty(t, cl.Commands)
	assert.Equal(t, MotionState{}, cl.Motion)

	cl = GetCommandList()
	cl.NoOp()
	assert.True(t, cl.isNoOp())
	cl.NoOp()
	assert.False(t, cl.isNoOp())
	ReturnCommandList(cl)
}

func TestEncodeDrawVerts(t *testing.T) {
	b := EncodeDrawVerts([]DrawVert{
		{XYZ: mgl32.Vec3{1, 2, 3}, ST: mgl32.Vec2{0.5, 1}, Color: [4]uint8{255, 128, 0, 1}},
		{XYZ: mgl32.Vec3{-1, 0, 0}},
	})
	require.Len(t, b, 2*drawVertSize)
	assert.Equal(t, float32(2), gomath.Float32frombits(binary.LittleEndian.Uint32(b[4:])))
	assert.Equal(t, float32(0.5), gomath.Float32frombits(binary.LittleEndian.Uint32(b[12:])))
	assert.Equal(t, []byte{255, 128, 0, 1}, b[28:32])
	assert.Equal(t, float32(-1), gomath.Float32frombits(binary.LittleEndian.Uint32(b[drawVertSize:])))

	idx := EncodeIndexes([]uint32{0, 1, 0x01020304})
	assert.Equal(t, []byte{0, 0, 0, 0, 1, 0, 0, 0, 4, 3, 2, 1}, idx)
}

func TestWatchShaders(t *testing.T) {
	dir := t.TempDir()
	reloads := make(chan struct{}, 16)
	w, err := WatchShaders(dir, func() { reloads <- struct{}{} }, log.NewDiscard())
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "gui.fs"), []byte(trivialShader), 0o644))
	select {
	case <-reloads:
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after writing a shader")
	}

	var nilWatcher *ShaderWatcher
	assert.NoError(t, nilWatcher.Close())
}
