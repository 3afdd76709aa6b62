// renderer/commands.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/neovr/neo/gpu"
	"github.com/neovr/neo/math"
	"github.com/neovr/neo/renderer/state"
)

// Eye tags a view with the stereo pass it belongs to.
type Eye int

const (
	EyeBoth Eye = iota
	EyeLeft
	EyeRight
)

func (e Eye) String() string {
	return [...]string{"both", "left", "right"}[e]
}

// index returns the eye's index for the per-eye arrays and HMD calls.
func (e Eye) index() int {
	if e == EyeRight {
		return 1
	}
	return 0
}

// ViewEntity is a model instance in a view; its matrices are computed
// by the front end.
type ViewEntity struct {
	ID    int
	MVP   mgl32.Mat4
	Model mgl32.Mat4
}

// StageTexture is a texture a material stage samples from.
type StageTexture struct {
	Unit   int
	Kind   gpu.TextureKind
	Handle uint32
}

// StageUniform is a material-specific uniform value.
type StageUniform struct {
	Slot  int
	Value mgl32.Vec4
}

// MaterialStage is a single draw of a surface.
type MaterialStage struct {
	VertexShader   string
	FragmentShader string
	Features       ShaderFeatures
	State          state.Bits
	Color          mgl32.Vec4
	Textures       []StageTexture
	Uniforms       []StageUniform
}

type Material struct {
	Name   string
	Cull   state.CullType
	Stages []MaterialStage
}

// DrawSurface is an indexed range of a vertex buffer drawn with a
// material.
type DrawSurface struct {
	VertexBuffer uint32
	IndexBuffer  uint32
	Layout       gpu.VertexLayout
	FirstIndex   int
	NumIndexes   int
	BaseVertex   int
	Material     *Material
	// Space is the entity the surface belongs to; nil means the view's
	// own world space.
	Space *ViewEntity
}

// View is everything needed to draw one view of the scene.
type View struct {
	ID       int
	Eye      Eye
	Viewport math.ScreenRect
	Scissor  math.ScreenRect
	// IsMirror views reverse the winding of their surfaces.
	IsMirror   bool
	WorldSpace ViewEntity
	Entities   []*ViewEntity
	Surfaces   []*DrawSurface
}

// Command is a single entry in a CommandList.
type Command interface {
	isCommand()
}

type NoOp struct{}

// DrawView3D draws a 3D view.
type DrawView3D struct {
	View *View
}

// DrawViewGUI draws a 2D view.
type DrawViewGUI struct {
	View *View
}

// SetBuffer selects the buffer subsequent views draw to and clears it
// if requested by Config.Clear.
type SetBuffer struct {
	Buffer gpu.DrawBuffer
}

// CopyRender copies a region of what has been rendered into a texture.
type CopyRender struct {
	Image               uint32
	X, Y, W, H          int
	ClearColorAfterCopy bool
}

// PostProcess runs the full-screen postprocess pass over the view's
// viewport.
type PostProcess struct {
	View *View
}

func (NoOp) isCommand()        {}
func (DrawView3D) isCommand()  {}
func (DrawViewGUI) isCommand() {}
func (SetBuffer) isCommand()   {}
func (CopyRender) isCommand()  {}
func (PostProcess) isCommand() {}

func (c DrawView3D) String() string  { return fmt.Sprintf("DrawView3D(%d)", c.View.ID) }
func (c DrawViewGUI) String() string { return fmt.Sprintf("DrawViewGUI(%d)", c.View.ID) }

// MotionState describes what the game is doing, as far as it affects
// whether an HMD should show the tracked scene.
type MotionState struct {
	PlayerDead   bool
	ShellActive  bool
	DialogActive bool
	// PDAForced keeps the tracked scene while the shell or a dialog is
	// up.
	PDAForced   bool
	Loading     bool
	IntroVideo  bool
	InCinematic bool
	// CinematicMode 2 asks for cinematics to be shown on a fixed screen.
	CinematicMode      int
	FlicksyncCharacter int
}

// Suppressed reports whether head tracking should be replaced with a
// fixed screen in front of the viewer.
func (m MotionState) Suppressed() bool {
	return m.PlayerDead ||
		(m.ShellActive && !m.PDAForced) ||
		(m.DialogActive && !m.PDAForced) ||
		m.Loading ||
		m.IntroVideo ||
		(m.InCinematic && m.CinematicMode == 2 && m.FlicksyncCharacter == 0)
}

// stereoscopic reports whether a suppressed frame should still show
// each eye its own image.
func (m MotionState) stereoscopic() bool {
	return !m.Loading && !m.IntroVideo
}

// CommandList is the ordered list of commands the front end produces
// for a frame. The backend only reads it.
type CommandList struct {
	Commands []Command
	Motion   MotionState
}

// CommandLists are managed using a sync.Pool so that their command
// slices persist across frames.
var commandListPool = sync.Pool{New: func() any { return &CommandList{} }}

func GetCommandList() *CommandList {
	return commandListPool.Get().(*CommandList)
}

func ReturnCommandList(cl *CommandList) {
	cl.Reset()
	commandListPool.Put(cl)
}

func (cl *CommandList) Reset() {
	clear(cl.Commands)
	cl.Commands = cl.Commands[:0]
	cl.Motion = MotionState{}
}

func (cl *CommandList) NoOp() {
	cl.Commands = append(cl.Commands, NoOp{})
}

func (cl *CommandList) DrawView3D(v *View) {
	cl.Commands = append(cl.Commands, DrawView3D{View: v})
}

func (cl *CommandList) DrawViewGUI(v *View) {
	cl.Commands = append(cl.Commands, DrawViewGUI{View: v})
}

func (cl *CommandList) SetBuffer(b gpu.DrawBuffer) {
	cl.Commands = append(cl.Commands, SetBuffer{Buffer: b})
}

func (cl *CommandList) CopyRender(image uint32, x, y, w, h int, clearAfter bool) {
	cl.Commands = append(cl.Commands, CopyRender{Image: image, X: x, Y: y, W: w, H: h, ClearColorAfterCopy: clearAfter})
}

func (cl *CommandList) PostProcess(v *View) {
	cl.Commands = append(cl.Commands, PostProcess{View: v})
}

// isNoOp reports whether the list is a single NoOp, which the front end
// sends when it has nothing to draw.
func (cl *CommandList) isNoOp() bool {
	if len(cl.Commands) != 1 {
		return false
	}
	_, ok := cl.Commands[0].(NoOp)
	return ok
}
