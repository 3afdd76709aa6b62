// renderer/progs.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/neovr/neo/gpu"
	"github.com/neovr/neo/log"
	"github.com/neovr/neo/math"
	"github.com/neovr/neo/renderer/state"
	"github.com/neovr/neo/util"
)

// Uniform slots. Programs see the slots as a vec4 array named
// rpUniforms; the values are shared by all programs and uploaded to
// whichever program is bound when they're committed.
const (
	ParmScreenCorrection = iota
	ParmWindowCoord
	ParmDiffuseModifier
	ParmSpecularModifier
	ParmColor
	ParmTexGen0Enabled
	ParmTextureMatrixS
	ParmTextureMatrixT
	ParmVertexColorModulate
	ParmVertexColorAdd
	ParmOverbright
	ParmScreenOffset
	ParmMVPX
	ParmMVPY
	ParmMVPZ
	ParmMVPW
	ParmModelMatrixX
	ParmModelMatrixY
	ParmModelMatrixZ
	ParmModelMatrixW
	ParmUser

	MaxUniforms = 256
)

const uniformArrayName = "rpUniforms"

// Builtin identifies one of the programs the backend itself draws with.
type Builtin int

const (
	BuiltinGUI Builtin = iota
	BuiltinColor
	BuiltinColorSkinned
	BuiltinVertexColor
	BuiltinTexture
	BuiltinTextureColor
	BuiltinTextureColorSkinned
	BuiltinDepth
	BuiltinDepthSkinned
	BuiltinInteraction
	BuiltinInteractionSkinned
	BuiltinInteractionAmbient
	BuiltinShadow
	BuiltinShadowSkinned
	BuiltinBlendLight
	BuiltinFog
	BuiltinSkybox
	BuiltinPostProcess
	BuiltinStereoDeGhost
	BuiltinStereoWarp
	BuiltinStereoInterlace
	BuiltinMotionBlur
	BuiltinBink
	BuiltinDebugShadowMap
	NumBuiltins
)

// builtins gives the shader name and variant for each Builtin. The
// required ones are needed for basic drawing; if any fails to load, the
// backend can't run.
var builtins = [NumBuiltins]struct {
	name     string
	features ShaderFeatures
	required bool
}{
	BuiltinGUI:                 {"gui", 0, true},
	BuiltinColor:               {"color", 0, true},
	BuiltinColorSkinned:        {"color", ShaderSkinning, false},
	BuiltinVertexColor:         {"vertex_color", 0, true},
	BuiltinTexture:             {"texture", 0, true},
	BuiltinTextureColor:        {"texture_color", 0, true},
	BuiltinTextureColorSkinned: {"texture_color", ShaderSkinning, false},
	BuiltinDepth:               {"depth", 0, true},
	BuiltinDepthSkinned:        {"depth", ShaderSkinning, false},
	BuiltinInteraction:         {"interaction", 0, false},
	BuiltinInteractionSkinned:  {"interaction", ShaderSkinning, false},
	BuiltinInteractionAmbient:  {"interactionAmbient", 0, false},
	BuiltinShadow:              {"shadow", 0, false},
	BuiltinShadowSkinned:       {"shadow", ShaderSkinning, false},
	BuiltinBlendLight:          {"blendlight", 0, false},
	BuiltinFog:                 {"fog", 0, false},
	BuiltinSkybox:              {"skybox", 0, false},
	BuiltinPostProcess:         {"postprocess", 0, true},
	BuiltinStereoDeGhost:       {"stereoDeGhost", 0, false},
	BuiltinStereoWarp:          {"stereoWarp", 0, false},
	BuiltinStereoInterlace:     {"stereoInterlace", 0, false},
	BuiltinMotionBlur:          {"motionBlur", 0, false},
	BuiltinBink:                {"bink", 0, false},
	BuiltinDebugShadowMap:      {"debug_shadowmap", 0, false},
}

func (b Builtin) String() string {
	if b < 0 || b >= NumBuiltins {
		return fmt.Sprintf("Builtin(%d)", int(b))
	}
	if builtins[b].features&ShaderSkinning != 0 {
		return builtins[b].name + "_skinned"
	}
	return builtins[b].name
}

type shaderEntry struct {
	name     string
	features ShaderFeatures
	handle   uint32 // zero if it failed to compile
}

type programEntry struct {
	vs, fs int
	prog   uint32 // zero if it failed to link
	loc    int32
	// uniformGen is the value of ProgramTable.uniformGen when uniforms
	// were last uploaded to this program.
	uniformGen uint64
}

type stageKey struct {
	vs, fs   string
	features ShaderFeatures
}

// ProgramTable resolves shaders by name to compiled shaders and linked
// programs, creating them on first use, and holds the uniform values
// that are uploaded to programs before they draw.
type ProgramTable struct {
	cache  *state.Cache
	source ShaderSource
	lg     *log.Logger

	vertexShaders   []shaderEntry
	fragmentShaders []shaderEntry
	programs        []programEntry
	programIndex    map[[2]int]int
	resolved        map[stageKey]int
	builtins        [NumBuiltins]int

	uniforms    [MaxUniforms]mgl32.Vec4
	uniformsSet int // one past the highest slot ever set
	uniformGen  uint64
	uploads     int

	// Skinning controls whether the skinned builtin variants are loaded.
	Skinning bool
}

func NewProgramTable(cache *state.Cache, source ShaderSource, lg *log.Logger) *ProgramTable {
	t := &ProgramTable{
		cache:    cache,
		source:   source,
		lg:       lg,
		Skinning: true,
	}
	t.reset()
	return t
}

func (t *ProgramTable) reset() {
	t.vertexShaders = nil
	t.fragmentShaders = nil
	t.programs = nil
	t.programIndex = make(map[[2]int]int)
	t.resolved = make(map[stageKey]int)
	for i := range t.builtins {
		t.builtins[i] = -1
	}
	t.uniformGen++
}

func (t *ProgramTable) findShader(list *[]shaderEntry, stage gpu.ShaderStage, name string, features ShaderFeatures) int {
	if i := slices.IndexFunc(*list, func(e shaderEntry) bool {
		return e.features == features && strings.EqualFold(e.name, name)
	}); i != -1 {
		return i
	}

	e := shaderEntry{name: name, features: features}
	src, err := t.source.LoadShaderSource(name, stageSuffix(stage), features)
	if err != nil {
		t.lg.Errorf("%s: %v", name, err)
	} else if e.handle, err = t.cache.CompileShader(stage, src); err != nil {
		t.lg.Errorf("%s%s: %v", name, stageSuffix(stage), err)
	}
	*list = append(*list, e)
	return len(*list) - 1
}

// FindVertexShader returns the index of the named vertex shader variant,
// loading and compiling it if it hasn't been seen before. Names are
// matched without regard to case. A shader that fails to load still
// gets an index; programs that use it will fail to link.
func (t *ProgramTable) FindVertexShader(name string, features ShaderFeatures) int {
	return t.findShader(&t.vertexShaders, gpu.VertexStage, name, features)
}

// FindFragmentShader is the fragment shader equivalent of
// FindVertexShader.
func (t *ProgramTable) FindFragmentShader(name string, features ShaderFeatures) int {
	return t.findShader(&t.fragmentShaders, gpu.FragmentStage, name, features)
}

// LoadProgram returns the program made from the given vertex and
// fragment shaders, linking it the first time the pair is requested.
func (t *ProgramTable) LoadProgram(vs, fs int) int {
	key := [2]int{vs, fs}
	if p, ok := t.programIndex[key]; ok {
		return p
	}

	pe := programEntry{vs: vs, fs: fs, loc: -1}
	v, f := t.vertexShaders[vs], t.fragmentShaders[fs]
	if v.handle != 0 && f.handle != 0 {
		prog, err := t.cache.LinkProgram(v.handle, f.handle)
		if err != nil {
			t.lg.Errorf("%s/%s: %v", v.name, f.name, err)
		} else {
			pe.prog = prog
			pe.loc = t.cache.UniformLocation(prog, uniformArrayName)
		}
	}

	t.programs = append(t.programs, pe)
	t.programIndex[key] = len(t.programs) - 1
	return len(t.programs) - 1
}

// ResolveProgram returns the program for a vertex/fragment shader pair
// given by name.
func (t *ProgramTable) ResolveProgram(vs, fs string, features ShaderFeatures) int {
	key := stageKey{vs: vs, fs: fs, features: features}
	if p, ok := t.resolved[key]; ok {
		return p
	}
	p := t.LoadProgram(t.FindVertexShader(vs, features), t.FindFragmentShader(fs, features))
	t.resolved[key] = p
	return p
}

// Linked reports whether the program is usable.
func (t *ProgramTable) Linked(p int) bool {
	return p >= 0 && p < len(t.programs) && t.programs[p].prog != 0
}

// Bind makes p the current program. Binding the current program or one
// that failed to link does nothing.
func (t *ProgramTable) Bind(p int) {
	if !t.Linked(p) {
		return
	}
	t.cache.UseProgram(t.programs[p].prog)
}

func (t *ProgramTable) BindBuiltin(b Builtin) {
	t.Bind(t.builtins[b])
}

// HaveBuiltin reports whether the builtin loaded successfully.
func (t *ProgramTable) HaveBuiltin(b Builtin) bool {
	return t.Linked(t.builtins[b])
}

// Unbind leaves no program bound.
func (t *ProgramTable) Unbind() {
	t.cache.UseProgram(0)
}

// Current returns the index of the bound program or -1.
func (t *ProgramTable) Current() int {
	prog := t.cache.Program()
	if prog == 0 {
		return -1
	}
	return slices.IndexFunc(t.programs, func(p programEntry) bool { return p.prog == prog })
}

// CurrentName returns a description of the bound program.
func (t *ProgramTable) CurrentName() string {
	p := t.Current()
	if p == -1 {
		return ""
	}
	pe := t.programs[p]
	return t.vertexShaders[pe.vs].name + "/" + t.fragmentShaders[pe.fs].name
}

///////////////////////////////////////////////////////////////////////////
// Uniforms

func (t *ProgramTable) SetUniform(slot int, v mgl32.Vec4) {
	if slot < 0 || slot >= MaxUniforms {
		t.lg.Errorf("%d: uniform slot out of range", slot)
		return
	}
	t.uniformsSet = max(t.uniformsSet, slot+1)
	if t.uniforms[slot] != v {
		t.uniforms[slot] = v
		t.uniformGen++
	}
}

func (t *ProgramTable) SetUniforms(slot int, v ...mgl32.Vec4) {
	for i := range v {
		t.SetUniform(slot+i, v[i])
	}
}

// SetMatrix stores m's rows in four consecutive slots.
func (t *ProgramTable) SetMatrix(slot int, m mgl32.Mat4) {
	rows := math.MatrixRows(m)
	t.SetUniforms(slot, rows[:]...)
}

func (t *ProgramTable) Uniform(slot int) mgl32.Vec4 {
	return t.uniforms[slot]
}

// ZeroUniforms resets all uniform values to zero.
func (t *ProgramTable) ZeroUniforms() {
	t.uniforms = [MaxUniforms]mgl32.Vec4{}
	t.uniformGen++
}

// CommitUniforms uploads the uniform values to the current program if
// they've changed since that program last received them.
func (t *ProgramTable) CommitUniforms() {
	p := t.Current()
	if p == -1 || t.uniformsSet == 0 {
		return
	}
	pe := &t.programs[p]
	if pe.uniformGen == t.uniformGen || pe.loc < 0 {
		return
	}

	v := make([]float32, 0, 4*t.uniformsSet)
	for _, u := range t.uniforms[:t.uniformsSet] {
		v = append(v, u[:]...)
	}
	t.cache.Uniform4fv(pe.loc, v)
	pe.uniformGen = t.uniformGen
	t.uploads++
}

// Uploads returns the number of uniform uploads so far.
func (t *ProgramTable) Uploads() int { return t.uploads }

///////////////////////////////////////////////////////////////////////////
// Loading

// LoadAll loads the builtin programs. It returns an error wrapping
// ErrMissingBuiltin if any required builtin failed; optional ones that
// fail are logged.
func (t *ProgramTable) LoadAll() error {
	if pf, ok := t.source.(prefetcher); ok {
		var names []string
		for _, b := range builtins {
			names = append(names, b.name)
		}
		slices.Sort(names)
		if err := pf.Prefetch(slices.Compact(names)); err != nil {
			t.lg.Warnf("shader prefetch: %v", err)
		}
	}

	var e util.ErrorLogger
	e.Push("builtin programs")
	for b := range NumBuiltins {
		bi := builtins[b]
		if bi.features&ShaderSkinning != 0 && !t.Skinning {
			continue
		}
		p := t.LoadProgram(t.FindVertexShader(bi.name, bi.features), t.FindFragmentShader(bi.name, bi.features))
		t.builtins[b] = p
		if t.Linked(p) {
			continue
		}
		if bi.required {
			e.ErrorString("%s: failed to load", b)
		} else {
			t.lg.Warnf("%s: optional builtin program unavailable", b)
		}
	}
	e.Pop()

	if e.HaveErrors() {
		e.PrintErrors(t.lg)
		return e.Err(ErrMissingBuiltin)
	}
	t.lg.Infof("loaded %d shader programs", len(t.programs))
	return nil
}

// KillAll deletes every shader and program, leaving the table empty.
func (t *ProgramTable) KillAll() {
	t.Unbind()
	for _, p := range t.programs {
		t.cache.DeleteProgram(p.prog)
	}
	for _, s := range t.vertexShaders {
		t.cache.DeleteShader(s.handle)
	}
	for _, s := range t.fragmentShaders {
		t.cache.DeleteShader(s.handle)
	}
	t.reset()

	if p, ok := t.source.(purger); ok {
		p.Purge()
	}
}
