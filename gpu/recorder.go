// gpu/recorder.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package gpu

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Op is a single recorded device call.
type Op struct {
	Name string
	Args string
}

func (o Op) String() string {
	if o.Args == "" {
		return o.Name
	}
	return o.Name + "(" + o.Args + ")"
}

// Recorder is a Device that executes nothing; it keeps a log of every
// call along with enough bound state to check that callers are keeping
// track of it correctly. It's used for tests and for running the backend
// without a window.
type Recorder struct {
	Ops []Op

	DeviceInfo Info

	// FencePolls is the number of times ClientWaitSync reports a timeout
	// for a fence before it is signaled.
	FencePolls int
	// QueriesPending is the number of QueryResultAvailable calls that
	// return false for each query before its result is ready.
	QueriesPending int

	nextHandle uint32
	nextFence  Fence
	errors     []ErrorCode
	fences     map[Fence]int
	queries    map[uint32]*recordedQuery
	clock      uint64

	// Bound state, as the API would see it.
	ActiveUnit   int
	Textures     map[[2]int]uint32 // (unit, kind) -> texture
	Buffers      [NumBufferKinds]uint32
	Framebuffer  uint32
	Program      uint32
	Enabled      map[Capability]bool
	TextureSizes map[uint32][2]int
	Filters      map[uint32]Filter
	Attachments  map[uint32]uint32 // framebuffer -> texture
	DebugDepth   int
}

type recordedQuery struct {
	time  uint64
	polls int
}

func NewRecorder(info Info) *Recorder {
	return &Recorder{
		DeviceInfo:   info,
		fences:       make(map[Fence]int),
		queries:      make(map[uint32]*recordedQuery),
		Textures:     make(map[[2]int]uint32),
		Enabled:      make(map[Capability]bool),
		TextureSizes: make(map[uint32][2]int),
		Filters:      make(map[uint32]Filter),
		Attachments:  make(map[uint32]uint32),
	}
}

// DefaultInfo describes a fully-featured desktop device.
func DefaultInfo() Info {
	return Info{
		Vendor:      "neo",
		Renderer:    "recorder",
		Version:     "4.6.0 recorder",
		Major:       4,
		Minor:       6,
		GLSLVersion: "4.60",
		Extensions:  []string{"GL_EXT_texture_filter_anisotropic", "GL_EXT_depth_bounds_test", "GL_KHR_debug"},
	}
}

func (r *Recorder) record(name string, args ...any) {
	var s []string
	for _, a := range args {
		s = append(s, fmt.Sprint(a))
	}
	r.Ops = append(r.Ops, Op{Name: name, Args: strings.Join(s, ",")})
}

func (r *Recorder) handle() uint32 {
	r.nextHandle++
	return r.nextHandle
}

// Reset discards the recorded operations but keeps the bound state.
func (r *Recorder) Reset() {
	r.Ops = r.Ops[:0]
}

// Count returns the number of recorded calls with the given name.
func (r *Recorder) Count(name string) int {
	n := 0
	for _, op := range r.Ops {
		if op.Name == name {
			n++
		}
	}
	return n
}

// Filter returns the recorded calls with any of the given names, in order.
func (r *Recorder) Filter(names ...string) []Op {
	var ops []Op
	for _, op := range r.Ops {
		for _, n := range names {
			if op.Name == n {
				ops = append(ops, op)
				break
			}
		}
	}
	return ops
}

// InjectError queues errors to be returned by GetError.
func (r *Recorder) InjectError(codes ...ErrorCode) {
	r.errors = append(r.errors, codes...)
}

// LiveFences returns the number of fences that have been created and not
// deleted.
func (r *Recorder) LiveFences() int {
	return len(r.fences)
}

func (r *Recorder) Info() Info { return r.DeviceInfo }

func (r *Recorder) ActiveTexture(unit int) {
	r.record("ActiveTexture", unit)
	r.ActiveUnit = unit
}

func (r *Recorder) BindTexture(kind TextureKind, tex uint32) {
	r.record("BindTexture", r.ActiveUnit, kind, tex)
	r.Textures[[2]int{r.ActiveUnit, int(kind)}] = tex
}

func (r *Recorder) BindBuffer(kind BufferKind, buf uint32) {
	r.record("BindBuffer", kind, buf)
	r.Buffers[kind] = buf
}

func (r *Recorder) BindFramebuffer(fb uint32) {
	r.record("BindFramebuffer", fb)
	r.Framebuffer = fb
}

func (r *Recorder) DrawBuffer(b DrawBuffer)        { r.record("DrawBuffer", b) }
func (r *Recorder) SetVertexLayout(l VertexLayout) { r.record("SetVertexLayout", l) }

func (r *Recorder) Enable(c Capability) {
	r.record("Enable", c)
	r.Enabled[c] = true
}

func (r *Recorder) Disable(c Capability) {
	r.record("Disable", c)
	r.Enabled[c] = false
}

func (r *Recorder) CullFace(f CullFace)            { r.record("CullFace", f) }
func (r *Recorder) BlendFunc(src, dst BlendFactor) { r.record("BlendFunc", src, dst) }
func (r *Recorder) DepthFunc(f CompareFunc)        { r.record("DepthFunc", f) }
func (r *Recorder) DepthMask(write bool)           { r.record("DepthMask", write) }
func (r *Recorder) ColorMask(cr, cg, cb, ca bool)  { r.record("ColorMask", cr, cg, cb, ca) }
func (r *Recorder) StencilOp(sfail, zfail, zpass StencilOp) {
	r.record("StencilOp", sfail, zfail, zpass)
}
func (r *Recorder) StencilFunc(f CompareFunc, ref int, mask uint32) {
	r.record("StencilFunc", f, ref, mask)
}
func (r *Recorder) PolygonOffset(scale, bias float32) { r.record("PolygonOffset", scale, bias) }
func (r *Recorder) PolygonMode(m PolygonMode)         { r.record("PolygonMode", m) }

func (r *Recorder) Viewport(x, y, w, h int)           { r.record("Viewport", x, y, w, h) }
func (r *Recorder) Scissor(x, y, w, h int)            { r.record("Scissor", x, y, w, h) }
func (r *Recorder) ClearColor(cr, cg, cb, ca float32) { r.record("ClearColor", cr, cg, cb, ca) }
func (r *Recorder) ClearDepth(d float32)              { r.record("ClearDepth", d) }
func (r *Recorder) ClearStencil(s int)                { r.record("ClearStencil", s) }
func (r *Recorder) Clear(mask ClearMask)              { r.record("Clear", int(mask)) }

var errCompile = errors.New("compile failed")

// CompileShader fails for sources containing an #error directive, as a
// real compiler would.
func (r *Recorder) CompileShader(stage ShaderStage, source string) (uint32, error) {
	if strings.Contains(source, "#error") {
		r.record("CompileShader", stage, "failed")
		return 0, fmt.Errorf("%s shader: %w", stage, errCompile)
	}
	h := r.handle()
	r.record("CompileShader", stage, h)
	return h, nil
}

func (r *Recorder) LinkProgram(vs, fs uint32) (uint32, error) {
	if vs == 0 || fs == 0 {
		return 0, errors.New("link: missing shader")
	}
	h := r.handle()
	r.record("LinkProgram", vs, fs, h)
	return h, nil
}

func (r *Recorder) DeleteShader(shader uint32) { r.record("DeleteShader", shader) }
func (r *Recorder) DeleteProgram(prog uint32)  { r.record("DeleteProgram", prog) }

func (r *Recorder) UseProgram(prog uint32) {
	r.record("UseProgram", prog)
	r.Program = prog
}

// UniformLocation returns a stable location derived from the name.
func (r *Recorder) UniformLocation(prog uint32, name string) int32 {
	return int32(len(name))
}

func (r *Recorder) Uniform4fv(loc int32, v []float32) {
	r.record("Uniform4fv", loc, len(v)/4, fmt.Sprint(v))
}

func (r *Recorder) GenTexture() uint32 {
	h := r.handle()
	r.record("GenTexture", h)
	return h
}

func (r *Recorder) bound(kind TextureKind) uint32 {
	return r.Textures[[2]int{r.ActiveUnit, int(kind)}]
}

func (r *Recorder) TexImage2D(kind TextureKind, w, h int) {
	r.record("TexImage2D", kind, r.bound(kind), w, h)
	r.TextureSizes[r.bound(kind)] = [2]int{w, h}
}

func (r *Recorder) TexFilter(kind TextureKind, f Filter) {
	r.record("TexFilter", kind, r.bound(kind), f)
	r.Filters[r.bound(kind)] = f
}

func (r *Recorder) CopyTexSubImage2D(kind TextureKind, x, y, w, h int) {
	r.record("CopyTexSubImage2D", r.Framebuffer, r.bound(kind), x, y, w, h)
}

func (r *Recorder) DeleteTexture(tex uint32) {
	r.record("DeleteTexture", tex)
	delete(r.TextureSizes, tex)
	// Deleting a bound texture reverts the binding to zero.
	for k, t := range r.Textures {
		if t == tex {
			r.Textures[k] = 0
		}
	}
}

func (r *Recorder) GenFramebuffer() uint32 {
	h := r.handle()
	r.record("GenFramebuffer", h)
	return h
}

func (r *Recorder) FramebufferTexture(tex uint32) {
	r.record("FramebufferTexture", r.Framebuffer, tex)
	r.Attachments[r.Framebuffer] = tex
}

func (r *Recorder) FramebufferDepth(w, h int) { r.record("FramebufferDepth", r.Framebuffer, w, h) }

func (r *Recorder) DeleteFramebuffer(fb uint32) {
	r.record("DeleteFramebuffer", fb)
	if r.Framebuffer == fb {
		r.Framebuffer = 0
	}
}

func (r *Recorder) GenBuffer() uint32 {
	h := r.handle()
	r.record("GenBuffer", h)
	return h
}

func (r *Recorder) BufferData(kind BufferKind, data []byte) {
	r.record("BufferData", kind, r.Buffers[kind], len(data))
}

func (r *Recorder) DeleteBuffer(buf uint32) {
	r.record("DeleteBuffer", buf)
	for k, b := range r.Buffers {
		if b == buf {
			r.Buffers[k] = 0
		}
	}
}

func (r *Recorder) DrawElements(count, firstIndex, baseVertex int) {
	r.record("DrawElements", r.Framebuffer, r.Program, count, firstIndex, baseVertex)
}

func (r *Recorder) GenQuery() uint32 {
	h := r.handle()
	r.record("GenQuery", h)
	r.queries[h] = &recordedQuery{}
	return h
}

func (r *Recorder) QueryTimestamp(q uint32) {
	r.record("QueryTimestamp", q)
	r.clock += 1000
	if rq, ok := r.queries[q]; ok {
		rq.time, rq.polls = r.clock, 0
	}
}

func (r *Recorder) QueryResultAvailable(q uint32) bool {
	rq, ok := r.queries[q]
	if !ok {
		return false
	}
	rq.polls++
	return rq.polls > r.QueriesPending
}

func (r *Recorder) QueryResult(q uint32) uint64 {
	r.record("QueryResult", q)
	if rq, ok := r.queries[q]; ok {
		return rq.time
	}
	return 0
}

func (r *Recorder) DeleteQuery(q uint32) {
	r.record("DeleteQuery", q)
	delete(r.queries, q)
}

func (r *Recorder) FenceSync() Fence {
	r.nextFence++
	r.record("FenceSync", r.nextFence)
	r.fences[r.nextFence] = 0
	return r.nextFence
}

func (r *Recorder) ClientWaitSync(f Fence, timeout time.Duration) SyncStatus {
	polls, ok := r.fences[f]
	if !ok {
		r.record("ClientWaitSync", f, SyncWaitFailed)
		return SyncWaitFailed
	}
	r.fences[f] = polls + 1
	if polls < r.FencePolls {
		r.record("ClientWaitSync", f, SyncTimeoutExpired)
		return SyncTimeoutExpired
	}
	r.record("ClientWaitSync", f, SyncConditionSatisfied)
	return SyncConditionSatisfied
}

func (r *Recorder) DeleteSync(f Fence) {
	r.record("DeleteSync", f)
	delete(r.fences, f)
}

func (r *Recorder) Finish() { r.record("Finish") }
func (r *Recorder) Flush()  { r.record("Flush") }

func (r *Recorder) GetError() ErrorCode {
	if len(r.errors) == 0 {
		return NoError
	}
	e := r.errors[0]
	r.errors = r.errors[1:]
	return e
}

func (r *Recorder) PushDebugGroup(label string) {
	r.record("PushDebugGroup", label)
	r.DebugDepth++
}

func (r *Recorder) PopDebugGroup() {
	r.record("PopDebugGroup")
	r.DebugDepth--
}
