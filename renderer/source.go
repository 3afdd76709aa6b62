// renderer/source.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"github.com/neovr/neo/gpu"
	"github.com/neovr/neo/log"
	"github.com/neovr/neo/util"
)

// ShaderFeatures selects compile-time variants of a shader.
type ShaderFeatures uint32

const (
	ShaderSkinning ShaderFeatures = 1 << iota
	ShaderStereo
)

func (f ShaderFeatures) defines() string {
	var b strings.Builder
	if f&ShaderSkinning != 0 {
		b.WriteString("#define USE_GPU_SKINNING 1\n")
	}
	if f&ShaderStereo != 0 {
		b.WriteString("#define STEREO_RENDER 1\n")
	}
	return b.String()
}

func stageSuffix(stage gpu.ShaderStage) string {
	if stage == gpu.VertexStage {
		return ".vs"
	}
	return ".fs"
}

// ShaderSource provides the text of shaders by name. Implementations
// return an error wrapping ErrShaderNotFound when there's no such
// shader.
type ShaderSource interface {
	LoadShaderSource(name, suffix string, features ShaderFeatures) (string, error)
}

// FSSource loads shaders from a file system. Sources may be zstd
// compressed, in which case the file name has a trailing ".zst". Loaded
// sources are cached.
type FSSource struct {
	fsys  fs.FS
	dir   string
	lg    *log.Logger
	cache *expirable.LRU[string, string]
}

// shaderCacheSize is large enough to hold every builtin.
const shaderCacheSize = 128

func NewFSSource(fsys fs.FS, dir string, lg *log.Logger) *FSSource {
	return &FSSource{
		fsys:  fsys,
		dir:   dir,
		lg:    lg,
		cache: expirable.NewLRU[string, string](shaderCacheSize, nil, 30*time.Minute),
	}
}

// readRaw returns the contents of the named file, without any feature
// defines.
func (s *FSSource) readRaw(file string) (string, error) {
	if src, ok := s.cache.Get(file); ok {
		return src, nil
	}

	p := path.Join(s.dir, file)
	if !util.ResourceExists(s.fsys, p) {
		if util.ResourceExists(s.fsys, p+".zst") {
			p += ".zst"
		} else {
			return "", fmt.Errorf("%s: %w", file, ErrShaderNotFound)
		}
	}

	b, err := util.LoadResourceBytes(s.fsys, p)
	if err != nil {
		return "", fmt.Errorf("%s: %w", file, err)
	}
	s.cache.Add(file, string(b))
	return string(b), nil
}

func (s *FSSource) LoadShaderSource(name, suffix string, features ShaderFeatures) (string, error) {
	src, err := s.readRaw(name + suffix)
	if err != nil {
		return "", err
	}

	defs := features.defines()
	if defs == "" {
		return src, nil
	}
	// Defines must follow the #version line if there is one.
	if strings.HasPrefix(src, "#version") {
		if nl := strings.IndexByte(src, '\n'); nl != -1 {
			return src[:nl+1] + defs + src[nl+1:], nil
		}
		return src + "\n" + defs, nil
	}
	return defs + src, nil
}

// Prefetch loads the vertex and fragment sources for the given shaders
// concurrently so that they are cached before the program table starts
// compiling. Missing shaders are not an error here; the program table
// reports them when it tries to use them.
func (s *FSSource) Prefetch(names []string) error {
	var eg errgroup.Group
	for _, name := range names {
		for _, suffix := range []string{".vs", ".fs"} {
			eg.Go(func() error {
				if _, err := s.readRaw(name + suffix); err != nil && !errors.Is(err, ErrShaderNotFound) {
					return err
				}
				return nil
			})
		}
	}
	return eg.Wait()
}

// Purge drops all cached sources so that they are reread from disk.
func (s *FSSource) Purge() {
	s.cache.Purge()
}

// prefetcher and purger are implemented by sources that cache.
type prefetcher interface {
	Prefetch(names []string) error
}

type purger interface {
	Purge()
}
