// cmd/neo/config.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/neovr/neo/log"
	"github.com/neovr/neo/platform"
	"github.com/neovr/neo/renderer"
)

// Config is saved as TOML in the user's config directory.
type Config struct {
	Window   platform.Config `toml:"window"`
	Renderer renderer.Config `toml:"renderer"`

	// HMD lists the head-mounted display drivers to try, in order.
	HMD []string `toml:"hmd"`
	// ShaderDir, if set, is a directory of shaders to use in place of
	// the built-in ones; they're reloaded when they change.
	ShaderDir string `toml:"shader_dir"`
	// PersistTimings keeps GPU frame timings across runs.
	PersistTimings bool `toml:"persist_timings"`
}

func DefaultConfig() Config {
	return Config{
		Window:         platform.Config{VSync: true},
		Renderer:       renderer.DefaultConfig(),
		HMD:            []string{"simulated"},
		PersistTimings: true,
	}
}

func configFilePath(lg *log.Logger) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		lg.Errorf("Unable to find user config dir: %v", err)
		dir = "."
	}

	dir = filepath.Join(dir, "neo")
	err = os.MkdirAll(dir, 0o700)
	if err != nil {
		lg.Errorf("%s: unable to make directory for config file: %v", dir, err)
	}

	return filepath.Join(dir, "config.toml")
}

func (c *Config) Encode(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.Indent = "    "
	return enc.Encode(c)
}

func (c *Config) Save(path string, lg *log.Logger) error {
	lg.Infof("Saving config to: %s", path)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return c.Encode(f)
}

// LoadConfig reads the configuration at path. Options missing from the
// file keep their defaults. If there is no file, a default one is
// written. A file that can't be parsed is reported but the defaults are
// still returned so that the caller can carry on.
func LoadConfig(path string, lg *log.Logger) (*Config, error) {
	config := DefaultConfig()

	md, err := toml.DecodeFile(path, &config)
	if errors.Is(err, fs.ErrNotExist) {
		lg.Infof("%s: creating default config", path)
		config = DefaultConfig()
		if err := config.Save(path, lg); err != nil {
			lg.Errorf("%s: %v", path, err)
		}
		return &config, nil
	} else if err != nil {
		config = DefaultConfig()
		return &config, fmt.Errorf("%s: %w", path, err)
	}

	if undec := md.Undecoded(); len(undec) > 0 {
		lg.Warnf("%s: ignoring unknown options %v", path, undec)
	}
	lg.Infof("Loaded config from: %s", path)
	return &config, nil
}
