// hmd/registry.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package hmd

import (
	"errors"
	"fmt"
	"sync"

	"github.com/neovr/neo/log"
	"github.com/neovr/neo/util"
)

// Factory opens a device; it returns ErrNoDevice if the hardware isn't
// there.
type Factory func(lg *log.Logger) (Device, error)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
)

// Register makes a device implementation available by name. It panics
// if factory is nil or the name is already taken.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if factory == nil {
		panic("hmd: Register factory is nil")
	}
	if _, dup := factories[name]; dup {
		panic("hmd: Register called twice for " + name)
	}
	factories[name] = factory
}

func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Devices returns the registered device names, sorted.
func Devices() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	return util.SortedMapKeys(factories)
}

func Open(name string, lg *log.Logger) (Device, error) {
	registryMu.RLock()
	factory, ok := factories[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("hmd: unknown device %q", name)
	}
	return factory(lg)
}

// Probe tries each of the named devices in order and returns the first
// one that opens. If none do, it returns a None device.
func Probe(preferences []string, lg *log.Logger) Device {
	for _, name := range preferences {
		d, err := Open(name, lg)
		if err == nil {
			lg.Infof("hmd: using %s", d.Name())
			return d
		}
		if errors.Is(err, ErrNoDevice) {
			lg.Infof("hmd: %s: no device", name)
		} else {
			lg.Warnf("hmd: %s: %v", name, err)
		}
	}
	return None{}
}
