// renderer/watch.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"github.com/fsnotify/fsnotify"

	"github.com/neovr/neo/log"
)

// ShaderWatcher watches a shader directory and calls reload whenever a
// file in it changes. The callback runs on the watcher's goroutine; it
// should only flag that a reload is needed.
type ShaderWatcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

func WatchShaders(dir string, reload func(), lg *log.Logger) (*ShaderWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}

	sw := &ShaderWatcher{watcher: w, done: make(chan struct{})}
	go func() {
		for {
			select {
			case <-sw.done:
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					lg.Debugf("%s: %s; reloading shaders", event.Name, event.Op)
					reload()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				lg.Warnf("shader watcher: %v", err)
			}
		}
	}()
	return sw, nil
}

func (sw *ShaderWatcher) Close() error {
	if sw == nil {
		return nil
	}
	close(sw.done)
	return sw.watcher.Close()
}
