// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package control

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/mark-ik/graphshell-sub001/internal/reducer"
	"gopkg.in/yaml.v3"
)

// modDescriptor is the minimal metadata a mod directory must carry. The
// actual loading/execution mechanics are out of scope (spec.md §1
// Non-goals: "the mod/plugin loading mechanics (only the supervision
// contract appears here)"); this worker only validates that a descriptor
// parses and reports the outcome.
type modDescriptor struct {
	Name string `yaml:"name"`
}

// ModLifecycle scans a mods directory and watches it for changes,
// emitting ModActivated/ModLoadFailed for each descriptor it finds
// (spec.md §4.4 "Mod lifecycle"). Grounded on
// services/trace/graph/file_watcher.go's fsnotify recursive-watch +
// debounce pattern, trimmed to this worker's single-directory, no-subdirs
// scope.
type ModLifecycle struct {
	Dir string
}

func (m *ModLifecycle) Name() string { return "mod_lifecycle" }

func (m *ModLifecycle) Run(ctx context.Context, send *Sender) {
	m.scanAll(send)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return // nothing to watch; initial scan above already ran
	}
	defer watcher.Close()
	if err := watcher.Add(m.Dir); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !strings.HasSuffix(ev.Name, ".yaml") && !strings.HasSuffix(ev.Name, ".yml") {
				continue
			}
			m.loadOne(ev.Name, send)
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (m *ModLifecycle) scanAll(send *Sender) {
	entries, err := os.ReadDir(m.Dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		m.loadOne(filepath.Join(m.Dir, name), send)
	}
}

func (m *ModLifecycle) loadOne(path string, send *Sender) {
	raw, err := os.ReadFile(path)
	if err != nil {
		send.TrySend(reducer.QueuedIntent{
			Source:  reducer.SourceModLifecycle,
			Payload: reducer.ModLoadFailedIntent{Name: filepath.Base(path), Reason: err.Error()},
		})
		return
	}

	var desc modDescriptor
	if err := yaml.Unmarshal(raw, &desc); err != nil || desc.Name == "" {
		reason := "missing name field"
		if err != nil {
			reason = err.Error()
		}
		send.TrySend(reducer.QueuedIntent{
			Source:  reducer.SourceModLifecycle,
			Payload: reducer.ModLoadFailedIntent{Name: filepath.Base(path), Reason: reason},
		})
		return
	}

	send.TrySend(reducer.QueuedIntent{
		Source:  reducer.SourceModLifecycle,
		Payload: reducer.ModActivatedIntent{Name: desc.Name},
	})
}
