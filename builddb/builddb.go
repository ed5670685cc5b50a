// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package builddb provides the build database: the per-file include
// directories, defines and call graph of a code base.
package builddb

import (
	"fmt"
	"path/filepath"
	"sort"

	"go.chromium.org/infra/build/arpa/o11y/diag"
)

// Functions maps a function defined in a file to the functions it calls,
// each with the file defining it. nil means the defining file is unknown.
type Functions map[string]map[string]*string

// FileEntry is build information of a source file.
type FileEntry struct {
	Name      string    `json:"name"`
	Includes  []string  `json:"includes"`
	Defines   []string  `json:"defines"`
	Functions Functions `json:"functions"`
}

// DB is the build database of a code base rooted at Root.
type DB struct {
	Root  string                `json:"root"`
	Files map[string]*FileEntry `json:"files"`
}

// New creates an empty database for root.
func New(root string) *DB {
	return &DB{
		Root:  root,
		Files: make(map[string]*FileEntry),
	}
}

func newEntry(path string) *FileEntry {
	return &FileEntry{
		Name:      filepath.Base(path),
		Includes:  []string{},
		Defines:   []string{},
		Functions: Functions{},
	}
}

// AddFile adds an entry for path. It reports false if path is already
// known, keeping the existing entry.
func (db *DB) AddFile(path string) bool {
	if _, ok := db.Files[path]; ok {
		return false
	}
	db.Files[path] = newEntry(path)
	return true
}

// AddIncludes sets include directories of path, adding the entry if needed.
func (db *DB) AddIncludes(path string, includes []string) {
	db.AddFile(path)
	db.Files[path].Includes = append([]string{}, includes...)
}

// AddDefines sets defines of path, adding the entry if needed.
func (db *DB) AddDefines(path string, defines []string) {
	db.AddFile(path)
	db.Files[path].Defines = append([]string{}, defines...)
}

// Entry returns the entry of path.
func (db *DB) Entry(path string) (*FileEntry, bool) {
	e, ok := db.Files[path]
	return e, ok
}

// Paths returns all file paths, sorted.
func (db *DB) Paths() []string {
	paths := make([]string, 0, len(db.Files))
	for p := range db.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// MergeFunctions attaches a call graph (file -> function -> callee ->
// defining file, "" if unknown) to the database.
// Files unknown to the database are added with no includes or defines;
// only .c and .h files may be added this way. Known files absent from the
// graph get no functions.
func (db *DB) MergeFunctions(graph map[string]map[string]map[string]string, d *diag.Diagnostics) error {
	files := make([]string, 0, len(graph))
	for file := range graph {
		files = append(files, file)
	}
	sort.Strings(files)
	for _, file := range files {
		if _, ok := db.Files[file]; !ok {
			switch filepath.Ext(file) {
			case ".c":
				d.Infof("source file <%s> not found in build database. Adding.", file)
			case ".h":
				d.Debugf("header <%s> not found in build database. Adding.", file)
			default:
				return fmt.Errorf("<%s> in call graph is not a .c or .h file", file)
			}
			db.Files[file] = newEntry(file)
		}
		db.Files[file].Functions = toFunctions(graph[file])
	}
	for file, e := range db.Files {
		if _, ok := graph[file]; !ok {
			e.Functions = Functions{}
		}
	}
	return nil
}

func toFunctions(funcs map[string]map[string]string) Functions {
	fns := make(Functions, len(funcs))
	for fn, callees := range funcs {
		calls := make(map[string]*string, len(callees))
		for callee, file := range callees {
			if file == "" {
				calls[callee] = nil
				continue
			}
			file := file
			calls[callee] = &file
		}
		fns[fn] = calls
	}
	return fns
}
