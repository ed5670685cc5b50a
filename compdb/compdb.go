// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package compdb provides access to a compilation database
// (compile_commands.json) as include directories and defines per file.
package compdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.chromium.org/infra/build/arpa/o11y/diag"
	"go.chromium.org/infra/build/arpa/toolsupport/gccutil"
	"go.chromium.org/infra/build/arpa/toolsupport/shutil"
)

var (
	// ErrUnknownFile is returned for a file that has no compile record.
	ErrUnknownFile = errors.New("file not in compilation database")

	// ErrIncludeNotFound is returned when an include directory doesn't exist.
	ErrIncludeNotFound = errors.New("include path not found")
)

// entry is a record of compile_commands.json.
// https://clang.llvm.org/docs/JSONCompilationDatabase.html
type entry struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Command   string   `json:"command"`
	Arguments []string `json:"arguments"`
}

// Record is a compile command of a translation unit.
type Record struct {
	File   string
	Tokens []string
}

// Index maps files to their compile commands.
type Index struct {
	path    string
	files   []string
	records map[string]Record
}

// Load loads the compilation database at path.
// A file recorded more than once uses its last record.
// Indexing stops with ctx's error when ctx is done.
func Load(ctx context.Context, path string, d *diag.Diagnostics) (*Index, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("compilation database: %w", err)
	}
	var entries []entry
	err = json.Unmarshal(buf, &entries)
	if err != nil {
		return nil, fmt.Errorf("compilation database %s: %w", path, err)
	}
	idx := &Index{
		path:    path,
		records: make(map[string]Record),
	}
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("compilation database %s: %w", path, err)
		}
		if e.File == "" {
			d.Warningf("%s: entry %d has no file", path, i)
			continue
		}
		tokens := e.Arguments
		if len(tokens) == 0 {
			tokens, err = shutil.Fields(e.Command)
			if err != nil {
				d.Warningf("%s: split command of %s: %v; splitting on whitespace", path, e.File, err)
				tokens = strings.Fields(e.Command)
			}
		}
		file := idx.normalize(e.Directory, e.File)
		if _, ok := idx.records[file]; !ok {
			idx.files = append(idx.files, file)
		}
		idx.records[file] = Record{File: file, Tokens: tokens}
	}
	return idx, nil
}

func (idx *Index) normalize(dir, file string) string {
	if !filepath.IsAbs(file) {
		if dir == "" {
			dir = filepath.Dir(idx.path)
		}
		file = filepath.Join(dir, file)
	}
	if abs, err := filepath.Abs(file); err == nil {
		file = abs
	}
	return filepath.Clean(file)
}

// Path returns the path of the compilation database.
func (idx *Index) Path() string {
	return idx.path
}

// Files returns all files in order of their first record.
func (idx *Index) Files() []string {
	return idx.files
}

// Record returns the compile record of file.
func (idx *Index) Record(file string) (Record, bool) {
	r, ok := idx.records[file]
	return r, ok
}

// Includes returns absolute include directories of file.
// Relative directories are resolved against the directory of the
// compilation database. A directory that doesn't exist is an error.
func (idx *Index) Includes(file string) ([]string, error) {
	r, ok := idx.records[file]
	if !ok {
		return nil, fmt.Errorf("includes of %s: %w", file, ErrUnknownFile)
	}
	var dirs []string
	for _, dir := range gccutil.IncludeDirs(r.Tokens) {
		abs, err := idx.absInclude(dir)
		if err != nil {
			return nil, fmt.Errorf("includes of %s: %w", file, err)
		}
		dirs = append(dirs, abs)
	}
	return dirs, nil
}

func (idx *Index) absInclude(dir string) (string, error) {
	p := dir
	if !filepath.IsAbs(dir) {
		p = filepath.Join(filepath.Dir(idx.path), dir)
	}
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("%w at %s", ErrIncludeNotFound, p)
	}
	if p == dir {
		return dir, nil
	}
	return filepath.Abs(p)
}

// Defines returns macro definitions of file, e.g. "FOO=1" for -DFOO=1.
func (idx *Index) Defines(file string) ([]string, error) {
	r, ok := idx.records[file]
	if !ok {
		return nil, fmt.Errorf("defines of %s: %w", file, ErrUnknownFile)
	}
	return gccutil.Defines(r.Tokens), nil
}
