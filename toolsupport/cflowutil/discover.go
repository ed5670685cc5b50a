// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cflowutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// ToolDir is the directory name of this tool's own checkout, which is
// never analyzed.
const ToolDir = "aws-proof-build-assistant"

// DiscoverOptions controls source file discovery.
type DiscoverOptions struct {
	// Exclude is a list of doublestar patterns matched against slash
	// separated paths relative to the root, e.g. "third_party/**".
	Exclude []string

	// Gitignore skips files matched by root's .gitignore.
	Gitignore bool
}

// SourceFiles returns absolute paths of all .c and .h files under root,
// sorted.
func SourceFiles(root string, opts DiscoverOptions) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	for _, pattern := range opts.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("bad exclude pattern %q", pattern)
		}
	}
	var gi *ignore.GitIgnore
	if opts.Gitignore {
		gi, err = ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load .gitignore: %w", err)
		}
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if d.Name() == ToolDir || excluded(rel, opts.Exclude) || (gi != nil && gi.MatchesPath(rel+"/")) {
				return filepath.SkipDir
			}
			return nil
		}
		switch filepath.Ext(path) {
		case ".c", ".h":
		default:
			return nil
		}
		if excluded(rel, opts.Exclude) || (gi != nil && gi.MatchesPath(rel)) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func excluded(rel string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
