// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package resolve computes the transitive build closure of a harness
// from a build database.
package resolve

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.chromium.org/infra/build/arpa/builddb"
	"go.chromium.org/infra/build/arpa/o11y/diag"
)

var (
	// ErrUnknownHarness is returned when the harness is not in the database.
	ErrUnknownHarness = errors.New("harness not found in build database")

	// ErrUnknownFile is returned when a call target is not in the database.
	ErrUnknownFile = errors.New("file not found in build database")

	// ErrUnknownFunction is returned when a called function is not
	// defined in its target file.
	ErrUnknownFunction = errors.New("function not defined in file")

	// ErrMaxDepth is returned when a call chain is longer than
	// Options.MaxDepth.
	ErrMaxDepth = errors.New("call chain exceeds maximum depth")
)

// Options configures Resolve.
type Options struct {
	// ChangeExtension, if set, replaces the extension of every
	// dependency path, e.g. "h" maps util.c to util.h.
	// Traversal still follows the original file.
	ChangeExtension string

	// MaxDepth bounds the number of call edges followed from the
	// harness. 0 means unlimited.
	MaxDepth int

	// Diag receives a debug entry per expanded file.
	Diag *diag.Diagnostics
}

// Caller identifies a function defined in a file.
type Caller struct {
	File     string
	Function string
}

func (c Caller) String() string {
	return c.File + ":" + c.Function
}

// DependencySet is the closure of a harness.
type DependencySet struct {
	Includes     map[string]bool
	Defines      map[string]bool
	Dependencies map[string]bool

	// Missing holds, per caller, callees whose defining file is unknown.
	Missing map[Caller]map[string]bool
}

// MissingCalls is the sorted form of a Missing entry.
type MissingCalls struct {
	Caller  Caller
	Callees []string
}

func newDependencySet() *DependencySet {
	return &DependencySet{
		Includes:     make(map[string]bool),
		Defines:      make(map[string]bool),
		Dependencies: make(map[string]bool),
		Missing:      make(map[Caller]map[string]bool),
	}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SortedIncludes returns include directories, sorted.
func (s *DependencySet) SortedIncludes() []string { return sortedKeys(s.Includes) }

// SortedDefines returns defines, sorted.
func (s *DependencySet) SortedDefines() []string { return sortedKeys(s.Defines) }

// SortedDependencies returns dependency paths, sorted.
func (s *DependencySet) SortedDependencies() []string { return sortedKeys(s.Dependencies) }

// SortedMissing returns missing calls ordered by caller file, then
// caller function, with callees sorted.
func (s *DependencySet) SortedMissing() []MissingCalls {
	ms := make([]MissingCalls, 0, len(s.Missing))
	for c, callees := range s.Missing {
		ms = append(ms, MissingCalls{Caller: c, Callees: sortedKeys(callees)})
	}
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].Caller.File != ms[j].Caller.File {
			return ms[i].Caller.File < ms[j].Caller.File
		}
		return ms[i].Caller.Function < ms[j].Caller.Function
	})
	return ms
}

// Resolve walks the call graph from functions defined in harnessFile and
// collects includes, defines and files of everything reachable.
// If functions is nil, every function defined in harnessFile is used.
//
// Callees of a file are grouped by their defining file, so each target
// file is expanded once per frontier with the union of the functions
// called into it. A (file, function) pair is expanded at most once, so
// cyclic call graphs terminate.
func Resolve(db *builddb.DB, harnessFile string, functions []string, opts Options) (*DependencySet, error) {
	e, ok := db.Entry(harnessFile)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHarness, harnessFile)
	}
	if functions == nil {
		for fn := range e.Functions {
			functions = append(functions, fn)
		}
	}
	r := &resolver{
		db:       db,
		opts:     opts,
		set:      newDependencySet(),
		expanded: make(map[Caller]bool),
	}
	err := r.walk(harnessFile, functions, 0)
	if err != nil {
		return nil, err
	}
	return r.set, nil
}

type resolver struct {
	db       *builddb.DB
	opts     Options
	set      *DependencySet
	expanded map[Caller]bool
}

func (r *resolver) rewrite(path string) string {
	if r.opts.ChangeExtension == "" {
		return path
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + "." + strings.TrimPrefix(r.opts.ChangeExtension, ".")
}

func (r *resolver) walk(file string, functions []string, depth int) error {
	e, ok := r.db.Entry(file)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFile, file)
	}
	for _, inc := range e.Includes {
		r.set.Includes[inc] = true
	}
	for _, def := range e.Defines {
		r.set.Defines[def] = true
	}

	var fns []string
	for _, fn := range functions {
		c := Caller{File: file, Function: fn}
		if r.expanded[c] {
			continue
		}
		r.expanded[c] = true
		fns = append(fns, fn)
	}
	if len(fns) == 0 {
		return nil
	}
	sort.Strings(fns)
	if r.opts.MaxDepth > 0 && depth > r.opts.MaxDepth {
		return fmt.Errorf("%w %d: %s:%s", ErrMaxDepth, r.opts.MaxDepth, file, fns[0])
	}
	r.opts.Diag.Debugf("expanding %s: %s", file, strings.Join(fns, " "))

	called := make(map[string]map[string]bool)
	for _, fn := range fns {
		calls, ok := e.Functions[fn]
		if !ok {
			return fmt.Errorf("%w: %s in %s", ErrUnknownFunction, fn, file)
		}
		for callee, target := range calls {
			if target == nil {
				c := Caller{File: file, Function: fn}
				if r.set.Missing[c] == nil {
					r.set.Missing[c] = make(map[string]bool)
				}
				r.set.Missing[c][callee] = true
				continue
			}
			r.set.Dependencies[r.rewrite(*target)] = true
			if called[*target] == nil {
				called[*target] = make(map[string]bool)
			}
			called[*target][callee] = true
		}
	}
	targets := make([]string, 0, len(called))
	for target := range called {
		targets = append(targets, target)
	}
	sort.Strings(targets)
	for _, target := range targets {
		err := r.walk(target, sortedKeys(called[target]), depth+1)
		if err != nil {
			return err
		}
	}
	return nil
}
