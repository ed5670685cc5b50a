// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package builddb

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

// Violation is a value in the database that doesn't satisfy the schema.
type Violation struct {
	// Path locates the value, e.g. `files["/src/a.c"].includes[0]`.
	Path    string
	Message string
	Value   string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s: %q", v.Path, v.Message, v.Value)
}

// ValidationError is returned for a database with violations.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "build database has %d violation(s)", len(e.Violations))
	for _, v := range e.Violations {
		fmt.Fprintf(&sb, "\n  %s", v)
	}
	return sb.String()
}

// Check returns a *ValidationError if the database has violations.
func (db *DB) Check() error {
	vs := db.Validate()
	if len(vs) == 0 {
		return nil
	}
	return &ValidationError{Violations: vs}
}

// Validate checks the database against the schema and returns violations
// in a stable order.
//   - root is an existing directory.
//   - file keys are existing .c or .h files, and names end with .c or .h.
//   - includes are existing directories.
//   - defines look like NAME, NAME=value or NAME(args)=value.
//   - function names are identifiers.
//   - call targets are null or existing .c or .h files.
func (db *DB) Validate() []Violation {
	var vs []Violation
	add := func(path, msg, value string) {
		vs = append(vs, Violation{Path: path, Message: msg, Value: value})
	}
	if !isDir(db.Root) {
		add("root", "not an existing directory", db.Root)
	}
	for _, file := range db.Paths() {
		e := db.Files[file]
		fp := fmt.Sprintf("files[%q]", file)
		if !isSourceName(file) || !isFile(file) {
			add(fp, "not an existing .c or .h file", file)
		}
		if !isSourceName(e.Name) {
			add(fp+".name", "not a .c or .h file name", e.Name)
		}
		for i, inc := range e.Includes {
			if !isDir(inc) {
				add(fmt.Sprintf("%s.includes[%d]", fp, i), "not an existing directory", inc)
			}
		}
		for i, def := range e.Defines {
			if !isDefine(def) {
				add(fmt.Sprintf("%s.defines[%d]", fp, i), "not a valid compiler define", def)
			}
		}
		fns := make([]string, 0, len(e.Functions))
		for fn := range e.Functions {
			fns = append(fns, fn)
		}
		sort.Strings(fns)
		for _, fn := range fns {
			if !isIdent(fn) {
				add(fmt.Sprintf("%s.functions", fp), "not a valid function name", fn)
			}
			calls := e.Functions[fn]
			callees := make([]string, 0, len(calls))
			for callee := range calls {
				callees = append(callees, callee)
			}
			sort.Strings(callees)
			for _, callee := range callees {
				cp := fmt.Sprintf("%s.functions[%q]", fp, fn)
				if !isIdent(callee) {
					add(cp, "not a valid function name", callee)
				}
				target := calls[callee]
				if target == nil {
					continue
				}
				if !isSourceName(*target) || !isFile(*target) {
					add(fmt.Sprintf("%s[%q]", cp, callee), "not an existing .c or .h file", *target)
				}
			}
		}
	}
	return vs
}

func isSourceName(name string) bool {
	switch filepath.Ext(name) {
	case ".c", ".h":
		return true
	}
	return false
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isIdentRune(r) {
			return false
		}
	}
	return true
}

func isDefine(s string) bool {
	i := strings.IndexFunc(s, func(r rune) bool { return !isIdentRune(r) })
	switch {
	case i == 0:
		return false
	case i < 0:
		return s != ""
	}
	switch s[i] {
	case '=', '(':
		return true
	}
	return false
}
