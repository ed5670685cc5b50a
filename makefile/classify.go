// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package makefile

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Category is an ownership category of a path.
type Category int

const (
	// Proof is code written for the proof: sources and stubs.
	Proof Category = iota
	// Project is code of the project under test.
	Project
)

func (c Category) String() string {
	switch c {
	case Proof:
		return "proof"
	case Project:
		return "project"
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// ParseCategory parses "proof" or "project".
func ParseCategory(s string) (Category, error) {
	switch s {
	case "proof":
		return Proof, nil
	case "project":
		return Project, nil
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

// Rule maps paths under Root to the make variable Variable.
type Rule struct {
	Category Category
	Root     string
	Variable string
}

// Classified holds paths rewritten by rules, per category. Each list is
// sorted.
type Classified struct {
	Proof        []string
	Project      []string
	Unclassified []string
}

// Classify rewrites paths by rules. Proof rules take precedence over
// project rules; within a category the rule with the longest matching
// root wins. A path equal to a root becomes $(VAR), and a path below a
// root becomes $(VAR)/rel. Paths matching no rule are kept as is.
func Classify(paths []string, rules []Rule) Classified {
	return classifyWithPrefix(paths, rules, "")
}

func classifyWithPrefix(paths []string, rules []Rule, prefix string) Classified {
	var c Classified
	for _, p := range paths {
		cat, v, ok := classify(p, rules)
		v = prefix + v
		switch {
		case !ok:
			c.Unclassified = append(c.Unclassified, v)
		case cat == Proof:
			c.Proof = append(c.Proof, v)
		default:
			c.Project = append(c.Project, v)
		}
	}
	sort.Strings(c.Proof)
	sort.Strings(c.Project)
	sort.Strings(c.Unclassified)
	return c
}

func classify(path string, rules []Rule) (Category, string, bool) {
	for _, cat := range []Category{Proof, Project} {
		var best *Rule
		var bestRel string
		for i := range rules {
			r := &rules[i]
			if r.Category != cat {
				continue
			}
			rel, ok := within(path, r.Root)
			if !ok {
				continue
			}
			if best == nil || len(filepath.Clean(r.Root)) > len(filepath.Clean(best.Root)) {
				best = r
				bestRel = rel
			}
		}
		if best == nil {
			continue
		}
		v := makeVar(best.Variable)
		if bestRel != "" {
			v += "/" + filepath.ToSlash(bestRel)
		}
		return cat, v, true
	}
	return 0, path, false
}

// within reports whether path is root or below root, and the path
// relative to root.
func within(path, root string) (string, bool) {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if path == root {
		return "", true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	return path[len(prefix):], true
}

func makeVar(name string) string {
	return "$(" + name + ")"
}
