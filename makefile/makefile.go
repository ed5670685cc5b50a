// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package makefile renders the closure of a proof harness as a Makefile
// fragment.
package makefile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.chromium.org/infra/build/arpa/resolve"
	"go.chromium.org/infra/build/arpa/toolsupport/gccutil"
)

// DefaultName is the default file name of a generated fragment.
const DefaultName = "Makefile.arpa"

// HarnessSuffix is the suffix of a harness file name.
const HarnessSuffix = "_harness.c"

var (
	// ErrNoHarness is returned when a directory has no harness file.
	ErrNoHarness = errors.New("no harness found")

	// ErrMultipleHarnesses is returned when a directory has more than
	// one harness file.
	ErrMultipleHarnesses = errors.New("too many harness files")
)

// Variables are make variable names assigned by the fragment.
type Variables struct {
	Defines        string
	Includes       string
	ProofSources   string
	ProjectSources string
}

// DefaultVariables returns the default variable names.
func DefaultVariables() Variables {
	return Variables{
		Defines:        "DEFINES",
		Includes:       "INCLUDES",
		ProofSources:   "PROOF_SOURCES",
		ProjectSources: "PROJECT_SOURCES",
	}
}

// Contents is the classified closure of a harness, ready to render.
type Contents struct {
	Defines        []string
	Includes       []string
	ProofSources   []string
	ProjectSources []string
	External       []string
	Missing        []resolve.MissingCalls
}

// Prepare classifies a dependency set by rules.
//
// Includes are prefixed with -I and grouped as proof, project, then
// unclassified, each group sorted. Defines are prefixed with -D and
// sorted. Compiler flag order may matter, but sorted output is kept
// reproducible across runs.
func Prepare(set *resolve.DependencySet, rules []Rule) Contents {
	inc := classifyWithPrefix(set.SortedIncludes(), rules, gccutil.IncludeFlag)
	var includes []string
	includes = append(includes, inc.Proof...)
	includes = append(includes, inc.Project...)
	includes = append(includes, inc.Unclassified...)

	var defines []string
	for _, d := range set.SortedDefines() {
		defines = append(defines, gccutil.DefineFlag+d)
	}

	deps := Classify(set.SortedDependencies(), rules)
	return Contents{
		Defines:        defines,
		Includes:       includes,
		ProofSources:   deps.Proof,
		ProjectSources: deps.Project,
		External:       deps.Unclassified,
		Missing:        set.SortedMissing(),
	}
}

// Render returns the lines of the fragment.
func Render(c Contents, vars Variables) []string {
	lines := []string{
		"# This file is generated automatically by arpa",
		"",
	}
	section := func(label string, values []string) {
		for _, v := range values {
			lines = append(lines, fmt.Sprintf("%s += %s", label, v))
		}
		lines = append(lines, "")
	}
	section(vars.Defines, c.Defines)
	section(vars.Includes, c.Includes)
	section(vars.ProofSources, c.ProofSources)
	section(vars.ProjectSources, c.ProjectSources)
	section("# EXTERNAL_DEPENDENCIES", c.External)

	lines = append(lines,
		"",
		"# The proof also calls into the following functions, whose source",
		"# files could not be determined.",
		"# You may need to find the files these functions reside in",
		fmt.Sprintf("# and add them to the %s array.", makeVar(vars.ProjectSources)))
	for _, m := range c.Missing {
		for _, callee := range m.Callees {
			lines = append(lines, fmt.Sprintf("# * <%s>   in %s", callee, m.Caller))
		}
	}
	return lines
}

// Write writes lines to path, one per line.
func Write(path string, lines []string) error {
	err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644)
	if err != nil {
		return fmt.Errorf("write makefile: %w", err)
	}
	return nil
}

// FindHarness returns the absolute path of the only *_harness.c file in
// dir.
func FindHarness(dir string) (string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var found []string
	for _, ent := range ents {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), HarnessSuffix) {
			continue
		}
		found = append(found, ent.Name())
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("%w in %s", ErrNoHarness, dir)
	case 1:
	default:
		return "", fmt.Errorf("%w in %s: %s", ErrMultipleHarnesses, dir, strings.Join(found, ", "))
	}
	return filepath.Abs(filepath.Join(dir, found[0]))
}
