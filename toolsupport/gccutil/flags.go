// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package gccutil provides utilities of gcc.
package gccutil

import "strings"

const (
	// IncludeFlag is gcc's include directory flag.
	IncludeFlag = "-I"
	// DefineFlag is gcc's macro definition flag.
	DefineFlag = "-D"
)

// FlagValues returns values of flag in args, in order of first occurrence.
// It accepts both `-Ivalue` and `-I value` forms. In the latter form the
// value is still scanned as a flag, so `-I -DX` gives define X too.
// A flag at the end of args without a value is ignored, as are duplicates.
// It only parses major command line flags used in C projects.
// full set of command line flags for include dirs can be found in
// https://clang.llvm.org/docs/ClangCommandLineReference.html#include-path-management
func FlagValues(args []string, flag string) []string {
	var values []string
	seen := make(map[string]bool)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, flag) {
			continue
		}
		value := strings.TrimPrefix(arg, flag)
		if value == "" {
			// `-I dir`
			if i+1 >= len(args) {
				continue
			}
			value = args[i+1]
		}
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		values = append(values, value)
	}
	return values
}

// IncludeDirs returns include directories given by -I in args.
func IncludeDirs(args []string) []string {
	return FlagValues(args, IncludeFlag)
}

// Defines returns macro definitions given by -D in args,
// e.g. "FOO=1" for -DFOO=1 and "BAR" for -D BAR.
func Defines(args []string) []string {
	return FlagValues(args, DefineFlag)
}
