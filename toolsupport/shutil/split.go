// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package shutil provides utilities for shell command lines.
package shutil

import (
	"errors"
	"strings"
	"unicode"
)

var (
	errUnterminatedQuote = errors.New("unterminated quote")
	errTrailingEscape    = errors.New("trailing backslash")
)

// Fields splits a recorded compiler command line on whitespace.
// Single and double quotes group words, and a backslash escapes the next
// character, so `-DNAME="a b"` stays one argument `-DNAME=a b`.
// Unlike a shell, metacharacters have no special meaning.
func Fields(cmdline string) ([]string, error) {
	var args []string
	var sb strings.Builder
	inArg := false
	var quote rune
	escaped := false
	for _, ch := range cmdline {
		if escaped {
			sb.WriteRune(ch)
			escaped = false
			continue
		}
		switch quote {
		case '\'':
			if ch == '\'' {
				quote = 0
				continue
			}
			sb.WriteRune(ch)
			continue
		case '"':
			switch ch {
			case '"':
				quote = 0
			case '\\':
				escaped = true
			default:
				sb.WriteRune(ch)
			}
			continue
		}
		switch {
		case ch == '\\':
			inArg = true
			escaped = true
		case ch == '"' || ch == '\'':
			inArg = true
			quote = ch
		case unicode.IsSpace(ch):
			if inArg {
				args = append(args, sb.String())
				sb.Reset()
				inArg = false
			}
		default:
			inArg = true
			sb.WriteRune(ch)
		}
	}
	switch {
	case quote != 0:
		return nil, errUnterminatedQuote
	case escaped:
		return nil, errTrailingEscape
	}
	if inArg {
		args = append(args, sb.String())
	}
	return args, nil
}
