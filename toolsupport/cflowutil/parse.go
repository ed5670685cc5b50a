// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cflowutil

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"go.chromium.org/infra/build/arpa/o11y/diag"
)

// IndentWidth is the number of spaces per depth level in cflow output.
const IndentWidth = 4

var (
	// ErrDepthJump is returned when a line is nested more than one level
	// deeper than its predecessor.
	ErrDepthJump = errors.New("jump in depth")

	// ErrUnknownParent is returned when a call is attributed to a caller
	// whose defining file has not been seen.
	ErrUnknownParent = errors.New("parent not found in cflow output")

	errMalformed = errors.New("malformed cflow line")
)

// Graph maps file -> function defined in file -> called function -> file
// defining the called function. The defining file is "" when cflow could
// not determine it.
type Graph map[string]map[string]map[string]string

// Line is a parsed line of cflow brief output, e.g.
//
//	    foo() <int foo (void) at src/foo.c:12> (R): [see 3]
type Line struct {
	Depth     int
	Name      string
	File      string
	Line      int
	Recursive bool
	// Ref is N of "[see N]" or "(recursive: see N)", 0 if the line
	// isn't a back-reference.
	Ref int
}

// IsRef reports whether the line refers to a function expanded elsewhere.
func (l Line) IsRef() bool {
	return l.Ref > 0
}

// ParseLine parses a line of cflow brief output.
// Leading spaces give the depth; indentation that is not a multiple of
// IndentWidth is rounded down.
func ParseLine(s string) (Line, error) {
	s = strings.TrimRight(s, "\r\n")
	spaces := len(s) - len(strings.TrimLeft(s, " "))
	l := Line{Depth: spaces / IndentWidth}
	sc := lineScanner{s: strings.TrimSpace(s)}

	l.Name = sc.ident()
	if l.Name == "" {
		return l, fmt.Errorf("%w: no function name: %q", errMalformed, s)
	}
	if !sc.consume("()") {
		return l, fmt.Errorf("%w: no () after %s: %q", errMalformed, l.Name, s)
	}
	if sc.consume(" <") {
		file, line, ok := sc.location()
		if !ok {
			return l, fmt.Errorf("%w: bad location: %q", errMalformed, s)
		}
		l.File, l.Line = file, line
	}
	switch {
	case sc.consume(" (R)"):
		l.Recursive = true
	case sc.consume(" (recursive: see "):
		// a recursive call inside the function's own subtree.
		n, ok := sc.number()
		if !ok || n == 0 || !sc.consume(")") {
			return l, fmt.Errorf("%w: bad recursion marker: %q", errMalformed, s)
		}
		l.Recursive = true
		l.Ref = n
	}
	sc.consume(":")
	if sc.consume(" [see ") {
		n, ok := sc.number()
		if !ok || n == 0 || !sc.consume("]") {
			return l, fmt.Errorf("%w: bad back-reference: %q", errMalformed, s)
		}
		l.Ref = n
	}
	if rest := sc.rest(); rest != "" {
		return l, fmt.Errorf("%w: unexpected %q: %q", errMalformed, rest, s)
	}
	return l, nil
}

type lineScanner struct {
	s   string
	pos int
}

func (sc *lineScanner) rest() string {
	return sc.s[sc.pos:]
}

func (sc *lineScanner) consume(prefix string) bool {
	if !strings.HasPrefix(sc.rest(), prefix) {
		return false
	}
	sc.pos += len(prefix)
	return true
}

func (sc *lineScanner) ident() string {
	start := sc.pos
	for i, r := range sc.rest() {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			sc.pos = start + i
			return sc.s[start:sc.pos]
		}
	}
	sc.pos = len(sc.s)
	return sc.s[start:]
}

func (sc *lineScanner) number() (int, bool) {
	rest := sc.rest()
	i := strings.IndexFunc(rest, func(r rune) bool { return r < '0' || r > '9' })
	if i < 0 {
		i = len(rest)
	}
	if i == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(rest[:i])
	if err != nil {
		return 0, false
	}
	sc.pos += i
	return n, true
}

// location scans "<signature> at <file>:<line>>" after " <".
// The signature may be omitted ("at a.c:1>").
func (sc *lineScanner) location() (string, int, bool) {
	rest := sc.rest()
	// the location ends at the first '>' preceded by ":<digits>".
	end := -1
	for i := 0; i < len(rest); i++ {
		if rest[i] != '>' {
			continue
		}
		j := i
		for j > 0 && rest[j-1] >= '0' && rest[j-1] <= '9' {
			j--
		}
		if j < i && j > 0 && rest[j-1] == ':' {
			end = i
			break
		}
	}
	if end < 0 {
		return "", 0, false
	}
	loc := rest[:end]
	var fileLine string
	switch {
	case strings.HasPrefix(loc, "at "):
		fileLine = strings.TrimPrefix(loc, "at ")
	default:
		i := strings.LastIndex(loc, " at ")
		if i < 0 {
			return "", 0, false
		}
		fileLine = loc[i+len(" at "):]
	}
	colon := strings.LastIndexByte(fileLine, ':')
	file := fileLine[:colon]
	line, err := strconv.Atoi(fileLine[colon+1:])
	if err != nil || file == "" {
		return "", 0, false
	}
	sc.pos += end + 1
	return file, line, true
}

type node struct {
	name string
	file string
}

// Parser builds a Graph from cflow brief output.
// It keeps the function active at each depth to attribute calls.
type Parser struct {
	graph  Graph
	stack  []node
	lineno int
	diag   *diag.Diagnostics
}

// NewParser creates a parser reporting recoverable conditions to d.
func NewParser(d *diag.Diagnostics) *Parser {
	return &Parser{
		graph: make(Graph),
		diag:  d,
	}
}

// Parse parses cflow brief output read from r.
func Parse(r io.Reader, d *diag.Diagnostics) (Graph, error) {
	p := NewParser(d)
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for s.Scan() {
		err := p.ParseLine(s.Text())
		if err != nil {
			return nil, err
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return p.Graph(), nil
}

// Graph returns the graph parsed so far.
func (p *Parser) Graph() Graph {
	return p.graph
}

// ParseLine feeds a line to the parser.
// Malformed lines are reported and skipped. A depth jump or a call from an
// unknown caller is an error.
func (p *Parser) ParseLine(s string) error {
	p.lineno++
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if spaces := len(s) - len(strings.TrimLeft(s, " ")); spaces%IndentWidth != 0 {
		p.diag.Warningf("cflow line %d has %d leading spaces: %q", p.lineno, spaces, s)
	}
	l, err := ParseLine(s)
	if err != nil {
		p.diag.Warningf("cflow line %d: %v", p.lineno, err)
		return nil
	}

	if l.File != "" && !l.IsRef() {
		p.define(l.File, l.Name)
	}

	cur := node{name: l.Name, file: l.File}
	switch h := len(p.stack); {
	case l.Depth < h-1:
		p.stack = p.stack[:l.Depth+1]
		p.stack[l.Depth] = cur
	case l.Depth == h-1:
		p.stack[l.Depth] = cur
	case l.Depth == h:
		p.stack = append(p.stack, cur)
	default:
		return fmt.Errorf("cflow line %d: %w: depth %d after depth %d", p.lineno, ErrDepthJump, l.Depth, h-1)
	}

	if l.Depth == 0 {
		return nil
	}
	parent := p.stack[l.Depth-1]
	calls, ok := p.graph[parent.file][parent.name]
	if !ok {
		return fmt.Errorf("cflow line %d: %w: file %q of %s calling %s", p.lineno, ErrUnknownParent, parent.file, parent.name, l.Name)
	}
	calls[l.Name] = l.File
	return nil
}

func (p *Parser) define(file, name string) {
	funcs, ok := p.graph[file]
	if !ok {
		funcs = make(map[string]map[string]string)
		p.graph[file] = funcs
	}
	if _, ok := funcs[name]; ok {
		p.diag.Warningf("cflow line %d: duplicate entry for %s in %s", p.lineno, name, file)
	}
	funcs[name] = make(map[string]string)
}
