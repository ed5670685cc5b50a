// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cflowutil

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.chromium.org/infra/build/arpa/o11y/diag"
)

func TestParseLine(t *testing.T) {
	for _, tc := range []struct {
		line    string
		want    Line
		wantErr bool
	}{
		{
			line: "foo()",
			want: Line{Name: "foo"},
		},
		{
			line: "foo() <at a.c:1>:",
			want: Line{Name: "foo", File: "a.c", Line: 1},
		},
		{
			line: "main() <int main (int argc, char **argv) at /src/main.c:85>:",
			want: Line{Name: "main", File: "/src/main.c", Line: 85},
		},
		{
			line: "    bar() <at b.c:5>:",
			want: Line{Depth: 1, Name: "bar", File: "b.c", Line: 5},
		},
		{
			line: "    baz() [see 2]",
			want: Line{Depth: 1, Name: "baz", Ref: 2},
		},
		{
			line: "        printdir() <void printdir (int level, char *name) at d.c:42> (R):",
			want: Line{Depth: 2, Name: "printdir", File: "d.c", Line: 42, Recursive: true},
		},
		{
			line: "            printdir() <void printdir (int level, char *name) at d.c:42> (R) [see 3]",
			want: Line{Depth: 3, Name: "printdir", File: "d.c", Line: 42, Recursive: true, Ref: 3},
		},
		{
			line: "    helper() <int helper (void) at /p/util.c:7> [see 12]",
			want: Line{Depth: 1, Name: "helper", File: "/p/util.c", Line: 7, Ref: 12},
		},
		{
			line: "    format_at() <int format_at (char *at, int n) at /p/f.c:3>:",
			want: Line{Depth: 1, Name: "format_at", File: "/p/f.c", Line: 3},
		},
		{
			line: "      odd() <at o.c:9>:",
			want: Line{Depth: 1, Name: "odd", File: "o.c", Line: 9},
		},
		{
			line: "__builtin_expect2()\r\n",
			want: Line{Name: "__builtin_expect2"},
		},
		{
			line: "        printdir() <void printdir (int level, char *name) at d.c:42> (recursive: see 2) [see 2]",
			want: Line{Depth: 2, Name: "printdir", File: "d.c", Line: 42, Recursive: true, Ref: 2},
		},
		{
			line: "    walk() <void walk (node *n) at t.c:5> (recursive: see 1)",
			want: Line{Depth: 1, Name: "walk", File: "t.c", Line: 5, Recursive: true, Ref: 1},
		},
		{
			line:    "",
			wantErr: true,
		},
		{
			line:    "    not a function",
			wantErr: true,
		},
		{
			line:    "foo <at a.c:1>:",
			wantErr: true,
		},
		{
			line:    "foo() <int foo (void)>:",
			wantErr: true,
		},
		{
			line:    "foo() <at a.c:x>:",
			wantErr: true,
		},
		{
			line:    "foo() [see ]",
			wantErr: true,
		},
		{
			line:    "foo() [see 4",
			wantErr: true,
		},
		{
			line:    "()",
			wantErr: true,
		},
		{
			line:    "    printf() extra",
			wantErr: true,
		},
		{
			line:    "foo() <at a.c:1> (recursive: see x) [see 2]",
			wantErr: true,
		},
		{
			line:    "foo() <at a.c:1> (recursive: see 2",
			wantErr: true,
		},
		{
			line:    "foo() <at a.c:1>: trailing",
			wantErr: true,
		},
	} {
		got, err := ParseLine(tc.line)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseLine(%q)=%#v, nil; want error", tc.line, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLine(%q)=_, %v; want nil error", tc.line, err)
			continue
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("ParseLine(%q) diff -want +got:\n%s", tc.line, diff)
		}
	}
}

func TestParse(t *testing.T) {
	for _, tc := range []struct {
		name         string
		input        string
		want         Graph
		wantWarnings int
	}{
		{
			name: "back-reference",
			input: `foo() <at a.c:1>:
    bar() <at b.c:5>:
    baz() [see 2]
`,
			want: Graph{
				"a.c": {
					"foo": {"bar": "b.c", "baz": ""},
				},
				"b.c": {
					"bar": {},
				},
			},
		},
		{
			name: "nested",
			input: `main() <int main (void) at m.c:3>:
    init() <void init (void) at m.c:10>:
        malloc()
        setup() <void setup (void) at s.c:1>:
            printf()
    run() <void run (void) at r.c:2>:
        setup() <void setup (void) at s.c:1> [see 4]
    printf()
cleanup() <void cleanup (void) at m.c:20>:
    free()
`,
			want: Graph{
				"m.c": {
					"main":    {"init": "m.c", "run": "r.c", "printf": ""},
					"init":    {"malloc": "", "setup": "s.c"},
					"cleanup": {"free": ""},
				},
				"r.c": {
					"run": {"setup": "s.c"},
				},
				"s.c": {
					"setup": {"printf": ""},
				},
			},
		},
		{
			name: "recursion",
			input: `walk() <void walk (node *n) at t.c:5> (R):
    visit() <void visit (node *n) at t.c:1>:
    walk() <void walk (node *n) at t.c:5> (R) [see 1]
`,
			want: Graph{
				"t.c": {
					"walk":  {"visit": "t.c", "walk": "t.c"},
					"visit": {},
				},
			},
		},
		{
			name: "recursive-call-in-own-subtree",
			input: `main() <int main (int argc, char **argv) at d.c:85>:
    printdir() <void printdir (int level, char *name) at d.c:42> (R):
        getcwd()
        opendir()
        printdir() <void printdir (int level, char *name) at d.c:42> (recursive: see 2) [see 2]
        closedir()
`,
			want: Graph{
				"d.c": {
					"main": {"printdir": "d.c"},
					"printdir": {
						"getcwd":   "",
						"opendir":  "",
						"printdir": "d.c",
						"closedir": "",
					},
				},
			},
		},
		{
			name: "trailing-text-not-registered",
			input: `foo() <at a.c:1>:
    bar()
    foo() <at a.c:1> (something new)
    baz()
`,
			want: Graph{
				"a.c": {
					"foo": {"bar": "", "baz": ""},
				},
			},
			wantWarnings: 1,
		},
		{
			name: "malformed-skipped",
			input: `foo() <at a.c:1>:
    ??? garbage
    bar()
`,
			want: Graph{
				"a.c": {
					"foo": {"bar": ""},
				},
			},
			wantWarnings: 1,
		},
		{
			name: "odd-indent",
			input: `foo() <at a.c:1>:
      bar()
`,
			want: Graph{
				"a.c": {
					"foo": {"bar": ""},
				},
			},
			wantWarnings: 1,
		},
		{
			name: "duplicate",
			input: `foo() <at a.c:1>:
    bar()
foo() <at a.c:1>:
    baz()
`,
			want: Graph{
				"a.c": {
					"foo": {"baz": ""},
				},
			},
			wantWarnings: 1,
		},
		{
			name: "blank-lines",
			input: `
foo() <at a.c:1>:

    bar()
`,
			want: Graph{
				"a.c": {
					"foo": {"bar": ""},
				},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var d diag.Diagnostics
			got, err := Parse(strings.NewReader(tc.input), &d)
			if err != nil {
				t.Fatalf("Parse=_, %v; want nil error", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Parse diff -want +got:\n%s", diff)
			}
			if n := d.Count(diag.Warning); n != tc.wantWarnings {
				t.Errorf("warnings=%d; want %d: %v", n, tc.wantWarnings, d.Entries())
			}
		})
	}
}

func TestParse_Error(t *testing.T) {
	for _, tc := range []struct {
		name  string
		input string
		want  error
	}{
		{
			name: "depth-jump",
			input: `foo() <at a.c:1>:
        bar()
`,
			want: ErrDepthJump,
		},
		{
			name: "first-line-indented",
			input: `    bar()
`,
			want: ErrDepthJump,
		},
		{
			name: "unknown-parent",
			input: `foo()
    bar()
`,
			want: ErrUnknownParent,
		},
		{
			name: "parent-is-reference",
			input: `foo() <at a.c:1>:
    bar() [see 9]
        baz()
`,
			want: ErrUnknownParent,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.input), nil)
			if !errors.Is(err, tc.want) {
				t.Errorf("Parse=_, %v; want %v", err, tc.want)
			}
		})
	}
}
