// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cflowutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.chromium.org/infra/build/arpa/o11y/diag"
)

func TestArgs(t *testing.T) {
	got := Args([]string{"/src/a.c", "/src/a.h"}, "/tmp/out")
	want := []string{"/src/a.c", "/src/a.h", "-A", "--no-main", "-o/tmp/out", "--brief"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Args diff -want +got:\n%s", diff)
	}
}

// fakeCflow writes a shell script that behaves like cflow: it writes
// output to the file given by -o and stderr to its stderr, then exits with code.
func fakeCflow(t *testing.T, output, stderr string, code int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	dir := t.TempDir()
	outFile := filepath.Join(dir, "output.txt")
	err := os.WriteFile(outFile, []byte(output), 0644)
	if err != nil {
		t.Fatal(err)
	}
	script := `#!/bin/sh
for arg in "$@"; do
  case "$arg" in
    -o*) out="${arg#-o}" ;;
  esac
done
cp '` + outFile + `' "$out"
`
	if stderr != "" {
		script += "printf '%s\\n' '" + stderr + "' >&2\n"
	}
	script += fmt.Sprintf("exit %d\n", code)
	p := filepath.Join(dir, "cflow")
	err = os.WriteFile(p, []byte(script), 0755)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	root := setupTree(t, map[string]string{
		"a.c": "",
		"b.c": "",
	})
	a := filepath.Join(root, "a.c")
	b := filepath.Join(root, "b.c")
	output := strings.Join([]string{
		"foo() <int foo (void) at " + a + ":1>:",
		"    bar() <int bar (void) at " + b + ":5>:",
		"        printf()",
		"    baz() [see 2]",
		"",
	}, "\n")
	command := fakeCflow(t, output, "cflow: a.c:3: warning: something", 0)

	var d diag.Diagnostics
	got, err := Run(ctx, Options{Command: command, Root: root}, &d)
	if err != nil {
		t.Fatalf("Run=_, %v; want nil error", err)
	}
	want := Graph{
		a: {"foo": {"bar": b, "baz": ""}},
		b: {"bar": {"printf": ""}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Run diff -want +got:\n%s", diff)
	}
	wantDiag := []diag.Entry{
		{Severity: diag.Warning, Message: "cflow stderr > cflow: a.c:3: warning: something"},
	}
	if diff := cmp.Diff(wantDiag, d.Entries()); diff != "" {
		t.Errorf("diagnostics diff -want +got:\n%s", diff)
	}
}

func TestRun_Failure(t *testing.T) {
	ctx := context.Background()
	root := setupTree(t, map[string]string{"a.c": ""})
	command := fakeCflow(t, "", "cflow: fatal", 1)
	_, err := Run(ctx, Options{Command: command, Root: root}, nil)
	if err == nil {
		t.Errorf("Run=_, nil; want error")
	}
}

func TestRun_NoSources(t *testing.T) {
	ctx := context.Background()
	root := setupTree(t, map[string]string{"README": ""})
	_, err := Run(ctx, Options{Command: "cflow", Root: root}, nil)
	if err == nil {
		t.Errorf("Run=_, nil; want error")
	}
}
