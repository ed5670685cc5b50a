// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"runtime/debug"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGetApplication(t *testing.T) {
	var got []string
	for _, c := range getApplication().GetCommands() {
		got = append(got, c.Name())
	}
	want := []string{"build", "makefile", "print", "help", "version"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("commands diff -want +got:\n%s", diff)
	}
}

func TestVcsInfo(t *testing.T) {
	bi := &debug.BuildInfo{
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc"},
			{Key: "vcs.time", Value: "2024-05-01T00:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
			{Key: "GOOS", Value: "linux"},
		},
	}
	got := vcsInfo(bi)
	want := "vcs[revision=abc time=2024-05-01T00:00:00Z modified=true]"
	if got != want {
		t.Errorf("vcsInfo=%q; want %q", got, want)
	}
	if got, want := moduleInfo(nil), "<nil>"; got != want {
		t.Errorf("moduleInfo(nil)=%q; want %q", got, want)
	}
}
