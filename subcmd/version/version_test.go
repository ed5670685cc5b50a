// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package version

import (
	"bytes"
	"runtime/debug"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPrintBuildInfo(t *testing.T) {
	bi := &debug.BuildInfo{
		GoVersion: "go1.24.2",
		Deps: []*debug.Module{
			{Path: "github.com/maruel/subcommands", Version: "v1.1.1"},
		},
		Settings: []debug.BuildSetting{
			{Key: "-trimpath", Value: "true"},
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.modified", Value: "false"},
		},
	}
	for _, tc := range []struct {
		deps bool
		want string
	}{
		{
			want: "go\tgo1.24.2\nbuild\tvcs.revision=abc123\nbuild\tvcs.modified=false\n",
		},
		{
			deps: true,
			want: "go\tgo1.24.2\nbuild\tvcs.revision=abc123\nbuild\tvcs.modified=false\ndep\tgithub.com/maruel/subcommands\tv1.1.1\n",
		},
	} {
		var buf bytes.Buffer
		c := &versionRun{w: &buf, deps: tc.deps}
		c.printBuildInfo(bi)
		if diff := cmp.Diff(tc.want, buf.String()); diff != "" {
			t.Errorf("printBuildInfo(deps=%t) diff -want +got:\n%s", tc.deps, diff)
		}
	}
}
