// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Arpa builds the call graph and build flags of a C project and
// generates Makefile fragments for proof harnesses.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"

	"go.chromium.org/infra/build/arpa/subcmd/build"
	"go.chromium.org/infra/build/arpa/subcmd/help"
	"go.chromium.org/infra/build/arpa/subcmd/makefile"
	printcmd "go.chromium.org/infra/build/arpa/subcmd/print"
	"go.chromium.org/infra/build/arpa/subcmd/version"
	"go.chromium.org/infra/build/arpa/ui"
)

const versionStr = "arpa v0.1.0"

func getApplication() *cli.Application {
	return &cli.Application{
		Name:  "arpa",
		Title: "build information assistant for proof harnesses",
		Commands: []*subcommands.Command{
			build.Cmd(),
			makefile.Cmd(),
			printcmd.Cmd(),

			help.Cmd(),
			version.Cmd(versionStr),
		},
	}
}

func main() {
	os.Exit(arpaMain(os.Args[1:]))
}

func arpaMain(args []string) int {
	fs := flag.CommandLine
	logLevel := fs.String("log_level", "info", "log level. debug, info, warn or error")
	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(out, "global flags:\n")
		fs.PrintDefaults()
	}
	err := fs.Parse(args)
	if err != nil {
		return 2
	}
	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: -log_level: %v\n", err)
		return 2
	}
	log.SetLevel(level)
	ui.Init()
	defer ui.Restore()

	// Print a stack trace when a panic occurs.
	defer func() {
		if r := recover(); r != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			log.Fatalf("panic: %v\n%s", r, buf)
		}
	}()

	buildinfo, ok := debug.ReadBuildInfo()
	if ok {
		log.Debugf("main module: %s %s", moduleInfo(&buildinfo.Main), vcsInfo(buildinfo))
	}
	return subcommands.Run(getApplication(), fs.Args())
}

func moduleInfo(m *debug.Module) string {
	if m == nil {
		return "<nil>"
	}
	return fmt.Sprintf("path:%s version:%s sum:%s replace:%s", m.Path, m.Version, m.Sum, moduleInfo(m.Replace))
}

func vcsInfo(buildinfo *debug.BuildInfo) string {
	m := make(map[string]string)
	for _, bs := range buildinfo.Settings {
		if strings.HasPrefix(bs.Key, "vcs.") {
			m[bs.Key] = bs.Value
		}
	}
	return fmt.Sprintf("vcs[revision=%s time=%s modified=%s]", m["vcs.revision"], m["vcs.time"], m["vcs.modified"])
}
