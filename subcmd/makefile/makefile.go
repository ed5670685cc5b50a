// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package makefile is makefile subcommand to generate a Makefile fragment
// for a proof harness.
package makefile

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/system/signals"

	"go.chromium.org/infra/build/arpa/builddb"
	"go.chromium.org/infra/build/arpa/makefile"
	"go.chromium.org/infra/build/arpa/o11y/diag"
	"go.chromium.org/infra/build/arpa/resolve"
	"go.chromium.org/infra/build/arpa/subcmd/build"
	"go.chromium.org/infra/build/arpa/toolsupport/cflowutil"
)

const usage = `generate a Makefile fragment for a proof harness.

 $ arpa makefile -cc compile_commands.json -r <root> [-file <harness>]
 $ arpa makefile -db internal_rep.json [-file <harness>]

Without -file, the only *_harness.c file in the current directory
is used. The fragment assigns the defines, include directories and
sources needed by the harness and every function it transitively
calls. Calls whose defining file is unknown are listed as comments.

Paths are rewritten by rules: paths under the proof source (-msrp)
and proof stub (-mstp) directories are proof sources, paths under
the project root (-mrp) are project sources. -rules reads the rules
from a YAML file instead. Relative roots are relative to -r.
`

// Cmd returns the Command for the `makefile` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "makefile (-cc <compile_commands.json> -r <dir> | -db <file>) [-file <harness>] [-sp <file>]",
		ShortDesc: "generate a Makefile fragment for a proof harness",
		LongDesc:  usage,
		CommandRun: func() subcommands.CommandRun {
			c := &run{}
			c.init()
			return c
		},
	}
}

type run struct {
	subcommands.CommandRunBase

	compdbPath string
	rootDir    string
	dbPath     string
	cflowPath  string

	harness  string
	savePath string

	vars            makefile.Variables
	changeExtension string
	maxDepth        int

	rootVar         string
	rootPath        string
	proofSourceVar  string
	proofSourcePath string
	proofStubVar    string
	proofStubPath   string
	rulesPath       string
}

func (c *run) init() {
	defaults := makefile.DefaultVariables()
	c.Flags.StringVar(&c.compdbPath, "cc", "", "path to compile_commands.json. builds the database on the fly")
	c.Flags.StringVar(&c.rootDir, "r", "", "root directory of the project under test")
	c.Flags.StringVar(&c.dbPath, "db", "", "path to a database written by arpa build. used instead of -cc")
	c.Flags.StringVar(&c.cflowPath, "cflow", cflowutil.DefaultCommand, "cflow executable, with -cc")

	c.Flags.StringVar(&c.harness, "file", "", "harness file. default to the only *_harness.c in the current directory")
	c.Flags.StringVar(&c.savePath, "sp", "", "output path. default to "+makefile.DefaultName+" next to the harness")

	c.Flags.StringVar(&c.vars.Defines, "def", defaults.Defines, "make variable for defines")
	c.Flags.StringVar(&c.vars.Includes, "inc", defaults.Includes, "make variable for include directories")
	c.Flags.StringVar(&c.vars.ProjectSources, "mproj", defaults.ProjectSources, "make variable for project sources")
	c.Flags.StringVar(&c.vars.ProofSources, "mproo", defaults.ProofSources, "make variable for proof sources")
	c.Flags.StringVar(&c.changeExtension, "ext", "", "replace the extension of dependencies, e.g. h")
	c.Flags.IntVar(&c.maxDepth, "max_depth", 0, "max length of followed call chains. 0 means unlimited")

	c.Flags.StringVar(&c.rootVar, "mrv", "SRCDIR", "make variable for the project root directory")
	c.Flags.StringVar(&c.rootPath, "mrp", "", "project root directory. default to -r")
	c.Flags.StringVar(&c.proofSourceVar, "msrv", "PROOF_SOURCE", "make variable for the proof sources directory")
	c.Flags.StringVar(&c.proofSourcePath, "msrp", "tests/cbmc/sources", "proof sources directory")
	c.Flags.StringVar(&c.proofStubVar, "mstv", "PROOF_STUB", "make variable for the proof stubs directory")
	c.Flags.StringVar(&c.proofStubPath, "mstp", "tests/cbmc/stubs", "proof stubs directory")
	c.Flags.StringVar(&c.rulesPath, "rules", "", "YAML file of path rules. overrides -mrv, -mrp, -msrv, -msrp, -mstv and -mstp")
}

func (c *run) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, c, env)
	err := c.run(ctx, args)
	if err != nil {
		switch {
		case errors.Is(err, flag.ErrHelp):
			fmt.Fprintf(os.Stderr, "%v\n%s\n", err, usage)
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func (c *run) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("position arguments not expected: %w", flag.ErrHelp)
	}
	switch {
	case c.dbPath != "" && c.compdbPath != "":
		return fmt.Errorf("-db and -cc are exclusive: %w", flag.ErrHelp)
	case c.dbPath == "" && c.compdbPath == "":
		return fmt.Errorf("-db or -cc is required: %w", flag.ErrHelp)
	case c.compdbPath != "" && c.rootDir == "":
		return fmt.Errorf("-r is required with -cc: %w", flag.ErrHelp)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer signals.HandleInterrupt(cancel)()

	var d diag.Diagnostics
	defer d.Flush()

	harness, err := c.harnessPath()
	if err != nil {
		return err
	}
	db, err := c.loadDB(ctx, &d)
	if err != nil {
		return err
	}
	d.Flush()
	err = db.Check()
	if err != nil {
		return err
	}
	rootDir := c.rootDir
	if rootDir == "" {
		rootDir = db.Root
	}
	rootDir, err = filepath.Abs(rootDir)
	if err != nil {
		return err
	}
	rules, err := c.rules(rootDir)
	if err != nil {
		return err
	}
	lines, err := Generate(db, harness, rules, c.vars, resolve.Options{
		ChangeExtension: c.changeExtension,
		MaxDepth:        c.maxDepth,
		Diag:            &d,
	})
	if err != nil {
		return err
	}
	savePath := c.savePath
	if savePath == "" {
		savePath = filepath.Join(filepath.Dir(harness), makefile.DefaultName)
	}
	err = makefile.Write(savePath, lines)
	if err != nil {
		return err
	}
	savePath, err = filepath.Abs(savePath)
	if err != nil {
		return err
	}
	log.Infof("created Makefile at %s", savePath)
	return nil
}

func (c *run) harnessPath() (string, error) {
	if c.harness == "" {
		return makefile.FindHarness(".")
	}
	harness, err := filepath.Abs(c.harness)
	if err != nil {
		return "", err
	}
	_, err = os.Stat(harness)
	if err != nil {
		return "", fmt.Errorf("harness: %w", err)
	}
	return harness, nil
}

func (c *run) loadDB(ctx context.Context, d *diag.Diagnostics) (*builddb.DB, error) {
	if c.dbPath != "" {
		return builddb.Load(c.dbPath)
	}
	return build.Build(ctx, build.Options{
		Compdb: c.compdbPath,
		Cflow: cflowutil.Options{
			Command: c.cflowPath,
			Root:    c.rootDir,
		},
	}, d)
}

func (c *run) rules(rootDir string) ([]makefile.Rule, error) {
	if c.rulesPath != "" {
		rules, err := makefile.LoadRules(c.rulesPath)
		if err != nil {
			return nil, err
		}
		return makefile.AbsRules(rules, rootDir), nil
	}
	rootPath := c.rootPath
	if rootPath == "" {
		rootPath = rootDir
	}
	return makefile.AbsRules([]makefile.Rule{
		{Category: makefile.Proof, Root: c.proofSourcePath, Variable: c.proofSourceVar},
		{Category: makefile.Proof, Root: c.proofStubPath, Variable: c.proofStubVar},
		{Category: makefile.Project, Root: rootPath, Variable: c.rootVar},
	}, rootDir), nil
}

// Generate resolves the closure of harness in db and renders it.
func Generate(db *builddb.DB, harness string, rules []makefile.Rule, vars makefile.Variables, opts resolve.Options) ([]string, error) {
	set, err := resolve.Resolve(db, harness, nil, opts)
	if err != nil {
		return nil, fmt.Errorf("%w. try rebuilding the database", err)
	}
	log.Infof("%s: %d dependencies, %d callers with unknown callees", harness, len(set.Dependencies), len(set.Missing))
	return makefile.Render(makefile.Prepare(set, rules), vars), nil
}
