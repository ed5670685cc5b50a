// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package build is build subcommand to generate the build database.
package build

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/system/signals"

	"go.chromium.org/infra/build/arpa/builddb"
	"go.chromium.org/infra/build/arpa/compdb"
	"go.chromium.org/infra/build/arpa/o11y/diag"
	"go.chromium.org/infra/build/arpa/toolsupport/cflowutil"
	"go.chromium.org/infra/build/arpa/ui"
)

// DefaultOutput is the default path of the build database.
const DefaultOutput = "internal_rep.json"

const usage = `generate the build database of a project.

 $ arpa build -cc compile_commands.json [-r <root>] [-jp internal_rep.json]

Reads include directories and defines of every file in the
compilation database, runs cflow over all .c and .h files
under the root directory, and writes the merged result as JSON.
The output is zstd compressed if its name ends with .zst.
`

// Cmd returns the Command for the `build` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "build -cc <compile_commands.json> [-r <dir>] [-jp <file>]",
		ShortDesc: "generate the build database",
		LongDesc:  usage,
		CommandRun: func() subcommands.CommandRun {
			c := &run{}
			c.init()
			return c
		},
	}
}

type excludeFlag []string

func (f *excludeFlag) String() string {
	return strings.Join(*f, ",")
}

func (f *excludeFlag) Set(v string) error {
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			*f = append(*f, p)
		}
	}
	return nil
}

type run struct {
	subcommands.CommandRunBase

	compdbPath   string
	rootDir      string
	jsonPath     string
	cflowPath    string
	exclude      excludeFlag
	gitignore    bool
	cflowTimeout time.Duration
}

func (c *run) init() {
	c.Flags.StringVar(&c.compdbPath, "cc", "", "path to compile_commands.json")
	c.Flags.StringVar(&c.rootDir, "r", ".", "root directory of the project under test")
	c.Flags.StringVar(&c.jsonPath, "jp", DefaultOutput, "output path of the build database")
	c.Flags.StringVar(&c.cflowPath, "cflow", cflowutil.DefaultCommand, "cflow executable")
	c.Flags.Var(&c.exclude, "exclude", "comma separated glob patterns of files to skip, relative to -r. e.g. third_party/**. can be repeated")
	c.Flags.BoolVar(&c.gitignore, "gitignore", false, "skip files ignored by .gitignore in -r")
	c.Flags.DurationVar(&c.cflowTimeout, "cflow_timeout", 0, "timeout of cflow. 0 means no timeout")
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
	if c.compdbPath == "" {
		return fmt.Errorf("-cc is required: %w", flag.ErrHelp)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer signals.HandleInterrupt(cancel)()

	started := time.Now()
	var d diag.Diagnostics
	defer d.Flush()
	db, err := Build(ctx, Options{
		Compdb: c.compdbPath,
		Cflow: cflowutil.Options{
			Command: c.cflowPath,
			Root:    c.rootDir,
			DiscoverOptions: cflowutil.DiscoverOptions{
				Exclude:   c.exclude,
				Gitignore: c.gitignore,
			},
			Timeout: c.cflowTimeout,
		},
	}, &d)
	if err != nil {
		return err
	}
	d.Flush()
	err = db.Check()
	if err != nil {
		return err
	}
	err = db.Save(c.jsonPath)
	if err != nil {
		return err
	}
	log.Infof("wrote %s: %d files in %s", c.jsonPath, len(db.Files), ui.FormatDuration(time.Since(started)))
	return nil
}

// Options configures Build.
type Options struct {
	// Compdb is the path of compile_commands.json.
	Compdb string

	// Cflow configures the call graph extraction. Cflow.Root is the
	// project root.
	Cflow cflowutil.Options
}

// Build builds the database of the project rooted at opts.Cflow.Root.
// Files of the compilation database other than .c and .h files are
// skipped with a warning.
func Build(ctx context.Context, opts Options, d *diag.Diagnostics) (*builddb.DB, error) {
	root, err := filepath.Abs(opts.Cflow.Root)
	if err != nil {
		return nil, err
	}
	opts.Cflow.Root = root
	idx, err := compdb.Load(ctx, opts.Compdb, d)
	if err != nil {
		return nil, err
	}
	db := builddb.New(root)
	for _, file := range idx.Files() {
		switch filepath.Ext(file) {
		case ".c", ".h":
		default:
			d.Warningf("skip %s: not a .c or .h file", file)
			continue
		}
		includes, err := idx.Includes(file)
		if err != nil {
			return nil, err
		}
		defines, err := idx.Defines(file)
		if err != nil {
			return nil, err
		}
		db.AddIncludes(file, includes)
		db.AddDefines(file, defines)
	}
	log.Infof("%s: %d source files", opts.Compdb, len(db.Files))

	sp := ui.Default.NewSpinner()
	sp.Start("running cflow in %s", root)
	graph, err := cflowutil.Run(ctx, opts.Cflow, d)
	if err != nil {
		sp.Stop(err)
		return nil, err
	}
	sp.Done("%d files with functions", len(graph))
	err = db.MergeFunctions(graph, d)
	if err != nil {
		return nil, err
	}
	return db, nil
}
