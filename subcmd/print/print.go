// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package print is print subcommand to print build information of a file.
package print

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"

	"go.chromium.org/infra/build/arpa/builddb"
	"go.chromium.org/infra/build/arpa/subcmd/build"
)

const usage = `print build information of a source file.

 $ arpa print [-db internal_rep.json] <source file>

Prints the database entry of the file as JSON: its include
directories, defines and the functions it defines with their
callees.
`

// Cmd returns the Command for the `print` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "print [-db <file>] <source file>",
		ShortDesc: "print build information of a source file",
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
	w io.Writer

	dbPath string
}

func (c *run) init() {
	c.w = os.Stdout
	c.Flags.StringVar(&c.dbPath, "db", build.DefaultOutput, "path to the build database")
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
	if len(args) != 1 {
		return fmt.Errorf("want one source file: %w", flag.ErrHelp)
	}
	db, err := builddb.Load(c.dbPath)
	if err != nil {
		return err
	}
	file, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	e, ok := db.Entry(file)
	if !ok {
		return fmt.Errorf("%s not found in %s", file, c.dbPath)
	}
	buf, err := json.MarshalIndent(map[string]*builddb.FileEntry{file: e}, "", "    ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.w, "%s\n", buf)
	return err
}
