// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package cflowutil provides utilities for GNU cflow.
//
// It runs cflow over a source tree and parses its brief output into a
// per-file call graph.
package cflowutil

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"go.chromium.org/infra/build/arpa/o11y/diag"
	"go.chromium.org/infra/build/arpa/toolsupport/shutil"
)

// DefaultCommand is the cflow executable.
const DefaultCommand = "cflow"

// Options configures a cflow run.
type Options struct {
	// Command is the cflow executable. Default to DefaultCommand.
	Command string

	// Root is the directory to analyze.
	Root string

	DiscoverOptions

	// Timeout bounds the cflow run. Zero means no timeout.
	Timeout time.Duration
}

// Args returns cflow args that write brief output of all functions
// in files to out.
func Args(files []string, out string) []string {
	args := append([]string(nil), files...)
	return append(args, "-A", "--no-main", "-o"+out, "--brief")
}

// Run runs cflow over all source files under opts.Root and returns the
// parsed call graph.
// Each line cflow writes to stderr is reported as a warning. A non-zero
// exit status is an error.
func Run(ctx context.Context, opts Options, d *diag.Diagnostics) (Graph, error) {
	files, err := SourceFiles(opts.Root, opts.DiscoverOptions)
	if err != nil {
		return nil, fmt.Errorf("find sources in %s: %w", opts.Root, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .c or .h files in %s", opts.Root)
	}
	command := opts.Command
	if command == "" {
		command = DefaultCommand
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	out := filepath.Join(os.TempDir(), fmt.Sprintf("arpa-cflow-%s.out", uuid.New()))
	defer os.Remove(out)

	args := Args(files, out)
	log.Debugf("run %s", shutil.Join(append([]string{command}, args...)))
	started := time.Now()
	err = run(ctx, exec.CommandContext(ctx, command, args...), d)
	if err != nil {
		return nil, err
	}
	log.Debugf("cflow analyzed %d files in %s", len(files), time.Since(started))

	f, err := os.Open(out)
	if err != nil {
		return nil, fmt.Errorf("cflow output: %w", err)
	}
	defer f.Close()
	return Parse(f, d)
}

func run(ctx context.Context, cmd *exec.Cmd, d *diag.Diagnostics) error {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}
	err = cmd.Start()
	if err != nil {
		return fmt.Errorf("start cflow: %w", err)
	}
	// cmd.Wait closes the pipes, so drain them first.
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(io.Discard, stdout)
		return err
	})
	g.Go(func() error {
		s := bufio.NewScanner(stderr)
		for s.Scan() {
			msg := strings.TrimSpace(s.Text())
			if msg == "" {
				continue
			}
			d.Warningf("cflow stderr > %s", msg)
		}
		return s.Err()
	})
	drainErr := g.Wait()
	err = cmd.Wait()
	var exitErr *exec.ExitError
	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("cflow: %w", ctx.Err())
	case errors.As(err, &exitErr):
		return fmt.Errorf("cflow failed with exit status %d", exitErr.ExitCode())
	case err != nil:
		return fmt.Errorf("cflow: %w", err)
	case drainErr != nil:
		return fmt.Errorf("cflow output: %w", drainErr)
	}
	return nil
}
