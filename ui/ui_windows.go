// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ui

import (
	"os"

	"github.com/charmbracelet/log"
	"golang.org/x/sys/windows"
)

// savedMode is the console mode before Init changed it, 0 if unchanged.
var savedMode uint32

// Init lets the console interpret the "\r\033[K" line clearing of the
// terminal spinner. Nothing is changed when stdout is not a terminal.
func Init() {
	if _, ok := Default.(*TermUI); !ok {
		return
	}
	stdout := windows.Handle(os.Stdout.Fd())
	var mode uint32
	if err := windows.GetConsoleMode(stdout, &mode); err != nil {
		log.Debugf("console mode of stdout: %v", err)
		return
	}
	if mode&windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING != 0 {
		return
	}
	if err := windows.SetConsoleMode(stdout, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING); err != nil {
		// the spinner would print raw escapes.
		log.Debugf("enable virtual terminal processing: %v", err)
		Default = LogUI{}
		return
	}
	savedMode = mode
}

// Restore undoes Init.
func Restore() {
	if savedMode == 0 {
		return
	}
	if err := windows.SetConsoleMode(windows.Handle(os.Stdout.Fd()), savedMode); err != nil {
		log.Warnf("restore console mode 0x%x: %v", savedMode, err)
	}
	savedMode = 0
}
