// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package diag collects recoverable conditions reported by arpa components.
//
// Components record into a *Diagnostics instead of logging directly, so
// callers decide how and when to surface them. A nil *Diagnostics discards
// everything.
package diag

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// Severity is a severity of an entry.
type Severity int

const (
	Debug Severity = iota
	Info
	Warning
)

func (s Severity) String() string {
	switch s {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warning:
		return "warning"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Entry is a single recorded condition.
type Entry struct {
	Severity Severity
	Message  string
}

// Diagnostics accumulates entries in the order they were reported.
type Diagnostics struct {
	entries []Entry
}

func (d *Diagnostics) add(s Severity, format string, args ...any) {
	if d == nil {
		return
	}
	d.entries = append(d.entries, Entry{Severity: s, Message: fmt.Sprintf(format, args...)})
}

// Debugf records a debug entry.
func (d *Diagnostics) Debugf(format string, args ...any) { d.add(Debug, format, args...) }

// Infof records an info entry.
func (d *Diagnostics) Infof(format string, args ...any) { d.add(Info, format, args...) }

// Warningf records a warning entry.
func (d *Diagnostics) Warningf(format string, args ...any) { d.add(Warning, format, args...) }

// Entries returns all entries.
func (d *Diagnostics) Entries() []Entry {
	if d == nil {
		return nil
	}
	return d.entries
}

// Count returns number of entries with severity s.
func (d *Diagnostics) Count(s Severity) int {
	n := 0
	for _, e := range d.Entries() {
		if e.Severity == s {
			n++
		}
	}
	return n
}

// Flush writes all entries to the default logger and clears them.
func (d *Diagnostics) Flush() {
	if d == nil {
		return
	}
	for _, e := range d.entries {
		switch e.Severity {
		case Debug:
			log.Debug(e.Message)
		case Info:
			log.Info(e.Message)
		default:
			log.Warn(e.Message)
		}
	}
	d.entries = nil
}
