// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ui

import (
	"fmt"
	"strings"
	"time"
)

// FormatDuration formats d as "X.XXs", "XmXX.XXs" or "XhXmXX.XXs".
func FormatDuration(d time.Duration) string {
	d = d.Round(10 * time.Millisecond)
	mins := d.Truncate(time.Minute)
	secs := (d - mins).Seconds()
	if mins == 0 {
		return fmt.Sprintf("%.02fs", secs)
	}
	return fmt.Sprintf("%s%05.02fs", strings.TrimSuffix(mins.String(), "0s"), secs)
}
