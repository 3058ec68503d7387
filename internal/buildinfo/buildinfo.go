// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package buildinfo

import (
	"fmt"
	"runtime"
)

var (
	Version = "dev"
	Commit  = ""
	Date    = ""

	UserAgent string
)

func init() {
	UserAgent = fmt.Sprintf("mircrewrr/%s (%s %s)", Version, runtime.GOOS, runtime.GOARCH)
}

// String returns the build information in a human readable form.
func String() string {
	return fmt.Sprintf("Version: %s\nCommit: %s\nBuild date: %s\n", Version, Commit, Date)
}
