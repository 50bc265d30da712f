/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version reports the build version.
package version

import (
	"runtime/debug"
)

// Version is the current version of protoreg.
// This is set at build time via ldflags:
//
//	-X github.com/friendsincode/protoreg/internal/version.Version=X.Y.Z
var Version = "0.3.0"

// Commit is the source revision, set via ldflags or read from build info.
var Commit = ""

// String returns "<version>" or "<version> (<short commit>)".
func String() string {
	return format(Version, revision())
}

func revision() string {
	if Commit != "" {
		return Commit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}

func format(v, rev string) string {
	if rev == "" {
		return v
	}
	if len(rev) > 7 {
		rev = rev[:7]
	}
	return v + " (" + rev + ")"
}
