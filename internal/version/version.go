// SPDX-License-Identifier: Apache-2.0

// Package version holds build identity, overridable at link time.
package version

var (
	// Version is the release version, set via -ldflags at build time.
	Version = "2.0.0-dev"

	// Commit is the VCS revision the binary was built from.
	Commit = "unknown"
)
