// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "fmt"

const buildInfoUnknown = "N/A"

// AppBuildInfo is the build metadata injected with -ldflags. Empty values are
// reported as "N/A".
type AppBuildInfo struct {
	Version string
	Date    string
	Commit  string
}

// NewAppBuildInfo fills unset values with "N/A".
func NewAppBuildInfo(version, date, commit string) AppBuildInfo {
	orUnknown := func(s string) string {
		if s == "" {
			return buildInfoUnknown
		}
		return s
	}
	return AppBuildInfo{Version: orUnknown(version), Date: orUnknown(date), Commit: orUnknown(commit)}
}

// Known reports whether a real version was injected.
func (a AppBuildInfo) Known() bool {
	return a.Version != "" && a.Version != buildInfoUnknown
}

func (a AppBuildInfo) String() string {
	return fmt.Sprintf("Build version: %s\nBuild date: %s\nBuild commit: %s", a.Version, a.Date, a.Commit)
}
