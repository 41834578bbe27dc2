package main

import (
	"runtime/debug"
	"strings"
)

// Overridden at release time via -ldflags "-X main.version=vX.Y.Z".
var version = "dev"

var readBuildInfo = debug.ReadBuildInfo

// currentVersion reports the running binary's version. Builds installed
// with `go install module@version` carry the version in build info even
// when the ldflags default was never set.
func currentVersion() string {
	if v := strings.TrimSpace(version); v != "" && v != "dev" {
		return v
	}
	if v, ok := versionFromBuildInfo(); ok {
		return v
	}
	return "dev"
}

func versionFromBuildInfo() (string, bool) {
	info, ok := readBuildInfo()
	if !ok || info == nil {
		return "", false
	}
	v := strings.TrimSpace(info.Main.Version)
	if v == "" || v == "(devel)" {
		return "", false
	}
	return v, true
}
