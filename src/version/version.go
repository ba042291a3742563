// Package version holds the build version, overridden at link time with
// -ldflags "-X zgit/src/version.Version=...".
package version

var Version = "0.3.0-dev"
