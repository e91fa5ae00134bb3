// Package version exposes build metadata of the catpoint binaries.
//
// Version, Commit and BuildTime are injected with -ldflags; Go module build
// info fills the commit and time when they are not.
package version
