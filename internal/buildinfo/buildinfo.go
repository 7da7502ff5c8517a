// Package buildinfo carries version metadata injected at link time:
//
//	go build -ldflags "-X github.com/dmitrijs2005/storysync/internal/buildinfo.Version=v1.2.0"
package buildinfo

import (
	"fmt"
	"io"
)

var (
	Version = "N/A"
	Date    = "N/A"
	Commit  = "N/A"
)

// String renders the build metadata in the same layout every binary prints
// on startup.
func String() string {
	return fmt.Sprintf("Build version: %s\nBuild date: %s\nBuild commit: %s", Version, Date, Commit)
}

// PrintBuildData writes String() followed by a newline to w.
func PrintBuildData(w io.Writer) {
	fmt.Fprintln(w, String())
}
