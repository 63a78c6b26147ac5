// Package version provides the version string reported by both
// qvm-remote and qvm-remote-dom0.
package version

// Version is the current release version.
// This is a var (not const) so ldflags -X can override it at build time.
var Version = "dev"

// UserAgent is the short identifier both binaries put in every audit
// log line, distinguishing this tool's entries from anything else
// appending to the same file.
const UserAgent = "qvm-remote"
