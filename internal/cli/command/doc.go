// Package command provides CLI command definitions for pqcall-cli.
//
// It uses urfave/cli/v2 for command parsing. Token inspection commands
// work offline on a scanned QR payload; the remaining commands talk to
// a running pqcall-server over its HTTP API.
package command
