// Package main provides the entry point for pqcall-cli.
//
// pqcall-cli is the command-line management tool for pqcall: it
// inspects QR payloads offline and drives a running server's token and
// call APIs.
package main
