// Package main provides the entry point for pqcall-server.
//
// pqcall-server is the privacy-preserving call setup service: it issues
// QR scan tokens, routes calls between anonymous participants, and runs
// the secure signaling channel.
package main
