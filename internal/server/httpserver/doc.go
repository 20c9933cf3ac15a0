// Package httpserver provides the HTTP/HTTPS server for pqcall.
//
// It exposes a thin RESTful surface over the core services: token
// issuance and validation, anonymous call routing, and the secure
// signaling channel. Responses never contain user identifiers past the
// token endpoints.
package httpserver
