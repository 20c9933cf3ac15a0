// Package handler provides HTTP request handlers for pqcall.
//
// It implements the API endpoints for token issuance and validation,
// anonymous call routing, and signaling message exchange. Handler
// responses use a common JSON envelope and map domain error codes to
// HTTP status codes.
package handler
