// Package http contains the HTTP handlers: the dataset upload endpoint that
// drives the correlation report, and the health endpoints. Handlers validate
// input and shape JSON; all computation lives in internal/services and below.
package http
