// Package httpserver provides a graceful net/http server wrapper with
// env-driven configuration and a JSON health endpoint composed from
// per-component report blocks.
package httpserver
