// Package clientip extracts the client IP address from HTTP requests behind
// proxies and CDNs. The result feeds rate limit key derivation, so the
// extraction is deterministic and normalizes equivalent representations of
// the same address.
package clientip
