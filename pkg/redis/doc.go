// Package redis provides connection helpers for the shared counter store.
//
// It wraps the go-redis client with a retrying Connect, an eager NewClient
// for callers that handle availability themselves, a readiness Healthcheck,
// and ServerInfo for the metadata block the health endpoint reports.
//
// Configuration is described by Config, populated from environment variables
// via github.com/caarlos0/env.
package redis
