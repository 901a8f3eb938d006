// Package ratelimit coordinates request admission for the compute
// service with per-route token buckets.
//
// Limits are applied from configuration at startup and can be replaced
// at runtime through Configure, which the server's config reload path
// uses for zero-downtime limit changes. Routes without a configured
// bucket are always allowed.
package ratelimit
