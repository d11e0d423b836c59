// Package httputil provides retry helpers for HTTP clients.
//
// Transient failures (network errors, 5xx responses) are wrapped with
// [RetryableError] so that [Retry] knows to attempt the operation again
// with exponential backoff. Errors that are not wrapped fail fast.
//
// Response caching lives in the cache package; httputil only concerns
// itself with making a single logical request succeed.
package httputil
