// Package cache memoizes processor outputs keyed by a hash of everything
// that affects output determinism: processor key, the canonical context
// slice actually sent, backend identity, and registry version.
//
// The cache is consulted after budget validation and fallback (so the key
// reflects the real payload) but before backend invocation; a hit skips
// the backend call entirely.
package cache
