// Package cache contains the store adapters behind the result cache:
//   - memory: bounded in-process LRU, for single-instance use and tests
//   - redis: shared persistent store with TTL-based expiry
//
// Both satisfy the same ports.CacheStore contract.
package cache
