// Package cache provides caching interfaces and key serialization for query
// result caching.
//
// # Overview
//
// This package exports two main interfaces and their default implementations:
//
//   - CacheService: A generic caching interface for read-through operations
//   - KeySerializer: Builds stable cache keys from statement names and arguments
//
// The querycache package builds its named regions on CacheService; the
// bunsession package uses KeySerializer to derive keys from SQL statements
// and their bound arguments.
//
// # Basic Usage
//
//	serializer := cache.NewDefaultKeySerializer()
//	key := serializer.SerializeKey("SELECT * FROM users WHERE id = ?", "user-123")
//
//	result, err := cache.GetOrFetch(ctx, cacheService, key, func(ctx context.Context) ([]User, error) {
//		return loadUsers(ctx)
//	})
//
// # Key Serialization Strategy
//
// The default key serializer uses reflection to handle various Go types:
//
//   - Function pointers: Uses %p formatting for stability within a process
//   - Basic types: Direct string representation
//   - time.Time: UTC RFC3339Nano rendering
//   - Slices/arrays: Recursive serialization of elements
//   - Maps: Pairs sorted by serialized key for deterministic output
//   - Structs: Exported fields with name:value pairs
//   - Complex types: JSON fallback with error handling
//
// Keys longer than an internal bound are replaced with an xxhash digest so
// backends with key length limits are never handed oversized keys.
//
// # Important Warnings for Function Arguments
//
// Function pointers serialize to their address, which is stable only within
// a single process lifetime. Closures capturing different variables and
// anonymous functions from different call sites produce different keys. For
// distributed caching, provide a custom KeySerializer with stable names.
//
// # Error Handling
//
// The package prioritizes stability over perfection. When JSON marshaling
// fails, the key serializer falls back to type information rather than
// panicking, so cache operations continue even with problematic data types.
package cache
