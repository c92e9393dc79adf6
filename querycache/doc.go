// Package querycache implements named query cache regions on top of the
// cache package; queries marked cacheable by the session proxy read
// through them.
//
// Results are kept as msgpack snapshots: a hit decodes a fresh copy into
// the caller's destination, so cached data never aliases slices or structs
// application code mutates after scanning. Regions map to key prefixes on
// the backing CacheService, making region invalidation a prefix delete.
//
// Typical wiring goes through pkg/di, which connects a sturdyc-backed cache
// service, a Regions registry, and the bunsession factory. Direct use:
//
//	svc, _ := cache.NewCacheService(cache.DefaultConfig())
//	regions := querycache.New(svc)
//
//	users, err := querycache.Fetch(ctx, regions, "users", key, func(ctx context.Context) ([]User, error) {
//		return loadUsers(ctx)
//	})
package querycache
