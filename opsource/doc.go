// Package opsource resolves cross-cutting operation metadata for method
// calls and caches every outcome.
//
// # Overview
//
// A Source answers one question: "does this method, invoked on this concrete
// type, carry a declared operation?" The answer is computed at most once per
// (method, target type) pair and cached for the lifetime of the Source,
// including the negative answer, so polymorphic hot paths pay the resolution
// cost only on first use.
//
// The operation payload is opaque to this package: Source is generic over
// the descriptor type O, and callers define whatever shape their concern
// needs (cache settings, transaction attributes, limits).
//
// # Fallback resolution
//
// Resolution follows a fixed order:
//
//  1. With the public-only option set, unexported method names resolve to
//     none immediately.
//  2. The method identity is re-homed onto the target type when the target
//     declares a method with the same name (the "most specific" method).
//  3. The Finder is consulted for the specific method.
//  4. If nothing is declared there and the specific method differs from the
//     one supplied, the Finder is consulted for the original method.
//
// Step 4 is what lets a descriptor declared against an interface method
// apply when the call lands on a concrete implementation.
//
// # Basic usage
//
//	type CachePolicy struct {
//		Region string
//		TTL    time.Duration
//	}
//
//	reg := opsource.NewRegistry[CachePolicy]()
//	reg.Register(opsource.MethodOf[UserStore]("GetByID"), CachePolicy{Region: "users"})
//
//	src := opsource.New[CachePolicy](reg)
//	policy, ok, err := src.Operation(
//		opsource.MethodOf[UserStore]("GetByID"),
//		reflect.TypeOf(&SQLUserStore{}),
//	)
//
// # Concurrency
//
// Source is safe for concurrent use without external locking. Two
// goroutines that miss the cache for the same key both run the resolution
// algorithm (pure, side-effect free) and both store the same result; the
// cache never holds a partial entry. Finder errors propagate to the caller
// and are never cached.
package opsource
