package opsource

import (
	"go/token"
	"reflect"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-session-template/logging"
)

// cacheKey addresses one resolution result. It is always built from the
// originally supplied method and target type, never from the rewritten
// specific method, so repeated lookups through the same polymorphic call
// site hit the cache directly.
type cacheKey struct {
	method Method
	target reflect.Type
}

// cacheEntry is what the metadata cache stores. An entry with found=false is
// the no-operation marker: resolution ran and found nothing, and we do not
// need to run it again. Entries are never removed.
type cacheEntry[O any] struct {
	op    O
	found bool
}

// Source resolves the operation declared for a (method, target type) pair,
// falling back from the target's overriding method to the originally
// declared method, and caches every outcome for the lifetime of the Source.
//
// The cache grows monotonically and is never evicted; the key space is
// bounded by the distinct (method, type) pairs a process actually exercises.
// Do not use a Source against dynamically generated types without fronting
// it with a bounded cache.
type Source[O any] struct {
	finder     Finder[O]
	publicOnly bool
	logger     logging.Logger
	cache      *xsync.MapOf[cacheKey, cacheEntry[O]]
}

// Option configures a Source.
type Option[O any] func(*Source[O])

// WithPublicOnly restricts resolution to exported methods; unexported method
// names resolve to none without consulting the finder.
func WithPublicOnly[O any]() Option[O] {
	return func(s *Source[O]) { s.publicOnly = true }
}

// WithLogger sets the logger used for resolution diagnostics.
func WithLogger[O any](l logging.Logger) Option[O] {
	return func(s *Source[O]) { s.logger = l }
}

// New creates a Source that delegates single-method lookups to finder.
func New[O any](finder Finder[O], opts ...Option[O]) *Source[O] {
	s := &Source[O]{
		finder: finder,
		logger: logging.Nop{},
		cache:  xsync.NewMapOf[cacheKey, cacheEntry[O]](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Operation resolves the operation for the given method when invoked on
// target. A nil target resolves against the method's own receiver type. The
// second return is false when no operation is declared; finder errors
// propagate unchanged and are not cached. Safe for concurrent use: two
// goroutines may race to compute the same key, both store the same outcome,
// and the last write wins.
func (s *Source[O]) Operation(m Method, target reflect.Type) (O, bool, error) {
	key := cacheKey{method: m, target: target}
	if entry, ok := s.cache.Load(key); ok {
		return entry.op, entry.found, nil
	}

	op, found, err := s.compute(m, target)
	if err != nil {
		var zero O
		return zero, false, err
	}

	if found {
		s.logger.Debug("resolved operation", logging.Fields{
			"method": m.String(),
			"target": typeName(target),
		})
	}
	s.cache.Store(key, cacheEntry[O]{op: op, found: found})
	return op, found, nil
}

// compute runs the fallback algorithm: most specific method first, then the
// originally declared method.
func (s *Source[O]) compute(m Method, target reflect.Type) (O, bool, error) {
	var zero O

	if s.publicOnly && !token.IsExported(m.Name) {
		return zero, false, nil
	}

	// The method may be declared on an interface or a base type while the
	// operation is registered against the concrete target. Re-home the
	// identity onto the target when the target declares the method name.
	specific := mostSpecific(m, target)

	op, found, err := s.finder.FindOperation(specific, target)
	if err != nil || found {
		return op, found, err
	}
	if specific != m {
		return s.finder.FindOperation(m, target)
	}
	return zero, false, nil
}

// mostSpecific substitutes the target's own method for m when the target
// declares a method with the same name. With a nil target the method is
// returned unchanged.
func mostSpecific(m Method, target reflect.Type) Method {
	if target == nil || target == m.Recv {
		return m
	}
	if _, ok := target.MethodByName(m.Name); ok {
		return Method{Recv: target, Name: m.Name}
	}
	return m
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
