package opsource

import (
	"reflect"

	"github.com/puzpuzpuz/xsync/v3"
)

// Registry is a Finder backed by explicit registrations. It is the default
// way to declare operations: register the descriptor against the method that
// carries it (interface or concrete), and let the Source's fallback walk
// find it for overriding implementations.
type Registry[O any] struct {
	ops *xsync.MapOf[Method, O]
}

// NewRegistry creates an empty Registry.
func NewRegistry[O any]() *Registry[O] {
	return &Registry[O]{ops: xsync.NewMapOf[Method, O]()}
}

// Register declares op for the given method identity, replacing any previous
// declaration for the same method.
func (r *Registry[O]) Register(m Method, op O) {
	r.ops.Store(m, op)
}

// FindOperation implements Finder. The target type is ignored: a Registry
// matches on exact method identity, and override resolution is the Source's
// concern.
func (r *Registry[O]) FindOperation(m Method, _ reflect.Type) (O, bool, error) {
	op, ok := r.ops.Load(m)
	return op, ok, nil
}
