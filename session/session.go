package session

import (
	"context"
	"time"
)

// FlushMode controls when pending writes on a Session reach the store.
type FlushMode int

const (
	// FlushAuto flushes writes as part of each operation.
	FlushAuto FlushMode = iota
	// FlushManual defers all writes until an explicit Flush. Sessions opened
	// by the template default to FlushManual so that reused read paths never
	// persist anything by accident.
	FlushManual
)

// String returns the flush mode name for logs and error messages.
func (m FlushMode) String() string {
	if m == FlushManual {
		return "manual"
	}
	return "auto"
}

// Configurable is the capability set the template applies to sub-resources
// handed out by a Session. Any value returned from Query or NamedQuery
// supports it, so decoration stays statically checkable instead of relying
// on runtime type inspection.
type Configurable interface {
	SetCacheable(cacheable bool)
	SetCacheRegion(region string)
	SetFetchSize(rows int)
	SetMaxResults(rows int)
	SetTimeout(d time.Duration)
}

// Query is a sub-resource created from a Session. Configuration applied via
// Configurable takes effect on the next Scan or Exec.
type Query interface {
	Configurable

	// Scan executes the query and scans all rows into dest, which must be
	// a pointer (typically to a slice of structs).
	Scan(ctx context.Context, dest any) error

	// Exec runs the query for its side effects and returns the number of
	// affected rows.
	Exec(ctx context.Context) (int64, error)
}

// Session is a unit-of-work handle over an external store. A Session is not
// safe for concurrent use; one caller drives it from open to close.
type Session interface {
	// Query creates a Query for the given statement and positional args.
	Query(query string, args ...any) Query

	// NamedQuery resolves a statement registered under name on the owning
	// factory and binds the given positional args. Unknown names are a
	// usage error.
	NamedQuery(name string, args ...any) (Query, error)

	// Insert persists the given model. Update and Delete follow the same
	// contract: the model's primary key addresses the affected row.
	Insert(ctx context.Context, model any) error
	Update(ctx context.Context, model any) error
	Delete(ctx context.Context, model any) error

	// Flush pushes any deferred writes to the store.
	Flush(ctx context.Context) error

	// EnableFilter activates a named filter registered on the owning
	// factory; every query created afterwards is restricted by it.
	// Enabling an unknown filter name is a usage error. DisableFilter is
	// harmless for filters that are not active.
	EnableFilter(name string) error
	DisableFilter(name string) error

	FlushMode() FlushMode
	SetFlushMode(mode FlushMode)

	// Close releases the handle. Closing twice is harmless.
	Close() error
}

// Factory opens Sessions against an underlying store.
type Factory interface {
	OpenSession(ctx context.Context) (Session, error)
}
