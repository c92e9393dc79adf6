package bunsession

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-session-template/cache"
	"github.com/goliatone/go-session-template/logging"
	"github.com/goliatone/go-session-template/querycache"
	"github.com/goliatone/go-session-template/session"
)

// Factory opens bun-backed sessions. Filters and named queries are
// registered here once and shared by every session the factory opens.
type Factory struct {
	db           *bun.DB
	filters      *xsync.MapOf[string, string]
	namedQueries *xsync.MapOf[string, string]
	regions      *querycache.Regions
	usedRegions  *xsync.MapOf[string, struct{}]
	serializer   cache.KeySerializer
	logger       logging.Logger
}

var _ session.Factory = (*Factory)(nil)

// Option configures a Factory.
type Option func(*Factory)

// WithQueryCache enables result caching for queries marked cacheable.
// Without it the cacheable flag is a no-op and every scan hits the store.
func WithQueryCache(regions *querycache.Regions) Option {
	return func(f *Factory) { f.regions = regions }
}

// WithKeySerializer replaces the default cache key serializer.
func WithKeySerializer(ks cache.KeySerializer) Option {
	return func(f *Factory) { f.serializer = ks }
}

// WithLogger sets the logger sessions report against.
func WithLogger(l logging.Logger) Option {
	return func(f *Factory) { f.logger = l }
}

// NewFactory creates a Factory over the given bun database.
func NewFactory(db *bun.DB, opts ...Option) (*Factory, error) {
	if db == nil {
		return nil, session.NewUsageError("bunsession: db must not be nil")
	}
	f := &Factory{
		db:           db,
		filters:      xsync.NewMapOf[string, string](),
		namedQueries: xsync.NewMapOf[string, string](),
		usedRegions:  xsync.NewMapOf[string, struct{}](),
		serializer:   cache.NewDefaultKeySerializer(),
		logger:       logging.Nop{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// RegisterFilter declares a named filter. The condition is a SQL predicate
// over the columns of the statements it restricts; sessions with the filter
// enabled wrap their queries so only matching rows come back.
func (f *Factory) RegisterFilter(name, condition string) {
	f.filters.Store(name, condition)
}

// RegisterNamedQuery declares a statement addressable by name through
// Session.NamedQuery.
func (f *Factory) RegisterNamedQuery(name, statement string) {
	f.namedQueries.Store(name, statement)
}

// OpenSession acquires a dedicated connection from the pool and wraps it in
// a new session in auto flush mode. The caller owns the session and must
// close it; the template does both for sessions it opens itself.
func (f *Factory) OpenSession(ctx context.Context) (session.Session, error) {
	conn, err := f.db.Conn(ctx)
	if err != nil {
		return nil, session.WrapResource(err, "acquire connection")
	}
	s := &bunSession{
		id:      uuid.NewString(),
		factory: f,
		conn:    conn,
	}
	f.logger.Debug("opened session", logging.Fields{"session": s.id})
	return s, nil
}

// invalidateAfterWrite drops every cache region a cacheable query of this
// factory has populated. Writes cannot know which cached statements a row
// participates in, so the whole region set goes.
func (f *Factory) invalidateAfterWrite(ctx context.Context) {
	if f.regions == nil {
		return
	}
	f.usedRegions.Range(func(region string, _ struct{}) bool {
		if err := f.regions.Invalidate(ctx, region); err != nil {
			f.logger.Warn("query cache invalidation failed", logging.Fields{
				"region": region,
				"error":  err.Error(),
			})
		}
		return true
	})
}

func (f *Factory) noteRegion(region string) {
	f.usedRegions.Store(region, struct{}{})
}

// Translate maps raw database/sql errors surfaced by callback code into the
// unified hierarchy. Errors it does not recognize stay application errors.
// Wire it into a template via sessiontemplate.WithErrorTranslator.
func Translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, sql.ErrTxDone):
		return session.WrapResource(err, "database operation failed")
	}
	return nil
}
