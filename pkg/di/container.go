// Package di wires the cache service, query cache regions, session factory,
// and template together so applications assemble the stack in one place.
package di

import (
	"github.com/uptrace/bun"

	"github.com/goliatone/go-session-template/bunsession"
	"github.com/goliatone/go-session-template/cache"
	"github.com/goliatone/go-session-template/logging"
	"github.com/goliatone/go-session-template/opsource"
	"github.com/goliatone/go-session-template/querycache"
	"github.com/goliatone/go-session-template/session"
	"github.com/goliatone/go-session-template/sessiontemplate"
)

// Container manages singleton instances of the cache service, key serializer,
// and query cache regions, and provides factory methods for session factories
// and templates built on top of them.
type Container struct {
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	queryCache    *querycache.Regions
	config        cache.Config
	logger        logging.Logger
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger passed down to every component the container
// builds. Defaults to a no-op logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Container) { c.logger = l }
}

// NewContainer creates a DI container with the provided cache configuration.
// It initializes the cache service, the default key serializer, and the query
// cache regions shared by all session factories the container creates.
func NewContainer(config cache.Config, opts ...Option) (*Container, error) {
	c := &Container{config: config, logger: logging.Nop{}}
	for _, opt := range opts {
		opt(c)
	}

	cacheService, err := cache.NewCacheService(config)
	if err != nil {
		return nil, err
	}
	c.cacheService = cacheService
	c.keySerializer = cache.NewDefaultKeySerializer()
	c.queryCache = querycache.New(cacheService, querycache.WithLogger(c.logger))
	return c, nil
}

// NewContainerWithDefaults creates a DI container using default configuration.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(cache.DefaultConfig(), opts...)
}

// CacheService returns the singleton cache service instance.
func (c *Container) CacheService() cache.CacheService {
	return c.cacheService
}

// KeySerializer returns the singleton key serializer instance.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// QueryCache returns the singleton query cache regions registry.
func (c *Container) QueryCache() *querycache.Regions {
	return c.queryCache
}

// Config returns a copy of the cache configuration used by this container.
func (c *Container) Config() cache.Config {
	return c.config
}

// Logger returns the logger components built by this container use.
func (c *Container) Logger() logging.Logger {
	return c.logger
}

// NewSessionFactory creates a bun-backed session factory wired to the
// container's query cache, key serializer, and logger. Additional options are
// applied after the container's own wiring so callers can override any of it.
func (c *Container) NewSessionFactory(db *bun.DB, opts ...bunsession.Option) (*bunsession.Factory, error) {
	base := []bunsession.Option{
		bunsession.WithQueryCache(c.queryCache),
		bunsession.WithKeySerializer(c.keySerializer),
		bunsession.WithLogger(c.logger),
	}
	return bunsession.NewFactory(db, append(base, opts...)...)
}

// NewTemplate creates a session template over the given factory with the
// container's logger and the bun error translator pre-wired.
func (c *Container) NewTemplate(factory session.Factory, opts ...sessiontemplate.Option) (*sessiontemplate.Template, error) {
	base := []sessiontemplate.Option{
		sessiontemplate.WithLogger(c.logger),
		sessiontemplate.WithErrorTranslator(bunsession.Translate),
	}
	return sessiontemplate.New(factory, append(base, opts...)...)
}

// NewOperationSource creates a fallback operation source over the given
// finder using the container's logger.
//
// Since Go methods cannot have type parameters, this is provided as a
// package-level function. Example: NewOperationSource[CacheOp](container, registry)
func NewOperationSource[O any](c *Container, finder opsource.Finder[O], opts ...opsource.Option[O]) *opsource.Source[O] {
	base := []opsource.Option[O]{opsource.WithLogger[O](c.logger)}
	return opsource.New(finder, append(base, opts...)...)
}
