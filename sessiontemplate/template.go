package sessiontemplate

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-session-template/logging"
	"github.com/goliatone/go-session-template/session"
)

// Callback is the unit of work a template execution runs. The session passed
// in is a close-suppressing proxy unless native exposure was requested;
// treat it as borrowed for the duration of the call and let the template
// handle the lifecycle.
type Callback[T any] func(ctx context.Context, s session.Session) (T, error)

// Template orchestrates session acquisition, filter activation, proxying,
// callback invocation, error translation, and cleanup. A Template is
// immutable after construction and safe to share; each execution drives its
// own session.
type Template struct {
	factory      session.Factory
	filterNames  []string
	exposeNative bool
	checkWrites  bool
	cacheQueries bool
	cacheRegion  string
	fetchSize    int
	maxResults   int
	translator   session.ErrorTranslator
	logger       logging.Logger
}

// Option configures a Template.
type Option func(*Template)

// WithFilters sets the named filters enabled at the start of every
// execution and disabled again on the way out for reused sessions.
func WithFilters(names ...string) Option {
	return func(t *Template) { t.filterNames = append([]string(nil), names...) }
}

// WithExposeNativeSession hands callbacks the raw session instead of the
// proxy. Queries are then not prepared automatically and Close is not
// suppressed; the template still owns the lifecycle, so callbacks must not
// close the session themselves.
func WithExposeNativeSession() Option {
	return func(t *Template) { t.exposeNative = true }
}

// WithoutWriteChecks disables the fail-fast guard that rejects mutating
// operations against a manual-flush session.
func WithoutWriteChecks() Option {
	return func(t *Template) { t.checkWrites = false }
}

// WithCacheQueries marks every query prepared by this template as
// cacheable.
func WithCacheQueries() Option {
	return func(t *Template) { t.cacheQueries = true }
}

// WithCacheRegion names the cache region applied to cacheable queries. It
// has no effect unless WithCacheQueries is also set.
func WithCacheRegion(region string) Option {
	return func(t *Template) { t.cacheRegion = region }
}

// WithFetchSize sets the fetch-size hint applied to every prepared query.
// Zero keeps the driver default.
func WithFetchSize(rows int) Option {
	return func(t *Template) { t.fetchSize = rows }
}

// WithMaxResults caps the row count of every prepared query. Zero means
// unlimited.
func WithMaxResults(rows int) Option {
	return func(t *Template) { t.maxResults = rows }
}

// WithErrorTranslator sets the translator applied to callback errors that
// are not already part of the unified hierarchy. Errors the translator
// declines stay untouched and propagate as application errors.
func WithErrorTranslator(tr session.ErrorTranslator) Option {
	return func(t *Template) { t.translator = tr }
}

// WithLogger sets the logger used for execution diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(t *Template) { t.logger = l }
}

// New creates a Template over the given session factory. Write checking is
// on by default.
func New(factory session.Factory, opts ...Option) (*Template, error) {
	if factory == nil {
		return nil, session.NewUsageError("sessiontemplate: factory must not be nil")
	}
	t := &Template{
		factory:     factory,
		checkWrites: true,
		logger:      logging.Nop{},
	}
	for _, opt := range opts {
		opt(t)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Template) validate() error {
	return validation.Errors{
		"fetchSize":  validation.Validate(t.fetchSize, validation.Min(0)),
		"maxResults": validation.Validate(t.maxResults, validation.Min(0)),
	}.Filter()
}

// Execute runs fn against a proxied session. An ambient session bound to
// the context is reused and left open; otherwise a new session is opened in
// manual flush mode and closed when fn returns.
//
// Since Go methods cannot have type parameters, this is provided as a
// package-level function, mirroring cache.GetOrFetch.
func Execute[T any](ctx context.Context, t *Template, fn Callback[T]) (T, error) {
	return doExecute(ctx, t, fn, false)
}

// ExecuteNative runs fn against the unwrapped session, overriding the
// template-wide native exposure setting for this one execution.
func ExecuteNative[T any](ctx context.Context, t *Template, fn Callback[T]) (T, error) {
	return doExecute(ctx, t, fn, true)
}

func doExecute[T any](ctx context.Context, t *Template, fn Callback[T], enforceNative bool) (result T, err error) {
	var zero T
	if fn == nil {
		return zero, session.NewUsageError("sessiontemplate: callback must not be nil")
	}

	var sess session.Session
	var ttl time.Duration
	owned := false

	if holder, ok := session.HolderFromContext(ctx); ok && holder.Session() != nil {
		sess = holder.Session()
		if holder.HasDeadline() {
			ttl = holder.TimeToLive()
		}
		t.logger.Debug("reusing ambient session", logging.Fields{"ttl": ttl})
	} else {
		opened, oerr := t.factory.OpenSession(ctx)
		if oerr != nil {
			return zero, session.WrapResource(oerr, "open session")
		}
		opened.SetFlushMode(session.FlushManual)
		sess = opened
		owned = true
		t.logger.Debug("opened new session", nil)
	}

	// Cleanup runs exactly once on every exit path: an owned session is
	// closed, a reused one only gets its filters taken down again. A
	// cleanup failure never masks an error that is already propagating.
	defer func() {
		if owned {
			if cerr := sess.Close(); cerr != nil && err == nil {
				err = session.WrapResource(cerr, "close session")
			}
			return
		}
		if derr := t.disableFilters(sess); derr != nil && err == nil {
			err = derr
		}
	}()

	if ferr := t.enableFilters(sess); ferr != nil {
		return zero, ferr
	}

	exposed := sess
	if !enforceNative && !t.exposeNative {
		exposed = t.newProxy(sess, ttl)
	}

	result, err = fn(ctx, exposed)
	if err != nil {
		return zero, t.translateCallbackError(err)
	}
	return result, nil
}

// enableFilters activates the configured filters in order. The first
// failure surfaces immediately; already-activated filters are not rolled
// back here, cleanup takes them down.
func (t *Template) enableFilters(s session.Session) error {
	for _, name := range t.filterNames {
		if err := s.EnableFilter(name); err != nil {
			return err
		}
	}
	return nil
}

// disableFilters deactivates all configured filter names. Disabling an
// inactive filter is harmless, so a partial activation still cleans up.
func (t *Template) disableFilters(s session.Session) error {
	var first error
	for _, name := range t.filterNames {
		if err := s.DisableFilter(name); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// prepareQuery applies the template's query configuration plus the ambient
// time-to-live to a sub-resource before it is handed to callback code.
func (t *Template) prepareQuery(q session.Configurable, ttl time.Duration) {
	if t.cacheQueries {
		q.SetCacheable(true)
		if t.cacheRegion != "" {
			q.SetCacheRegion(t.cacheRegion)
		}
	}
	if t.fetchSize > 0 {
		q.SetFetchSize(t.fetchSize)
	}
	if t.maxResults > 0 {
		q.SetMaxResults(t.maxResults)
	}
	if ttl > 0 {
		q.SetTimeout(ttl)
	}
}

// checkWriteAllowed rejects mutating operations against a manual-flush
// session when write checking is enabled: such writes would sit in the
// session and silently never persist. Writes are expected to run against an
// ambient session opened by a transactional layer in auto flush mode.
func (t *Template) checkWriteAllowed(s session.Session) error {
	if t.checkWrites && s.FlushMode() == session.FlushManual {
		return session.NewUsageError(
			"write operations are not allowed in manual flush mode: bind an auto-flush session or disable write checks")
	}
	return nil
}

// translateCallbackError routes resource-layer failures into the unified
// hierarchy and lets application errors pass through untouched.
func (t *Template) translateCallbackError(err error) error {
	if _, ok := session.AsDataAccess(err); ok {
		return err
	}
	if t.translator != nil {
		if translated := t.translator(err); translated != nil {
			return translated
		}
	}
	return err
}
