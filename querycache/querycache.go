package querycache

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/goliatone/go-session-template/cache"
	"github.com/goliatone/go-session-template/logging"
)

// DefaultRegion is the region queries land in when no cache region was
// configured on the query or the template.
const DefaultRegion = "query"

// Regions namespaces query result caching by region name on top of a single
// CacheService. Region names become key prefixes, so invalidating a region
// is a prefix delete on the backing service.
type Regions struct {
	service cache.CacheService
	logger  logging.Logger
}

// Option configures a Regions instance.
type Option func(*Regions)

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(r *Regions) { r.logger = l }
}

// New creates a Regions registry over the given cache service.
func New(service cache.CacheService, opts ...Option) *Regions {
	r := &Regions{service: service, logger: logging.Nop{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FetchInto loads the value for (region, key) into dest. On a miss it runs
// load, which must fill dest, then stores a msgpack snapshot of dest. Hits
// and misses both decode the snapshot into dest, so cached entries never
// alias slices the caller may mutate afterwards. dest must be a non-nil
// pointer.
func (r *Regions) FetchInto(ctx context.Context, region, key string, dest any, load func(context.Context) error) error {
	full := r.keyFor(region, key)
	raw, err := cache.GetOrFetch(ctx, r.service, full, func(ctx context.Context) ([]byte, error) {
		if err := load(ctx); err != nil {
			return nil, err
		}
		snapshot, err := msgpack.Marshal(dest)
		if err != nil {
			return nil, fmt.Errorf("querycache: encode snapshot for %q: %w", full, err)
		}
		return snapshot, nil
	})
	if err != nil {
		return err
	}
	if err := msgpack.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("querycache: decode snapshot for %q: %w", full, err)
	}
	return nil
}

// Fetch is the typed variant of FetchInto for callers that hold the result
// type rather than a destination pointer.
func Fetch[T any](ctx context.Context, r *Regions, region, key string, fetch cache.FetchFn[T]) (T, error) {
	var out T
	err := r.FetchInto(ctx, region, key, &out, func(ctx context.Context) error {
		v, err := fetch(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Invalidate drops every entry in the given region. Write paths call this
// after mutations since they cannot know which cached statements a row
// participates in.
func (r *Regions) Invalidate(ctx context.Context, region string) error {
	prefix := normalizeRegion(region) + cache.KeySeparator
	if err := r.service.DeleteByPrefix(ctx, prefix); err != nil {
		return fmt.Errorf("querycache: invalidate region %q: %w", region, err)
	}
	r.logger.Debug("invalidated query cache region", logging.Fields{"region": region})
	return nil
}

// InvalidateKey drops a single entry.
func (r *Regions) InvalidateKey(ctx context.Context, region, key string) error {
	return r.service.Delete(ctx, r.keyFor(region, key))
}

func (r *Regions) keyFor(region, key string) string {
	return normalizeRegion(region) + cache.KeySeparator + key
}

// normalizeRegion lowercases the region name and collapses anything that is
// not a letter or digit into single underscores. Region names come from
// user configuration and end up in the cache key namespace; punctuation
// there would break prefix invalidation and produce keys some backends
// reject.
func normalizeRegion(region string) string {
	if region == "" {
		return DefaultRegion
	}
	var b strings.Builder
	b.Grow(len(region))
	pendingSep := false
	for _, r := range region {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		pendingSep = true
	}
	if b.Len() == 0 {
		return DefaultRegion
	}
	return b.String()
}
