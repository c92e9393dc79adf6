// Package cacheinfra adapts the sturdyc cache client to the CacheService
// surface the rest of the module consumes.
package cacheinfra

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the sturdyc cache adapter.
type Config struct {
	// Capacity defines the maximum number of entries the cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent
	// access. Higher values improve concurrency at the cost of memory.
	// Must be greater than 0.
	NumShards int

	// TTL is the default time-to-live for cached entries. Must be greater
	// than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches capacity. Must be between 1-100.
	EvictionPercentage int

	// EarlyRefresh configures stampede-protecting refreshes of hot
	// entries before they expire. Nil disables early refresh.
	EarlyRefresh *EarlyRefreshConfig

	// MissingRecordStorage makes the cache remember keys that returned no
	// results, preventing repeated fetches for non-existent records.
	MissingRecordStorage bool

	// EvictionInterval sets how often the cache checks for expired
	// entries. Zero uses the sturdyc default.
	EvictionInterval time.Duration
}

// EarlyRefreshConfig configures early refresh behavior.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
		EarlyRefresh: &EarlyRefreshConfig{
			MinAsyncRefreshTime: 10 * time.Second,
			MaxAsyncRefreshTime: 20 * time.Second,
			SyncRefreshTime:     30 * time.Second,
			RetryBaseDelay:      100 * time.Millisecond,
		},
		MissingRecordStorage: true,
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required, validation.Min(1)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Duration(1))),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
	); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}
	if er := c.EarlyRefresh; er != nil {
		if err := validation.ValidateStruct(er,
			validation.Field(&er.MinAsyncRefreshTime, validation.Min(time.Duration(0))),
			validation.Field(&er.MaxAsyncRefreshTime, validation.Min(time.Duration(0))),
			validation.Field(&er.SyncRefreshTime, validation.Min(time.Duration(0))),
			validation.Field(&er.RetryBaseDelay, validation.Min(time.Duration(0))),
		); err != nil {
			return fmt.Errorf("cache config: early refresh: %w", err)
		}
		if er.MinAsyncRefreshTime > er.MaxAsyncRefreshTime {
			return fmt.Errorf("cache config: early refresh: min async refresh time %s exceeds max %s",
				er.MinAsyncRefreshTime, er.MaxAsyncRefreshTime)
		}
	}
	return nil
}

// toSturdycOptions maps the optional configuration to sturdyc options.
// Capacity, NumShards, TTL, and EvictionPercentage go to sturdyc.New
// directly and are not included here.
func (c Config) toSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}
	if c.MissingRecordStorage {
		options = append(options, sturdyc.WithMissingRecordStorage())
	}
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// sturdycService wraps a sturdyc client providing caching behaviour.
type sturdycService struct {
	client *sturdyc.Client[any]
}

// NewSturdycService creates a new sturdyc cache service adapter. It
// validates the configuration and initializes a sturdyc client with the
// provided settings.
func NewSturdycService(cfg Config) (*sturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.toSturdycOptions()...,
	)
	return &sturdycService{client: client}, nil
}

// GetOrFetch implements cache.CacheService.GetOrFetch. fetchFn must have the
// shape func(context.Context) (T, error); anything else is rejected before
// the client is touched.
func (s *sturdycService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	// Fast path for the already-erased signature.
	if fn, ok := fetchFn.(func(context.Context) (any, error)); ok {
		return s.client.GetOrFetch(ctx, key, fn)
	}

	if err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}
	fnValue := reflect.ValueOf(fetchFn)
	erased := func(ctx context.Context) (any, error) {
		results := fnValue.Call([]reflect.Value{reflect.ValueOf(ctx)})
		var err error
		if e := results[1]; !e.IsNil() {
			err = e.Interface().(error)
		}
		return results[0].Interface(), err
	}
	return s.client.GetOrFetch(ctx, key, erased)
}

// validateFetchFn checks fetchFn against func(context.Context) (T, error).
func validateFetchFn(fetchFn any) error {
	if fetchFn == nil {
		return fmt.Errorf("cacheinfra: fetchFn must not be nil")
	}
	fnType := reflect.TypeOf(fetchFn)
	if fnType.Kind() != reflect.Func || fnType.NumIn() != 1 || fnType.NumOut() != 2 {
		return fmt.Errorf("cacheinfra: fetchFn must have signature func(context.Context) (T, error)")
	}
	ctxType := reflect.TypeOf((*context.Context)(nil)).Elem()
	errType := reflect.TypeOf((*error)(nil)).Elem()
	if !fnType.In(0).Implements(ctxType) || !fnType.Out(1).Implements(errType) {
		return fmt.Errorf("cacheinfra: fetchFn must have signature func(context.Context) (T, error)")
	}
	return nil
}

// Delete implements cache.CacheService.Delete.
func (s *sturdycService) Delete(ctx context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix implements cache.CacheService.DeleteByPrefix. It removes
// all entries whose keys start with the given prefix, which is how the
// query cache invalidates a whole region after writes.
func (s *sturdycService) DeleteByPrefix(ctx context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}
