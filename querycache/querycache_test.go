package querycache

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-session-template/cache"
)

type row struct {
	ID   string
	Tags []string
}

func newRegions(t *testing.T) *Regions {
	t.Helper()
	svc, err := cache.NewCacheService(cache.DefaultConfig())
	if err != nil {
		t.Fatalf("cache service: %v", err)
	}
	return New(svc)
}

func TestFetchIntoLoadsOnceAndCaches(t *testing.T) {
	r := newRegions(t)
	ctx := context.Background()

	loads := 0
	load := func(dest *[]row) func(context.Context) error {
		return func(ctx context.Context) error {
			loads++
			*dest = []row{{ID: "u1", Tags: []string{"a"}}}
			return nil
		}
	}

	for i := 0; i < 3; i++ {
		var got []row
		if err := r.FetchInto(ctx, "users", "list", &got, load(&got)); err != nil {
			t.Fatalf("FetchInto: %v", err)
		}
		if len(got) != 1 || got[0].ID != "u1" {
			t.Fatalf("unexpected rows %+v", got)
		}
	}
	if loads != 1 {
		t.Errorf("expected one load, got %d", loads)
	}
}

func TestFetchIntoSnapshotDoesNotAlias(t *testing.T) {
	r := newRegions(t)
	ctx := context.Background()

	var first []row
	err := r.FetchInto(ctx, "users", "list", &first, func(ctx context.Context) error {
		first = []row{{ID: "u1", Tags: []string{"a", "b"}}}
		return nil
	})
	if err != nil {
		t.Fatalf("FetchInto: %v", err)
	}

	// Mutating the returned value must not poison subsequent hits.
	first[0].ID = "mutated"
	first[0].Tags[0] = "mutated"

	var second []row
	err = r.FetchInto(ctx, "users", "list", &second, func(ctx context.Context) error {
		t.Fatal("load must not run on a hit")
		return nil
	})
	if err != nil {
		t.Fatalf("FetchInto hit: %v", err)
	}
	if second[0].ID != "u1" || second[0].Tags[0] != "a" {
		t.Fatalf("cached snapshot was aliased: %+v", second)
	}
}

func TestFetchIntoLoadErrorNotCached(t *testing.T) {
	r := newRegions(t)
	ctx := context.Background()

	boom := errors.New("db down")
	var dest []row
	err := r.FetchInto(ctx, "users", "list", &dest, func(ctx context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}

	// The failure must not leave a poisoned entry behind.
	err = r.FetchInto(ctx, "users", "list", &dest, func(ctx context.Context) error {
		dest = []row{{ID: "u1"}}
		return nil
	})
	if err != nil {
		t.Fatalf("FetchInto after failure: %v", err)
	}
	if len(dest) != 1 {
		t.Fatalf("unexpected rows %+v", dest)
	}
}

func TestFetchTyped(t *testing.T) {
	r := newRegions(t)
	ctx := context.Background()

	calls := 0
	got, err := Fetch(ctx, r, "users", "count", func(ctx context.Context) (int, error) {
		calls++
		return 7, nil
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got != 7 {
		t.Fatalf("got %d", got)
	}

	got, err = Fetch(ctx, r, "users", "count", func(ctx context.Context) (int, error) {
		calls++
		return 99, nil
	})
	if err != nil {
		t.Fatalf("Fetch hit: %v", err)
	}
	if got != 7 || calls != 1 {
		t.Fatalf("expected cached value 7 with one call, got %d calls=%d", got, calls)
	}
}

func TestInvalidateDropsWholeRegionOnly(t *testing.T) {
	r := newRegions(t)
	ctx := context.Background()

	loads := map[string]int{}
	fetch := func(region, key string) {
		t.Helper()
		_, err := Fetch(ctx, r, region, key, func(ctx context.Context) (string, error) {
			loads[region+"/"+key]++
			return key, nil
		})
		if err != nil {
			t.Fatalf("Fetch %s/%s: %v", region, key, err)
		}
	}

	fetch("users", "a")
	fetch("users", "b")
	fetch("orders", "a")

	if err := r.Invalidate(ctx, "users"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	fetch("users", "a")
	fetch("orders", "a")

	if loads["users/a"] != 2 {
		t.Errorf("invalidated region must reload, loads=%v", loads)
	}
	if loads["orders/a"] != 1 {
		t.Errorf("other regions must survive, loads=%v", loads)
	}
}

func TestInvalidateKey(t *testing.T) {
	r := newRegions(t)
	ctx := context.Background()

	loads := 0
	fetch := func() {
		t.Helper()
		_, err := Fetch(ctx, r, "users", "a", func(ctx context.Context) (string, error) {
			loads++
			return "a", nil
		})
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
	}

	fetch()
	if err := r.InvalidateKey(ctx, "users", "a"); err != nil {
		t.Fatalf("InvalidateKey: %v", err)
	}
	fetch()
	if loads != 2 {
		t.Errorf("expected reload after key invalidation, got %d loads", loads)
	}
}

func TestNormalizeRegion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", DefaultRegion},
		{"users", "users"},
		{"Users", "users"},
		{"user queries", "user_queries"},
		{"user--queries", "user_queries"},
		{"org.example/Users", "org_example_users"},
		{"  users  ", "users"},
		{"!!!", DefaultRegion},
	}
	for _, tt := range tests {
		if got := normalizeRegion(tt.in); got != tt.want {
			t.Errorf("normalizeRegion(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
