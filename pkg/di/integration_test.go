package di

import (
	"context"
	"database/sql"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-session-template/opsource"
	"github.com/goliatone/go-session-template/session"
	"github.com/goliatone/go-session-template/sessiontemplate"
)

// User is the model shared by the integration tests.
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID     string `bun:"id,pk"`
	Name   string `bun:"name"`
	Active int64  `bun:"active"`
}

func newIntegrationDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "integration.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	_, err = db.ExecContext(context.Background(),
		"CREATE TABLE users (id TEXT PRIMARY KEY, name TEXT, active INTEGER)")
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func TestTemplateOverBunEndToEnd(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults: %v", err)
	}
	db := newIntegrationDB(t)

	factory, err := container.NewSessionFactory(db)
	if err != nil {
		t.Fatalf("NewSessionFactory: %v", err)
	}
	factory.RegisterFilter("active", "active = 1")

	tpl, err := container.NewTemplate(factory,
		sessiontemplate.WithFilters("active"),
		sessiontemplate.WithCacheQueries(),
	)
	if err != nil {
		t.Fatalf("NewTemplate: %v", err)
	}
	ctx := context.Background()

	// Seed through an ambient auto-flush session so the write guard allows it.
	seed, err := factory.OpenSession(ctx)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	seedCtx := session.WithHolder(ctx, session.NewHolder(seed))
	if err := tpl.Insert(seedCtx, &User{ID: "u1", Name: "ana", Active: 1}); err != nil {
		t.Fatalf("Insert u1: %v", err)
	}
	if err := tpl.Insert(seedCtx, &User{ID: "u2", Name: "bo", Active: 0}); err != nil {
		t.Fatalf("Insert u2: %v", err)
	}
	if err := seed.Close(); err != nil {
		t.Fatalf("close seed session: %v", err)
	}

	// The template-level filter hides inactive rows.
	users, err := sessiontemplate.Find[User](ctx, tpl, "SELECT * FROM users ORDER BY id")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(users) != 1 || users[0].ID != "u1" {
		t.Fatalf("filter not applied, got %+v", users)
	}

	// Template-opened sessions are manual flush; writes must be rejected.
	if err := tpl.Insert(ctx, &User{ID: "u3", Active: 1}); !session.IsUsage(err) {
		t.Fatalf("write without ambient session must fail as usage error, got %v", err)
	}

	got, found, err := sessiontemplate.Get[User](ctx, tpl, "SELECT * FROM users WHERE id = ?", "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found || got.Name != "ana" {
		t.Fatalf("unexpected row %+v found=%v", got, found)
	}
}

func TestQueryCacheSharedAcrossExecutions(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults: %v", err)
	}
	db := newIntegrationDB(t)
	if _, err := db.ExecContext(context.Background(),
		"INSERT INTO users (id, name, active) VALUES ('u1', 'ana', 1)"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	factory, err := container.NewSessionFactory(db)
	if err != nil {
		t.Fatalf("NewSessionFactory: %v", err)
	}
	tpl, err := container.NewTemplate(factory, sessiontemplate.WithCacheQueries())
	if err != nil {
		t.Fatalf("NewTemplate: %v", err)
	}
	ctx := context.Background()

	read := func() []User {
		t.Helper()
		users, err := sessiontemplate.Find[User](ctx, tpl, "SELECT * FROM users")
		if err != nil {
			t.Fatalf("Find: %v", err)
		}
		return users
	}

	if got := read(); len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}

	// A row inserted behind the cache's back stays invisible until the
	// region is invalidated, even from a fresh template execution.
	if _, err := db.ExecContext(ctx,
		"INSERT INTO users (id, name, active) VALUES ('u2', 'bo', 1)"); err != nil {
		t.Fatalf("hidden insert: %v", err)
	}
	if got := read(); len(got) != 1 {
		t.Fatalf("expected cached snapshot, got %d rows", len(got))
	}

	if err := container.QueryCache().Invalidate(ctx, ""); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if got := read(); len(got) != 2 {
		t.Fatalf("expected fresh read after invalidation, got %d rows", len(got))
	}
}

// cacheOp stands in for the declarative metadata the operation source
// resolves per (method, target) pair.
type cacheOp struct {
	Region string
}

type baseStore struct{}

func (baseStore) Save(ctx context.Context, u *User) error { return nil }

type derivedStore struct{ baseStore }

func TestOperationSourceFallbackResolution(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults: %v", err)
	}

	var finds atomic.Int64
	registry := opsource.NewRegistry[cacheOp]()
	registry.Register(opsource.MethodOf[baseStore]("Save"), cacheOp{Region: "users"})

	counted := opsource.FinderFunc[cacheOp](func(m opsource.Method, target reflect.Type) (cacheOp, bool, error) {
		finds.Add(1)
		return registry.FindOperation(m, target)
	})
	source := NewOperationSource[cacheOp](container, counted)

	save := opsource.MethodOf[baseStore]("Save")
	derived := reflect.TypeOf(derivedStore{})

	// The declared method resolves even when probed through a subtype that
	// only promotes it, and repeated resolutions come from the cache.
	for i := 0; i < 3; i++ {
		op, found, err := source.Operation(save, derived)
		if err != nil {
			t.Fatalf("Operation: %v", err)
		}
		if !found || op.Region != "users" {
			t.Fatalf("unexpected resolution op=%+v found=%v", op, found)
		}
	}
	if got := finds.Load(); got != 2 {
		t.Fatalf("expected one computation with two finder probes, got %d", got)
	}
}
