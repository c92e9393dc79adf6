package bunsession

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-session-template/cache"
	"github.com/goliatone/go-session-template/pkg/testsupport"
	"github.com/goliatone/go-session-template/querycache"
	"github.com/goliatone/go-session-template/session"
)

// User is the model used across these tests.
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID     string `bun:"id,pk"`
	Name   string `bun:"name"`
	Active int64  `bun:"active"`
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	testsupport.ExecSQLScript(t, sqldb, testsupport.FixturePath("schema.sql"))
	return db
}

func seedUsers(t *testing.T, db *bun.DB, users ...User) {
	t.Helper()
	for _, u := range users {
		_, err := db.ExecContext(context.Background(),
			"INSERT INTO users (id, name, active) VALUES (?, ?, ?)", u.ID, u.Name, u.Active)
		if err != nil {
			t.Fatalf("seed user %s: %v", u.ID, err)
		}
	}
}

func newRegions(t *testing.T) *querycache.Regions {
	t.Helper()
	svc, err := cache.NewCacheService(cache.DefaultConfig())
	if err != nil {
		t.Fatalf("cache service: %v", err)
	}
	return querycache.New(svc)
}

func TestSessionQueryScansRows(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db,
		User{ID: "u1", Name: "ana", Active: 1},
		User{ID: "u2", Name: "bo", Active: 0},
	)
	factory, err := NewFactory(db)
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}

	ctx := context.Background()
	sess, err := factory.OpenSession(ctx)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	defer sess.Close()

	var users []User
	if err := sess.Query("SELECT * FROM users ORDER BY id").Scan(ctx, &users); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(users) != 2 || users[0].ID != "u1" {
		t.Fatalf("unexpected rows %+v", users)
	}
}

func TestSessionClosedIsUsageError(t *testing.T) {
	db := newTestDB(t)
	factory, _ := NewFactory(db)

	ctx := context.Background()
	sess, err := factory.OpenSession(ctx)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Closing twice is harmless.
	if err := sess.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	var users []User
	err = sess.Query("SELECT * FROM users").Scan(ctx, &users)
	if !session.IsUsage(err) {
		t.Fatalf("query on closed session must be usage error, got %v", err)
	}
}

func TestFilterRestrictsQueries(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db,
		User{ID: "u1", Name: "ana", Active: 1},
		User{ID: "u2", Name: "bo", Active: 0},
	)
	factory, _ := NewFactory(db)
	factory.RegisterFilter("active", "active = 1")

	ctx := context.Background()
	sess, err := factory.OpenSession(ctx)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	defer sess.Close()

	if err := sess.EnableFilter("active"); err != nil {
		t.Fatalf("EnableFilter: %v", err)
	}

	var users []User
	if err := sess.Query("SELECT * FROM users").Scan(ctx, &users); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(users) != 1 || users[0].ID != "u1" {
		t.Fatalf("filter not applied, got %+v", users)
	}

	if err := sess.DisableFilter("active"); err != nil {
		t.Fatalf("DisableFilter: %v", err)
	}
	users = nil
	if err := sess.Query("SELECT * FROM users").Scan(ctx, &users); err != nil {
		t.Fatalf("Scan after disable: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected all rows after disabling the filter, got %d", len(users))
	}
}

func TestEnableUnknownFilterFailsFast(t *testing.T) {
	db := newTestDB(t)
	factory, _ := NewFactory(db)

	sess, err := factory.OpenSession(context.Background())
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	defer sess.Close()

	if err := sess.EnableFilter("nope"); !session.IsUsage(err) {
		t.Fatalf("unknown filter must be a usage error, got %v", err)
	}
	// Inactive filters disable without error.
	if err := sess.DisableFilter("nope"); err != nil {
		t.Fatalf("DisableFilter on inactive filter: %v", err)
	}
}

func TestNamedQuery(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db, User{ID: "u1", Name: "ana", Active: 1})
	factory, _ := NewFactory(db)
	factory.RegisterNamedQuery("user-by-id", "SELECT * FROM users WHERE id = ?")

	ctx := context.Background()
	sess, err := factory.OpenSession(ctx)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	defer sess.Close()

	q, err := sess.NamedQuery("user-by-id", "u1")
	if err != nil {
		t.Fatalf("NamedQuery: %v", err)
	}
	var users []User
	if err := q.Scan(ctx, &users); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(users) != 1 || users[0].Name != "ana" {
		t.Fatalf("unexpected rows %+v", users)
	}

	if _, err := sess.NamedQuery("missing"); !session.IsUsage(err) {
		t.Fatalf("unknown named query must be usage error, got %v", err)
	}
}

func TestMaxResultsCapsRows(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db,
		User{ID: "u1", Active: 1},
		User{ID: "u2", Active: 1},
		User{ID: "u3", Active: 1},
	)
	factory, _ := NewFactory(db)

	ctx := context.Background()
	sess, err := factory.OpenSession(ctx)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	defer sess.Close()

	q := sess.Query("SELECT * FROM users ORDER BY id")
	q.SetMaxResults(2)
	var users []User
	if err := q.Scan(ctx, &users); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(users))
	}
}

func TestCacheableQueryReadsThrough(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db, User{ID: "u1", Name: "ana", Active: 1})
	regions := newRegions(t)
	factory, _ := NewFactory(db, WithQueryCache(regions))

	ctx := context.Background()
	sess, err := factory.OpenSession(ctx)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	defer sess.Close()

	scan := func() []User {
		t.Helper()
		q := sess.Query("SELECT * FROM users ORDER BY id")
		q.SetCacheable(true)
		var users []User
		if err := q.Scan(ctx, &users); err != nil {
			t.Fatalf("Scan: %v", err)
		}
		return users
	}

	if got := scan(); len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}

	// Sneak a row in behind the cache's back: the snapshot must still win.
	seedUsers(t, db, User{ID: "u2", Name: "bo", Active: 1})
	if got := scan(); len(got) != 1 {
		t.Fatalf("expected cached snapshot with 1 row, got %d", len(got))
	}

	if err := regions.Invalidate(ctx, querycache.DefaultRegion); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if got := scan(); len(got) != 2 {
		t.Fatalf("expected fresh read with 2 rows after invalidation, got %d", len(got))
	}
}

func TestWritesInvalidateQueryCache(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db, User{ID: "u1", Name: "ana", Active: 1})
	regions := newRegions(t)
	factory, _ := NewFactory(db, WithQueryCache(regions))

	ctx := context.Background()
	sess, err := factory.OpenSession(ctx)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	defer sess.Close()

	q := sess.Query("SELECT * FROM users")
	q.SetCacheable(true)
	var users []User
	if err := q.Scan(ctx, &users); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 row, got %d", len(users))
	}

	if err := sess.Insert(ctx, &User{ID: "u2", Name: "bo", Active: 1}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	q2 := sess.Query("SELECT * FROM users")
	q2.SetCacheable(true)
	users = nil
	if err := q2.Scan(ctx, &users); err != nil {
		t.Fatalf("Scan after insert: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("insert must invalidate the region, got %d rows", len(users))
	}
}

func TestSessionWritesRoundTrip(t *testing.T) {
	db := newTestDB(t)
	factory, _ := NewFactory(db)

	ctx := context.Background()
	sess, err := factory.OpenSession(ctx)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	defer sess.Close()

	u := &User{ID: "u1", Name: "ana", Active: 1}
	if err := sess.Insert(ctx, u); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	u.Name = "ana maria"
	if err := sess.Update(ctx, u); err != nil {
		t.Fatalf("Update: %v", err)
	}

	var users []User
	if err := sess.Query("SELECT * FROM users").Scan(ctx, &users); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(users) != 1 || users[0].Name != "ana maria" {
		t.Fatalf("unexpected rows %+v", users)
	}

	if err := sess.Delete(ctx, u); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	users = nil
	if err := sess.Query("SELECT * FROM users").Scan(ctx, &users); err != nil {
		t.Fatalf("Scan after delete: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("expected no rows, got %+v", users)
	}
}

func TestBulkExecReturnsAffectedRows(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db,
		User{ID: "u1", Active: 0},
		User{ID: "u2", Active: 0},
	)
	factory, _ := NewFactory(db)

	ctx := context.Background()
	sess, err := factory.OpenSession(ctx)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	defer sess.Close()

	affected, err := sess.Query("UPDATE users SET active = 1 WHERE active = 0").Exec(ctx)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if affected != 2 {
		t.Fatalf("expected 2 affected rows, got %d", affected)
	}
}

func TestTranslateRecognizesSQLErrors(t *testing.T) {
	if Translate(nil) != nil {
		t.Error("nil stays nil")
	}
	if err := Translate(sql.ErrNoRows); !session.IsResource(err) {
		t.Errorf("sql.ErrNoRows must translate, got %v", err)
	}
	appErr := context.Canceled
	if err := Translate(appErr); err != nil {
		t.Errorf("unrecognized errors must be declined, got %v", err)
	}
}
