package sessiontemplate

import (
	"context"

	"github.com/goliatone/go-session-template/session"
)

// Find runs the given statement through a proxied execution and scans all
// rows into a slice of T. The query is prepared with the template's cache
// and limit settings before it executes.
func Find[T any](ctx context.Context, t *Template, query string, args ...any) ([]T, error) {
	return Execute(ctx, t, func(ctx context.Context, s session.Session) ([]T, error) {
		var out []T
		if err := s.Query(query, args...).Scan(ctx, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// FindNamed runs a statement registered under name on the session factory.
func FindNamed[T any](ctx context.Context, t *Template, name string, args ...any) ([]T, error) {
	return Execute(ctx, t, func(ctx context.Context, s session.Session) ([]T, error) {
		q, err := s.NamedQuery(name, args...)
		if err != nil {
			return nil, err
		}
		var out []T
		if err := q.Scan(ctx, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// Get runs the statement and returns the first row. The second return is
// false when the statement matched nothing.
func Get[T any](ctx context.Context, t *Template, query string, args ...any) (T, bool, error) {
	var zero T
	rows, err := Execute(ctx, t, func(ctx context.Context, s session.Session) ([]T, error) {
		q := s.Query(query, args...)
		q.SetMaxResults(1)
		var out []T
		if err := q.Scan(ctx, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return zero, false, err
	}
	if len(rows) == 0 {
		return zero, false, nil
	}
	return rows[0], true, nil
}

// Insert persists the model through the write-guard: against a manual-flush
// session with write checking enabled it fails before the session is
// touched.
func (t *Template) Insert(ctx context.Context, model any) error {
	return t.write(ctx, func(ctx context.Context, s session.Session) error {
		return s.Insert(ctx, model)
	})
}

// InsertAll persists the models in order, stopping at the first failure.
func (t *Template) InsertAll(ctx context.Context, models ...any) error {
	return t.write(ctx, func(ctx context.Context, s session.Session) error {
		for _, model := range models {
			if err := s.Insert(ctx, model); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update applies the model's state to its row, guarded like Insert.
func (t *Template) Update(ctx context.Context, model any) error {
	return t.write(ctx, func(ctx context.Context, s session.Session) error {
		return s.Update(ctx, model)
	})
}

// Delete removes the model's row, guarded like Insert.
func (t *Template) Delete(ctx context.Context, model any) error {
	return t.write(ctx, func(ctx context.Context, s session.Session) error {
		return s.Delete(ctx, model)
	})
}

// BulkUpdate executes an update- or delete-class statement and returns the
// number of affected rows. The statement goes through query preparation,
// so ambient timeouts and row limits apply.
func (t *Template) BulkUpdate(ctx context.Context, query string, args ...any) (int64, error) {
	return Execute(ctx, t, func(ctx context.Context, s session.Session) (int64, error) {
		if err := t.checkWriteAllowed(s); err != nil {
			return 0, err
		}
		return s.Query(query, args...).Exec(ctx)
	})
}

func (t *Template) write(ctx context.Context, op func(context.Context, session.Session) error) error {
	_, err := Execute(ctx, t, func(ctx context.Context, s session.Session) (struct{}, error) {
		if err := t.checkWriteAllowed(s); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, op(ctx, s)
	})
	return err
}
