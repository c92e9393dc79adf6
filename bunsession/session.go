package bunsession

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-session-template/logging"
	"github.com/goliatone/go-session-template/session"
)

// bunSession is a unit of work over one dedicated connection. It is not
// safe for concurrent use; one caller drives it from open to close.
type bunSession struct {
	id      string
	factory *Factory
	conn    bun.Conn
	mode    session.FlushMode
	active  []string // enabled filter names, in activation order
	closed  bool
}

var _ session.Session = (*bunSession)(nil)

func (s *bunSession) Query(query string, args ...any) session.Query {
	return &bunQuery{sess: s, text: query, args: args}
}

func (s *bunSession) NamedQuery(name string, args ...any) (session.Query, error) {
	statement, ok := s.factory.namedQueries.Load(name)
	if !ok {
		return nil, session.NewUsageError("bunsession: unknown named query %q", name)
	}
	return &bunQuery{sess: s, text: statement, args: args}, nil
}

func (s *bunSession) Insert(ctx context.Context, model any) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if _, err := s.conn.NewInsert().Model(model).Exec(ctx); err != nil {
		return session.WrapResource(err, "insert %T", model)
	}
	s.factory.invalidateAfterWrite(ctx)
	return nil
}

func (s *bunSession) Update(ctx context.Context, model any) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if _, err := s.conn.NewUpdate().Model(model).WherePK().Exec(ctx); err != nil {
		return session.WrapResource(err, "update %T", model)
	}
	s.factory.invalidateAfterWrite(ctx)
	return nil
}

func (s *bunSession) Delete(ctx context.Context, model any) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if _, err := s.conn.NewDelete().Model(model).WherePK().Exec(ctx); err != nil {
		return session.WrapResource(err, "delete %T", model)
	}
	s.factory.invalidateAfterWrite(ctx)
	return nil
}

// Flush is a no-op: writes on this implementation execute immediately, and
// the flush mode only feeds the template's write-guard. It exists so
// session code stays portable to implementations with real write-behind.
func (s *bunSession) Flush(ctx context.Context) error {
	return s.ensureOpen()
}

func (s *bunSession) EnableFilter(name string) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if _, ok := s.factory.filters.Load(name); !ok {
		return session.NewUsageError("bunsession: unknown filter %q", name)
	}
	for _, active := range s.active {
		if active == name {
			return nil
		}
	}
	s.active = append(s.active, name)
	return nil
}

func (s *bunSession) DisableFilter(name string) error {
	for i, active := range s.active {
		if active == name {
			s.active = append(s.active[:i], s.active[i+1:]...)
			return nil
		}
	}
	// Disabling an inactive filter is harmless; cleanup paths rely on it.
	return nil
}

func (s *bunSession) FlushMode() session.FlushMode { return s.mode }

func (s *bunSession) SetFlushMode(mode session.FlushMode) { s.mode = mode }

func (s *bunSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.conn.Close()
	s.factory.logger.Debug("closed session", logging.Fields{"session": s.id})
	if err != nil {
		return session.WrapResource(err, "close connection")
	}
	return nil
}

func (s *bunSession) ensureOpen() error {
	if s.closed {
		return session.NewUsageError("bunsession: session %s is closed", s.id)
	}
	return nil
}

// activeConditions returns the SQL predicates of the enabled filters in
// activation order.
func (s *bunSession) activeConditions() []string {
	if len(s.active) == 0 {
		return nil
	}
	conds := make([]string, 0, len(s.active))
	for _, name := range s.active {
		if cond, ok := s.factory.filters.Load(name); ok {
			conds = append(conds, cond)
		}
	}
	return conds
}
