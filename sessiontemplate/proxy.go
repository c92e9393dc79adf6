package sessiontemplate

import (
	"context"
	"time"

	"github.com/goliatone/go-session-template/session"
)

// sessionProxy is the forwarding wrapper executions hand to callbacks. It
// suppresses Close, so callback code cannot bypass the template's authority
// over the session lifecycle, and prepares every sub-resource produced
// through it. Proxy identity is pointer identity: two proxies around the
// same session are distinct values, matching the one-proxy-per-execution
// ownership model.
type sessionProxy struct {
	target session.Session
	tpl    *Template
	ttl    time.Duration
}

var _ session.Session = (*sessionProxy)(nil)

func (t *Template) newProxy(target session.Session, ttl time.Duration) *sessionProxy {
	return &sessionProxy{target: target, tpl: t, ttl: ttl}
}

// Query forwards to the target and prepares the resulting sub-resource
// before it reaches callback code. NamedQuery does the same, so every
// query-producing path through the proxy decorates its result.
func (p *sessionProxy) Query(query string, args ...any) session.Query {
	q := p.target.Query(query, args...)
	p.tpl.prepareQuery(q, p.ttl)
	return q
}

func (p *sessionProxy) NamedQuery(name string, args ...any) (session.Query, error) {
	q, err := p.target.NamedQuery(name, args...)
	if err != nil {
		return nil, err
	}
	p.tpl.prepareQuery(q, p.ttl)
	return q, nil
}

// Close is suppressed: only the template decides when the real session is
// released.
func (p *sessionProxy) Close() error { return nil }

func (p *sessionProxy) Insert(ctx context.Context, model any) error {
	return p.target.Insert(ctx, model)
}

func (p *sessionProxy) Update(ctx context.Context, model any) error {
	return p.target.Update(ctx, model)
}

func (p *sessionProxy) Delete(ctx context.Context, model any) error {
	return p.target.Delete(ctx, model)
}

func (p *sessionProxy) Flush(ctx context.Context) error {
	return p.target.Flush(ctx)
}

func (p *sessionProxy) EnableFilter(name string) error {
	return p.target.EnableFilter(name)
}

func (p *sessionProxy) DisableFilter(name string) error {
	return p.target.DisableFilter(name)
}

func (p *sessionProxy) FlushMode() session.FlushMode {
	return p.target.FlushMode()
}

func (p *sessionProxy) SetFlushMode(mode session.FlushMode) {
	p.target.SetFlushMode(mode)
}
