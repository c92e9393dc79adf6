package bunsession

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-session-template/logging"
	"github.com/goliatone/go-session-template/querycache"
	"github.com/goliatone/go-session-template/session"
)

// bunQuery executes one statement against its session's connection.
// Configuration applied through the session.Configurable interface takes
// effect on the next Scan or Exec.
type bunQuery struct {
	sess       *bunSession
	text       string
	args       []any
	cacheable  bool
	region     string
	fetchSize  int
	maxResults int
	timeout    time.Duration
}

var _ session.Query = (*bunQuery)(nil)

func (q *bunQuery) SetCacheable(cacheable bool) { q.cacheable = cacheable }
func (q *bunQuery) SetCacheRegion(region string) { q.region = region }

// SetFetchSize records the fetch-size hint. database/sql exposes no
// row-fetch batching control, so the hint only shows up in query logs.
func (q *bunQuery) SetFetchSize(rows int) { q.fetchSize = rows }

func (q *bunQuery) SetMaxResults(rows int) { q.maxResults = rows }
func (q *bunQuery) SetTimeout(d time.Duration) { q.timeout = d }

// Scan executes the statement and scans all rows into dest. Active filters
// and the max-results cap wrap the statement as a subquery; cacheable scans
// read through the factory's query cache regions.
func (q *bunQuery) Scan(ctx context.Context, dest any) error {
	if err := q.sess.ensureOpen(); err != nil {
		return err
	}
	ctx, cancel := q.applyTimeout(ctx)
	defer cancel()

	text := q.composed()
	q.sess.factory.logger.Debug("scan query", logging.Fields{
		"session":    q.sess.id,
		"cacheable":  q.cacheable,
		"fetch_size": q.fetchSize,
	})

	load := func(ctx context.Context) error {
		if err := q.sess.conn.NewRaw(text, q.args...).Scan(ctx, dest); err != nil {
			return session.WrapResource(err, "scan query")
		}
		return nil
	}

	if q.cacheable && q.sess.factory.regions != nil {
		region := q.regionName()
		q.sess.factory.noteRegion(region)
		key := q.sess.factory.serializer.SerializeKey(text, q.args...)
		return q.sess.factory.regions.FetchInto(ctx, region, key, dest, load)
	}
	return load(ctx)
}

// Exec runs the statement for its side effects. Filters and row limits do
// not apply to update- or delete-class statements; the statement executes
// as written. Affected cache regions are invalidated afterwards.
func (q *bunQuery) Exec(ctx context.Context) (int64, error) {
	if err := q.sess.ensureOpen(); err != nil {
		return 0, err
	}
	ctx, cancel := q.applyTimeout(ctx)
	defer cancel()

	res, err := q.sess.conn.NewRaw(q.text, q.args...).Exec(ctx)
	if err != nil {
		return 0, session.WrapResource(err, "exec statement")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, session.WrapResource(err, "affected row count")
	}
	q.sess.factory.invalidateAfterWrite(ctx)
	return affected, nil
}

// composed wraps the statement with the session's active filter conditions
// and the max-results cap. Wrapping as a subquery keeps the composition
// valid for arbitrary SELECT statements without parsing them.
func (q *bunQuery) composed() string {
	text := q.text
	if conds := q.sess.activeConditions(); len(conds) > 0 {
		text = fmt.Sprintf("SELECT * FROM (%s) AS filtered WHERE %s", text, strings.Join(conds, " AND "))
	}
	if q.maxResults > 0 {
		text = fmt.Sprintf("SELECT * FROM (%s) AS limited LIMIT %d", text, q.maxResults)
	}
	return text
}

func (q *bunQuery) regionName() string {
	if q.region != "" {
		return q.region
	}
	return querycache.DefaultRegion
}

func (q *bunQuery) applyTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if q.timeout > 0 {
		return context.WithTimeout(ctx, q.timeout)
	}
	return ctx, func() {}
}
