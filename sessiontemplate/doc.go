// Package sessiontemplate manages the lifecycle of unit-of-work sessions
// around user callbacks.
//
// # Overview
//
// The central entry point is Execute: it obtains a session, wraps it in a
// close-suppressing proxy, runs the callback, translates resource-layer
// failures into the unified error hierarchy, and guarantees symmetric
// cleanup on every exit path.
//
//	tpl, err := sessiontemplate.New(factory,
//		sessiontemplate.WithCacheQueries(),
//		sessiontemplate.WithCacheRegion("reports"),
//		sessiontemplate.WithMaxResults(500),
//	)
//
//	users, err := sessiontemplate.Execute(ctx, tpl, func(ctx context.Context, s session.Session) ([]User, error) {
//		var out []User
//		err := s.Query("SELECT * FROM users WHERE active = ?", true).Scan(ctx, &out)
//		return out, err
//	})
//
// # Session acquisition and cleanup
//
// When a session.Holder is bound to the context, its session is reused and
// stays open; the template only disables its filters again on the way out.
// Without an ambient session the template opens one from the factory in
// manual flush mode and closes it when the callback returns. Exactly one of
// the two cleanups runs, and a cleanup failure never masks an error already
// propagating out of the callback.
//
// # The proxy
//
// Callbacks receive a forwarding proxy rather than the raw session. Close
// through the proxy is a no-op, and every Query or NamedQuery result is
// prepared with the template's cacheability, region, fetch-size, and
// max-results settings plus the remaining time-to-live of the ambient
// holder, if it carries a deadline. Use WithExposeNativeSession or
// ExecuteNative to opt out.
//
// # Errors
//
// Callback errors that already carry a session.DataAccessError pass through
// as-is; raw store errors go through the configured ErrorTranslator; all
// remaining errors are application logic and propagate unchanged.
package sessiontemplate
