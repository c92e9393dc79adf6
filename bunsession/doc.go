// Package bunsession implements the session abstraction over an uptrace/bun
// database.
//
// A Factory wraps a *bun.DB and opens sessions on dedicated pooled
// connections. Filters and named queries are registered on the factory:
//
//	factory, err := bunsession.NewFactory(db,
//		bunsession.WithQueryCache(regions),
//	)
//	factory.RegisterFilter("active", "active = 1")
//	factory.RegisterNamedQuery("all-users", "SELECT * FROM users ORDER BY id")
//
// Enabled filters restrict every SELECT a session runs by wrapping it as a
// subquery, so filter conditions apply to arbitrary statements without SQL
// parsing. Queries marked cacheable read through the factory's querycache
// regions; any write through a session or query invalidates the regions
// that factory has populated.
//
// Flush modes are advisory here: writes execute immediately, and
// FlushManual only arms the template's write-guard. Implementations with
// real write-behind can honor Flush fully behind the same interface.
package bunsession
