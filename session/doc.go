// Package session defines the unit-of-work handle abstraction shared by the
// rest of the module: the Session and Query interfaces, the Configurable
// capability applied to sub-resources, the context-bound Holder for ambient
// session reuse, and the unified DataAccessError hierarchy.
//
// # Sessions and Queries
//
// A Session represents one logical unit of work against an external store.
// Queries created from a session are sub-resources; they accept cache,
// limit, and timeout configuration through the Configurable interface so
// that decorating layers (see the sessiontemplate package) can prepare them
// without inspecting runtime types.
//
// # Ambient sessions
//
// A Holder binds an open session to a context. Layers that open a session
// for a whole request or transaction call WithHolder once; template
// executions below them reuse the bound session and leave closing it to the
// layer that opened it. An optional deadline on the holder propagates as a
// timeout to every query prepared during those executions.
//
// # Errors
//
// Store and driver failures surface as DataAccessError with KindResource;
// caller mistakes surface with KindUsage before the store is touched.
// Anything else is application logic and passes through untranslated.
package session
