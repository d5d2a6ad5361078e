// Package content owns the cache of derived assets and the interceptors
// that supply or edit them.
//
// Cache entries are keyed by (asset name, locale). Mods register
// interceptors at activation or later; every registration incrementally
// invalidates exactly the entries whose key falls in the new interceptor's
// declared scope, so steady-state registrations never flush the whole
// cache. Reads vastly outnumber invalidations, so the coordinator uses a
// single read-write lock rather than a global mutex.
package content
