// Package respcache is a coarse, namespaced read-through cache for GET
// responses, backed by Redis. Entries are keyed by the normalized request
// path and query; invalidation removes a whole namespace at once rather than
// tracking entries per entity.
//
// The cache is strictly best-effort: when disabled or when the backend is
// unreachable, reads pass through to the handler and invalidations become
// no-ops, with nothing surfaced to the caller beyond a log line.
package respcache
