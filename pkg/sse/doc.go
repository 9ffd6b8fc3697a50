// Package sse maintains the process-wide registry of live notification
// connections, keyed by user with at most one connection per user. The
// registry is lossy: sends are non-blocking and a full consumer
// buffer drops the event, because persisted notifications remain the record
// of truth and the live stream is only a best-effort accelerant.
package sse
