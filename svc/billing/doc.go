// Package billing owns the subscription lifecycle for employer accounts:
// plan catalog and posting limits, checkout session creation against the
// payment gateway, webhook reconciliation under at-least-once delivery,
// and the scheduled expiration and reminder sweeps.
//
// Every status change flows through the Store's guarded transitions, which
// apply a write only when the current status is a legal predecessor of the
// target. That single rule is what makes duplicate webhook deliveries,
// out-of-order statuses, and overlapping sweeps safe.
package billing
