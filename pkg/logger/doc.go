// Package logger provides a small factory around log/slog plus typed
// attribute helpers so domain identifiers (user, order, subscription, job)
// are logged under consistent keys across the codebase.
package logger
