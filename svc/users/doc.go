// Package users stores employer accounts and their plan entitlement. The
// plan field is the single source of truth for posting limits; only the
// billing paths write it.
package users
