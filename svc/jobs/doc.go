// Package jobs manages job postings and enforces the per-plan posting
// limits at write time.
package jobs
