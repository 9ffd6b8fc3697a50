// Package notify implements the durable notification log and its
// best-effort live fan-out. The Manager always persists first; real-time
// delivery through the stream registry is an accelerant whose failure is
// logged and never propagated.
package notify
