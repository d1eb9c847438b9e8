// Package ratelimit provides the outbound mail quota guard: fixed-window
// counters enforcing per-recipient and global ceilings per minute and per
// hour, backed by an injectable Store and swept by a background task with an
// explicit Start/Stop lifecycle.
package ratelimit
