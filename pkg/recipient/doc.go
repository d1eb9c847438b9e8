// Package recipient validates and normalizes outbound email destinations
// before any network activity takes place. It covers single addresses,
// batches, deduplication of recipient lists and envelope-level checks of a
// message (recipients, subject, body).
package recipient
