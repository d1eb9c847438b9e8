// Package retry runs an operation with bounded, jittered exponential backoff.
// Transient failures, as decided by a pluggable classifier, are retried;
// everything else is returned to the caller unchanged.
package retry
