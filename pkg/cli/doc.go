// Package cli defines the flags of the mailguard server command, each of which
// falls back to a MAILGUARD_* environment variable.
package cli
