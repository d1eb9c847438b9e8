// Package config loads the mailguard YAML configuration: SMTP provider,
// quota ceilings, retry policy, recipient validation, queue and server
// settings, with defaults applied for every omitted value.
package config
