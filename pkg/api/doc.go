// Package api serves the operational HTTP surface of mailguard: health and
// metrics endpoints, quota statistics, recipient validation and message
// submission into the mail queue.
package api
