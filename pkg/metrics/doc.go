// Package metrics defines the Prometheus metrics for mail dispatch, quota
// decisions, transport attempts and the mail queue, and exposes an HTTP
// handler for scraping them.
package metrics
