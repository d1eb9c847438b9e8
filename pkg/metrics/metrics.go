// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Dispatch outcomes keyed by status (sent, rejected, rate_limited, failed)
	MailDispatch = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailguard_dispatch_total",
		Help: "Total number of dispatch calls grouped by outcome",
	}, []string{"status"})
	MailRecipientsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailguard_recipients_rejected_total",
		Help: "Total number of recipient addresses rejected or dropped before sending",
	}, []string{"code"})

	// Quota metrics
	MailQuotaAllowed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mailguard_quota_allowed_total",
		Help: "Total number of quota checks that passed every ceiling",
	})
	MailQuotaDenied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailguard_quota_denied_total",
		Help: "Total number of quota checks denied, grouped by the violated ceiling",
	}, []string{"ceiling"})

	// Transport metrics
	MailSendSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailguard_mail_send_success_total",
		Help: "Total number of successful mail sends",
	}, []string{"host"})
	MailSendFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailguard_mail_send_failure_total",
		Help: "Total number of failed mail send attempts",
	}, []string{"host"})
	MailRetryScheduled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailguard_mail_retry_scheduled_total",
		Help: "Total number of send retries scheduled after a transient failure",
	}, []string{"host"})

	// Queue metrics
	MailQueued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailguard_mail_queued_total",
		Help: "Total number of messages accepted into the mail queue",
	}, []string{"host"})
	MailQueueDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailguard_mail_queue_dropped_total",
		Help: "Total number of messages dropped because the queue was full or stopping",
	}, []string{"host"})
	MailQueueDeferred = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailguard_mail_queue_deferred_total",
		Help: "Total number of queued messages deferred because of quota",
	}, []string{"host"})
)

func init() {
	prometheus.MustRegister(MailDispatch)
	prometheus.MustRegister(MailRecipientsRejected)
	prometheus.MustRegister(MailQuotaAllowed)
	prometheus.MustRegister(MailQuotaDenied)
	prometheus.MustRegister(MailSendSuccess)
	prometheus.MustRegister(MailSendFailure)
	prometheus.MustRegister(MailRetryScheduled)
	prometheus.MustRegister(MailQueued)
	prometheus.MustRegister(MailQueueDropped)
	prometheus.MustRegister(MailQueueDeferred)
}

// MetricsHandler returns an http.Handler exposing Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
