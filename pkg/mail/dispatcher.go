// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package mail

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/telekom/mailguard/pkg/metrics"
	"github.com/telekom/mailguard/pkg/ratelimit"
	"github.com/telekom/mailguard/pkg/recipient"
	"github.com/telekom/mailguard/pkg/retry"
)

// Status is the outcome of a dispatch.
type Status string

const (
	StatusSent        Status = "sent"
	StatusRejected    Status = "rejected"
	StatusRateLimited Status = "rate_limited"
	StatusFailed      Status = "failed"
)

// Result describes what happened to one message.
type Result struct {
	ID         string        `json:"id,omitempty"`
	Status     Status        `json:"status"`
	Recipients []string      `json:"recipients,omitempty"`
	Removed    []string      `json:"removed,omitempty"`
	Problems   []string      `json:"problems,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	RetryAfter time.Duration `json:"retryAfter,omitempty"`
	Attempts   int           `json:"attempts,omitempty"`
}

// QuotaGuard decides whether a batch of recipients may be sent to now.
type QuotaGuard interface {
	CheckBatch(recipients []string) ratelimit.Decision
}

const tracerName = "github.com/telekom/mailguard/pkg/mail"

// Dispatcher sends a message through validation, quota and retry, in that order.
type Dispatcher struct {
	validator *recipient.Validator
	quota     QuotaGuard
	sender    Sender
	retry     retry.Options
	log       *zap.SugaredLogger
}

// NewDispatcher wires the dispatch pipeline.
func NewDispatcher(v *recipient.Validator, q QuotaGuard, s Sender, opts retry.Options, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		validator: v,
		quota:     q,
		sender:    s,
		retry:     opts,
		log:       log.Named("dispatcher"),
	}
}

// Dispatch validates msg, consumes quota for its recipients and sends it.
// Rejections and quota denials are reported in Result with a nil error. A
// non-nil error is the transport's final error, returned unchanged.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) (res Result, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "mail.Dispatch",
		trace.WithAttributes(
			attribute.String("mail.id", msg.ID),
			attribute.Int("mail.recipients", len(msg.To)),
		))
	defer func() { endDispatchSpan(span, res, err) }()

	res = Result{ID: msg.ID}

	if report := recipient.ValidateEnvelope(msg.Envelope()); !report.Valid {
		return d.reject(res, report.Errors), nil
	}

	accepted, removed := recipient.NormalizeRecipients(msg.To)
	res.Removed = removed
	if len(removed) > 0 {
		metrics.MailRecipientsRejected.WithLabelValues("dropped").Add(float64(len(removed)))
		d.log.Infow("Dropped recipients during normalization", "id", msg.ID, "removed", removed)
	}
	if len(accepted) == 0 {
		return d.reject(res, []string{"No valid recipients remain after normalization"}), nil
	}

	batch := d.validator.ValidateBatch(accepted)
	if !batch.Valid {
		problems := make([]string, 0, len(batch.Rejected))
		for _, r := range batch.Rejected {
			metrics.MailRecipientsRejected.WithLabelValues(string(r.Code)).Inc()
			problems = append(problems, fmt.Sprintf("%s: %s", r.Input, r.Reason))
		}
		return d.reject(res, problems), nil
	}
	res.Recipients = batch.Accepted

	if decision := d.quota.CheckBatch(res.Recipients); !decision.Allowed {
		res.Status = StatusRateLimited
		res.Reason = decision.Reason
		res.RetryAfter = decision.RetryAfter
		metrics.MailDispatch.WithLabelValues(string(res.Status)).Inc()
		d.log.Warnw("Mail rate limited",
			"id", msg.ID,
			"ceiling", decision.Ceiling,
			"reason", decision.Reason,
			"retryAfterMs", decision.RetryAfterMs())
		return res, nil
	}

	msg.To = res.Recipients
	_, err = retry.Do(ctx, func(ctx context.Context) (struct{}, error) {
		res.Attempts++
		return struct{}{}, d.sender.Send(ctx, msg)
	}, d.retryOptions(msg.ID))
	if err != nil {
		res.Status = StatusFailed
		metrics.MailDispatch.WithLabelValues(string(res.Status)).Inc()
		d.log.Errorw("Mail send failed",
			"id", msg.ID,
			"attempts", res.Attempts,
			"receivers", len(res.Recipients),
			"error", err)
		return res, err
	}

	res.Status = StatusSent
	metrics.MailDispatch.WithLabelValues(string(res.Status)).Inc()
	d.log.Infow("Mail sent",
		"id", msg.ID,
		"attempts", res.Attempts,
		"receivers", len(res.Recipients),
		"subject", msg.Subject)
	return res, nil
}

func (d *Dispatcher) retryOptions(id string) retry.Options {
	opts := d.retry
	hook := opts.OnRetry
	opts.OnRetry = func(err error, attempt int, delay time.Duration) {
		metrics.MailRetryScheduled.WithLabelValues(d.sender.GetHost()).Inc()
		d.log.Warnw("Mail send attempt failed, retrying",
			"id", id,
			"attempt", attempt,
			"retryIn", delay.String(),
			"error", err)
		if hook != nil {
			hook(err, attempt, delay)
		}
	}
	return opts
}

func endDispatchSpan(span trace.Span, res Result, err error) {
	span.SetAttributes(
		attribute.String("mail.status", string(res.Status)),
		attribute.Int("mail.attempts", res.Attempts),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (d *Dispatcher) reject(res Result, problems []string) Result {
	res.Status = StatusRejected
	res.Problems = problems
	metrics.MailDispatch.WithLabelValues(string(res.Status)).Inc()
	d.log.Infow("Mail rejected before sending", "id", res.ID, "problems", problems)
	return res
}
