// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package mail

import (
	"context"
	"crypto/tls"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gopkg.in/gomail.v2"

	"github.com/telekom/mailguard/pkg/config"
	"github.com/telekom/mailguard/pkg/metrics"
	"github.com/telekom/mailguard/pkg/recipient"
)

// Message is one outbound email.
type Message struct {
	ID      string   `json:"id,omitempty"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// Envelope returns the parts of m checked before dispatch.
func (m Message) Envelope() recipient.Envelope {
	return recipient.Envelope{To: m.To, Subject: m.Subject, HTML: m.HTML, Text: m.Text}
}

// Sender delivers a message over some transport. A single call is one attempt.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	GetHost() string
	GetPort() int
}

type sender struct {
	dialer        *gomail.Dialer
	senderAddress string
	senderName    string
	useBcc        bool
	limiter       *rate.Limiter
	log           *zap.SugaredLogger
}

// NewSender creates an SMTP sender for the given provider configuration.
func NewSender(cfg config.Mail, log *zap.SugaredLogger) Sender {
	log = log.Named("smtp")
	log.Infow("Initializing mail sender", "host", cfg.Host, "port", cfg.Port, "user", cfg.User)

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	if cfg.InsecureSkipVerify {
		log.Warnw("InsecureSkipVerify is enabled for mail TLS connection", "host", cfg.Host)
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // explicitly configured
	}

	senderName := cfg.SenderName
	if senderName == "" {
		senderName = "Mailguard"
	}

	var limiter *rate.Limiter
	if cfg.SendRatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.SendRatePerSecond), 1)
		log.Infow("SMTP send pacing enabled", "ratePerSecond", cfg.SendRatePerSecond)
	}

	return &sender{
		dialer:        d,
		senderAddress: cfg.Sender(),
		senderName:    senderName,
		useBcc:        cfg.UseBcc,
		limiter:       limiter,
		log:           log,
	}
}

func (s *sender) Send(ctx context.Context, msg Message) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	s.log.Debugw("Sending mail", "id", msg.ID, "receivers", len(msg.To), "subject", msg.Subject)
	m := s.build(msg)
	if err := s.dialer.DialAndSend(m); err != nil {
		metrics.MailSendFailure.WithLabelValues(s.GetHost()).Inc()
		return err
	}

	metrics.MailSendSuccess.WithLabelValues(s.GetHost()).Inc()
	return nil
}

func (s *sender) build(msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderAddress, s.senderName)
	if s.useBcc {
		m.SetHeader("Bcc", msg.To...)
	} else {
		m.SetHeader("To", msg.To...)
	}
	m.SetHeader("Subject", msg.Subject)
	if msg.ID != "" {
		m.SetHeader("X-Mailguard-ID", msg.ID)
	}

	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	case msg.HTML != "":
		m.SetBody("text/html", msg.HTML)
	default:
		m.SetBody("text/plain", msg.Text)
	}
	return m
}

func (s *sender) GetHost() string {
	return s.dialer.Host
}

func (s *sender) GetPort() int {
	return s.dialer.Port
}

type noopSender struct {
	log *zap.SugaredLogger
}

// NewNoopSender returns a Sender that only logs. It backs --disable-email.
func NewNoopSender(log *zap.SugaredLogger) Sender {
	return &noopSender{log: log.Named("noop-sender")}
}

func (n *noopSender) Send(_ context.Context, msg Message) error {
	n.log.Infow("Email sending disabled, dropping message",
		"id", msg.ID,
		"receivers", msg.To,
		"subject", msg.Subject)
	return nil
}

func (n *noopSender) GetHost() string { return "disabled" }

func (n *noopSender) GetPort() int { return 0 }
