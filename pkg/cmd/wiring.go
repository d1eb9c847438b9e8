package cmd

import (
	"go.uber.org/zap"

	"github.com/telekom/mailguard/pkg/config"
	"github.com/telekom/mailguard/pkg/mail"
	"github.com/telekom/mailguard/pkg/ratelimit"
	"github.com/telekom/mailguard/pkg/recipient"
	"github.com/telekom/mailguard/pkg/retry"
)

// pipeline is the assembled dispatch stack.
type pipeline struct {
	validator  *recipient.Validator
	guard      *ratelimit.Guard
	sender     mail.Sender
	dispatcher *mail.Dispatcher
	queue      *mail.Queue
}

func quotaConfig(cfg config.Config, log *zap.SugaredLogger) ratelimit.Config {
	sweep, err := config.ParseDuration("quota.sweepInterval", cfg.Quota.SweepInterval, ratelimit.DefaultSweepInterval)
	if err != nil {
		log.Warn(err)
	}
	return ratelimit.Config{
		Limits: ratelimit.Limits{
			RecipientPerMinute: cfg.Quota.RecipientPerMinute,
			RecipientPerHour:   cfg.Quota.RecipientPerHour,
			GlobalPerMinute:    cfg.Quota.GlobalPerMinute,
			GlobalPerHour:      cfg.Quota.GlobalPerHour,
		},
		SweepInterval: sweep,
	}
}

func retryOptions(cfg config.Config, log *zap.SugaredLogger) retry.Options {
	def := retry.DefaultOptions()
	initial, err := config.ParseDuration("retry.initialDelay", cfg.Retry.InitialDelay, def.InitialDelay)
	if err != nil {
		log.Warn(err)
	}
	maxDelay, err := config.ParseDuration("retry.maxDelay", cfg.Retry.MaxDelay, def.MaxDelay)
	if err != nil {
		log.Warn(err)
	}
	return retry.Options{
		MaxRetries:        cfg.Retry.MaxRetries,
		InitialDelay:      initial,
		BackoffMultiplier: cfg.Retry.BackoffMultiplier,
		MaxDelay:          maxDelay,
	}
}

func validatorOptions(cfg config.Config) recipient.Options {
	return recipient.Options{
		AllowEmpty:      cfg.Validation.AllowEmpty,
		BlockDisposable: cfg.BlockDisposable(),
		MaxLength:       cfg.Validation.MaxLength,
	}
}

// newPipeline builds every component from cfg. Nothing is started.
func newPipeline(cfg config.Config, disableEmail bool, log *zap.SugaredLogger) *pipeline {
	p := &pipeline{
		validator: recipient.New(validatorOptions(cfg)),
		guard:     ratelimit.New(quotaConfig(cfg, log), ratelimit.WithLogger(log)),
	}
	if disableEmail || cfg.Mail.Host == "" {
		if !disableEmail {
			log.Warn("mail.host is empty; email sending is disabled")
		}
		p.sender = mail.NewNoopSender(log)
	} else {
		p.sender = mail.NewSender(cfg.Mail, log)
	}
	p.dispatcher = mail.NewDispatcher(p.validator, p.guard, p.sender, retryOptions(cfg, log), log)
	p.queue = mail.NewQueue(p.dispatcher, p.sender.GetHost(), log, cfg.Queue.MaxDeferrals, cfg.Queue.Size)
	return p
}
