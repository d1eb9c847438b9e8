// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package recipient

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	// DefaultMaxLength is the historical ceiling for a forward-path address.
	DefaultMaxLength = 254

	// ProductionEnvironment enables disposable-domain blocking by default.
	ProductionEnvironment = "production"
)

// Code identifies why an address was rejected.
type Code string

const (
	CodeRequired   Code = "required"
	CodeTooLong    Code = "too_long"
	CodeInvalid    Code = "invalid_format"
	CodeDisposable Code = "disposable_domain"
)

// Options configures single-address validation.
type Options struct {
	// AllowEmpty accepts an empty (or whitespace-only) address as valid.
	AllowEmpty bool
	// BlockDisposable rejects addresses on known temporary-mail domains.
	BlockDisposable bool
	// MaxLength is the maximum accepted length of the normalized address.
	// Zero or negative values fall back to DefaultMaxLength.
	MaxLength int
}

// DefaultOptions returns the options used for the given runtime environment.
// Disposable domains are only blocked when environment is exactly
// ProductionEnvironment.
func DefaultOptions(environment string) Options {
	return Options{
		BlockDisposable: environment == ProductionEnvironment,
		MaxLength:       DefaultMaxLength,
	}
}

// Result is the outcome of validating one address.
type Result struct {
	Valid   bool   `json:"valid"`
	Address string `json:"address"`
	Code    Code   `json:"code,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Rejection describes one address dropped from a batch.
type Rejection struct {
	Input  string `json:"input"`
	Code   Code   `json:"code"`
	Reason string `json:"reason"`
}

// BatchResult is the outcome of validating a list of addresses.
type BatchResult struct {
	Valid    bool        `json:"valid"`
	Accepted []string    `json:"accepted"`
	Rejected []Rejection `json:"rejected"`
}

// grammar checks address syntax. validator.Validate caches internally and is
// safe for concurrent use.
var grammar = validator.New()

// Validator applies a fixed set of Options. It holds no mutable state.
type Validator struct {
	opts Options
}

// New returns a Validator using opts.
func New(opts Options) *Validator {
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxLength
	}
	return &Validator{opts: opts}
}

// Options returns the effective options.
func (v *Validator) Options() Options {
	return v.opts
}

// Validate normalizes raw and decides whether it is an acceptable address.
func (v *Validator) Validate(raw string) Result {
	addr := normalize(raw)

	if addr == "" {
		if v.opts.AllowEmpty {
			return Result{Valid: true}
		}
		return reject(addr, CodeRequired, "Email address is required")
	}
	if len(addr) > v.opts.MaxLength {
		return reject(addr, CodeTooLong, fmt.Sprintf("Email address exceeds maximum length of %d characters", v.opts.MaxLength))
	}
	if !wellFormed(addr) {
		return reject(addr, CodeInvalid, "Invalid email address format")
	}
	if v.opts.BlockDisposable && IsDisposableDomain(domainOf(addr)) {
		return reject(addr, CodeDisposable, "Disposable email addresses are not allowed")
	}
	return Result{Valid: true, Address: addr}
}

// ValidateBatch validates every element of raw. The batch is valid only when
// it is non-empty and every element is valid. Accepted keeps input order;
// empty addresses allowed by AllowEmpty are not listed.
func (v *Validator) ValidateBatch(raw []string) BatchResult {
	res := BatchResult{
		Accepted: make([]string, 0, len(raw)),
		Rejected: []Rejection{},
	}
	for _, in := range raw {
		r := v.Validate(in)
		if !r.Valid {
			res.Rejected = append(res.Rejected, Rejection{Input: in, Code: r.Code, Reason: r.Reason})
			continue
		}
		if r.Address != "" {
			res.Accepted = append(res.Accepted, r.Address)
		}
	}
	res.Valid = len(raw) > 0 && len(res.Rejected) == 0
	return res
}

// NormalizeRecipients lower-cases, trims and deduplicates raw, silently
// dropping entries that are empty or syntactically invalid. Duplicates and
// dropped inputs are returned in removed, in input order and as given.
func NormalizeRecipients(raw []string) (accepted, removed []string) {
	accepted = make([]string, 0, len(raw))
	removed = []string{}
	seen := make(map[string]struct{}, len(raw))

	for _, in := range raw {
		addr := normalize(in)
		if addr == "" || len(addr) > DefaultMaxLength || !wellFormed(addr) {
			removed = append(removed, in)
			continue
		}
		if _, dup := seen[addr]; dup {
			removed = append(removed, in)
			continue
		}
		seen[addr] = struct{}{}
		accepted = append(accepted, addr)
	}
	return accepted, removed
}

func reject(addr string, code Code, reason string) Result {
	return Result{Address: addr, Code: code, Reason: reason}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func wellFormed(addr string) bool {
	return grammar.Var(addr, "email") == nil
}

func domainOf(addr string) string {
	i := strings.LastIndexByte(addr, '@')
	if i < 0 {
		return ""
	}
	return strings.TrimSuffix(addr[i+1:], ".")
}
