// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package recipient

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	t.Run("production blocks disposable domains", func(t *testing.T) {
		opts := DefaultOptions("production")
		assert.True(t, opts.BlockDisposable)
		assert.False(t, opts.AllowEmpty)
		assert.Equal(t, 254, opts.MaxLength)
	})

	t.Run("other environments do not", func(t *testing.T) {
		for _, env := range []string{"", "development", "staging", "Production"} {
			assert.False(t, DefaultOptions(env).BlockDisposable, "environment %q", env)
		}
	})

	t.Run("zero max length falls back to default", func(t *testing.T) {
		v := New(Options{})
		assert.Equal(t, DefaultMaxLength, v.Options().MaxLength)
	})
}

func TestValidate(t *testing.T) {
	v := New(DefaultOptions(""))

	tests := []struct {
		name    string
		input   string
		valid   bool
		address string
		code    Code
	}{
		{name: "plain address", input: "user@example.com", valid: true, address: "user@example.com"},
		{name: "trims and lower-cases", input: "  John.Doe@Example.COM \t", valid: true, address: "john.doe@example.com"},
		{name: "plus tag", input: "user+tag@example.com", valid: true, address: "user+tag@example.com"},
		{name: "subdomain", input: "a@mail.example.co.uk", valid: true, address: "a@mail.example.co.uk"},
		{name: "empty", input: "", code: CodeRequired},
		{name: "whitespace only", input: "   ", code: CodeRequired},
		{name: "missing at", input: "userexample.com", code: CodeInvalid},
		{name: "missing local part", input: "@example.com", code: CodeInvalid},
		{name: "missing domain", input: "user@", code: CodeInvalid},
		{name: "two ats", input: "a@b@example.com", code: CodeInvalid},
		{name: "embedded space", input: "us er@example.com", code: CodeInvalid},
		{name: "disposable allowed outside production", input: "user@mailinator.com", valid: true, address: "user@mailinator.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(tt.input)
			assert.Equal(t, tt.valid, res.Valid)
			if tt.valid {
				assert.Equal(t, tt.address, res.Address)
				assert.Empty(t, res.Reason)
				return
			}
			assert.Equal(t, tt.code, res.Code)
			assert.NotEmpty(t, res.Reason)
		})
	}
}

func TestValidateRequiredReason(t *testing.T) {
	res := New(DefaultOptions("")).Validate("")
	assert.False(t, res.Valid)
	assert.Contains(t, strings.ToLower(res.Reason), "required")
}

func TestValidateAllowEmpty(t *testing.T) {
	v := New(Options{AllowEmpty: true})
	res := v.Validate("  ")
	assert.True(t, res.Valid)
	assert.Empty(t, res.Address)
}

func TestValidateMaxLength(t *testing.T) {
	local := strings.Repeat("a", 64)
	domain := strings.Repeat("b", 60) + ".example.com"
	addr := local + "@" + domain

	t.Run("default ceiling", func(t *testing.T) {
		long := strings.Repeat("x", 250) + "@ex.com"
		res := New(DefaultOptions("")).Validate(long)
		assert.False(t, res.Valid)
		assert.Equal(t, CodeTooLong, res.Code)
		assert.Contains(t, res.Reason, "254")
	})

	t.Run("custom ceiling", func(t *testing.T) {
		res := New(Options{MaxLength: 20}).Validate(addr)
		assert.Equal(t, CodeTooLong, res.Code)
		assert.Contains(t, res.Reason, "20")
	})

	t.Run("within ceiling", func(t *testing.T) {
		res := New(Options{MaxLength: len(addr)}).Validate(addr)
		assert.True(t, res.Valid)
	})
}

func TestValidateDisposable(t *testing.T) {
	prod := New(DefaultOptions(ProductionEnvironment))
	dev := New(DefaultOptions("development"))

	res := prod.Validate("user@mailinator.com")
	assert.False(t, res.Valid)
	assert.Equal(t, CodeDisposable, res.Code)
	assert.Contains(t, strings.ToLower(res.Reason), "disposable")

	res = prod.Validate("USER@YopMail.com")
	assert.Equal(t, CodeDisposable, res.Code)

	assert.True(t, dev.Validate("user@mailinator.com").Valid)
	assert.True(t, prod.Validate("user@example.com").Valid)
}

func TestValidateReasonsAreDistinct(t *testing.T) {
	v := New(Options{BlockDisposable: true, MaxLength: 30})
	reasons := map[string]Code{}
	for _, in := range []string{"", strings.Repeat("a", 40) + "@example.com", "nope", "x@mailinator.com"} {
		res := v.Validate(in)
		require.False(t, res.Valid, in)
		reasons[res.Reason] = res.Code
	}
	assert.Len(t, reasons, 4)
}

func TestValidateIsIdempotent(t *testing.T) {
	v := New(DefaultOptions(""))
	for _, in := range []string{"User@Example.com", " a.b+c@Sub.Example.org ", "x@y.io"} {
		first := v.Validate(in)
		require.True(t, first.Valid, in)
		second := v.Validate(first.Address)
		assert.True(t, second.Valid)
		assert.Equal(t, first.Address, second.Address)
	}
}

func TestValidateBatch(t *testing.T) {
	v := New(DefaultOptions(""))

	t.Run("all valid keeps order", func(t *testing.T) {
		res := v.ValidateBatch([]string{"B@example.com", "a@example.com"})
		assert.True(t, res.Valid)
		assert.Equal(t, []string{"b@example.com", "a@example.com"}, res.Accepted)
		assert.Empty(t, res.Rejected)
	})

	t.Run("one invalid fails the batch", func(t *testing.T) {
		res := v.ValidateBatch([]string{"a@example.com", "bad", "c@example.com"})
		assert.False(t, res.Valid)
		assert.Equal(t, []string{"a@example.com", "c@example.com"}, res.Accepted)
		require.Len(t, res.Rejected, 1)
		assert.Equal(t, "bad", res.Rejected[0].Input)
		assert.Equal(t, CodeInvalid, res.Rejected[0].Code)
	})

	t.Run("empty batch is invalid", func(t *testing.T) {
		res := v.ValidateBatch(nil)
		assert.False(t, res.Valid)
		assert.Empty(t, res.Accepted)
	})
}

func TestNormalizeRecipients(t *testing.T) {
	t.Run("deduplicates case-insensitively", func(t *testing.T) {
		accepted, removed := NormalizeRecipients([]string{"A@x.com", "a@x.com", "bad"})
		assert.Equal(t, []string{"a@x.com"}, accepted)
		assert.Equal(t, []string{"a@x.com", "bad"}, removed)
	})

	t.Run("drops empty entries and keeps order", func(t *testing.T) {
		accepted, removed := NormalizeRecipients([]string{" c@x.com", "", "b@x.com", "C@X.COM "})
		assert.Equal(t, []string{"c@x.com", "b@x.com"}, accepted)
		assert.Equal(t, []string{"", "C@X.COM "}, removed)
	})

	t.Run("does not block disposable domains", func(t *testing.T) {
		accepted, removed := NormalizeRecipients([]string{"u@mailinator.com"})
		assert.Equal(t, []string{"u@mailinator.com"}, accepted)
		assert.Empty(t, removed)
	})

	t.Run("nil input", func(t *testing.T) {
		accepted, removed := NormalizeRecipients(nil)
		assert.Empty(t, accepted)
		assert.Empty(t, removed)
	})
}

func TestIsDisposableDomain(t *testing.T) {
	assert.True(t, IsDisposableDomain("mailinator.com"))
	assert.True(t, IsDisposableDomain(" Guerrillamail.COM"))
	assert.False(t, IsDisposableDomain("example.com"))
	assert.False(t, IsDisposableDomain(""))

	assert.True(t, IsDisposableDomain("x.mailinator.com"))
	assert.True(t, IsDisposableDomain("a.b.Yopmail.com."))
	assert.False(t, IsDisposableDomain("notmailinator.com"))
	assert.False(t, IsDisposableDomain("com"))
}
