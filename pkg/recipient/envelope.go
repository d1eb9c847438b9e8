// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package recipient

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxSubjectLength is the header line-length ceiling applied to subjects.
const MaxSubjectLength = 998

// Envelope is the part of an outbound message checked before dispatch.
type Envelope struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// EnvelopeReport lists every problem found in an Envelope.
type EnvelopeReport struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// ValidateEnvelope checks that env has at least one recipient, a non-empty
// subject within MaxSubjectLength and at least one body. All problems are
// reported, not only the first.
func ValidateEnvelope(env Envelope) EnvelopeReport {
	errs := []string{}

	if !hasRecipient(env.To) {
		errs = append(errs, "At least one recipient is required")
	}

	switch {
	case strings.TrimSpace(env.Subject) == "":
		errs = append(errs, "Subject is required")
	case utf8.RuneCountInString(env.Subject) > MaxSubjectLength:
		errs = append(errs, fmt.Sprintf("Subject exceeds maximum length of %d characters", MaxSubjectLength))
	}

	if strings.TrimSpace(env.HTML) == "" && strings.TrimSpace(env.Text) == "" {
		errs = append(errs, "Either HTML or text content is required")
	}

	return EnvelopeReport{Valid: len(errs) == 0, Errors: errs}
}

func hasRecipient(to []string) bool {
	for _, r := range to {
		if strings.TrimSpace(r) != "" {
			return true
		}
	}
	return false
}
