// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package retry

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"regexp"
	"strings"
)

// flattenedReply matches an SMTP 4xx reply that lost its *textproto.Error
// type to a %v wrap, e.g. "gomail: could not send email 1: 451 4.3.0 busy".
var flattenedReply = regexp.MustCompile(`(?:^|: )4\d\d[ -]`)

// transientMarkers are matched against the lower-cased error message.
var transientMarkers = []string{
	"timeout",
	"timed out",
	"etimedout",
	"econnreset",
	"connection reset",
	"enotfound",
	"no such host",
	"temporary failure in name resolution",
	"429",
	"503",
	"504",
	"too many requests",
	"service unavailable",
	"rate limit",
}

// DefaultIsRetryable treats network timeouts, SMTP 4xx replies and errors
// whose message mentions a timeout, connection reset, DNS failure, HTTP
// 429/503/504 or a rate limit as transient. Context cancellation and
// deadline expiry are never retried.
func DefaultIsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code >= 400 && protoErr.Code < 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if flattenedReply.MatchString(err.Error()) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
