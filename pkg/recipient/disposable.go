// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package recipient

import "strings"

// disposableDomains lists known temporary-mail providers. Extending it is a
// deployment-time change.
var disposableDomains = map[string]struct{}{
	"10minutemail.com":       {},
	"10minutemail.net":       {},
	"burnermail.io":          {},
	"discard.email":          {},
	"dispostable.com":        {},
	"emailondeck.com":        {},
	"fakeinbox.com":          {},
	"getairmail.com":         {},
	"getnada.com":            {},
	"grr.la":                 {},
	"guerrillamail.biz":      {},
	"guerrillamail.com":      {},
	"guerrillamail.de":       {},
	"guerrillamail.net":      {},
	"guerrillamail.org":      {},
	"guerrillamailblock.com": {},
	"mailcatch.com":          {},
	"maildrop.cc":            {},
	"mailinator.com":         {},
	"mailinator.net":         {},
	"mailnesia.com":          {},
	"mintemail.com":          {},
	"moakt.com":              {},
	"mohmal.com":             {},
	"mytemp.email":           {},
	"sharklasers.com":        {},
	"spamgourmet.com":        {},
	"temp-mail.org":          {},
	"tempinbox.com":          {},
	"tempmail.com":           {},
	"tempmail.net":           {},
	"tempr.email":            {},
	"throwawaymail.com":      {},
	"trashmail.com":          {},
	"trashmail.net":          {},
	"yopmail.com":            {},
	"yopmail.net":            {},
}

// IsDisposableDomain reports whether domain, or any parent domain of it,
// belongs to a known temporary-mail provider. The comparison is
// case-insensitive.
func IsDisposableDomain(domain string) bool {
	d := strings.TrimSuffix(normalize(domain), ".")
	for d != "" {
		if _, ok := disposableDomains[d]; ok {
			return true
		}
		i := strings.IndexByte(d, '.')
		if i < 0 {
			return false
		}
		d = d[i+1:]
	}
	return false
}
