/*
SPDX-FileCopyrightText: 2026 Deutsche Telekom AG

SPDX-License-Identifier: Apache-2.0
*/

package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/telekom/mailguard/pkg/mail"
	"github.com/telekom/mailguard/pkg/ratelimit"
	"github.com/telekom/mailguard/pkg/recipient"
)

// Verdict is the validation outcome for one command-line address.
type Verdict struct {
	Input string `json:"input"`
	recipient.Result
}

func WriteVerdictTable(w io.Writer, verdicts []Verdict) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "INPUT\tVALID\tADDRESS\tCODE\tREASON")
	for _, v := range verdicts {
		_, _ = fmt.Fprintf(tw, "%s\t%t\t%s\t%s\t%s\n", v.Input, v.Valid, dash(v.Address), dash(string(v.Code)), dash(v.Reason))
	}
	_ = tw.Flush()
}

func WriteStatsTable(w io.Writer, stats ratelimit.Stats) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ENTRIES\tGLOBAL_MINUTE\tGLOBAL_HOUR")
	_, _ = fmt.Fprintf(tw, "%d\t%d\t%d\n", stats.EntriesCount, stats.GlobalMinuteCount, stats.GlobalHourCount)
	_ = tw.Flush()
}

func WriteResultTable(w io.Writer, res mail.Result) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSTATUS\tRECIPIENTS\tATTEMPTS\tDETAIL")
	detail := res.Reason
	if len(res.Problems) > 0 {
		detail = strings.Join(res.Problems, "; ")
	}
	if res.RetryAfter > 0 {
		detail = fmt.Sprintf("%s (retry in %s)", detail, res.RetryAfter)
	}
	_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
		dash(res.ID), res.Status, dash(strings.Join(res.Recipients, ",")), res.Attempts, dash(detail))
	_ = tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
