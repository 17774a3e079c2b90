package verify

import (
	"fmt"
	"strings"
	"time"

	"metalab/internal/meta"
	"metalab/internal/template"
)

// exifTimeLayout matches the producer's fixed-width date format, e.g.
// "2025:01:01 10:00:00+03:00". The Z07:00 element also accepts a literal
// "Z" for UTC-relative values.
const exifTimeLayout = "2006:01:02 15:04:05Z07:00"

func parseExifTime(val string) (time.Time, bool) {
	t, err := time.Parse(exifTimeLayout, strings.TrimSpace(val))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// evalTimestamp reads the configured keys from the unfiltered extraction:
// timestamp fields are usually ignore-listed for keyset purposes but still
// needed here. Equality is instant equality, so differing zone renderings of
// the same moment compare equal.
func evalTimestamp(raw meta.Grouped, rule *template.TimestampRule, now time.Time) *TimestampResult {
	loc, err := time.LoadLocation(rule.LocalTimezone)
	if err != nil {
		loc = time.UTC
	}

	type probe struct {
		key    string
		raw    string
		rawOK  bool
		parsed time.Time
		ok     bool
	}
	probes := make([]probe, 0, len(rule.CompareKeys))
	allParsed := len(rule.CompareKeys) > 0
	for _, k := range rule.CompareKeys {
		p := probe{key: k}
		p.raw, p.rawOK = raw.Value(k)
		if p.rawOK {
			p.parsed, p.ok = parseExifTime(p.raw)
		}
		if !p.ok {
			allParsed = false
		}
		probes = append(probes, p)
	}

	outcome := TimestampIndeterminate
	if allParsed {
		outcome = TimestampMatch
		first := probes[0].parsed
		for _, p := range probes[1:] {
			if !p.parsed.Equal(first) {
				outcome = TimestampMismatch
				break
			}
		}
	}

	res := &TimestampResult{
		Label:   rule.Label,
		Outcome: outcome,
		Fail:    outcome == TimestampMismatch && rule.FailOnMismatch,
	}

	var sentRaw string
	var sent time.Time
	var sentOK bool
	if rule.SentFrom != "" {
		if v, ok := raw.Value(rule.SentFrom); ok {
			sentRaw = v
			sent, sentOK = parseExifTime(v)
		}
	}
	if sentOK {
		res.SentAgo = formatAgo(now.In(loc).Sub(sent.In(loc)))
	}

	switch outcome {
	case TimestampMatch:
		show := sentRaw
		shown := sent
		if !sentOK {
			show = probes[0].raw
			shown = probes[0].parsed
		}
		res.Detail = fmt.Sprintf("%s (local %s)", show, shown.In(loc).Format("2006-01-02 15:04:05 -0700"))
	default:
		parts := make([]string, 0, len(probes))
		for _, p := range probes {
			v := p.raw
			if !p.rawOK || strings.TrimSpace(v) == "" {
				v = "(missing/unparsed)"
			}
			parts = append(parts, fmt.Sprintf("%s=%s", p.key, v))
		}
		if len(parts) == 0 {
			res.Detail = "(no timestamp keys configured)"
		} else {
			res.Detail = strings.Join(parts, " | ")
		}
	}

	return res
}

// formatAgo renders "sent 2d 3h 5m ago", dropping zero components, or
// "sent in ..." for timestamps ahead of the clock.
func formatAgo(delta time.Duration) string {
	secs := int(delta.Seconds())
	future := secs < 0
	if future {
		secs = -secs
	}

	days := secs / 86400
	secs %= 86400
	hours := secs / 3600
	secs %= 3600
	mins := secs / 60
	secs %= 60

	parts := make([]string, 0, 3)
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if mins > 0 {
		parts = append(parts, fmt.Sprintf("%dm", mins))
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", secs))
	}

	core := strings.Join(parts, " ")
	if future {
		return "sent in " + core
	}
	return "sent " + core + " ago"
}
