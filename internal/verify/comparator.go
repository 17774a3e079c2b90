package verify

import (
	"sort"
	"time"

	"metalab/internal/meta"
	"metalab/internal/template"
)

// Comparator evaluates a normalized extraction against a template. It holds
// no state beyond the clock, which is injectable so verdicts are a pure
// function of (extraction, template, now).
type Comparator struct {
	now func() time.Time
}

// Option configures a Comparator.
type Option func(*Comparator)

// WithClock replaces the wall clock; tests pin it for reproducible "sent
// ago" strings.
func WithClock(now func() time.Time) Option {
	return func(c *Comparator) {
		c.now = now
	}
}

// NewComparator builds a Comparator with the real clock.
func NewComparator(opts ...Option) *Comparator {
	c := &Comparator{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compare runs every check in order - keyset, values, timestamps, size -
// and aggregates the pass flag. sizeBytes <= 0 means no observed size was
// supplied and the size rule is skipped.
func (c *Comparator) Compare(n meta.Normalized, tpl *template.Template, sizeBytes int64) Verdict {
	requiredSet := make(map[string]struct{}, len(tpl.RequiredKeys))
	for _, k := range tpl.RequiredKeys {
		requiredSet[k] = struct{}{}
	}

	missing := make([]string, 0)
	for _, k := range tpl.RequiredKeys {
		if _, ok := n.Flat[k]; !ok {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)

	// Extras are only a finding in strict mode; otherwise the contract says
	// the list is empty regardless of the extraction.
	extra := make([]string, 0)
	if tpl.StrictKeyset {
		for k := range n.Flat {
			if _, ok := requiredSet[k]; !ok {
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
	}

	mismatches := c.valueMismatches(n, tpl, requiredSet)

	var ts *TimestampResult
	if tpl.Timestamp != nil {
		ts = evalTimestamp(n.Raw, tpl.Timestamp, c.now())
	}

	var size *SizeResult
	if tpl.FileSize != nil && sizeBytes > 0 {
		size = evalSize(tpl.FileSize, sizeBytes)
	}

	pass := len(missing) == 0 &&
		len(extra) == 0 &&
		len(mismatches) == 0 &&
		(ts == nil || !ts.Fail) &&
		(size == nil || !size.Fail)

	return Verdict{
		TemplateID:     tpl.ID,
		Pass:           pass,
		MissingKeys:    missing,
		ExtraKeys:      extra,
		Mismatches:     mismatches,
		Timestamp:      ts,
		Size:           size,
		ExtractedCount: len(n.Flat),
		TemplateCount:  len(tpl.RequiredKeys),
	}
}

func (c *Comparator) valueMismatches(n meta.Normalized, tpl *template.Template, required map[string]struct{}) []Mismatch {
	keys := make([]string, 0, len(tpl.ExpectedValues))
	for k := range tpl.ExpectedValues {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	mismatches := make([]Mismatch, 0)
	for _, k := range keys {
		expected := tpl.ExpectedValues[k]
		if expected == template.AnyValue {
			continue
		}
		got, ok := n.Flat[k]
		if !ok {
			// A required-and-absent key is already counted as missing; only
			// tolerated superset keys mismatch against the marker.
			if _, req := required[k]; req {
				continue
			}
			got = MissingValue
		}
		if got != expected {
			mismatches = append(mismatches, Mismatch{Key: k, Expected: expected, Got: got})
		}
	}
	return mismatches
}
