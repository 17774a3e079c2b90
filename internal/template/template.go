// Package template defines verification templates and the stores that load
// them. Templates are authored offline and read-only at request time; the
// engine never mutates one.
package template

import (
	"encoding/json"
	"fmt"
	"strings"

	"metalab/internal/meta"
	pstrings "metalab/pkg/platform/strings"
)

// AnyValue is the expected-value sentinel that asserts presence only.
const AnyValue = "(any)"

// Template is the verification contract for one issuer pipeline.
type Template struct {
	ID     string
	Issuer string

	Ignore      meta.IgnoreRules
	SplitFields []meta.SplitField

	StrictKeyset   bool
	RequiredKeys   []string
	ExpectedValues map[string]string

	Timestamp *TimestampRule
	FileSize  *FileSizeRule
}

// TimestampRule compares a set of metadata timestamps for instant equality
// and anchors the informational "sent ... ago" string.
type TimestampRule struct {
	Label          string
	CompareKeys    []string
	SentFrom       string
	LocalTimezone  string
	FailOnMismatch bool
}

// FileSizeRule bounds the plausible byte size of a genuine document,
// expressed in kilobytes at the configured byte base.
type FileSizeRule struct {
	MinKB       float64
	MaxKB       float64
	Base        float64
	Inclusive   bool
	Enforce     bool
	SampleCount int
}

// payload is the at-rest JSON schema. Older templates use "bank" for the
// issuer display name and "exif" for the fields block; both spellings load.
type payload struct {
	ID     string `json:"id"`
	Issuer string `json:"issuer"`
	Bank   string `json:"bank"`

	Ignore struct {
		Groups   []string `json:"groups"`
		Tags     []string `json:"tags"`
		Patterns []string `json:"patterns"`
	} `json:"ignore"`

	Fields *fieldsPayload `json:"fields"`
	Exif   *fieldsPayload `json:"exif"`

	SplitFields []struct {
		Key     string `json:"key"`
		Pattern string `json:"pattern"`
	} `json:"split_fields"`

	TimestampRule *struct {
		Enabled        *bool    `json:"enabled"`
		Label          string   `json:"label"`
		CompareKeys    []string `json:"compare_keys"`
		SentFrom       string   `json:"sent_from"`
		LocalTimezone  string   `json:"local_timezone"`
		FailOnMismatch *bool    `json:"fail_on_mismatch"`
	} `json:"timestamp_rule"`

	FileSizeKBRule *struct {
		MinKB       *float64 `json:"min_kb"`
		MaxKB       *float64 `json:"max_kb"`
		Base        float64  `json:"base"`
		Inclusive   *bool    `json:"inclusive"`
		Enforce     *bool    `json:"enforce"`
		SampleCount int      `json:"sample_count"`
	} `json:"file_size_kb_rule"`
}

// Parse decodes and validates one template payload.
func Parse(data []byte) (*Template, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode template payload: %w", err)
	}
	return p.toTemplate()
}

func (p *payload) toTemplate() (*Template, error) {
	if strings.TrimSpace(p.ID) == "" {
		return nil, fmt.Errorf("template payload has no id")
	}

	issuer := p.Issuer
	if issuer == "" {
		issuer = p.Bank
	}

	ignore, err := meta.CompileIgnore(
		pstrings.DedupeAndTrim(p.Ignore.Groups),
		pstrings.DedupeAndTrim(p.Ignore.Tags),
		pstrings.DedupeAndTrim(p.Ignore.Patterns),
	)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", p.ID, err)
	}

	fields := p.Fields
	if fields == nil {
		fields = p.Exif
	}
	if fields == nil {
		return nil, fmt.Errorf("template %s: missing fields block", p.ID)
	}

	required := pstrings.DedupeAndTrim(fields.RequiredKeys)
	for _, k := range required {
		if !strings.Contains(k, ".") {
			return nil, fmt.Errorf("template %s: required key %q is not a Group.Tag flat key", p.ID, k)
		}
	}
	for k := range fields.ExpectedValues {
		if !strings.Contains(k, ".") {
			return nil, fmt.Errorf("template %s: expected value key %q is not a Group.Tag flat key", p.ID, k)
		}
	}

	t := &Template{
		ID:             p.ID,
		Issuer:         issuer,
		Ignore:         ignore,
		StrictKeyset:   boolOr(fields.StrictKeyset, true),
		RequiredKeys:   required,
		ExpectedValues: fields.ExpectedValues,
	}
	if t.ExpectedValues == nil {
		t.ExpectedValues = map[string]string{}
	}

	for _, sf := range p.SplitFields {
		f, err := meta.CompileSplitField(sf.Key, sf.Pattern)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", p.ID, err)
		}
		t.SplitFields = append(t.SplitFields, f)
	}

	if r := p.TimestampRule; r != nil && boolOr(r.Enabled, true) {
		ts := &TimestampRule{
			Label:          r.Label,
			CompareKeys:    pstrings.DedupeAndTrim(r.CompareKeys),
			SentFrom:       r.SentFrom,
			LocalTimezone:  r.LocalTimezone,
			FailOnMismatch: boolOr(r.FailOnMismatch, true),
		}
		if ts.Label == "" {
			ts.Label = "Create/Modify"
		}
		if ts.SentFrom == "" && len(ts.CompareKeys) > 0 {
			ts.SentFrom = ts.CompareKeys[0]
		}
		if ts.LocalTimezone == "" {
			ts.LocalTimezone = "UTC"
		}
		t.Timestamp = ts
	}

	if r := p.FileSizeKBRule; r != nil {
		if r.MinKB == nil || r.MaxKB == nil {
			return nil, fmt.Errorf("template %s: file_size_kb_rule needs min_kb and max_kb", p.ID)
		}
		if *r.MinKB > *r.MaxKB {
			return nil, fmt.Errorf("template %s: file_size_kb_rule min_kb > max_kb", p.ID)
		}
		fs := &FileSizeRule{
			MinKB:       *r.MinKB,
			MaxKB:       *r.MaxKB,
			Base:        r.Base,
			Inclusive:   boolOr(r.Inclusive, true),
			Enforce:     boolOr(r.Enforce, true),
			SampleCount: r.SampleCount,
		}
		if fs.Base <= 0 {
			fs.Base = 1024
		}
		t.FileSize = fs
	}

	return t, nil
}

type fieldsPayload struct {
	StrictKeyset   *bool             `json:"strict_keyset"`
	RequiredKeys   []string          `json:"required_keys"`
	ExpectedValues map[string]string `json:"expected_values"`
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
