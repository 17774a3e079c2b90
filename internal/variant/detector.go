// Package variant decides which concrete template applies when an issuer has
// several production pipelines (web export vs. mobile export).
//
// Detection is a pure function over signature fields of the extraction.
// Rules are ordered and first-match-wins: an iOS signature placed before a
// looser Chromium substring rule keeps precedence even when both would match.
// The detector never applies a fallback itself; that policy belongs to the
// caller and is configured per issuer.
package variant

import (
	"fmt"
	"strings"

	"metalab/internal/meta"
)

// Tag names one variant of an issuer's pipeline. The set is closed per
// issuer by configuration.
type Tag string

// Unknown means no signature rule matched.
const Unknown Tag = ""

// Rule is one signature probe: a case-insensitive string test against a
// producer/creator-like tag.
type Rule struct {
	Field string `yaml:"field"`
	Op    string `yaml:"op"` // contains | prefix | equals
	Value string `yaml:"value"`
}

// Variant binds a tag to its template and the rules that select it.
type Variant struct {
	Tag        Tag    `yaml:"tag"`
	TemplateID string `yaml:"template_id"`
	Rules      []Rule `yaml:"rules"`
}

// IssuerRules is the full detection table for one issuer.
type IssuerRules struct {
	Issuer string `yaml:"issuer"`
	// Fallback names the variant to assume when nothing matches. Empty means
	// the caller must treat Unknown as an error.
	Fallback Tag       `yaml:"fallback"`
	Variants []Variant `yaml:"variants"`
}

// Detect returns the first variant whose rules match, in declaration order.
// Later variants are not evaluated once one matches.
func (ir IssuerRules) Detect(n meta.Normalized) Tag {
	for _, v := range ir.Variants {
		for _, r := range v.Rules {
			if r.matches(n.Raw) {
				return v.Tag
			}
		}
	}
	return Unknown
}

// TemplateFor resolves a variant tag to its template id.
func (ir IssuerRules) TemplateFor(tag Tag) (string, bool) {
	for _, v := range ir.Variants {
		if v.Tag == tag {
			return v.TemplateID, true
		}
	}
	return "", false
}

func (r Rule) matches(g meta.Grouped) bool {
	raw, ok := g.FindTagFold(r.Field)
	if !ok {
		return false
	}
	got := strings.ToLower(strings.TrimSpace(raw))
	want := strings.ToLower(strings.TrimSpace(r.Value))

	switch r.Op {
	case "contains":
		return strings.Contains(got, want)
	case "prefix":
		return strings.HasPrefix(got, want)
	case "equals":
		return got == want
	default:
		return false
	}
}

func (r Rule) validate() error {
	switch r.Op {
	case "contains", "prefix", "equals":
	default:
		return fmt.Errorf("unknown rule op %q", r.Op)
	}
	if strings.TrimSpace(r.Field) == "" {
		return fmt.Errorf("rule has no field")
	}
	if strings.TrimSpace(r.Value) == "" {
		return fmt.Errorf("rule has no value")
	}
	return nil
}
