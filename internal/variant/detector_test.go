package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metalab/internal/meta"
)

func acmeRules() IssuerRules {
	return IssuerRules{
		Issuer:   "acme",
		Fallback: "chromium",
		Variants: []Variant{
			{
				Tag:        "ios",
				TemplateID: "ACME_IOS_V1",
				Rules: []Rule{
					{Field: "Producer", Op: "contains", Value: "quartz pdfcontext"},
					{Field: "Producer", Op: "prefix", Value: "ios version"},
				},
			},
			{
				Tag:        "chromium",
				TemplateID: "ACME_WEB_V1",
				Rules: []Rule{
					{Field: "Creator", Op: "equals", Value: "chromium"},
					{Field: "Producer", Op: "prefix", Value: "skia/pdf"},
				},
			},
		},
	}
}

func normalizedWith(g meta.Grouped) meta.Normalized {
	return meta.Normalize(meta.Extraction{Grouped: g}, meta.IgnoreRules{}, nil)
}

func TestDetect(t *testing.T) {
	rules := acmeRules()

	tests := []struct {
		name string
		meta meta.Grouped
		want Tag
	}{
		{
			name: "chromium by creator",
			meta: meta.Grouped{"PDF": {"Creator": "Chromium", "Producer": "Skia/PDF m108"}},
			want: "chromium",
		},
		{
			name: "chromium by producer prefix",
			meta: meta.Grouped{"PDF": {"Producer": "Skia/PDF m120"}},
			want: "chromium",
		},
		{
			name: "ios by quartz producer",
			meta: meta.Grouped{"PDF": {"Producer": "macOS Quartz PDFContext"}},
			want: "ios",
		},
		{
			name: "ios by version prefix case-insensitive",
			meta: meta.Grouped{"PDF": {"Producer": "iOS Version 17.1 (Build 21B74) Quartz PDFContext"}},
			want: "ios",
		},
		{
			name: "signature tag found across groups",
			meta: meta.Grouped{"XMP-pdf": {"Producer": "Skia/PDF m108"}},
			want: "chromium",
		},
		{
			name: "no signals",
			meta: meta.Grouped{"PDF": {"Producer": "LibreOffice 7.4"}},
			want: Unknown,
		},
		{
			name: "empty extraction",
			meta: meta.Grouped{},
			want: Unknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rules.Detect(normalizedWith(tt.meta)))
		})
	}
}

func TestDetectFirstMatchWins(t *testing.T) {
	// A producer that carries both iOS and Chromium-ish signals must resolve
	// to the earlier variant in declaration order.
	rules := acmeRules()
	n := normalizedWith(meta.Grouped{"PDF": {
		"Producer": "iOS Version 17 Quartz PDFContext (skia/pdf backend)",
		"Creator":  "Chromium",
	}})

	assert.Equal(t, Tag("ios"), rules.Detect(n))
}

func TestTemplateFor(t *testing.T) {
	rules := acmeRules()

	id, ok := rules.TemplateFor("ios")
	require.True(t, ok)
	assert.Equal(t, "ACME_IOS_V1", id)

	_, ok = rules.TemplateFor("desktop")
	assert.False(t, ok)
}

func TestParseRegistry(t *testing.T) {
	data := []byte(`
issuers:
  - issuer: Acme
    fallback: chromium
    variants:
      - tag: ios
        template_id: ACME_IOS_V1
        rules:
          - {field: Producer, op: contains, value: quartz pdfcontext}
      - tag: chromium
        template_id: ACME_WEB_V1
        rules:
          - {field: Creator, op: equals, value: chromium}
`)

	reg, err := ParseRegistry(data)
	require.NoError(t, err)

	ir, ok := reg.Rules("ACME")
	require.True(t, ok, "issuer lookup is case-insensitive")
	assert.Equal(t, Tag("chromium"), ir.Fallback)

	_, ok = reg.Rules("unknown-bank")
	assert.False(t, ok)
}

func TestParseRegistryRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty issuer", "issuers:\n  - issuer: \"\"\n"},
		{"variant without template", "issuers:\n  - issuer: a\n    variants:\n      - tag: ios\n"},
		{"unknown op", "issuers:\n  - issuer: a\n    variants:\n      - tag: ios\n        template_id: T\n        rules:\n          - {field: Producer, op: regex, value: x}\n"},
		{"fallback names no variant", "issuers:\n  - issuer: a\n    fallback: web\n    variants:\n      - tag: ios\n        template_id: T\n"},
		{"duplicate tag", "issuers:\n  - issuer: a\n    variants:\n      - {tag: ios, template_id: T}\n      - {tag: ios, template_id: U}\n"},
		{"not yaml", ":"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRegistry([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
