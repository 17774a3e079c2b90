package verify

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metalab/internal/meta"
	"metalab/internal/template"
)

func fixedClock() Option {
	return WithClock(func() time.Time {
		return time.Date(2025, 1, 3, 12, 0, 0, 0, time.UTC)
	})
}

func acmeTemplate() *template.Template {
	return &template.Template{
		ID:           "ACME_WEB_V1",
		Issuer:       "Acme",
		StrictKeyset: true,
		RequiredKeys: []string{
			"PDF.Encrypted",
			"PDF.PDFVersion",
			"PDF.PageCount",
			"XMP.Producer",
		},
		ExpectedValues: map[string]string{
			"PDF.Encrypted":  "yes (print:yes copy:yes edit:no)",
			"PDF.PDFVersion": "1.6",
			"PDF.PageCount":  template.AnyValue,
			"XMP.Producer":   "Skia/PDF m105",
		},
	}
}

func acmeNormalized() meta.Normalized {
	return meta.Normalized{
		Flat: map[string]string{
			"PDF.Encrypted":  "yes (print:yes copy:yes edit:no)",
			"PDF.PDFVersion": "1.6",
			"PDF.PageCount":  "3",
			"XMP.Producer":   "Skia/PDF m105",
		},
	}
}

func TestCompareGenuineDocumentPasses(t *testing.T) {
	c := NewComparator(fixedClock())
	v := c.Compare(acmeNormalized(), acmeTemplate(), 0)

	assert.True(t, v.Pass)
	assert.Empty(t, v.MissingKeys)
	assert.Empty(t, v.ExtraKeys)
	assert.Empty(t, v.Mismatches)
	assert.Equal(t, 4, v.ExtractedCount)
	assert.Equal(t, 4, v.TemplateCount)
}

func TestCompareMissingKey(t *testing.T) {
	c := NewComparator(fixedClock())
	n := acmeNormalized()
	delete(n.Flat, "PDF.Encrypted")

	v := c.Compare(n, acmeTemplate(), 0)

	assert.False(t, v.Pass)
	assert.Equal(t, []string{"PDF.Encrypted"}, v.MissingKeys)
	// Required-and-absent keys are reported as missing only, never doubled
	// up as a value mismatch against the absence marker.
	for _, m := range v.Mismatches {
		assert.NotEqual(t, "PDF.Encrypted", m.Key)
	}
}

func TestCompareExtraKeyStrict(t *testing.T) {
	c := NewComparator(fixedClock())
	n := acmeNormalized()
	n.Flat["PDF.Linearized"] = "No"

	v := c.Compare(n, acmeTemplate(), 0)

	assert.False(t, v.Pass)
	assert.Equal(t, []string{"PDF.Linearized"}, v.ExtraKeys)
}

func TestCompareExtraKeyTolerated(t *testing.T) {
	tpl := acmeTemplate()
	tpl.StrictKeyset = false

	c := NewComparator(fixedClock())
	n := acmeNormalized()
	n.Flat["PDF.Linearized"] = "No"

	v := c.Compare(n, tpl, 0)

	assert.True(t, v.Pass)
	assert.Empty(t, v.ExtraKeys)
}

func TestCompareValueMismatch(t *testing.T) {
	c := NewComparator(fixedClock())
	n := acmeNormalized()
	n.Flat["XMP.Producer"] = "Microsoft Word"

	v := c.Compare(n, acmeTemplate(), 0)

	assert.False(t, v.Pass)
	require.Len(t, v.Mismatches, 1)
	assert.Equal(t, Mismatch{
		Key:      "XMP.Producer",
		Expected: "Skia/PDF m105",
		Got:      "Microsoft Word",
	}, v.Mismatches[0])
}

func TestCompareAnyValueAssertsPresenceOnly(t *testing.T) {
	c := NewComparator(fixedClock())
	n := acmeNormalized()
	n.Flat["PDF.PageCount"] = "999"

	v := c.Compare(n, acmeTemplate(), 0)
	assert.True(t, v.Pass, "(any) must accept every concrete value")
}

func TestCompareToleratedSupersetValueStillChecked(t *testing.T) {
	// A non-required expected key that is absent mismatches against the
	// absence marker even in tolerant mode.
	tpl := acmeTemplate()
	tpl.StrictKeyset = false
	tpl.RequiredKeys = []string{"PDF.PDFVersion"}
	tpl.ExpectedValues = map[string]string{
		"PDF.PDFVersion": "1.6",
		"XMP.Producer":   "Skia/PDF m105",
	}

	n := meta.Normalized{Flat: map[string]string{"PDF.PDFVersion": "1.6"}}
	c := NewComparator(fixedClock())
	v := c.Compare(n, tpl, 0)

	assert.False(t, v.Pass)
	require.Len(t, v.Mismatches, 1)
	assert.Equal(t, MissingValue, v.Mismatches[0].Got)
}

func TestCompareIdempotent(t *testing.T) {
	c := NewComparator(fixedClock())
	tpl := acmeTemplate()
	n := acmeNormalized()
	n.Flat["PDF.Linearized"] = "No"
	delete(n.Flat, "XMP.Producer")

	first := c.Compare(n, tpl, 0)
	second := c.Compare(n, tpl, 0)
	assert.Equal(t, first, second)
}

func TestCompareKeysetPartition(t *testing.T) {
	// Missing, extra and matched keys partition the union of the template
	// keyset and the extracted keyset.
	c := NewComparator(fixedClock())
	tpl := acmeTemplate()
	n := acmeNormalized()
	delete(n.Flat, "PDF.Encrypted")
	n.Flat["File.FileSize"] = "29 kB"
	n.Flat["PDF.Linearized"] = "No"

	v := c.Compare(n, tpl, 0)

	union := make(map[string]struct{})
	for _, k := range tpl.RequiredKeys {
		union[k] = struct{}{}
	}
	for k := range n.Flat {
		union[k] = struct{}{}
	}

	seen := make(map[string]int)
	for _, k := range v.MissingKeys {
		seen[k]++
	}
	for _, k := range v.ExtraKeys {
		seen[k]++
	}
	matched := 0
	for _, k := range tpl.RequiredKeys {
		if _, ok := n.Flat[k]; ok {
			matched++
			seen[k]++
		}
	}

	assert.Equal(t, len(union), len(v.MissingKeys)+len(v.ExtraKeys)+matched)
	for k, count := range seen {
		assert.Equalf(t, 1, count, "key %s counted %d times", k, count)
	}
}

func TestCompareEvidenceSorted(t *testing.T) {
	c := NewComparator(fixedClock())
	tpl := acmeTemplate()
	n := meta.Normalized{Flat: map[string]string{
		"Zeta.Tag":  "1",
		"Alpha.Tag": "2",
	}}

	v := c.Compare(n, tpl, 0)

	assert.True(t, sort.StringsAreSorted(v.MissingKeys))
	assert.True(t, sort.StringsAreSorted(v.ExtraKeys))
	for i := 1; i < len(v.Mismatches); i++ {
		assert.LessOrEqual(t, v.Mismatches[i-1].Key, v.Mismatches[i].Key)
	}
}

func TestCompareSizeRuleSkippedWithoutObservedSize(t *testing.T) {
	tpl := acmeTemplate()
	tpl.FileSize = &template.FileSizeRule{
		MinKB: 20, MaxKB: 30, Base: 1024, Inclusive: true, Enforce: true,
	}

	c := NewComparator(fixedClock())
	v := c.Compare(acmeNormalized(), tpl, 0)

	assert.Nil(t, v.Size)
	assert.True(t, v.Pass)
}

func TestCompareSizeRuleEnforced(t *testing.T) {
	tpl := acmeTemplate()
	tpl.FileSize = &template.FileSizeRule{
		MinKB: 20, MaxKB: 30, Base: 1024, Inclusive: true, Enforce: true,
	}

	c := NewComparator(fixedClock())
	v := c.Compare(acmeNormalized(), tpl, 40*1024)

	require.NotNil(t, v.Size)
	assert.False(t, v.Size.Inside)
	assert.True(t, v.Size.Fail)
	assert.False(t, v.Pass)
}

func TestCompareTimestampContributesToPass(t *testing.T) {
	tpl := acmeTemplate()
	tpl.Timestamp = &template.TimestampRule{
		Label:          "Create/Modify",
		CompareKeys:    []string{"XMP.CreateDate", "XMP.ModifyDate"},
		SentFrom:       "XMP.CreateDate",
		LocalTimezone:  "UTC",
		FailOnMismatch: true,
	}

	n := acmeNormalized()
	n.Raw = meta.Grouped{
		"XMP": {
			"CreateDate": "2025:01:01 10:00:00+03:00",
			"ModifyDate": "2025:01:01 12:00:00+03:00",
		},
	}

	c := NewComparator(fixedClock())
	v := c.Compare(n, tpl, 0)

	require.NotNil(t, v.Timestamp)
	assert.Equal(t, TimestampMismatch, v.Timestamp.Outcome)
	assert.False(t, v.Pass)
}
