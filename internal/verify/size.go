package verify

import (
	"math"

	"metalab/internal/template"
)

// roundKB rounds to two decimal places with an epsilon added first, so a
// value sitting on the .005 boundary rounds up instead of flapping on
// floating-point representation (29.005 -> 29.01).
func roundKB(kb float64) float64 {
	return math.Round((kb+1e-9)*100) / 100
}

func evalSize(rule *template.FileSizeRule, sizeBytes int64) *SizeResult {
	kb := roundKB(float64(sizeBytes) / rule.Base)

	var inside bool
	if rule.Inclusive {
		inside = rule.MinKB <= kb && kb <= rule.MaxKB
	} else {
		inside = rule.MinKB < kb && kb < rule.MaxKB
	}

	return &SizeResult{
		ObservedKB:    kb,
		ObservedBytes: sizeBytes,
		MinKB:         rule.MinKB,
		MaxKB:         rule.MaxKB,
		Inside:        inside,
		Enforced:      rule.Enforce,
		Fail:          rule.Enforce && !inside,
		SampleCount:   rule.SampleCount,
	}
}
