package verify

// Counts summarizes a verdict for quick display.
type Counts struct {
	ExtractedKeys int `json:"extracted_keys"`
	TemplateKeys  int `json:"template_keys"`
	ExtraKeys     int `json:"extra_keys"`
	MissingKeys   int `json:"missing_keys"`
	Mismatches    int `json:"mismatches"`
}

// ReportRecord is the presentation-neutral rendering of a Verdict: counts,
// evidence lists and sub-results. Colorizing or laying this out is strictly
// the presentation layer's job.
type ReportRecord struct {
	TemplateID  string           `json:"template_id"`
	Status      string           `json:"status"` // PASS or FAIL
	Pass        bool             `json:"pass"`
	Counts      Counts           `json:"counts"`
	ExtraKeys   []string         `json:"extra_keys"`
	MissingKeys []string         `json:"missing_keys"`
	Mismatches  []Mismatch       `json:"mismatches"`
	Timestamp   *TimestampResult `json:"timestamp,omitempty"`
	Size        *SizeResult      `json:"size,omitempty"`
}

// Render turns a Verdict into its report record.
func Render(v Verdict) ReportRecord {
	status := "FAIL"
	if v.Pass {
		status = "PASS"
	}
	return ReportRecord{
		TemplateID: v.TemplateID,
		Status:     status,
		Pass:       v.Pass,
		Counts: Counts{
			ExtractedKeys: v.ExtractedCount,
			TemplateKeys:  v.TemplateCount,
			ExtraKeys:     len(v.ExtraKeys),
			MissingKeys:   len(v.MissingKeys),
			Mismatches:    len(v.Mismatches),
		},
		ExtraKeys:   v.ExtraKeys,
		MissingKeys: v.MissingKeys,
		Mismatches:  v.Mismatches,
		Timestamp:   v.Timestamp,
		Size:        v.Size,
	}
}
