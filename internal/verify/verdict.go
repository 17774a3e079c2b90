// Package verify implements the template comparison engine: keyset, value,
// timestamp and size rule evaluation producing a structured Verdict.
//
// A failing Verdict is a normal, successful result. Errors are reserved for
// configuration problems (missing template, unreadable store) and ambiguous
// variant detection.
package verify

// MissingValue is the marker compared in place of an absent extracted value.
// It can never equal a real expected value.
const MissingValue = "(missing)"

// TimestampOutcome is the tri-state result of the timestamp rule.
type TimestampOutcome string

const (
	TimestampMatch         TimestampOutcome = "match"
	TimestampMismatch      TimestampOutcome = "mismatch"
	TimestampIndeterminate TimestampOutcome = "indeterminate"
)

// Mismatch records one expected-value failure.
type Mismatch struct {
	Key      string `json:"key"`
	Expected string `json:"expected"`
	Got      string `json:"got"`
}

// TimestampResult is the evaluated timestamp rule for one document.
// SentAgo is informational only and never affects pass/fail.
type TimestampResult struct {
	Label   string           `json:"label"`
	Outcome TimestampOutcome `json:"outcome"`
	Detail  string           `json:"detail"`
	SentAgo string           `json:"sent_ago,omitempty"`
	Fail    bool             `json:"fail"`
}

// SizeResult is the evaluated file-size rule for one document.
type SizeResult struct {
	ObservedKB    float64 `json:"observed_kb"`
	ObservedBytes int64   `json:"observed_bytes"`
	MinKB         float64 `json:"min_kb"`
	MaxKB         float64 `json:"max_kb"`
	Inside        bool    `json:"inside"`
	Enforced      bool    `json:"enforced"`
	Fail          bool    `json:"fail"`
	SampleCount   int     `json:"sample_count,omitempty"`
}

// Verdict is the complete outcome of one comparison. Every check runs and
// contributes; no step short-circuits, so the evidence lists are always
// fully populated. Immutable after construction.
type Verdict struct {
	TemplateID string
	Pass       bool

	MissingKeys []string
	ExtraKeys   []string
	Mismatches  []Mismatch

	Timestamp *TimestampResult
	Size      *SizeResult

	ExtractedCount int
	TemplateCount  int
}
