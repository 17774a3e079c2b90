package meta

import (
	"fmt"
	"regexp"
)

// SplitField is the declarative carve-out for tags that can legitimately
// repeat inside one group (some exporters emit the version tag twice). The
// structured extraction collapses duplicates, so occurrences are recovered
// from the raw-text rendering via Pattern; capture group 1 is the value.
type SplitField struct {
	Key     string
	Pattern *regexp.Regexp
}

// CompileSplitField builds a SplitField from template payload fields.
func CompileSplitField(key, pattern string) (SplitField, error) {
	rx, err := regexp.Compile("(?m)" + pattern)
	if err != nil {
		return SplitField{}, fmt.Errorf("compile split pattern %q: %w", pattern, err)
	}
	return SplitField{Key: key, Pattern: rx}, nil
}

// Normalize flattens a raw extraction into the stable flat key space and
// applies ignore rules. Split fields that yield two or more raw-text
// occurrences are exposed as Tag#1, Tag#2, ... in extraction order, and the
// bare aggregate key is removed so it cannot surface as a spurious extra key.
func Normalize(x Extraction, rules IgnoreRules, splits []SplitField) Normalized {
	flat := make(map[string]string)

	for group, kv := range x.Grouped {
		if group == "" || kv == nil {
			continue
		}
		for tag, val := range kv {
			if tag == "" {
				continue
			}
			flat[Key(group, tag)] = val
		}
	}

	for _, sf := range splits {
		if sf.Pattern == nil {
			continue
		}
		occurrences := occurrenceValues(x.RawText, sf.Pattern)
		if len(occurrences) < 2 {
			continue
		}
		delete(flat, sf.Key)
		for i, v := range occurrences {
			flat[fmt.Sprintf("%s#%d", sf.Key, i+1)] = v
		}
	}

	for key := range flat {
		group, tag := SplitKey(key)
		if rules.Ignored(group, tag) {
			delete(flat, key)
		}
	}

	return Normalized{Flat: flat, Raw: x.Grouped}
}

func occurrenceValues(rawText string, rx *regexp.Regexp) []string {
	if rawText == "" {
		return nil
	}
	matches := rx.FindAllStringSubmatch(rawText, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if len(m) > 1 {
			out = append(out, m[1])
		}
	}
	return out
}
