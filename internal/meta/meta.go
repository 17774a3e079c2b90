// Package meta models extracted document metadata and its normalization into
// the flat key space the verification engine compares on.
//
// The byte-level extractor is an external collaborator: this package consumes
// its output as a two-level mapping group -> tag -> value, plus an optional
// raw-text rendering of the same data and the document byte size.
package meta

import (
	"fmt"
	"strings"
)

// Grouped is a raw extraction: group name -> tag name -> string value.
type Grouped map[string]map[string]string

// Extraction is everything the extractor hands over for one document.
type Extraction struct {
	Grouped   Grouped
	RawText   string // optional raw rendering, used for duplicate-tag recovery
	SizeBytes int64  // 0 when unknown
}

// Normalized is the engine's view of one document: the ignore-filtered flat
// key space, plus the unfiltered extraction for rules that read specific keys
// directly (timestamp checks).
type Normalized struct {
	Flat map[string]string
	Raw  Grouped
}

// Key builds the flat "Group.Tag" key.
func Key(group, tag string) string {
	return group + "." + tag
}

// SplitKey splits a flat key into group and tag. The tag may itself contain
// dots; only the first separator counts.
func SplitKey(key string) (group, tag string) {
	i := strings.Index(key, ".")
	if i < 0 {
		return key, ""
	}
	return key[:i], key[i+1:]
}

// Value reads a flat key from a raw extraction. The second return is false
// when the group or tag is absent.
func (g Grouped) Value(key string) (string, bool) {
	group, tag := SplitKey(key)
	if tag == "" {
		return "", false
	}
	kv, ok := g[group]
	if !ok {
		return "", false
	}
	v, ok := kv[tag]
	return v, ok
}

// FindTagFold searches every group for a tag by case-insensitive name and
// returns the first value found. Variant detection uses this because
// producer/creator-like tags move between groups across extractor versions.
func (g Grouped) FindTagFold(tag string) (string, bool) {
	want := strings.ToLower(strings.TrimSpace(tag))
	for _, kv := range g {
		for k, v := range kv {
			if strings.ToLower(strings.TrimSpace(k)) == want {
				return v, true
			}
		}
	}
	return "", false
}

// GroupedFromAny coerces a loosely decoded JSON document (group -> any) into
// a Grouped extraction. Non-mapping group values are skipped silently and
// scalar tag values are stringified; a nil value becomes the empty string.
func GroupedFromAny(raw map[string]any) Grouped {
	out := make(Grouped, len(raw))
	for group, v := range raw {
		kv, ok := v.(map[string]any)
		if !ok || group == "" {
			continue
		}
		g := make(map[string]string, len(kv))
		for tag, tv := range kv {
			if tag == "" {
				continue
			}
			if tv == nil {
				g[tag] = ""
				continue
			}
			switch s := tv.(type) {
			case string:
				g[tag] = s
			default:
				g[tag] = fmt.Sprint(tv)
			}
		}
		if len(g) > 0 {
			out[group] = g
		}
	}
	return out
}
