package meta

import (
	"fmt"
	"regexp"
	"strings"
)

// IgnoreRules removes volatile or noisy fields before any keyset or value
// comparison. Timestamp and size rules bypass these on purpose: they read
// specific known keys from the unfiltered extraction.
type IgnoreRules struct {
	// Groups are exact group names dropped wholesale.
	Groups []string
	// Keys are exact matches. An entry containing "." matches one flat key;
	// an entry without "." matches that tag name in any group (the template
	// schema's "tags" list carries both forms).
	Keys []string
	// Patterns are regular expressions matched against the flat key.
	Patterns []*regexp.Regexp
}

// CompileIgnore builds IgnoreRules from template payload lists.
func CompileIgnore(groups, keys, patterns []string) (IgnoreRules, error) {
	r := IgnoreRules{Groups: groups, Keys: keys}
	for _, p := range patterns {
		rx, err := regexp.Compile(p)
		if err != nil {
			return IgnoreRules{}, fmt.Errorf("compile ignore pattern %q: %w", p, err)
		}
		r.Patterns = append(r.Patterns, rx)
	}
	return r, nil
}

// Ignored reports whether a (group, tag) pair is excluded. Match order is
// exact key, then group, then pattern; a hit at any stage drops the key.
func (r IgnoreRules) Ignored(group, tag string) bool {
	key := Key(group, tag)
	for _, k := range r.Keys {
		if k == key {
			return true
		}
		if !strings.Contains(k, ".") && k == tag {
			return true
		}
	}
	for _, g := range r.Groups {
		if g == group {
			return true
		}
	}
	for _, rx := range r.Patterns {
		if rx.MatchString(key) {
			return true
		}
	}
	return false
}
