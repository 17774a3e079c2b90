// Package cluster groups a batch of document extractions into families by
// their normalized keyset fingerprint. Documents produced by the same
// pipeline carry the same metadata keys even when every value differs, so
// the keyset is the family signature.
package cluster

import (
	"fmt"
	"sort"
	"strings"

	"metalab/internal/meta"
)

// Fingerprint is the canonical form of one normalized keyset: the sorted
// flat keys joined by a separator that cannot occur inside a key.
type Fingerprint string

// NewFingerprint canonicalizes a flat keyset.
func NewFingerprint(flat map[string]string) Fingerprint {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return Fingerprint(strings.Join(keys, "\x1f"))
}

// Keys returns the sorted keys the fingerprint was built from.
func (f Fingerprint) Keys() []string {
	if f == "" {
		return nil
	}
	return strings.Split(string(f), "\x1f")
}

// Size is the number of keys in the fingerprint.
func (f Fingerprint) Size() int {
	return len(f.Keys())
}

// Member is one document entering the clustering, reduced to its name and
// normalized keyset.
type Member struct {
	Name        string
	Fingerprint Fingerprint
}

// Cluster is one family of documents sharing a fingerprint.
type Cluster struct {
	Label   string   `json:"label"`
	Keys    []string `json:"keys"`
	Members []string `json:"members"`
	Count   int      `json:"count"`
}

// Build groups members by fingerprint and orders the clusters largest
// first: by descending member count, then descending keyset size, then the
// joined sorted member names as the tiebreak. The ordering depends only on
// the set of members, never on input order. Labels are assigned after
// ordering: A through Z, then G27, G28, ...
func Build(members []Member) []Cluster {
	byFP := make(map[Fingerprint][]string)
	for _, m := range members {
		byFP[m.Fingerprint] = append(byFP[m.Fingerprint], m.Name)
	}

	clusters := make([]Cluster, 0, len(byFP))
	for fp, names := range byFP {
		sort.Strings(names)
		clusters = append(clusters, Cluster{
			Keys:    fp.Keys(),
			Members: names,
			Count:   len(names),
		})
	}

	sort.Slice(clusters, func(i, j int) bool {
		a, b := clusters[i], clusters[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if len(a.Keys) != len(b.Keys) {
			return len(a.Keys) > len(b.Keys)
		}
		return strings.Join(a.Members, ",") < strings.Join(b.Members, ",")
	})

	for i := range clusters {
		clusters[i].Label = labelFor(i)
	}
	return clusters
}

func labelFor(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return fmt.Sprintf("G%d", i+1)
}

// BaselineIgnore filters the metadata that varies per document even inside
// one family: filesystem facts, content hashes, extractor version stamps and
// anything date-like. Without this every document would be its own cluster.
func BaselineIgnore() meta.IgnoreRules {
	rules, err := meta.CompileIgnore(
		[]string{"File", "ExifTool"},
		nil,
		[]string{
			`(?i)date`,
			`(?i)md5$`,
			`(?i)sha\d*$`,
			`(?i)modif(y|ied)`,
			`(?i)(instance|document)id$`,
		},
	)
	if err != nil {
		// The patterns are literals above; a compile failure is a programming
		// error, not a runtime condition.
		panic(err)
	}
	return rules
}
