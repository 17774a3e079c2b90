package variant

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Registry holds the detection tables for all configured issuers.
type Registry struct {
	byIssuer map[string]IssuerRules
}

type rulesFile struct {
	Issuers []IssuerRules `yaml:"issuers"`
}

// LoadRegistry reads issuer rule tables from a YAML file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read variant rules: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry decodes and validates issuer rule tables.
func ParseRegistry(data []byte) (*Registry, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode variant rules: %w", err)
	}

	byIssuer := make(map[string]IssuerRules, len(f.Issuers))
	for _, ir := range f.Issuers {
		issuer := strings.ToLower(strings.TrimSpace(ir.Issuer))
		if issuer == "" {
			return nil, fmt.Errorf("variant rules entry with empty issuer")
		}
		if _, dup := byIssuer[issuer]; dup {
			return nil, fmt.Errorf("duplicate variant rules for issuer %q", issuer)
		}
		seen := make(map[Tag]struct{}, len(ir.Variants))
		for _, v := range ir.Variants {
			if v.Tag == Unknown {
				return nil, fmt.Errorf("issuer %q: variant with empty tag", issuer)
			}
			if v.TemplateID == "" {
				return nil, fmt.Errorf("issuer %q: variant %q has no template_id", issuer, v.Tag)
			}
			if _, dup := seen[v.Tag]; dup {
				return nil, fmt.Errorf("issuer %q: duplicate variant tag %q", issuer, v.Tag)
			}
			seen[v.Tag] = struct{}{}
			for _, r := range v.Rules {
				if err := r.validate(); err != nil {
					return nil, fmt.Errorf("issuer %q variant %q: %w", issuer, v.Tag, err)
				}
			}
		}
		if ir.Fallback != Unknown {
			if _, ok := seen[ir.Fallback]; !ok {
				return nil, fmt.Errorf("issuer %q: fallback %q names no variant", issuer, ir.Fallback)
			}
		}
		byIssuer[issuer] = ir
	}
	return &Registry{byIssuer: byIssuer}, nil
}

// Rules returns the detection table for an issuer (case-insensitive).
func (r *Registry) Rules(issuer string) (IssuerRules, bool) {
	ir, ok := r.byIssuer[strings.ToLower(strings.TrimSpace(issuer))]
	return ir, ok
}
