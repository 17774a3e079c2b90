package template

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"metalab/pkg/platform/sentinel"
)

// MemoryStore serves templates from memory. Used in tests and for seeding
// demo deployments.
type MemoryStore struct {
	byID map[string]*Template
}

// NewMemoryStore indexes the given templates by their payload id.
func NewMemoryStore(templates ...*Template) *MemoryStore {
	byID := make(map[string]*Template, len(templates))
	for _, t := range templates {
		byID[t.ID] = t
	}
	return &MemoryStore{byID: byID}
}

func (s *MemoryStore) Load(_ context.Context, id string) (*Template, error) {
	t, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("template id %q: %w", id, sentinel.ErrNotFound)
	}
	return t, nil
}

func (s *MemoryStore) ListIDsForIssuer(_ context.Context, issuer string) ([]string, error) {
	var ids []string
	for id, t := range s.byID {
		if strings.EqualFold(t.Issuer, issuer) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
