package template

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"metalab/pkg/platform/sentinel"
)

// Store loads templates by the id field inside their payload. Storage layout
// is irrelevant to lookup: every backend scans its payload set and indexes by
// that field.
type Store interface {
	Load(ctx context.Context, id string) (*Template, error)
	ListIDsForIssuer(ctx context.Context, issuer string) ([]string, error)
}

// FSStore reads template payloads from *.json files under a root directory,
// recursively. Unparseable files are skipped; a missing root surfaces as
// sentinel.ErrUnavailable.
//
// The indexed set is cached with bounded staleness (TTL) and can be dropped
// eagerly with Invalidate after a template deployment.
type FSStore struct {
	root string
	ttl  time.Duration

	mu        sync.RWMutex
	byID      map[string]*Template
	refreshed time.Time
}

// FSOption configures an FSStore.
type FSOption func(*FSStore)

// WithTTL bounds how stale the cached template index may get. Zero disables
// caching entirely (every call rescans).
func WithTTL(ttl time.Duration) FSOption {
	return func(s *FSStore) {
		s.ttl = ttl
	}
}

// NewFSStore builds a filesystem-backed store rooted at dir.
func NewFSStore(dir string, opts ...FSOption) *FSStore {
	s := &FSStore{root: dir}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the template whose payload id matches, or an error wrapping
// sentinel.ErrNotFound / sentinel.ErrUnavailable.
func (s *FSStore) Load(ctx context.Context, id string) (*Template, error) {
	index, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	t, ok := index[id]
	if !ok {
		return nil, fmt.Errorf("template id %q: %w", id, sentinel.ErrNotFound)
	}
	return t, nil
}

// ListIDsForIssuer returns the sorted template ids whose issuer matches,
// case-insensitively.
func (s *FSStore) ListIDsForIssuer(ctx context.Context, issuer string) ([]string, error) {
	index, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	var ids []string
	for id, t := range index {
		if strings.EqualFold(t.Issuer, issuer) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Invalidate drops the cached index so the next call rescans the disk.
func (s *FSStore) Invalidate() {
	s.mu.Lock()
	s.byID = nil
	s.mu.Unlock()
}

func (s *FSStore) index(ctx context.Context) (map[string]*Template, error) {
	if s.ttl > 0 {
		s.mu.RLock()
		if s.byID != nil && time.Since(s.refreshed) < s.ttl {
			idx := s.byID
			s.mu.RUnlock()
			return idx, nil
		}
		s.mu.RUnlock()
	}

	idx, err := scanDir(ctx, s.root)
	if err != nil {
		return nil, err
	}

	if s.ttl > 0 {
		s.mu.Lock()
		s.byID = idx
		s.refreshed = time.Now()
		s.mu.Unlock()
	}
	return idx, nil
}

func scanDir(ctx context.Context, root string) (map[string]*Template, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("template root %s: %w", root, sentinel.ErrUnavailable)
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate templates under %s: %w", root, sentinel.ErrUnavailable)
	}
	sort.Strings(paths)

	idx := make(map[string]*Template)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		t, err := Parse(data)
		if err != nil {
			// Authoring mistakes in one file must not take the whole set down.
			continue
		}
		if _, dup := idx[t.ID]; !dup {
			idx[t.ID] = t
		}
	}
	return idx, nil
}
