package template

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"metalab/pkg/platform/sentinel"
)

// PostgresStore reads template payloads from a single-column JSONB table.
// Like the filesystem store it indexes by the id inside the payload, so rows
// can be inserted in any order and the storage key is irrelevant.
//
// Schema:
//
//	CREATE TABLE meta_templates (payload JSONB NOT NULL);
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Load(ctx context.Context, id string) (*Template, error) {
	idx, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	t, ok := idx[id]
	if !ok {
		return nil, fmt.Errorf("template id %q: %w", id, sentinel.ErrNotFound)
	}
	return t, nil
}

func (s *PostgresStore) ListIDsForIssuer(ctx context.Context, issuer string) ([]string, error) {
	idx, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	var ids []string
	for id, t := range idx {
		if strings.EqualFold(t.Issuer, issuer) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *PostgresStore) scan(ctx context.Context) (map[string]*Template, error) {
	rows, err := s.pool.Query(ctx, `SELECT payload FROM meta_templates`)
	if err != nil {
		return nil, fmt.Errorf("enumerate templates: %w: %v", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	idx := make(map[string]*Template)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan template row: %w: %v", sentinel.ErrUnavailable, err)
		}
		t, err := Parse(payload)
		if err != nil {
			continue
		}
		if _, dup := idx[t.ID]; !dup {
			idx[t.ID] = t
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("enumerate templates: %w: %v", sentinel.ErrUnavailable, err)
	}
	return idx, nil
}
