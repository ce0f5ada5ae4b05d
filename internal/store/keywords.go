package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// KeywordStore provides CRUD access to the tracked keyword set.
type KeywordStore struct{}

// NewKeywordStore creates a KeywordStore.
func NewKeywordStore() *KeywordStore {
	return &KeywordStore{}
}

// List returns every tracked keyword ordered by keyword text.
func (s *KeywordStore) List(ctx context.Context, q Querier) ([]Keyword, error) {
	query := `
		SELECT id, keyword, target_domain, created_at
		FROM keywords
		ORDER BY keyword ASC
	`
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list keywords: %w", err)
	}
	defer rows.Close()

	var keywords []Keyword
	for rows.Next() {
		var kw Keyword
		if err := rows.Scan(&kw.ID, &kw.Keyword, &kw.TargetDomain, &kw.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan keyword row: %w", err)
		}
		keywords = append(keywords, kw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keyword rows: %w", err)
	}
	return keywords, nil
}

// Get returns one keyword by id, or ErrNotFound.
func (s *KeywordStore) Get(ctx context.Context, q Querier, id int64) (Keyword, error) {
	query := `
		SELECT id, keyword, target_domain, created_at
		FROM keywords
		WHERE id = $1
	`
	var kw Keyword
	err := q.QueryRow(ctx, query, id).Scan(&kw.ID, &kw.Keyword, &kw.TargetDomain, &kw.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Keyword{}, ErrNotFound
		}
		return Keyword{}, fmt.Errorf("get keyword %d: %w", id, err)
	}
	return kw, nil
}

// Insert adds a new tracked keyword and returns the stored row. A keyword
// that is already tracked yields ErrDuplicateKeyword.
func (s *KeywordStore) Insert(ctx context.Context, q Querier, keyword, targetDomain string) (Keyword, error) {
	cleaned := strings.TrimSpace(keyword)
	if cleaned == "" {
		return Keyword{}, fmt.Errorf("keyword is required")
	}

	query := `
		INSERT INTO keywords (keyword, target_domain)
		VALUES ($1, $2)
		RETURNING id, keyword, target_domain, created_at
	`
	var kw Keyword
	err := q.QueryRow(ctx, query, cleaned, targetDomain).
		Scan(&kw.ID, &kw.Keyword, &kw.TargetDomain, &kw.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Keyword{}, ErrDuplicateKeyword
		}
		return Keyword{}, fmt.Errorf("insert keyword %q: %w", cleaned, err)
	}
	return kw, nil
}

// Delete removes a keyword; its ranking history cascades away with it.
func (s *KeywordStore) Delete(ctx context.Context, q Querier, id int64) error {
	tag, err := q.Exec(ctx, `DELETE FROM keywords WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete keyword %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
