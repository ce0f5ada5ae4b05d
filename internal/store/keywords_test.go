package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordList(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"id", "keyword", "target_domain", "created_at"}).
		AddRow(int64(1), "estate planning", "example.com", created).
		AddRow(int64(2), "tax lawyer", "example.com", created)

	mock.ExpectQuery("SELECT id, keyword, target_domain, created_at").
		WillReturnRows(rows)

	s := NewKeywordStore()
	keywords, err := s.List(context.Background(), mock)
	require.NoError(t, err)
	require.Len(t, keywords, 2)
	assert.Equal(t, "estate planning", keywords[0].Keyword)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKeywordGetNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, keyword, target_domain, created_at").
		WithArgs(int64(99)).
		WillReturnError(pgx.ErrNoRows)

	s := NewKeywordStore()
	_, err = s.Get(context.Background(), mock, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKeywordInsert(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO keywords").
		WithArgs("tax lawyer", "example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "keyword", "target_domain", "created_at"}).
			AddRow(int64(7), "tax lawyer", "example.com", created))

	s := NewKeywordStore()
	kw, err := s.Insert(context.Background(), mock, "  tax lawyer  ", "example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(7), kw.ID)
	assert.Equal(t, "tax lawyer", kw.Keyword)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKeywordInsertDuplicate(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO keywords").
		WithArgs("tax lawyer", "example.com").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	s := NewKeywordStore()
	_, err = s.Insert(context.Background(), mock, "tax lawyer", "example.com")
	assert.ErrorIs(t, err, ErrDuplicateKeyword)
}

func TestKeywordInsertEmpty(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewKeywordStore()
	_, err = s.Insert(context.Background(), mock, "   ", "example.com")
	assert.Error(t, err)
}

func TestKeywordDelete(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM keywords").
		WithArgs(int64(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	s := NewKeywordStore()
	require.NoError(t, s.Delete(context.Background(), mock, 3))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKeywordDeleteNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM keywords").
		WithArgs(int64(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	s := NewKeywordStore()
	assert.ErrorIs(t, s.Delete(context.Background(), mock, 3), ErrNotFound)
}

func TestKeywordDeleteQueryError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM keywords").
		WithArgs(int64(3)).
		WillReturnError(errors.New("connection reset"))

	s := NewKeywordStore()
	err = s.Delete(context.Background(), mock, 3)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
