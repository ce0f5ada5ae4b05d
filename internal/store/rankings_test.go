package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// midDay exercises the UTC day truncation: a 14:30 clock must still key
// snapshots by midnight.
var midDay = fixedClock{t: time.Date(2025, 3, 14, 14, 30, 0, 0, time.UTC)}

var day = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func TestToday(t *testing.T) {
	t.Parallel()

	s := NewRankingStore(midDay)
	assert.Equal(t, day, s.Today())
}

func TestUpsertSnapshot(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewRankingStore(midDay)
	volume := 1800
	cpc := 12.5

	mock.ExpectExec("INSERT INTO keyword_rankings").
		WithArgs(
			int64(42),
			"tax lawyer chicago",
			7,
			"https://example.com/tax",
			&volume,
			(*float64)(nil),
			&cpc,
			[]byte(`{"is_featured_snippet":false,"pixel_position":null,"type":"organic"}`),
			day,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = s.UpsertSnapshot(context.Background(), mock, 42, "tax lawyer chicago", SnapshotFields{
		Position:     7,
		URL:          "https://example.com/tax",
		SearchVolume: &volume,
		CPC:          &cpc,
		Features: map[string]any{
			"type":                "organic",
			"is_featured_snippet": false,
			"pixel_position":      nil,
		},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSnapshotExecFailure(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewRankingStore(midDay)
	mock.ExpectExec("INSERT INTO keyword_rankings").
		WillReturnError(errors.New("connection reset"))

	err = s.UpsertSnapshot(context.Background(), mock, 1, "kw", SnapshotFields{Position: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert snapshot")
}

func TestRecordNoMatch(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewRankingStore(midDay)
	mock.ExpectExec("INSERT INTO keyword_rankings").
		WithArgs(int64(9), "obscure phrase", day).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	require.NoError(t, s.RecordNoMatch(context.Background(), mock, 9, "obscure phrase"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecomputeDeltas(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewRankingStore(midDay)
	mock.ExpectExec("UPDATE keyword_rankings").
		WithArgs(day).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	require.NoError(t, s.RecomputeDeltas(context.Background(), mock))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistory(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewRankingStore(midDay)
	pos := 5
	delta := 2
	cutoff := day.AddDate(0, 0, -7)

	rows := pgxmock.NewRows([]string{
		"keyword_id", "keyword", "ranking_position", "ranking_url",
		"search_volume", "competition", "cpc", "serp_features",
		"timestamp", "delta_7", "delta_30",
	}).
		AddRow(int64(42), "tax lawyer", &pos, ptr("https://example.com/tax"),
			(*int)(nil), (*float64)(nil), (*float64)(nil), []byte(`{"type":"organic"}`),
			day.AddDate(0, 0, -1), &delta, (*int)(nil)).
		AddRow(int64(42), "tax lawyer", (*int)(nil), (*string)(nil),
			(*int)(nil), (*float64)(nil), (*float64)(nil), []byte(`{}`),
			day, (*int)(nil), (*int)(nil))

	mock.ExpectQuery("SELECT keyword_id, keyword, ranking_position").
		WithArgs(int64(42), cutoff).
		WillReturnRows(rows)

	history, err := s.History(context.Background(), mock, 42, 7)
	require.NoError(t, err)
	require.Len(t, history, 2)

	require.NotNil(t, history[0].Position)
	assert.Equal(t, 5, *history[0].Position)
	assert.Equal(t, 2, *history[0].Delta7)
	assert.Nil(t, history[1].Position, "no-match day round-trips as NULL position")
	assert.JSONEq(t, `{}`, string(history[1].Features))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryDefaultWindow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewRankingStore(midDay)
	mock.ExpectQuery("SELECT keyword_id, keyword, ranking_position").
		WithArgs(int64(1), day.AddDate(0, 0, -30)).
		WillReturnRows(pgxmock.NewRows([]string{
			"keyword_id", "keyword", "ranking_position", "ranking_url",
			"search_volume", "competition", "cpc", "serp_features",
			"timestamp", "delta_7", "delta_30",
		}))

	history, err := s.History(context.Background(), mock, 1, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestFor(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewRankingStore(midDay)
	pos := 4

	mock.ExpectQuery("SELECT keyword_id, keyword, ranking_position").
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{
			"keyword_id", "keyword", "ranking_position", "ranking_url",
			"search_volume", "competition", "cpc", "serp_features",
			"timestamp", "delta_7", "delta_30",
		}).AddRow(int64(42), "tax lawyer", &pos, ptr("https://example.com/tax"),
			(*int)(nil), (*float64)(nil), (*float64)(nil), []byte(`{"type":"organic"}`),
			day, (*int)(nil), (*int)(nil)))

	snap, err := s.LatestFor(context.Background(), mock, 42)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 4, *snap.Position)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestForNeverChecked(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewRankingStore(midDay)
	mock.ExpectQuery("SELECT keyword_id, keyword, ranking_position").
		WithArgs(int64(1)).
		WillReturnError(pgx.ErrNoRows)

	snap, err := s.LatestFor(context.Background(), mock, 1)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestLatest(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewRankingStore(midDay)
	pos := 3

	rows := pgxmock.NewRows([]string{
		"id", "keyword", "target_domain",
		"ranking_position", "ranking_url", "search_volume",
		"timestamp", "delta_7", "delta_30",
	}).
		AddRow(int64(1), "estate planning", "example.com",
			&pos, ptr("https://example.com/estate"), (*int)(nil),
			&day, (*int)(nil), (*int)(nil)).
		AddRow(int64(2), "never ranked", "example.com",
			(*int)(nil), (*string)(nil), (*int)(nil),
			(*time.Time)(nil), (*int)(nil), (*int)(nil))

	mock.ExpectQuery("SELECT k.id, k.keyword, k.target_domain").
		WillReturnRows(rows)

	latest, err := s.Latest(context.Background(), mock)
	require.NoError(t, err)
	require.Len(t, latest, 2)

	assert.Equal(t, 3, *latest[0].Position)
	assert.Nil(t, latest[1].Position, "keyword with no snapshots still listed")
	assert.Nil(t, latest[1].Date)
	require.NoError(t, mock.ExpectationsWereMet())
}

func ptr[T any](v T) *T { return &v }
