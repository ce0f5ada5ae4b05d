package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// RankingStore persists daily ranking snapshots and derives position
// deltas. It is stateless apart from the clock that fixes the calendar-day
// convention (UTC) at the store boundary.
type RankingStore struct {
	clock Clock
}

// NewRankingStore creates a RankingStore using the given clock.
func NewRankingStore(clock Clock) *RankingStore {
	return &RankingStore{clock: clock}
}

// Today returns the current UTC calendar day used as the snapshot key.
func (s *RankingStore) Today() time.Time {
	now := s.clock.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// UpsertSnapshot inserts or updates the snapshot for (keywordID, today).
// A later call within the same day overwrites all mutable fields, which
// makes re-running a cycle idempotent.
func (s *RankingStore) UpsertSnapshot(ctx context.Context, q Querier, keywordID int64, keyword string, f SnapshotFields) error {
	featuresJSON, err := json.Marshal(f.Features)
	if err != nil {
		return fmt.Errorf("marshal serp features for %q: %w", keyword, err)
	}

	query := `
		INSERT INTO keyword_rankings (
			keyword_id, keyword, ranking_position, ranking_url,
			search_volume, competition, cpc, serp_features, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (keyword_id, timestamp)
		DO UPDATE SET
			ranking_position = EXCLUDED.ranking_position,
			ranking_url = EXCLUDED.ranking_url,
			search_volume = EXCLUDED.search_volume,
			competition = EXCLUDED.competition,
			cpc = EXCLUDED.cpc,
			serp_features = EXCLUDED.serp_features
	`
	_, err = q.Exec(ctx, query,
		keywordID,
		keyword,
		f.Position,
		f.URL,
		f.SearchVolume,
		f.Competition,
		f.CPC,
		featuresJSON,
		s.Today(),
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot for %q: %w", keyword, err)
	}
	return nil
}

// RecordNoMatch inserts an explicit "checked, no ranking found" snapshot
// for (keywordID, today). It never overwrites an existing row, so a good
// snapshot written earlier the same day is preserved.
func (s *RankingStore) RecordNoMatch(ctx context.Context, q Querier, keywordID int64, keyword string) error {
	query := `
		INSERT INTO keyword_rankings (
			keyword_id, keyword, ranking_position, ranking_url, serp_features, timestamp
		) VALUES ($1, $2, NULL, NULL, '{}'::jsonb, $3)
		ON CONFLICT (keyword_id, timestamp) DO NOTHING
	`
	if _, err := q.Exec(ctx, query, keywordID, keyword, s.Today()); err != nil {
		return fmt.Errorf("record no-match for %q: %w", keyword, err)
	}
	return nil
}

// RecomputeDeltas sets delta_7 and delta_30 on every snapshot dated today,
// joining each against the snapshot exactly 7 and 30 days earlier for the
// same keyword. The two baselines are looked up independently, so a
// missing baseline at one offset leaves only that delta NULL. Positive
// deltas mean the position number dropped, i.e. the ranking improved.
func (s *RankingStore) RecomputeDeltas(ctx context.Context, q Querier) error {
	query := `
		UPDATE keyword_rankings kr
		SET
			delta_7 = (
				SELECT p.ranking_position
				FROM keyword_rankings p
				WHERE p.keyword_id = kr.keyword_id
				  AND p.timestamp = kr.timestamp - 7
			) - kr.ranking_position,
			delta_30 = (
				SELECT p.ranking_position
				FROM keyword_rankings p
				WHERE p.keyword_id = kr.keyword_id
				  AND p.timestamp = kr.timestamp - 30
			) - kr.ranking_position
		WHERE kr.timestamp = $1
	`
	if _, err := q.Exec(ctx, query, s.Today()); err != nil {
		return fmt.Errorf("recompute deltas: %w", err)
	}
	return nil
}

// History returns the snapshots for one keyword within the trailing window,
// ordered by date ascending.
func (s *RankingStore) History(ctx context.Context, q Querier, keywordID int64, windowDays int) ([]Snapshot, error) {
	if windowDays <= 0 {
		windowDays = 30
	}
	cutoff := s.Today().AddDate(0, 0, -windowDays)

	query := `
		SELECT keyword_id, keyword, ranking_position, ranking_url,
		       search_volume, competition, cpc, serp_features,
		       timestamp, delta_7, delta_30
		FROM keyword_rankings
		WHERE keyword_id = $1 AND timestamp >= $2
		ORDER BY timestamp ASC
	`
	rows, err := q.Query(ctx, query, keywordID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query ranking history: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var snap Snapshot
		var features []byte
		err := rows.Scan(
			&snap.KeywordID,
			&snap.Keyword,
			&snap.Position,
			&snap.URL,
			&snap.SearchVolume,
			&snap.Competition,
			&snap.CPC,
			&features,
			&snap.Date,
			&snap.Delta7,
			&snap.Delta30,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ranking row: %w", err)
		}
		snap.Features = features
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ranking rows: %w", err)
	}
	return snapshots, nil
}

// LatestFor returns the most recent snapshot for one keyword, or nil when
// the keyword has never been checked.
func (s *RankingStore) LatestFor(ctx context.Context, q Querier, keywordID int64) (*Snapshot, error) {
	query := `
		SELECT keyword_id, keyword, ranking_position, ranking_url,
		       search_volume, competition, cpc, serp_features,
		       timestamp, delta_7, delta_30
		FROM keyword_rankings
		WHERE keyword_id = $1
		ORDER BY timestamp DESC
		LIMIT 1
	`
	var snap Snapshot
	var features []byte
	err := q.QueryRow(ctx, query, keywordID).Scan(
		&snap.KeywordID,
		&snap.Keyword,
		&snap.Position,
		&snap.URL,
		&snap.SearchVolume,
		&snap.Competition,
		&snap.CPC,
		&features,
		&snap.Date,
		&snap.Delta7,
		&snap.Delta30,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query latest snapshot for keyword %d: %w", keywordID, err)
	}
	snap.Features = features
	return &snap, nil
}

// Latest returns every tracked keyword joined with its most recent
// snapshot, best known position first and never-ranked keywords last.
func (s *RankingStore) Latest(ctx context.Context, q Querier) ([]LatestRanking, error) {
	query := `
		SELECT k.id, k.keyword, k.target_domain,
		       kr.ranking_position, kr.ranking_url, kr.search_volume,
		       kr.timestamp, kr.delta_7, kr.delta_30
		FROM keywords k
		LEFT JOIN LATERAL (
			SELECT ranking_position, ranking_url, search_volume,
			       timestamp, delta_7, delta_30
			FROM keyword_rankings
			WHERE keyword_id = k.id
			ORDER BY timestamp DESC
			LIMIT 1
		) kr ON TRUE
		ORDER BY COALESCE(kr.ranking_position, 999999) ASC, k.keyword ASC
	`
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query latest rankings: %w", err)
	}
	defer rows.Close()

	var latest []LatestRanking
	for rows.Next() {
		var lr LatestRanking
		err := rows.Scan(
			&lr.KeywordID,
			&lr.Keyword,
			&lr.TargetDomain,
			&lr.Position,
			&lr.URL,
			&lr.SearchVolume,
			&lr.Date,
			&lr.Delta7,
			&lr.Delta30,
		)
		if err != nil {
			return nil, fmt.Errorf("scan latest ranking row: %w", err)
		}
		latest = append(latest, lr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate latest ranking rows: %w", err)
	}
	return latest, nil
}
