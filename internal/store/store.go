// Package store provides Postgres-backed persistence for tracked keywords
// and their daily ranking snapshots.
//
// Store methods take an explicit Querier so the caller controls the scope
// of the handle: API reads pass the pool directly, while the update cycle
// runs its whole persistence phase on a single transaction.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgx executable by both a pool and a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner starts a transaction; satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Clock returns the current time; snapshots are bucketed by its UTC date.
type Clock interface {
	Now() time.Time
}

// ErrNotFound is returned when a row lookup matches nothing.
var ErrNotFound = errors.New("not found")

// ErrDuplicateKeyword is returned when inserting a keyword that is already
// tracked.
var ErrDuplicateKeyword = errors.New("keyword already exists")

// uniqueViolation is the Postgres error code for unique constraint breaks.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Keyword is a tracked keyword with its target domain.
type Keyword struct {
	ID           int64     `json:"id"`
	Keyword      string    `json:"keyword"`
	TargetDomain string    `json:"target_domain"`
	CreatedAt    time.Time `json:"created_at"`
}

// SnapshotFields carries the mutable ranking fields written by an upsert.
// Features is marshaled into the serp_features JSONB column.
type SnapshotFields struct {
	Position     int
	URL          string
	SearchVolume *int
	Competition  *float64
	CPC          *float64
	Features     any
}

// Snapshot is one persisted ranking row: at most one per keyword per
// calendar day. Nil pointers correspond to SQL NULLs.
type Snapshot struct {
	KeywordID    int64           `json:"keyword_id"`
	Keyword      string          `json:"keyword"`
	Position     *int            `json:"ranking_position"`
	URL          *string         `json:"ranking_url"`
	SearchVolume *int            `json:"search_volume"`
	Competition  *float64        `json:"competition"`
	CPC          *float64        `json:"cpc"`
	Features     json.RawMessage `json:"serp_features"`
	Date         time.Time       `json:"timestamp"`
	Delta7       *int            `json:"delta_7"`
	Delta30      *int            `json:"delta_30"`
}

// LatestRanking joins a keyword with its most recent snapshot, if any.
type LatestRanking struct {
	KeywordID    int64      `json:"keyword_id"`
	Keyword      string     `json:"keyword"`
	TargetDomain string     `json:"target_domain"`
	Position     *int       `json:"ranking_position"`
	URL          *string    `json:"ranking_url"`
	SearchVolume *int       `json:"search_volume"`
	Date         *time.Time `json:"timestamp"`
	Delta7       *int       `json:"delta_7"`
	Delta30      *int       `json:"delta_30"`
}
