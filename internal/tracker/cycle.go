// Package tracker orchestrates the recurring ranking update cycle: load
// tracked keywords, fan out provider calls, persist the day's snapshots
// and recompute deltas.
package tracker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ranktrakr/ranktrakr/internal/metrics"
	"github.com/ranktrakr/ranktrakr/internal/publisher"
	"github.com/ranktrakr/ranktrakr/internal/serp"
	"github.com/ranktrakr/ranktrakr/internal/store"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// DB is the database handle the cycle needs: plain queries for the keyword
// load and a transaction for the persistence phase.
type DB interface {
	store.Querier
	store.TxBeginner
}

// KeywordLister loads the tracked keyword set.
type KeywordLister interface {
	List(ctx context.Context, q store.Querier) ([]store.Keyword, error)
}

// SnapshotStore persists batch outcomes and derives deltas.
type SnapshotStore interface {
	UpsertSnapshot(ctx context.Context, q store.Querier, keywordID int64, keyword string, f store.SnapshotFields) error
	RecordNoMatch(ctx context.Context, q store.Querier, keywordID int64, keyword string) error
	RecomputeDeltas(ctx context.Context, q store.Querier) error
}

// Fetcher runs provider calls for a batch of keyword requests.
type Fetcher interface {
	Run(ctx context.Context, reqs []serp.Request, loc serp.Location) []serp.Outcome
}

// Summary reports what one update cycle did.
type Summary struct {
	Processed int `json:"processed"`
	Matched   int `json:"matched"`
	NoMatch   int `json:"no_match"`
	Failed    int `json:"failed"`
}

// Cycle is the update-cycle entry point. It offers no mid-cycle
// cancellation of its own; a caller that wants a deadline owns the context
// around Run.
type Cycle struct {
	db       DB
	keywords KeywordLister
	rankings SnapshotStore
	fetcher  Fetcher
	events   publisher.Publisher
	topic    string
	loc      serp.Location
	logger   *zap.Logger
}

// NewCycle wires an update cycle. The publisher may be publisher.Noop.
func NewCycle(
	db DB,
	keywords KeywordLister,
	rankings SnapshotStore,
	fetcher Fetcher,
	events publisher.Publisher,
	topic string,
	loc serp.Location,
	logger *zap.Logger,
) *Cycle {
	if events == nil {
		events = publisher.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cycle{
		db:       db,
		keywords: keywords,
		rankings: rankings,
		fetcher:  fetcher,
		events:   events,
		topic:    topic,
		loc:      loc,
		logger:   logger,
	}
}

// Run executes one full update cycle. A keyword-listing failure aborts
// before any fetching; once fetching has started, per-keyword provider
// failures are isolated into the summary. A store failure during the
// persistence phase rolls the transaction back and propagates.
func (c *Cycle) Run(ctx context.Context) (Summary, error) {
	keywords, err := c.keywords.List(ctx, c.db)
	if err != nil {
		metrics.ObserveCycle("failed")
		return Summary{}, fmt.Errorf("list tracked keywords: %w", err)
	}
	if len(keywords) == 0 {
		c.logger.Info("no tracked keywords, nothing to update")
		metrics.ObserveCycle("ok")
		return Summary{}, nil
	}

	c.logger.Info("starting ranking update cycle", zap.Int("keywords", len(keywords)))

	reqs := make([]serp.Request, 0, len(keywords))
	for _, kw := range keywords {
		reqs = append(reqs, serp.Request{
			KeywordID: kw.ID,
			Keyword:   kw.Keyword,
			Domain:    kw.TargetDomain,
		})
	}
	outcomes := c.fetcher.Run(ctx, reqs, c.loc)

	summary, err := c.persist(ctx, outcomes)
	if err != nil {
		metrics.ObserveCycle("failed")
		return Summary{}, err
	}
	summary.Processed = len(keywords)

	c.publishSummary(ctx, summary)
	metrics.ObserveCycle("ok")
	c.logger.Info("ranking update cycle completed",
		zap.Int("processed", summary.Processed),
		zap.Int("matched", summary.Matched),
		zap.Int("no_match", summary.NoMatch),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// persist writes every outcome and recomputes deltas on one transaction,
// so delta recomputation never observes a half-written day.
func (c *Cycle) persist(ctx context.Context, outcomes []serp.Outcome) (Summary, error) {
	tx, err := c.db.Begin(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("begin persistence transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var summary Summary
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			summary.Failed++
			metrics.ObserveKeywordOutcome("failed")
			c.logger.Error("keyword update failed",
				zap.String("keyword", o.Request.Keyword),
				zap.Error(o.Err),
			)
		case o.Match == nil:
			if err := c.rankings.RecordNoMatch(ctx, tx, o.Request.KeywordID, o.Request.Keyword); err != nil {
				return Summary{}, fmt.Errorf("persist outcomes: %w", err)
			}
			summary.NoMatch++
			metrics.ObserveKeywordOutcome("no_match")
		default:
			fields := store.SnapshotFields{
				Position:     o.Match.Position,
				URL:          o.Match.URL,
				SearchVolume: o.Match.SearchVolume,
				Competition:  o.Match.Competition,
				CPC:          o.Match.CPC,
				Features:     o.Match.Features,
			}
			if err := c.rankings.UpsertSnapshot(ctx, tx, o.Request.KeywordID, o.Request.Keyword, fields); err != nil {
				return Summary{}, fmt.Errorf("persist outcomes: %w", err)
			}
			summary.Matched++
			metrics.ObserveKeywordOutcome("matched")
		}
	}

	if err := c.rankings.RecomputeDeltas(ctx, tx); err != nil {
		return Summary{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Summary{}, fmt.Errorf("commit persistence transaction: %w", err)
	}
	return summary, nil
}

func (c *Cycle) publishSummary(ctx context.Context, summary Summary) {
	if c.topic == "" {
		return
	}
	payload := map[string]any{
		"processed": summary.Processed,
		"matched":   summary.Matched,
		"no_match":  summary.NoMatch,
		"failed":    summary.Failed,
	}
	if _, err := c.events.Publish(ctx, c.topic, payload); err != nil {
		c.logger.Warn("publish cycle summary failed", zap.Error(err))
	}
}
