package serp

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Request pairs a tracked keyword with its target domain for one batch run.
type Request struct {
	KeywordID int64
	Keyword   string
	Domain    string
}

// Outcome is the per-keyword result of a batch run. Exactly one of the
// three states holds: Err != nil (failed), Match != nil (matched), or
// both nil (checked, no ranking found).
type Outcome struct {
	Request Request
	Match   *Match
	Err     error
}

// RankFetcher resolves a single keyword against a target domain.
type RankFetcher interface {
	FetchBestMatch(ctx context.Context, keyword, targetDomain string, loc Location) (*Match, error)
}

// BatchFetcher fans a list of keywords out over a bounded number of
// concurrent provider calls. A failed keyword never cancels or blocks its
// siblings; every input keyword appears exactly once in the output, though
// completion order is not input order.
type BatchFetcher struct {
	fetcher RankFetcher
	limit   int
	logger  *zap.Logger
}

// NewBatchFetcher constructs a BatchFetcher with the given concurrency cap.
func NewBatchFetcher(fetcher RankFetcher, limit int, logger *zap.Logger) *BatchFetcher {
	if limit <= 0 {
		limit = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchFetcher{fetcher: fetcher, limit: limit, logger: logger}
}

// Run executes the batch and returns one outcome per request, indexed in
// input order. Workers capture errors into their outcome slot and always
// return nil to the group, so the group never cancels early.
func (b *BatchFetcher) Run(ctx context.Context, reqs []Request, loc Location) []Outcome {
	outcomes := make([]Outcome, len(reqs))

	var g errgroup.Group
	g.SetLimit(b.limit)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			match, err := b.fetcher.FetchBestMatch(ctx, req.Keyword, req.Domain, loc)
			if err != nil {
				b.logger.Warn("keyword fetch failed",
					zap.String("keyword", req.Keyword),
					zap.Error(err),
				)
			}
			outcomes[i] = Outcome{Request: req, Match: match, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}
