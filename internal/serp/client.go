package serp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ranktrakr/ranktrakr/internal/archive"
	"github.com/ranktrakr/ranktrakr/internal/metrics"
)

// statusOK is the DataForSEO success code at both envelope and task level.
const statusOK = 20000

// maxResponseBytes caps how much of a provider response is read.
const maxResponseBytes = 8 << 20

// Clock returns the current time (injectable for testing).
type Clock interface {
	Now() time.Time
}

// ClientConfig holds the provider endpoint, credentials and default
// targeting parameters, injected once at construction.
type ClientConfig struct {
	BaseURL  string
	Login    string
	Password string
	Timeout  time.Duration
	Defaults Location
	Matcher  Matcher
}

// Client performs authenticated SERP lookups against DataForSEO and
// resolves which result, if any, belongs to a target domain.
type Client struct {
	httpClient *http.Client
	cfg        ClientConfig
	blobs      archive.BlobStore
	clock      Clock
	logger     *zap.Logger
}

// NewClient constructs a Client. The blob store receives a copy of every
// raw provider response; pass archive.Noop{} to disable archiving.
func NewClient(cfg ClientConfig, blobs archive.BlobStore, clock Clock, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if blobs == nil {
		blobs = archive.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		blobs:      blobs,
		clock:      clock,
		logger:     logger,
	}
}

// liveTask is the request payload for one live SERP task. The target
// domain is intentionally not sent; matching happens locally so the full
// result page stays available for diagnostics.
type liveTask struct {
	Keyword      string `json:"keyword"`
	LocationCode int    `json:"location_code,omitempty"`
	LocationName string `json:"location_name,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	Device       string `json:"device,omitempty"`
	OS           string `json:"os,omitempty"`
	Depth        int    `json:"depth,omitempty"`
}

type liveEnvelope struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Tasks         []struct {
		StatusCode    int             `json:"status_code"`
		StatusMessage string          `json:"status_message"`
		Result        json.RawMessage `json:"result"`
	} `json:"tasks"`
}

// FetchBestMatch issues one provider call for the keyword, normalizes the
// response and resolves the best result for targetDomain. A successful
// call with no matching result returns (nil, nil); errors are always one
// of TransportError or StatusError.
func (c *Client) FetchBestMatch(ctx context.Context, keyword, targetDomain string, loc Location) (*Match, error) {
	results, err := c.fetch(ctx, keyword, loc)
	if err != nil {
		return nil, err
	}

	best, ok := c.cfg.Matcher.Best(results, targetDomain)
	if !ok {
		if len(results) > 0 {
			c.logger.Debug("no serp match for target domain",
				zap.String("keyword", keyword),
				zap.String("domain", targetDomain),
				zap.Int("items", len(results)),
			)
		}
		return nil, nil
	}

	url := best.URL
	if url == "" && best.Host != "" {
		url = "https://" + best.Host
	}
	m := &Match{
		Position: best.Rank,
		URL:      url,
		Features: Features{
			Type:              best.Type,
			IsFeaturedSnippet: best.FeaturedSnippet,
		},
	}
	if best.PixelPosition > 0 {
		px := best.PixelPosition
		m.Features.PixelPosition = &px
	}
	return m, nil
}

// Preview returns the first topN normalized results regardless of domain
// plus the subset matching targetDomain. It is a diagnostic view and is
// never persisted.
func (c *Client) Preview(ctx context.Context, keyword, targetDomain string, loc Location, topN int) (Preview, error) {
	results, err := c.fetch(ctx, keyword, loc)
	if err != nil {
		return Preview{}, err
	}
	if topN <= 0 || topN > len(results) {
		topN = len(results)
	}
	p := Preview{
		Top:     results[:topN],
		Matches: []Result{},
	}
	for _, r := range results {
		if c.cfg.Matcher.Matches(r, targetDomain) {
			p.Matches = append(p.Matches, r)
		}
	}
	return p, nil
}

// Ping verifies outbound connectivity and credentials with a minimal live
// request. The response is discarded and never archived.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.doFetch(ctx, "test", Location{Depth: 10}, false)
	return err
}

func (c *Client) fetch(ctx context.Context, keyword string, loc Location) ([]Result, error) {
	metrics.IncFetchesInFlight()
	defer metrics.DecFetchesInFlight()

	start := time.Now()
	results, err := c.doFetch(ctx, keyword, loc, true)
	metrics.ObserveProviderRequest(outcomeLabel(err), time.Since(start))
	return results, err
}

func outcomeLabel(err error) string {
	var transportErr *TransportError
	var statusErr *StatusError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &transportErr):
		return "transport_error"
	case errors.As(err, &statusErr):
		return "status_error"
	default:
		return "error"
	}
}

func (c *Client) doFetch(ctx context.Context, keyword string, loc Location, archiveResponse bool) ([]Result, error) {
	task := c.buildTask(keyword, loc)
	body, err := json.Marshal([]liveTask{task})
	if err != nil {
		return nil, &TransportError{Keyword: keyword, Err: fmt.Errorf("marshal task: %w", err)}
	}

	endpoint := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/serp/google/organic/live/advanced"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Keyword: keyword, Err: err}
	}
	req.SetBasicAuth(c.cfg.Login, c.cfg.Password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Keyword: keyword, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Keyword: keyword, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Keyword:    keyword,
			HTTPStatus: resp.StatusCode,
			Message:    truncate(string(raw), 200),
		}
	}

	if archiveResponse {
		c.archiveRaw(ctx, keyword, raw)
	}

	var env liveEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &StatusError{
			Keyword:    keyword,
			HTTPStatus: resp.StatusCode,
			Message:    fmt.Sprintf("undecodable response body: %v", err),
		}
	}
	if env.StatusCode != statusOK {
		return nil, &StatusError{Keyword: keyword, Code: env.StatusCode, Message: env.StatusMessage}
	}
	if len(env.Tasks) == 0 {
		return nil, &StatusError{Keyword: keyword, Code: env.StatusCode, Message: "response contained no tasks"}
	}
	task0 := env.Tasks[0]
	if task0.StatusCode != statusOK {
		return nil, &StatusError{Keyword: keyword, Code: task0.StatusCode, Message: task0.StatusMessage}
	}

	return Normalize(task0.Result), nil
}

func (c *Client) buildTask(keyword string, loc Location) liveTask {
	d := c.cfg.Defaults
	task := liveTask{
		Keyword:      keyword,
		LocationCode: loc.LocationCode,
		LocationName: loc.LocationName,
		LanguageCode: loc.LanguageCode,
		Device:       loc.Device,
		OS:           loc.OS,
		Depth:        loc.Depth,
	}
	// Location code wins over name when both are present; only fall back
	// to the configured defaults when the caller supplied neither.
	if task.LocationCode == 0 && task.LocationName == "" {
		task.LocationCode = d.LocationCode
		task.LocationName = d.LocationName
	}
	if task.LocationCode != 0 {
		task.LocationName = ""
	}
	if task.LanguageCode == "" {
		task.LanguageCode = d.LanguageCode
	}
	if task.Device == "" {
		task.Device = d.Device
	}
	if task.OS == "" {
		task.OS = d.OS
	}
	if task.Depth == 0 {
		task.Depth = d.Depth
	}
	return task
}

// archiveRaw stores the raw response keyed by day and keyword. Failures
// are logged and swallowed.
func (c *Client) archiveRaw(ctx context.Context, keyword string, raw []byte) {
	day := c.clock.Now().UTC().Format("2006-01-02")
	path := fmt.Sprintf("serp/%s/%s.json", day, slug(keyword))
	if _, err := c.blobs.Put(ctx, path, "application/json", raw); err != nil {
		c.logger.Warn("archive serp payload failed",
			zap.String("keyword", keyword),
			zap.Error(err),
		)
	}
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
