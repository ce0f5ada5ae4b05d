package serp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFullItems(t *testing.T) {
	t.Parallel()

	raw := []byte(`[{
		"items": [
			{"type": "organic", "rank_absolute": 3, "rank_group": 2,
			 "url": "https://Example.com/practice/tax", "title": "Tax Law",
			 "is_featured_snippet": false, "pixel_position": 812},
			{"type": "featured_snippet", "rank_absolute": 1,
			 "url": "https://other.com/answer", "is_featured_snippet": true}
		]
	}]`)

	results := Normalize(raw)
	require.Len(t, results, 2)

	assert.Equal(t, 3, results[0].Rank)
	assert.Equal(t, "organic", results[0].Type)
	assert.Equal(t, "example.com", results[0].Host)
	assert.Equal(t, "Tax Law", results[0].Title)
	assert.Equal(t, 812, results[0].PixelPosition)
	assert.False(t, results[0].FeaturedSnippet)

	assert.Equal(t, 1, results[1].Rank)
	assert.True(t, results[1].FeaturedSnippet)
}

func TestNormalizeRankFallbacks(t *testing.T) {
	t.Parallel()

	raw := []byte(`[{
		"items": [
			{"type": "organic", "rank_group": 5, "url": "https://a.com/"},
			{"type": "organic", "url": "https://b.com/"},
			{"type": "organic", "rank_absolute": 0, "url": "https://c.com/"}
		]
	}]`)

	results := Normalize(raw)
	require.Len(t, results, 3)
	assert.Equal(t, 5, results[0].Rank, "rank_group used when rank_absolute missing")
	assert.Equal(t, 2, results[1].Rank, "positional fallback is 1-based")
	assert.Equal(t, 3, results[2].Rank, "zero rank_absolute treated as missing")
}

func TestNormalizeURLAndHostFallbacks(t *testing.T) {
	t.Parallel()

	raw := []byte(`[{
		"items": [
			{"type": "organic", "rank_absolute": 1, "relative_url": "/page", "domain": "Example.COM"},
			{"type": "people_also_ask", "rank_absolute": 2},
			{"type": "organic", "rank_absolute": 3, "url": "https://sub.example.com/x?q=1"}
		]
	}]`)

	results := Normalize(raw)
	require.Len(t, results, 3)

	assert.Equal(t, "/page", results[0].URL)
	assert.Equal(t, "example.com", results[0].Host, "domain fallback lowercased")

	assert.Empty(t, results[1].Host, "slot without any URL keeps its rank with empty host")
	assert.Equal(t, 2, results[1].Rank)

	assert.Equal(t, "sub.example.com", results[2].Host)
}

func TestNormalizeMalformedPayloads(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"not json":        `{{`,
		"null result":     `null`,
		"empty list":      `[]`,
		"non-object page": `[42]`,
		"missing items":   `[{"se_domain": "google.com"}]`,
		"items not list":  `[{"items": {"type": "organic"}}]`,
	}
	for name, raw := range cases {
		raw := raw
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Empty(t, Normalize([]byte(raw)))
		})
	}
}

func TestNormalizeSkipsNonObjectItems(t *testing.T) {
	t.Parallel()

	raw := []byte(`[{"items": [17, {"type": "organic", "rank_absolute": 2, "url": "https://a.com/"}]}]`)
	results := Normalize(raw)
	require.Len(t, results, 1)
	assert.Equal(t, "a.com", results[0].Host)
}
