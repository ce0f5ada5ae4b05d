package serp

import (
	"encoding/json"
	"net/url"
	"strings"
)

// Normalize turns the raw "result" payload of a provider task into an
// ordered list of Results. It is deliberately best-effort: a missing or
// non-list container yields an empty slice, and per-field fallbacks are
// applied instead of failing on absent attributes.
//
// Fallback order per field:
//   - rank: rank_absolute, then rank_group, then the item's position in
//     the list (1-based)
//   - url:  url, then relative_url
//   - host: hostname parsed from the url, then the domain attribute;
//     always lowercased
//
// Items without any URL are retained with an empty host because slots such
// as related questions still occupy rank order.
func Normalize(result []byte) []Result {
	var pages []any
	if err := json.Unmarshal(result, &pages); err != nil || len(pages) == 0 {
		return nil
	}
	page, ok := pages[0].(map[string]any)
	if !ok {
		return nil
	}
	rawItems, ok := page["items"].([]any)
	if !ok {
		return nil
	}

	results := make([]Result, 0, len(rawItems))
	for i, raw := range rawItems {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		results = append(results, normalizeItem(item, i+1))
	}
	return results
}

func normalizeItem(item map[string]any, position int) Result {
	r := Result{
		Type:  stringField(item, "type"),
		Title: stringField(item, "title"),
	}

	if rank, ok := intField(item, "rank_absolute"); ok {
		r.Rank = rank
	} else if rank, ok := intField(item, "rank_group"); ok {
		r.Rank = rank
	} else {
		r.Rank = position
	}

	r.URL = stringField(item, "url")
	if r.URL == "" {
		r.URL = stringField(item, "relative_url")
	}
	r.Host = hostOf(r.URL, stringField(item, "domain"))

	if snip, ok := item["is_featured_snippet"].(bool); ok {
		r.FeaturedSnippet = snip
	}
	if px, ok := intField(item, "pixel_position"); ok {
		r.PixelPosition = px
	}
	return r
}

// hostOf extracts a lowercase hostname from rawURL, falling back to the
// provider's domain attribute when the URL is absent or unparseable.
func hostOf(rawURL, domain string) string {
	if rawURL != "" {
		if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
			return strings.ToLower(u.Hostname())
		}
	}
	return strings.ToLower(strings.TrimSpace(domain))
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func intField(m map[string]any, key string) (int, bool) {
	// JSON numbers decode as float64.
	f, ok := m[key].(float64)
	if !ok || f <= 0 {
		return 0, false
	}
	return int(f), true
}
