package serp

import (
	"sort"
	"strings"
)

// organicTypes lists the provider result types eligible for matching.
// Ads, knowledge panels, people-also-ask and similar slots are excluded.
var organicTypes = map[string]bool{
	"organic":          true,
	"featured_snippet": true,
}

// Matcher selects the best result for a target domain under a tiered
// precedence rule: exact host match, then subdomain match, then (only when
// Loose is set) substring containment. Each tier is scanned in ascending
// rank order and an earlier tier always beats a later one regardless of
// rank.
//
// The substring tier tolerates provider-dependent host noise but risks
// false positives (target "law.com" would match host "lawfirm.com"), so it
// is off by default and gated behind the matcher.loose_match config knob.
type Matcher struct {
	Loose bool
}

// Best returns the highest-precedence eligible result matching the target
// domain, or ok == false when nothing matches.
func (m Matcher) Best(results []Result, targetDomain string) (Result, bool) {
	target := CanonicalDomain(targetDomain)
	if target == "" || len(results) == 0 {
		return Result{}, false
	}

	ordered := make([]Result, 0, len(results))
	for _, r := range results {
		if organicTypes[r.Type] && r.Host != "" {
			ordered = append(ordered, r)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Rank < ordered[j].Rank })

	tiers := []func(host string) bool{
		func(host string) bool { return host == target },
		func(host string) bool { return strings.HasSuffix(host, "."+target) },
	}
	if m.Loose {
		tiers = append(tiers, func(host string) bool { return strings.Contains(host, target) })
	}

	for _, matches := range tiers {
		for _, r := range ordered {
			if matches(r.Host) {
				return r, true
			}
		}
	}
	return Result{}, false
}

// Matches reports whether a single result satisfies any enabled tier for
// the target domain. Eligibility rules are the same as Best.
func (m Matcher) Matches(r Result, targetDomain string) bool {
	target := CanonicalDomain(targetDomain)
	if target == "" || r.Host == "" || !organicTypes[r.Type] {
		return false
	}
	if r.Host == target || strings.HasSuffix(r.Host, "."+target) {
		return true
	}
	return m.Loose && strings.Contains(r.Host, target)
}

// CanonicalDomain lowercases a user-supplied domain and strips any scheme
// prefix so it compares cleanly against normalized hosts.
func CanonicalDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	return strings.TrimSuffix(d, "/")
}
