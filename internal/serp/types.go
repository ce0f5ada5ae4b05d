// Package serp implements the DataForSEO client, the response normalizer,
// and the domain matching logic that together resolve a keyword's ranking
// position for a target domain.
package serp

// Result is one normalized SERP slot. Fields default to their zero value
// when the provider omits them; Rank == 0 means the provider supplied no
// usable rank for the slot.
type Result struct {
	Rank            int    `json:"rank"`
	Type            string `json:"type"`
	Host            string `json:"host"`
	URL             string `json:"url"`
	Title           string `json:"title,omitempty"`
	FeaturedSnippet bool   `json:"featured_snippet,omitempty"`
	PixelPosition   int    `json:"pixel_position,omitempty"`
}

// Features captures the SERP feature flags persisted alongside a snapshot.
type Features struct {
	Type              string `json:"type"`
	IsFeaturedSnippet bool   `json:"is_featured_snippet"`
	PixelPosition     *int   `json:"pixel_position"`
}

// Match is the snapshot-shaped outcome of resolving a keyword against a
// target domain. SearchVolume, Competition and CPC are passed through when
// the provider includes them and are nil otherwise.
type Match struct {
	Position     int
	URL          string
	Features     Features
	SearchVolume *int
	Competition  *float64
	CPC          *float64
}

// Location carries the geographic and device targeting parameters for one
// provider call. Zero values fall back to the client's configured defaults.
type Location struct {
	LocationCode int
	LocationName string
	LanguageCode string
	Device       string
	OS           string
	Depth        int
}

// Preview is the diagnostic view returned by Client.Preview: the first N
// normalized results regardless of domain plus the full matching subset.
type Preview struct {
	Top     []Result `json:"top"`
	Matches []Result `json:"matches"`
}
