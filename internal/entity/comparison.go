package entity

import "time"

// Page change types.
const (
	ChangeAdded    = "added"
	ChangeRemoved  = "removed"
	ChangeModified = "modified"
)

type TextChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

type CountChange struct {
	Old    int `json:"old"`
	New    int `json:"new"`
	Change int `json:"change"`
}

type SetChange struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// PageDetail holds the field-level differences of a modified page.
type PageDetail struct {
	Title           *TextChange  `json:"title,omitempty"`
	MetaDescription *TextChange  `json:"meta_description,omitempty"`
	WordCount       *CountChange `json:"word_count,omitempty"`
	H1Tags          *SetChange   `json:"h1_tags,omitempty"`
	H2Tags          *SetChange   `json:"h2_tags,omitempty"`
}

type PageChange struct {
	URL        string      `json:"url"`
	ChangeType string      `json:"change_type"`
	Changes    *PageDetail `json:"changes,omitempty"`
}

// InsightChange lists, per bucket, the findings that appeared or vanished
// on a page present in both snapshots.
type InsightChange struct {
	URL     string                      `json:"url"`
	Changes map[InsightBucket]SetChange `json:"changes"`
}

// Comparison is the persisted difference between two snapshots of the same
// website.
type Comparison struct {
	ID                 string
	WebsiteID          string
	OwnerID            string
	BaselineSnapshotID string
	CurrentSnapshotID  string
	PagesAdded         int
	PagesRemoved       int
	PagesModified      int
	SEOImprovements    int
	SEORegressions     int
	NewIssues          int
	ResolvedIssues     int
	PageChanges        []PageChange
	InsightChanges     []InsightChange
	CreatedAt          time.Time
}

// ComparisonTrends aggregates recent comparisons of a website.
type ComparisonTrends struct {
	SEOImprovements int `json:"seo_improvements"`
	SEORegressions  int `json:"seo_regressions"`
	PagesAdded      int `json:"pages_added"`
	PagesRemoved    int `json:"pages_removed"`
	NetSEOChange    int `json:"net_seo_change"`
}

type ComparisonSummary struct {
	TotalComparisons int               `json:"total_comparisons"`
	RecentTrends     *ComparisonTrends `json:"recent_trends,omitempty"`
	Latest           *Comparison       `json:"latest_comparison,omitempty"`
}
