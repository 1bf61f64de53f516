package entity

// CompetitorMetrics compares the primary website's latest snapshot with
// one competitor's.
type CompetitorMetrics struct {
	CompetitorID       string   `json:"competitor_id"`
	CompetitorName     string   `json:"competitor_name"`
	SnapshotID         string   `json:"snapshot_id,omitempty"`
	Status             string   `json:"status"`
	PrimaryPages       int      `json:"primary_pages"`
	CompetitorPages    int      `json:"competitor_pages"`
	PagesDifference    int      `json:"pages_difference"`
	PrimaryCritical    int      `json:"primary_critical"`
	CompetitorCritical int      `json:"competitor_critical"`
	PrimaryWarnings    int      `json:"primary_warnings"`
	CompetitorWarnings int      `json:"competitor_warnings"`
	Opportunities      []string `json:"opportunities"`
	Threats            []string `json:"threats"`
}

// CompetitiveScore is bounded to [0,100]. PagesScore and IssuesScore
// contribute at most 50 each.
type CompetitiveScore struct {
	TotalScore  float64 `json:"total_score"`
	PagesScore  float64 `json:"pages_score"`
	IssuesScore float64 `json:"seo_score"`
	Position    string  `json:"competitive_position"`
}

// CompetitiveAnalysis is a derived view; it is never persisted.
type CompetitiveAnalysis struct {
	PrimaryWebsiteID      string              `json:"primary_website_id"`
	PrimarySnapshotID     string              `json:"primary_snapshot_id,omitempty"`
	Message               string              `json:"message,omitempty"`
	Competitors           []CompetitorMetrics `json:"competitors"`
	AvgCompetitorPages    float64             `json:"avg_competitor_pages"`
	AvgCompetitorCritical float64             `json:"avg_competitor_critical_issues"`
	Opportunities         []string            `json:"opportunities"`
	Threats               []string            `json:"threats"`
	Score                 *CompetitiveScore   `json:"competitive_score,omitempty"`
}
