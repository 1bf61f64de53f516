package request

// ScanRequest starts a snapshot of a URL, tracking its domain on first use.
type ScanRequest struct {
	URL              string `json:"url"`
	Name             string `json:"name"`
	Role             string `json:"role"`
	CrawlCadenceDays int    `json:"crawl_cadence_days"`
	MaxPages         int    `json:"max_pages"`
}

// WebsiteRequest registers a website without scanning it.
type WebsiteRequest struct {
	URL              string `json:"url"`
	Name             string `json:"name"`
	Role             string `json:"role"`
	CrawlCadenceDays int    `json:"crawl_cadence_days"`
	MaxPages         int    `json:"max_pages"`
}

type CompareRequest struct {
	BaselineSnapshotID string `json:"baseline_snapshot_id"`
	CurrentSnapshotID  string `json:"current_snapshot_id"`
}
