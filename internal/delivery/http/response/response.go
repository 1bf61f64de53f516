package response

import (
	"time"

	"github.com/user/seo-snapshot-service/internal/entity"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type WebsiteResponse struct {
	ID               string     `json:"id"`
	Domain           string     `json:"domain"`
	Name             string     `json:"name"`
	Role             string     `json:"role"`
	BaseURL          string     `json:"base_url"`
	CrawlCadenceDays int        `json:"crawl_cadence_days"`
	MaxPages         int        `json:"max_pages"`
	SnapshotCount    int        `json:"snapshot_count"`
	LastSnapshotAt   *time.Time `json:"last_snapshot_at,omitempty"`
	IsActive         bool       `json:"is_active"`
	CreatedAt        time.Time  `json:"created_at"`
}

func NewWebsite(w *entity.Website) WebsiteResponse {
	return WebsiteResponse{
		ID:               w.ID,
		Domain:           w.Domain,
		Name:             w.Name,
		Role:             string(w.Role),
		BaseURL:          w.BaseURL,
		CrawlCadenceDays: w.CrawlCadenceDays,
		MaxPages:         w.MaxPages,
		SnapshotCount:    w.SnapshotCount,
		LastSnapshotAt:   w.LastSnapshotAt,
		IsActive:         w.IsActive,
		CreatedAt:        w.CreatedAt,
	}
}

func NewWebsites(ws []*entity.Website) []WebsiteResponse {
	out := make([]WebsiteResponse, 0, len(ws))
	for _, w := range ws {
		out = append(out, NewWebsite(w))
	}
	return out
}

// ScanResponse is returned when a snapshot is queued.
type ScanResponse struct {
	Status   string                `json:"status"`
	Message  string                `json:"message"`
	Website  *WebsiteResponse      `json:"website,omitempty"`
	Snapshot entity.SnapshotHandle `json:"snapshot"`
}

type SnapshotResponse struct {
	ID              string                 `json:"id"`
	WebsiteID       string                 `json:"website_id"`
	Version         int                    `json:"version"`
	State           entity.ScanState       `json:"state"`
	BaseURL         string                 `json:"base_url"`
	PagesDiscovered int                    `json:"pages_discovered"`
	PagesScraped    int                    `json:"pages_scraped"`
	PagesFailed     int                    `json:"pages_failed"`
	CurrentStep     string                 `json:"current_step"`
	ErrorMessage    string                 `json:"error_message,omitempty"`
	Summary         entity.SnapshotSummary `json:"summary"`
	StartedAt       time.Time              `json:"started_at"`
	CompletedAt     *time.Time             `json:"completed_at,omitempty"`
}

func NewSnapshot(sn *entity.Snapshot) SnapshotResponse {
	return SnapshotResponse{
		ID:              sn.ID,
		WebsiteID:       sn.WebsiteID,
		Version:         sn.Version,
		State:           sn.State,
		BaseURL:         sn.BaseURL,
		PagesDiscovered: sn.PagesDiscovered,
		PagesScraped:    sn.PagesScraped,
		PagesFailed:     sn.PagesFailed,
		CurrentStep:     sn.CurrentStep,
		ErrorMessage:    sn.ErrorMessage,
		Summary:         sn.Summary,
		StartedAt:       sn.StartedAt,
		CompletedAt:     sn.CompletedAt,
	}
}

func NewSnapshots(sns []*entity.Snapshot) []SnapshotResponse {
	out := make([]SnapshotResponse, 0, len(sns))
	for _, sn := range sns {
		out = append(out, NewSnapshot(sn))
	}
	return out
}

type PageResponse struct {
	ID              string          `json:"id"`
	URL             string          `json:"url"`
	URLPath         string          `json:"url_path"`
	Title           string          `json:"title"`
	MetaDescription string          `json:"meta_description"`
	H1Tags          []string        `json:"h1_tags"`
	H2Tags          []string        `json:"h2_tags"`
	WordCount       int             `json:"word_count"`
	ContentHash     string          `json:"content_hash"`
	ResponseTimeMS  int             `json:"response_time_ms"`
	HTTPStatusCode  int             `json:"http_status_code"`
	Insights        entity.Insights `json:"insights"`
	Facts           entity.Facts    `json:"seo_data"`
	CapturedAt      time.Time       `json:"captured_at"`
}

func NewPages(pages []*entity.PageRecord) []PageResponse {
	out := make([]PageResponse, 0, len(pages))
	for _, p := range pages {
		out = append(out, PageResponse{
			ID:              p.ID,
			URL:             p.URL,
			URLPath:         p.URLPath,
			Title:           p.Title,
			MetaDescription: p.MetaDescription,
			H1Tags:          p.H1Tags,
			H2Tags:          p.H2Tags,
			WordCount:       p.WordCount,
			ContentHash:     p.ContentHash,
			ResponseTimeMS:  p.ResponseTimeMS,
			HTTPStatusCode:  p.HTTPStatusCode,
			Insights:        p.Insights,
			Facts:           p.Facts,
			CapturedAt:      p.CapturedAt,
		})
	}
	return out
}

type ComparisonResponse struct {
	ID                 string                 `json:"id"`
	WebsiteID          string                 `json:"website_id"`
	BaselineSnapshotID string                 `json:"baseline_snapshot_id"`
	CurrentSnapshotID  string                 `json:"current_snapshot_id"`
	PagesAdded         int                    `json:"pages_added"`
	PagesRemoved       int                    `json:"pages_removed"`
	PagesModified      int                    `json:"pages_modified"`
	SEOImprovements    int                    `json:"seo_improvements"`
	SEORegressions     int                    `json:"seo_regressions"`
	NewIssues          int                    `json:"new_issues"`
	ResolvedIssues     int                    `json:"resolved_issues"`
	PageChanges        []entity.PageChange    `json:"page_changes"`
	InsightChanges     []entity.InsightChange `json:"insight_changes"`
	CreatedAt          time.Time              `json:"created_at"`
}

func NewComparison(c *entity.Comparison) ComparisonResponse {
	return ComparisonResponse{
		ID:                 c.ID,
		WebsiteID:          c.WebsiteID,
		BaselineSnapshotID: c.BaselineSnapshotID,
		CurrentSnapshotID:  c.CurrentSnapshotID,
		PagesAdded:         c.PagesAdded,
		PagesRemoved:       c.PagesRemoved,
		PagesModified:      c.PagesModified,
		SEOImprovements:    c.SEOImprovements,
		SEORegressions:     c.SEORegressions,
		NewIssues:          c.NewIssues,
		ResolvedIssues:     c.ResolvedIssues,
		PageChanges:        c.PageChanges,
		InsightChanges:     c.InsightChanges,
		CreatedAt:          c.CreatedAt,
	}
}

func NewComparisons(cs []*entity.Comparison) []ComparisonResponse {
	out := make([]ComparisonResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, NewComparison(c))
	}
	return out
}

// ComparisonSummaryResponse mirrors entity.ComparisonSummary with the
// latest comparison rendered as a DTO.
type ComparisonSummaryResponse struct {
	TotalComparisons int                      `json:"total_comparisons"`
	RecentTrends     *entity.ComparisonTrends `json:"recent_trends,omitempty"`
	Latest           *ComparisonResponse      `json:"latest_comparison,omitempty"`
}

func NewComparisonSummary(s *entity.ComparisonSummary) ComparisonSummaryResponse {
	out := ComparisonSummaryResponse{TotalComparisons: s.TotalComparisons, RecentTrends: s.RecentTrends}
	if s.Latest != nil {
		latest := NewComparison(s.Latest)
		out.Latest = &latest
	}
	return out
}
