package entity

import "time"

// ScanState is the lifecycle state of a snapshot.
type ScanState string

const (
	StatePending          ScanState = "pending"
	StateCrawling         ScanState = "crawling"
	StateScanning         ScanState = "scanning"
	StateGeneratingReport ScanState = "generating_report"
	StateCompleted        ScanState = "completed"
	StateFailed           ScanState = "failed"
)

var stateRank = map[ScanState]int{
	StatePending:          0,
	StateCrawling:         1,
	StateScanning:         2,
	StateGeneratingReport: 3,
	StateCompleted:        4,
}

// IsTerminal reports whether no further transition is allowed.
func (s ScanState) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// CanTransitionTo reports whether a snapshot in state s may move to next.
// Transitions only move forward; staying in a non-terminal state is allowed
// so progress counters can be written.
func (s ScanState) CanTransitionTo(next ScanState) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StateFailed || next == s {
		return true
	}
	from, ok := stateRank[s]
	if !ok {
		return false
	}
	to, ok := stateRank[next]
	return ok && to > from
}

// SnapshotSummary holds the insight counters computed when a scan finishes.
type SnapshotSummary struct {
	TotalInsights  int `json:"total_insights"`
	CriticalIssues int `json:"critical_issues"`
	Warnings       int `json:"warnings"`
	GoodPractices  int `json:"good_practices"`
}

// Add accumulates the bucket sizes of one page's insights.
func (s *SnapshotSummary) Add(in Insights) {
	s.CriticalIssues += len(in[BucketImmediate])
	s.Warnings += len(in[BucketNeedsAttention])
	s.GoodPractices += len(in[BucketGoodPractice])
	s.TotalInsights = s.CriticalIssues + s.Warnings + s.GoodPractices
}

// Snapshot is one versioned scan of a website.
type Snapshot struct {
	ID              string
	WebsiteID       string
	OwnerID         string
	Version         int
	State           ScanState
	BaseURL         string
	PagesDiscovered int
	PagesScraped    int
	PagesFailed     int
	CurrentStep     string
	ErrorMessage    string
	Summary         SnapshotSummary
	StartedAt       time.Time
	CompletedAt     *time.Time
	UpdatedAt       time.Time
}

// SnapshotHandle is returned to callers as soon as a scan is dispatched.
type SnapshotHandle struct {
	ID        string    `json:"id"`
	WebsiteID string    `json:"website_id"`
	Version   int       `json:"version"`
	State     ScanState `json:"state"`
}

// SnapshotStatus is the progress view of a running or finished scan.
type SnapshotStatus struct {
	SnapshotID      string    `json:"snapshot_id"`
	OwnerID         string    `json:"-"`
	State           ScanState `json:"state"`
	CurrentStep     string    `json:"current_step"`
	PagesDiscovered int       `json:"pages_discovered"`
	PagesScraped    int       `json:"pages_scraped"`
	PagesFailed     int       `json:"pages_failed"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (s *Snapshot) Handle() SnapshotHandle {
	return SnapshotHandle{ID: s.ID, WebsiteID: s.WebsiteID, Version: s.Version, State: s.State}
}

func (s *Snapshot) Status() SnapshotStatus {
	return SnapshotStatus{
		SnapshotID:      s.ID,
		OwnerID:         s.OwnerID,
		State:           s.State,
		CurrentStep:     s.CurrentStep,
		PagesDiscovered: s.PagesDiscovered,
		PagesScraped:    s.PagesScraped,
		PagesFailed:     s.PagesFailed,
		ErrorMessage:    s.ErrorMessage,
		UpdatedAt:       s.UpdatedAt,
	}
}
