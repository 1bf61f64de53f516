package entity

import (
	"time"
)

// WebsiteRole describes why a website is tracked.
type WebsiteRole string

const (
	RolePrimary    WebsiteRole = "primary"
	RoleCompetitor WebsiteRole = "competitor"
	RoleReference  WebsiteRole = "reference"
)

func (r WebsiteRole) Valid() bool {
	switch r {
	case RolePrimary, RoleCompetitor, RoleReference:
		return true
	}
	return false
}

// Website is a tracked site. Websites are deactivated, never deleted.
type Website struct {
	ID               string
	OwnerID          string
	Domain           string
	Name             string
	Role             WebsiteRole
	BaseURL          string
	CrawlCadenceDays int
	MaxPages         int
	SnapshotCount    int
	LastSnapshotAt   *time.Time
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DueForSnapshot reports whether the crawl cadence has elapsed since the
// last snapshot. A website without snapshots is always due.
func (w *Website) DueForSnapshot(now time.Time) bool {
	if !w.IsActive {
		return false
	}
	if w.LastSnapshotAt == nil {
		return true
	}
	cadence := time.Duration(w.CrawlCadenceDays) * 24 * time.Hour
	return !now.Before(w.LastSnapshotAt.Add(cadence))
}
