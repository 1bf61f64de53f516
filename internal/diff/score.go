package diff

import (
	"fmt"
	"math"

	"github.com/user/seo-snapshot-service/internal/entity"
)

// Competitive positions by total score.
const (
	PositionExcellent        = "Excellent"
	PositionGood             = "Good"
	PositionAverage          = "Average"
	PositionNeedsImprovement = "Needs Improvement"
)

// Competitor pairs a competitor website with its latest completed snapshot.
// Snapshot is nil when the competitor has never been scanned successfully.
type Competitor struct {
	Website  *entity.Website
	Snapshot *entity.Snapshot
}

// Score rates a website from its page count and critical issue count
// relative to competitor averages. Each half is clamped to [0,50].
func Score(pages, critical int, avgPages, avgCritical float64) entity.CompetitiveScore {
	pagesScore := math.Min(50, float64(pages)/math.Max(avgPages, 1)*50)
	issuesScore := math.Max(0, 50-float64(critical)/math.Max(avgCritical, 1)*50)
	total := pagesScore + issuesScore

	position := PositionNeedsImprovement
	switch {
	case total >= 80:
		position = PositionExcellent
	case total >= 60:
		position = PositionGood
	case total >= 40:
		position = PositionAverage
	}

	return entity.CompetitiveScore{
		TotalScore:  round1(total),
		PagesScore:  round1(pagesScore),
		IssuesScore: round1(issuesScore),
		Position:    position,
	}
}

// Analyze benchmarks the primary snapshot against each competitor.
func Analyze(primary *entity.Website, snapshot *entity.Snapshot, competitors []Competitor) *entity.CompetitiveAnalysis {
	out := &entity.CompetitiveAnalysis{
		PrimaryWebsiteID: primary.ID,
		Competitors:      []entity.CompetitorMetrics{},
		Opportunities:    []string{},
		Threats:          []string{},
	}
	if len(competitors) == 0 {
		out.Message = "No competitors added yet"
		return out
	}
	if snapshot == nil {
		out.Message = "No snapshots available for primary website"
		return out
	}
	out.PrimarySnapshotID = snapshot.ID

	var sumPages, sumCritical float64
	analyzed := 0
	for _, c := range competitors {
		m := compareWith(snapshot, c)
		out.Competitors = append(out.Competitors, m)
		if c.Snapshot == nil {
			continue
		}
		analyzed++
		sumPages += float64(c.Snapshot.PagesScraped)
		sumCritical += float64(c.Snapshot.Summary.CriticalIssues)
		out.Opportunities = append(out.Opportunities, m.Opportunities...)
		out.Threats = append(out.Threats, m.Threats...)
	}
	if analyzed == 0 {
		out.Message = "No competitor data available for analysis"
		return out
	}

	out.Message = fmt.Sprintf("Analyzed against %d competitors", analyzed)
	out.AvgCompetitorPages = sumPages / float64(analyzed)
	out.AvgCompetitorCritical = sumCritical / float64(analyzed)

	pages := snapshot.PagesScraped
	critical := snapshot.Summary.CriticalIssues
	if float64(pages) > out.AvgCompetitorPages {
		out.Opportunities = append(out.Opportunities,
			fmt.Sprintf("You have more pages than the average competitor (%d vs %.1f)", pages, out.AvgCompetitorPages))
	} else {
		out.Threats = append(out.Threats,
			fmt.Sprintf("Competitors have more pages on average (%.1f vs %d)", out.AvgCompetitorPages, pages))
	}
	if float64(critical) < out.AvgCompetitorCritical {
		out.Opportunities = append(out.Opportunities,
			fmt.Sprintf("You have fewer critical SEO issues than average competitor (%d vs %.1f)", critical, out.AvgCompetitorCritical))
	} else {
		out.Threats = append(out.Threats,
			fmt.Sprintf("You have more critical SEO issues than average competitor (%d vs %.1f)", critical, out.AvgCompetitorCritical))
	}

	score := Score(pages, critical, out.AvgCompetitorPages, out.AvgCompetitorCritical)
	out.Score = &score
	return out
}

func compareWith(primary *entity.Snapshot, c Competitor) entity.CompetitorMetrics {
	m := entity.CompetitorMetrics{
		CompetitorID:    c.Website.ID,
		CompetitorName:  c.Website.Name,
		PrimaryPages:    primary.PagesScraped,
		PrimaryCritical: primary.Summary.CriticalIssues,
		PrimaryWarnings: primary.Summary.Warnings,
		Opportunities:   []string{},
		Threats:         []string{},
	}
	if c.Snapshot == nil {
		m.Status = "no_snapshots"
		return m
	}

	s := c.Snapshot
	m.Status = "analyzed"
	m.SnapshotID = s.ID
	m.CompetitorPages = s.PagesScraped
	m.PagesDifference = primary.PagesScraped - s.PagesScraped
	m.CompetitorCritical = s.Summary.CriticalIssues
	m.CompetitorWarnings = s.Summary.Warnings

	switch {
	case m.PrimaryCritical > m.CompetitorCritical:
		m.Threats = append(m.Threats, fmt.Sprintf("%s has fewer critical SEO issues (%d vs %d)",
			c.Website.Name, m.CompetitorCritical, m.PrimaryCritical))
	case m.PrimaryCritical < m.CompetitorCritical:
		m.Opportunities = append(m.Opportunities, fmt.Sprintf("You have fewer critical SEO issues than %s (%d vs %d)",
			c.Website.Name, m.PrimaryCritical, m.CompetitorCritical))
	}
	if m.PrimaryPages < m.CompetitorPages {
		m.Opportunities = append(m.Opportunities, fmt.Sprintf("%s has more pages indexed (%d vs %d)",
			c.Website.Name, m.CompetitorPages, m.PrimaryPages))
	}
	return m
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
