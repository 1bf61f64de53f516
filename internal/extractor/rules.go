package extractor

import (
	"strings"
	"unicode/utf8"

	"github.com/user/seo-snapshot-service/internal/entity"
)

// Rule fires Message into Bucket when Applies matches the facts.
type Rule struct {
	Bucket  entity.InsightBucket
	Message string
	Applies func(f *entity.Facts) bool
}

const (
	minTitleLength       = 30
	maxTitleLength       = 60
	minDescriptionLength = 70
	maxDescriptionLength = 160
	thinContentWords     = 300
)

// DefaultRules is evaluated in order; every matching rule fires.
var DefaultRules = []Rule{
	{entity.BucketImmediate, "Missing page title", func(f *entity.Facts) bool {
		return f.Title == ""
	}},
	{entity.BucketImmediate, "Page is blocked from indexing by a noindex robots directive", func(f *entity.Facts) bool {
		return strings.Contains(strings.ToLower(f.Meta.SEO["robots"]), "noindex")
	}},
	{entity.BucketImmediate, "Structured data contains invalid JSON-LD", func(f *entity.Facts) bool {
		for _, sd := range f.StructuredData {
			if !sd.Valid {
				return true
			}
		}
		return false
	}},
	{entity.BucketImmediate, "Missing H1 heading", func(f *entity.Facts) bool {
		return len(f.Heading("h1")) == 0
	}},

	{entity.BucketNeedsAttention, "Missing meta description", func(f *entity.Facts) bool {
		return description(f) == ""
	}},
	{entity.BucketNeedsAttention, "Title length is outside the recommended 30-60 characters", func(f *entity.Facts) bool {
		n := utf8.RuneCountInString(f.Title)
		return n > 0 && (n < minTitleLength || n > maxTitleLength)
	}},
	{entity.BucketNeedsAttention, "Meta description length is outside the recommended 70-160 characters", func(f *entity.Facts) bool {
		n := utf8.RuneCountInString(description(f))
		return n > 0 && (n < minDescriptionLength || n > maxDescriptionLength)
	}},
	{entity.BucketNeedsAttention, "Multiple H1 headings", func(f *entity.Facts) bool {
		return len(f.Heading("h1")) > 1
	}},
	{entity.BucketNeedsAttention, "Images missing alt text", func(f *entity.Facts) bool {
		return missingAlt(f) > 0
	}},
	{entity.BucketNeedsAttention, "Thin content (fewer than 300 words)", func(f *entity.Facts) bool {
		return f.WordCount < thinContentWords
	}},
	{entity.BucketNeedsAttention, "Missing canonical URL", func(f *entity.Facts) bool {
		return f.Meta.SEO["canonical"] == ""
	}},
	{entity.BucketNeedsAttention, "Missing viewport meta tag", func(f *entity.Facts) bool {
		return f.Meta.Technical["viewport"] == ""
	}},
	{entity.BucketNeedsAttention, "Missing html lang attribute", func(f *entity.Facts) bool {
		return f.Lang == ""
	}},

	{entity.BucketGoodPractice, "Title length is optimal", func(f *entity.Facts) bool {
		n := utf8.RuneCountInString(f.Title)
		return n >= minTitleLength && n <= maxTitleLength
	}},
	{entity.BucketGoodPractice, "Meta description length is optimal", func(f *entity.Facts) bool {
		n := utf8.RuneCountInString(description(f))
		return n >= minDescriptionLength && n <= maxDescriptionLength
	}},
	{entity.BucketGoodPractice, "Single H1 heading", func(f *entity.Facts) bool {
		return len(f.Heading("h1")) == 1
	}},
	{entity.BucketGoodPractice, "All images have alt text", func(f *entity.Facts) bool {
		return len(f.Images) > 0 && missingAlt(f) == 0
	}},
	{entity.BucketGoodPractice, "Valid structured data present", func(f *entity.Facts) bool {
		for _, sd := range f.StructuredData {
			if sd.Valid {
				return true
			}
		}
		return false
	}},
	{entity.BucketGoodPractice, "Open Graph tags present", func(f *entity.Facts) bool {
		for key := range f.Meta.SEO {
			if strings.HasPrefix(key, "og:") {
				return true
			}
		}
		return false
	}},
	{entity.BucketGoodPractice, "Page links to other pages on the site", func(f *entity.Facts) bool {
		return len(f.Links.Internal) > 0
	}},
}

// Classify runs DefaultRules over the facts.
func Classify(f *entity.Facts) entity.Insights {
	return ClassifyWith(DefaultRules, f)
}

// ClassifyWith runs the given rule table over the facts. The result depends
// only on the facts and the rule order.
func ClassifyWith(rules []Rule, f *entity.Facts) entity.Insights {
	insights := entity.NewInsights()
	for _, r := range rules {
		if r.Applies(f) {
			insights[r.Bucket] = append(insights[r.Bucket], r.Message)
		}
	}
	return insights
}

func description(f *entity.Facts) string {
	return strings.TrimSpace(f.MetaDescription())
}

func missingAlt(f *entity.Facts) int {
	n := 0
	for _, img := range f.Images {
		if img.Alt == entity.MissingAltText {
			n++
		}
	}
	return n
}
