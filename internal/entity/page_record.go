package entity

import (
	"encoding/json"
	"time"
)

// MissingAltText is recorded as an image's alt when the attribute is absent or empty.
const MissingAltText = "MISSING ALT TEXT"

// ImageInfo represents the structured data for an image extracted from a page.
type ImageInfo struct {
	Src    string `json:"src"`
	Alt    string `json:"alt"`
	Width  string `json:"width,omitempty"`
	Height string `json:"height,omitempty"`
}

// MetaTags groups a page's meta tags by purpose.
type MetaTags struct {
	SEO       map[string]string `json:"seo"`
	Social    map[string]string `json:"social"`
	Technical map[string]string `json:"technical"`
}

// Links splits a page's anchors by whether they stay on the page's host.
type Links struct {
	Internal []string `json:"internal"`
	External []string `json:"external"`
}

// StructuredData is one application/ld+json block. Invalid blocks keep
// Valid=false and an Error instead of Data.
type StructuredData struct {
	Valid bool            `json:"valid"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Facts is the typed bundle of SEO facts extracted from one rendered page.
// Extra carries facts that have no typed field yet.
type Facts struct {
	URL            string              `json:"url"`
	Title          string              `json:"title"`
	Meta           MetaTags            `json:"meta_tags"`
	Links          Links               `json:"links"`
	Headings       map[string][]string `json:"headings"`
	Images         []ImageInfo         `json:"images"`
	StructuredData []StructuredData    `json:"structured_data"`
	Content        string              `json:"content"`
	Lang           string              `json:"html_lang,omitempty"`
	WordCount      int                 `json:"word_count"`
	ContentHash    string              `json:"content_hash"`
	Extra          map[string]any      `json:"extra,omitempty"`
}

// Heading returns the texts of the given heading level ("h1".."h6").
func (f *Facts) Heading(level string) []string {
	return f.Headings[level]
}

// MetaDescription returns the description meta tag, if any.
func (f *Facts) MetaDescription() string {
	return f.Meta.SEO["description"]
}

// PageRecord is one page as captured by one snapshot. It is written once
// and never updated.
type PageRecord struct {
	ID              string
	WebsiteID       string
	SnapshotID      string
	OwnerID         string
	URL             string
	URLPath         string
	Title           string
	MetaDescription string
	H1Tags          []string
	H2Tags          []string
	WordCount       int
	Facts           Facts
	Insights        Insights
	ContentHash     string
	ResponseTimeMS  int
	HTTPStatusCode  int
	CapturedAt      time.Time
}
