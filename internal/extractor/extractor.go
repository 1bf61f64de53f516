// Package extractor turns rendered HTML into SEO facts and classifies them
// into insight buckets. Everything here is pure and safe for concurrent use.
package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/seo-snapshot-service/internal/entity"
	"github.com/user/seo-snapshot-service/pkg/utils"
)

const invalidJSONLD = "Invalid JSON-LD"

var headingLevels = []string{"h1", "h2", "h3", "h4", "h5", "h6"}

// seoMetaKeys are the non-prefixed meta names filed under SEO.
var seoMetaKeys = map[string]bool{
	"description": true,
	"keywords":    true,
	"robots":      true,
	"canonical":   true,
}

// Extract parses HTML content and extracts the page's SEO facts.
func Extract(pageURL, htmlContent string) (*entity.Facts, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	facts := &entity.Facts{
		URL:      pageURL,
		Title:    strings.TrimSpace(doc.Find("title").First().Text()),
		Headings: make(map[string][]string, len(headingLevels)),
		Images:   []entity.ImageInfo{},
	}

	// Structured data lives in script tags, so read it before they are stripped.
	facts.StructuredData = extractStructuredData(doc)
	doc.Find("script, style").Remove()

	facts.Meta = extractMeta(doc, base)
	facts.Links = extractLinks(doc, base)
	for _, level := range headingLevels {
		facts.Headings[level] = textsOf(doc.Find(level))
	}
	facts.Images = extractImages(doc, base)
	facts.Lang = strings.TrimSpace(doc.Find("html").First().AttrOr("lang", ""))
	facts.Extra = extractExtra(doc, base)

	facts.Content = extractContent(doc)
	facts.WordCount = len(strings.Fields(facts.Content))
	facts.ContentHash = utils.HashContent(facts.Content)

	return facts, nil
}

func extractStructuredData(doc *goquery.Document) []entity.StructuredData {
	blocks := []entity.StructuredData{}
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		typ := strings.ToLower(strings.TrimSpace(s.AttrOr("type", "")))
		if typ != "application/ld+json" {
			return
		}
		raw := strings.TrimSpace(s.Text())
		var buf bytes.Buffer
		if raw == "" || json.Compact(&buf, []byte(raw)) != nil {
			blocks = append(blocks, entity.StructuredData{Error: invalidJSONLD})
			return
		}
		blocks = append(blocks, entity.StructuredData{Valid: true, Data: json.RawMessage(buf.Bytes())})
	})
	return blocks
}

func extractMeta(doc *goquery.Document, base *url.URL) entity.MetaTags {
	meta := entity.MetaTags{
		SEO:       map[string]string{},
		Social:    map[string]string{},
		Technical: map[string]string{},
	}

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		if charset, ok := s.Attr("charset"); ok {
			meta.Technical["charset"] = strings.TrimSpace(charset)
		}
		key := s.AttrOr("name", "")
		if key == "" {
			key = s.AttrOr("property", "")
		}
		if key == "" {
			key = s.AttrOr("http-equiv", "")
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			return
		}
		content := strings.TrimSpace(s.AttrOr("content", ""))

		switch {
		case seoMetaKeys[key] || strings.HasPrefix(key, "og:"):
			meta.SEO[key] = content
		case strings.HasPrefix(key, "twitter:"):
			meta.Social[key] = content
		default:
			meta.Technical[key] = content
		}
	})

	if meta.SEO["canonical"] == "" {
		href := strings.TrimSpace(doc.Find(`link[rel="canonical"]`).First().AttrOr("href", ""))
		if href != "" {
			if abs, err := utils.ToAbsoluteURL(base, href); err == nil {
				meta.SEO["canonical"] = abs
			}
		}
	}
	return meta
}

func extractLinks(doc *goquery.Document, base *url.URL) entity.Links {
	links := entity.Links{Internal: []string{}, External: []string{}}
	seen := map[string]bool{}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		lower := strings.ToLower(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(lower, "javascript:") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		abs.Fragment = ""
		link := abs.String()
		if seen[link] {
			return
		}
		seen[link] = true

		if (abs.Scheme == "http" || abs.Scheme == "https") && utils.SameHost(abs, base) {
			links.Internal = append(links.Internal, link)
		} else {
			links.External = append(links.External, link)
		}
	})
	return links
}

// extractExtra collects head links that have no typed field: hreflang
// alternates and pagination. It returns nil when the page has none.
func extractExtra(doc *goquery.Document, base *url.URL) map[string]any {
	extra := map[string]any{}

	alternates := map[string]string{}
	doc.Find(`link[rel="alternate"][hreflang]`).Each(func(_ int, s *goquery.Selection) {
		lang := strings.ToLower(strings.TrimSpace(s.AttrOr("hreflang", "")))
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if lang == "" || href == "" {
			return
		}
		if abs, err := utils.ToAbsoluteURL(base, href); err == nil {
			alternates[lang] = abs
		}
	})
	if len(alternates) > 0 {
		extra["hreflang"] = alternates
	}

	pagination := map[string]string{}
	for _, rel := range []string{"prev", "next"} {
		href := strings.TrimSpace(doc.Find(`link[rel="`+rel+`"]`).First().AttrOr("href", ""))
		if href == "" {
			continue
		}
		if abs, err := utils.ToAbsoluteURL(base, href); err == nil {
			pagination[rel] = abs
		}
	}
	if len(pagination) > 0 {
		extra["pagination"] = pagination
	}

	if len(extra) == 0 {
		return nil
	}
	return extra
}

func extractImages(doc *goquery.Document, base *url.URL) []entity.ImageInfo {
	images := []entity.ImageInfo{}
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src := strings.TrimSpace(s.AttrOr("src", ""))
		if src == "" {
			src = strings.TrimSpace(s.AttrOr("data-src", ""))
		}
		if src != "" && !strings.HasPrefix(src, "data:") {
			if abs, err := utils.ToAbsoluteURL(base, src); err == nil {
				src = abs
			}
		}
		alt := strings.TrimSpace(s.AttrOr("alt", ""))
		if alt == "" {
			alt = entity.MissingAltText
		}
		images = append(images, entity.ImageInfo{
			Src:    src,
			Alt:    alt,
			Width:  strings.TrimSpace(s.AttrOr("width", "")),
			Height: strings.TrimSpace(s.AttrOr("height", "")),
		})
	})
	return images
}

// extractContent flattens paragraph text followed by the text that sits
// directly inside container elements, so nested paragraphs count once.
func extractContent(doc *goquery.Document) string {
	var parts []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	doc.Find("div, section, article").Each(func(_ int, s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) != "#text" {
				return
			}
			if t := strings.TrimSpace(c.Text()); t != "" {
				parts = append(parts, t)
			}
		})
	})
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func textsOf(sel *goquery.Selection) []string {
	texts := []string{}
	sel.Each(func(_ int, s *goquery.Selection) {
		if t := strings.Join(strings.Fields(s.Text()), " "); t != "" {
			texts = append(texts, t)
		}
	})
	return texts
}
