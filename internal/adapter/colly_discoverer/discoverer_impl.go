package colly_discoverer

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/user/seo-snapshot-service/internal/repository"
	"github.com/user/seo-snapshot-service/pkg/metrics"
	"go.uber.org/zap"
)

// CollyDiscoverer fetches one page without rendering and collects its
// same-host links.
type CollyDiscoverer struct {
	userAgent string
	timeout   time.Duration
	transport http.RoundTripper
	logger    *zap.Logger
}

// Option customizes a CollyDiscoverer.
type Option func(*CollyDiscoverer)

// WithTransport replaces the HTTP transport; used by tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(d *CollyDiscoverer) { d.transport = rt }
}

// NewCollyDiscoverer creates a new link discoverer using colly.
func NewCollyDiscoverer(userAgent string, timeout time.Duration, logger *zap.Logger, opts ...Option) *CollyDiscoverer {
	d := &CollyDiscoverer{userAgent: userAgent, timeout: timeout, logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover returns the base page's links on the same host, in first-seen
// order without duplicates. Errors yield an empty list.
func (d *CollyDiscoverer) Discover(ctx context.Context, baseURL string) []string {
	links := []string{}

	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		d.logger.Warn("discovery skipped, invalid base URL", zap.String("url", baseURL), zap.Error(err))
		return links
	}

	c := colly.NewCollector(
		colly.UserAgent(d.userAgent),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(d.timeout)
	if d.transport != nil {
		c.WithTransport(d.transport)
	}

	var mu sync.Mutex
	seen := map[string]bool{}

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		href := strings.TrimSpace(e.Attr("href"))
		if href == "" {
			return
		}
		abs, err := url.Parse(e.Request.AbsoluteURL(href))
		if err != nil || abs.Host == "" || !strings.EqualFold(abs.Host, base.Host) {
			return
		}
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		abs.Fragment = ""
		link := abs.String()

		mu.Lock()
		defer mu.Unlock()
		if !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		d.logger.Warn("link discovery failed",
			zap.String("url", baseURL),
			zap.Int("status", r.StatusCode),
			zap.Error(err),
		)
	})

	if err := c.Visit(baseURL); err != nil {
		d.logger.Warn("link discovery request failed", zap.String("url", baseURL), zap.Error(err))
		return []string{}
	}
	c.Wait()

	metrics.DiscoveredLinks.Observe(float64(len(links)))
	d.logger.Info("links discovered", zap.String("url", baseURL), zap.Int("count", len(links)))
	return links
}

var _ repository.LinkDiscoverer = (*CollyDiscoverer)(nil)
