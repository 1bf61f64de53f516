package chromedp_crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/user/seo-snapshot-service/internal/repository"
	"github.com/user/seo-snapshot-service/pkg/metrics"
	"go.uber.org/zap"
)

// ChromedpFetcher renders pages in headless Chrome. Every fetch runs in its
// own browser context, so cookies and storage never leak between pages.
type ChromedpFetcher struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	loadTimeout time.Duration
	settleDelay time.Duration
	logger      *zap.Logger
}

// NewChromedpFetcher creates a new page fetcher using chromedp.
func NewChromedpFetcher(userAgent string, loadTimeout, settleDelay time.Duration, logger *zap.Logger) *ChromedpFetcher {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &ChromedpFetcher{
		allocCtx:    allocCtx,
		cancelAlloc: cancel,
		loadTimeout: loadTimeout,
		settleDelay: settleDelay,
		logger:      logger,
	}
}

// Close shuts down the browser process.
func (f *ChromedpFetcher) Close() {
	f.cancelAlloc()
}

// Fetch navigates to a URL, waits for the page to settle and returns the
// rendered HTML. The whole fetch is bounded by load timeout plus settle delay.
func (f *ChromedpFetcher) Fetch(ctx context.Context, pageURL string) (*repository.FetchResult, error) {
	taskCtx, cancel := chromedp.NewContext(f.allocCtx, chromedp.WithLogf(f.logger.Sugar().Debugf))
	defer cancel()

	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, f.loadTimeout+f.settleDelay)
	defer cancelTimeout()

	// Abort the browser task when the caller gives up.
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	var (
		mu         sync.Mutex
		statusCode int64
	)
	chromedp.ListenTarget(taskCtx, func(ev interface{}) {
		if e, ok := ev.(*network.EventResponseReceived); ok && e.Type == network.ResourceTypeDocument {
			mu.Lock()
			if statusCode == 0 {
				statusCode = e.Response.Status
			}
			mu.Unlock()
		}
	})

	var html string
	startTime := time.Now()

	err := chromedp.Run(taskCtx,
		network.Enable(),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(f.settleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	duration := time.Since(startTime)
	metrics.FetchDuration.WithLabelValues(hostOf(pageURL)).Observe(duration.Seconds())

	mu.Lock()
	status := int(statusCode)
	mu.Unlock()

	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(taskCtx.Err(), context.DeadlineExceeded):
			return nil, fmt.Errorf("%w after %s: %s", repository.ErrCrawlTimeout, duration.Round(time.Millisecond), pageURL)
		default:
			return nil, fmt.Errorf("%w: %s: %v", repository.ErrNavigationFailed, pageURL, err)
		}
	}
	if status >= 400 {
		return nil, &repository.HTTPStatusError{StatusCode: status}
	}

	f.logger.Debug("page rendered",
		zap.String("url", pageURL),
		zap.Int("status", status),
		zap.Duration("duration", duration),
	)

	return &repository.FetchResult{
		URL:            pageURL,
		HTML:           html,
		HTTPStatusCode: status,
		Duration:       duration,
	}, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Hostname()
}

var _ repository.PageFetcher = (*ChromedpFetcher)(nil)
