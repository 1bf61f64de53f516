package chromedp_crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/seo-snapshot-service/internal/repository"
	"go.uber.org/zap"
)

func requireChrome(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			return
		}
	}
	t.Skip("no Chrome binary found")
}

func TestFetchRendersScript(t *testing.T) {
	requireChrome(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("<html><body>gone</body></html>"))
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Rendered</title></head><body>
			<div id="app"></div>
			<script>document.getElementById("app").innerHTML = "<h1>From script</h1>";</script>
		</body></html>`))
	}))
	defer srv.Close()

	f := NewChromedpFetcher("test-agent", 15*time.Second, 200*time.Millisecond, zap.NewNop())
	defer f.Close()

	res, err := f.Fetch(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.HTTPStatusCode)
	assert.Contains(t, res.HTML, "<h1>From script</h1>")
	assert.Positive(t, res.Duration)

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	require.ErrorIs(t, err, repository.ErrContentRestricted)
	var statusErr *repository.HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestFetchTimeout(t *testing.T) {
	requireChrome(t)

	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	f := NewChromedpFetcher("test-agent", time.Second, 0, zap.NewNop())
	defer f.Close()

	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, repository.ErrCrawlTimeout)
}

func TestHostOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "example.com", hostOf("https://example.com:8443/x"))
	assert.Equal(t, "unknown", hostOf("::"))
}
