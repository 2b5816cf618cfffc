package source

import (
	"context"
	"io"
	"math"
	"math/rand"
	"net/http"
	"regexp"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DownloadOptions configures Download.
type DownloadOptions struct {
	Client     *http.Client
	UserAgent  string
	MaxRetries int
	MaxBytes   int64
	Limiter    *rate.Limiter
	// BaseBackoff is the first retry delay; it doubles per attempt.
	BaseBackoff time.Duration
}

func (o *DownloadOptions) defaults() {
	if o.Client == nil {
		o.Client = &http.Client{Timeout: 60 * time.Second}
	}
	if o.UserAgent == "" {
		o.UserAgent = "rental-cli/1.0"
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = 64 << 20
	}
	if o.Limiter == nil {
		o.Limiter = rate.NewLimiter(5, 5)
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = time.Second
	}
}

var sheetsURL = regexp.MustCompile(`^https://docs\.google\.com/spreadsheets/d/([A-Za-z0-9_-]+)`)

// SheetsExportURL rewrites a Google Sheets share link to its XLSX export
// link. Other URLs are returned unchanged.
func SheetsExportURL(raw string) string {
	m := sheetsURL.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	return "https://docs.google.com/spreadsheets/d/" + m[1] + "/export?format=xlsx"
}

// Download fetches rawURL, retrying network errors, 429 and 5xx with
// exponential backoff.
func Download(ctx context.Context, rawURL string, opts DownloadOptions) ([]byte, error) {
	opts.defaults()
	rawURL = SheetsExportURL(rawURL)

	var lastErr error
	for attempt := 0; attempt < opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := backoff(ctx, opts.BaseBackoff, attempt-1); err != nil {
				return nil, err
			}
		}
		if err := opts.Limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "source: rate limiter wait")
		}

		data, retry, err := fetchOnce(ctx, rawURL, opts)
		if err == nil {
			return data, nil
		}
		if !retry || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		zap.L().Warn("source: download failed, retrying",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return nil, eris.Wrap(lastErr, "source: all retries exhausted")
}

func fetchOnce(ctx context.Context, rawURL string, opts DownloadOptions) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, eris.Wrap(err, "source: create request")
	}
	req.Header.Set("User-Agent", opts.UserAgent)

	resp, err := opts.Client.Do(req)
	if err != nil {
		return nil, true, eris.Wrap(err, "source: download")
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return nil, true, eris.Errorf("source: http %d from %s", resp.StatusCode, rawURL)
	case resp.StatusCode != http.StatusOK:
		return nil, false, eris.Errorf("source: unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, opts.MaxBytes+1))
	if err != nil {
		return nil, true, eris.Wrap(err, "source: read body")
	}
	if int64(len(data)) > opts.MaxBytes {
		return nil, false, eris.Errorf("source: body exceeds %d bytes", opts.MaxBytes)
	}
	return data, false, nil
}

func backoff(ctx context.Context, base time.Duration, attempt int) error {
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if maxBackoff := 30 * time.Second; d > maxBackoff {
		d = maxBackoff
	}
	if half := int64(d) / 2; half > 0 {
		d += time.Duration(rand.Int63n(half))
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "source: backoff")
	case <-t.C:
		return nil
	}
}
