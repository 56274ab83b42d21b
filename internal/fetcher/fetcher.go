// Package fetcher implements rate-limited, retrying HTTP retrieval using
// gocolly.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/ozayn/planner/internal/metrics"
	"github.com/ozayn/planner/internal/pipeline"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Config controls collector behavior.
type Config struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRedirects int
}

// Fetcher issues single HTTP GETs through a cloned colly collector, applying
// the source rate limiter before each attempt and the retry policy between
// attempts.
type Fetcher struct {
	cfg           Config
	limiter       *SourceLimiter
	retry         *RetryPolicy
	logger        *zap.Logger
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config, limiter *SourceLimiter, retry *RetryPolicy, logger *zap.Logger) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())
	return &Fetcher{
		cfg:           cfg,
		limiter:       limiter,
		retry:         retry,
		logger:        logger,
		baseCollector: c,
	}
}

// Fetch retrieves one URL. Transient failures are retried with backoff up to
// the policy bound; the final classified error is returned when exhausted.
func (f *Fetcher) Fetch(ctx context.Context, req pipeline.FetchRequest) (pipeline.Document, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx, req.SourceID, req.URL, req.RateMin, req.RateMax); err != nil {
				return pipeline.Document{}, err
			}
		}

		doc, err := f.fetchOnce(ctx, req)
		if err == nil {
			metrics.ObserveFetch(req.URL, doc.StatusCode, len(doc.Body), doc.Duration)
			return doc, nil
		}
		lastErr = err

		if f.retry == nil || !f.retry.ShouldRetry(err, attempt) {
			return pipeline.Document{}, lastErr
		}
		metrics.ObserveFetchRetry(req.SourceID)
		backoff := f.retry.Backoff(attempt)
		f.logger.Debug("retrying fetch",
			zap.String("source", req.SourceID),
			zap.String("url", req.URL),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		if err := sleepContext(ctx, backoff); err != nil {
			return pipeline.Document{}, lastErr
		}
	}
}

func (f *Fetcher) fetchOnce(ctx context.Context, req pipeline.FetchRequest) (pipeline.Document, error) {
	var (
		result   pipeline.Document
		fetchErr error
	)
	start := time.Now()

	collector := f.baseCollector.Clone()
	collector.UserAgent = f.cfg.UserAgent
	collector.IgnoreRobotsTxt = true
	// The clone shares the base collector's visited-URL store; revisits must
	// stay allowed or retries and repeat runs would fail with
	// ErrAlreadyVisited. Deduplication happens at the event level, not here.
	collector.AllowURLRevisit = true
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = f.cfg.Timeout
	}
	collector.SetRequestTimeout(timeout)
	maxRedirects := f.cfg.MaxRedirects
	collector.SetRedirectHandler(func(r *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	})

	collector.OnResponse(func(r *colly.Response) {
		result = pipeline.Document{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = classify(req.URL, status, err)
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(req.URL)
	}()

	select {
	case <-ctx.Done():
		return pipeline.Document{}, &pipeline.FetchError{
			Kind: pipeline.FetchTimeout,
			URL:  req.URL,
			Err:  ctx.Err(),
		}
	case err := <-done:
		if fetchErr != nil {
			return pipeline.Document{}, fetchErr
		}
		if err != nil {
			return pipeline.Document{}, classify(req.URL, 0, err)
		}
		return result, nil
	}
}

// classify buckets a transport or status failure into the fetch taxonomy.
func classify(url string, status int, err error) *pipeline.FetchError {
	if status >= 400 {
		return &pipeline.FetchError{
			Kind:       pipeline.FetchHTTPStatus,
			URL:        url,
			StatusCode: status,
			Err:        err,
		}
	}
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &pipeline.FetchError{Kind: pipeline.FetchTimeout, URL: url, Err: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &pipeline.FetchError{Kind: pipeline.FetchTimeout, URL: url, Err: err}
	case err != nil && strings.Contains(err.Error(), "redirects"):
		return &pipeline.FetchError{Kind: pipeline.FetchRedirectLoop, URL: url, Err: err}
	default:
		return &pipeline.FetchError{Kind: pipeline.FetchConnection, URL: url, Err: err}
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
