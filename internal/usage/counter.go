// Package usage pings an external counter after each successful generation.
package usage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const defaultReportTimeout = 10 * time.Second

type Options struct {
	Endpoint   string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *slog.Logger
}

type Counter struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger

	wg    sync.WaitGroup
	total atomic.Int64
}

// New returns a counter that only counts locally when Endpoint is empty.
func New(opts Options) *Counter {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultReportTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Counter{
		endpoint:   strings.TrimSpace(opts.Endpoint),
		httpClient: httpClient,
		timeout:    timeout,
		logger:     logger,
	}
}

// Report increments the local total and posts to the endpoint in the
// background. It never blocks and never fails the caller.
func (c *Counter) Report(ctx context.Context) {
	c.total.Add(1)
	if c.endpoint == "" {
		return
	}

	ctx = context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		if err := c.post(reqCtx); err != nil {
			c.logger.Warn("usage report failed", "err", err)
		}
	}()
}

func (c *Counter) post(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("usage endpoint %s", resp.Status)
	}
	return nil
}

// Total is the number of successful generations since start.
func (c *Counter) Total() int64 {
	return c.total.Load()
}

// Wait blocks until in-flight reports finish. Used on shutdown.
func (c *Counter) Wait() {
	c.wg.Wait()
}
