// Package census fetches tables from the U.S. Census Bureau data API.
//
// A Client splits wide variable lists into batches that stay under the API's
// per-request column ceiling, fetches each batch and merges the batches back
// together by row position. The pipeline helpers in this package then sum
// variable groups and derive integer geoids from the API's GEO_ID column.
package census

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"census/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBaseURL is the public Census data API host
	DefaultBaseURL = "https://api.census.gov/data"

	// DefaultBatchSize keeps every request safely under the API's 50 column limit.
	DefaultBatchSize = 45
	MaxBatchSize     = 49

	DefaultTimeout          = 15 * time.Second
	DefaultDecennialTimeout = 60 * time.Second

	userAgent = "census-table-fetcher/1.0"
)

// Client holds the API key and transport settings. It keeps no state between
// calls and is safe for concurrent use.
type Client struct {
	apiKey           string
	baseURL          string
	timeout          time.Duration
	decennialTimeout time.Duration
	batchSize        int
	concurrency      int
	httpClient       *http.Client
	logger           *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another API host, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithTimeout sets the per-request timeout for FetchTable
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithDecennialTimeout sets the per-request timeout used by GetDecennialData
func WithDecennialTimeout(d time.Duration) Option {
	return func(c *Client) { c.decennialTimeout = d }
}

// WithBatchSize sets how many variable codes go into one request
func WithBatchSize(n int) Option {
	return func(c *Client) { c.batchSize = n }
}

// WithConcurrency sets how many batches may be in flight at once. 1 fetches
// batches strictly one after another.
func WithConcurrency(n int) Option {
	return func(c *Client) { c.concurrency = n }
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a new Client
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	c := &Client{
		apiKey:           apiKey,
		baseURL:          DefaultBaseURL,
		timeout:          DefaultTimeout,
		decennialTimeout: DefaultDecennialTimeout,
		batchSize:        DefaultBatchSize,
		concurrency:      1,
		httpClient:       &http.Client{},
		logger:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if strings.TrimSpace(c.apiKey) == "" {
		return nil, invalidArgument("api key is required")
	}
	if c.batchSize < 1 || c.batchSize > MaxBatchSize {
		return nil, invalidArgument("batch size %d out of range 1..%d", c.batchSize, MaxBatchSize)
	}
	if c.timeout <= 0 || c.decennialTimeout <= 0 {
		return nil, invalidArgument("timeouts must be positive")
	}
	if c.concurrency < 1 {
		c.concurrency = 1
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c, nil
}

// BatchSize returns the number of codes sent per request
func (c *Client) BatchSize() int { return c.batchSize }

// FetchTable fetches variables for any dataset path and returns the merged
// table. One request is issued per batch of at most BatchSize codes.
func (c *Client) FetchTable(ctx context.Context, req models.TableRequest) (*models.Table, error) {
	if err := req.Validate(); err != nil {
		return nil, invalidArgument("%v", err)
	}
	return c.fetchTable(ctx, req, c.timeout, c.logger)
}

func (c *Client) fetchTable(ctx context.Context, req models.TableRequest, timeout time.Duration, log *zap.Logger) (*models.Table, error) {
	endpoint := strings.Join([]string{c.baseURL, strconv.Itoa(req.Year), strings.Trim(req.DatasetPath, "/")}, "/")
	batches := chunkVariables(req.Variables, c.batchSize)

	log.Debug("Fetching table",
		zap.String("endpoint", endpoint),
		zap.Int("variables", len(req.Variables)),
		zap.Int("batches", len(batches)),
		zap.Int("concurrency", c.concurrency))

	tables := make([]*models.Table, len(batches))
	if c.concurrency == 1 || len(batches) == 1 {
		for i, batch := range batches {
			t, err := c.fetchBatch(ctx, endpoint, batch, req, timeout, log.With(zap.Int("batch", i)))
			if err != nil {
				return nil, err
			}
			tables[i] = t
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.concurrency)
		for i, batch := range batches {
			i, batch := i, batch
			g.Go(func() error {
				t, err := c.fetchBatch(gctx, endpoint, batch, req, timeout, log.With(zap.Int("batch", i)))
				if err != nil {
					return err
				}
				tables[i] = t
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	return mergeBatches(tables)
}

// fetchBatch issues one GET for a batch of codes and decodes the response
func (c *Client) fetchBatch(ctx context.Context, endpoint string, batch []string, req models.TableRequest, timeout time.Duration, log *zap.Logger) (*models.Table, error) {
	params := url.Values{}
	params.Set("get", strings.Join(batch, ","))
	params.Set("for", req.For)
	for _, in := range req.In {
		params.Add("in", in)
	}
	redacted := endpoint + "?" + params.Encode()
	params.Set("key", c.apiKey)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, invalidArgument("failed to create request: %v", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: request %s: %w", ErrTransport, redacted, stripKey(err, c.apiKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body from %s: %w", ErrTransport, redacted, err)
	}

	log.Debug("Received batch",
		zap.Int("codes", len(batch)),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			URL:        redacted,
		}
	}

	return DecodeTable(body)
}

// chunkVariables splits codes into consecutive batches of at most n
func chunkVariables(codes []string, n int) [][]string {
	batches := make([][]string, 0, (len(codes)+n-1)/n)
	for start := 0; start < len(codes); start += n {
		end := start + n
		if end > len(codes) {
			end = len(codes)
		}
		batches = append(batches, codes[start:end])
	}
	return batches
}

// mergeBatches joins batch tables by row position. The first batch keeps its
// geographic key columns; later batches have theirs dropped if present.
func mergeBatches(tables []*models.Table) (*models.Table, error) {
	if len(tables) == 0 {
		return nil, invalidArgument("no variables requested")
	}
	acc := tables[0]
	for i, t := range tables[1:] {
		t.DropIfPresent(models.KeyColumns...)
		if err := acc.Merge(t); err != nil {
			return nil, malformed("merge batch %d: %v", i+1, err)
		}
	}
	return acc, nil
}

// stripKey keeps the API key out of transport errors, which embed the URL.
func stripKey(err error, key string) error {
	if uerr, ok := err.(*url.Error); ok {
		return &url.Error{Op: uerr.Op, URL: strings.ReplaceAll(uerr.URL, url.QueryEscape(key), "REDACTED"), Err: uerr.Err}
	}
	return err
}
