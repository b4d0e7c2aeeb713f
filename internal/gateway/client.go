package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/ALEXSANDER2002/aritana/internal/telemetry"
	"github.com/ALEXSANDER2002/aritana/pkg/models"
	"github.com/ALEXSANDER2002/aritana/pkg/vesselquery"
	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"
)

const maxBodyBytes = 16 << 20

// Client is the interface for the external vessel classification service.
type Client interface {
	// Submit uploads an image with its metadata and returns the job handle.
	Submit(ctx context.Context, img Image, meta Metadata) (*Submission, error)
	// PollStatus asks for the current status of a job. statusURL, when known, is preferred
	// over a path built from jobID. Any error means "no information this round".
	PollStatus(ctx context.Context, jobID, statusURL string) (*StatusPayload, error)
	// FetchResult returns the finalized record, or (nil, nil) when it is not available yet.
	FetchResult(ctx context.Context, resourceID string) (*models.RemoteRecord, error)
	// HealthCheck reports whether /ping answered {"message":"pong"}.
	HealthCheck(ctx context.Context) bool
	// ListCatalog returns every finalized record, fetching at most the configured number of pages.
	ListCatalog(ctx context.Context) ([]models.RemoteRecord, error)
}

// Options configures an HTTPClient. Zero values take the defaults below.
type Options struct {
	BaseURL         string
	APIKey          string
	SubmitTimeout   time.Duration // default 180s
	PollTimeout     time.Duration // default 15s
	FetchTimeout    time.Duration // default 15s
	HealthTimeout   time.Duration // default 5s
	CatalogTimeout  time.Duration // default 15s
	MaxRetries      int           // default 2; negative disables retries
	RetryInterval   time.Duration // default 1s
	CatalogPageSize int           // default 100
	CatalogMaxPages int           // default 10
}

func (o Options) withDefaults() Options {
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.SubmitTimeout <= 0 {
		o.SubmitTimeout = 180 * time.Second
	}
	if o.PollTimeout <= 0 {
		o.PollTimeout = 15 * time.Second
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 15 * time.Second
	}
	if o.HealthTimeout <= 0 {
		o.HealthTimeout = 5 * time.Second
	}
	if o.CatalogTimeout <= 0 {
		o.CatalogTimeout = 15 * time.Second
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = 2
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = time.Second
	}
	if o.CatalogPageSize <= 0 {
		o.CatalogPageSize = 100
	}
	if o.CatalogMaxPages <= 0 {
		o.CatalogMaxPages = 10
	}
	return o
}

// Option customizes an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying http.Client. Timeouts are applied per request
// through the context, so the client should not set its own.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.client = hc }
}

// WithMetrics records call outcomes and latency.
func WithMetrics(p *telemetry.Provider) Option {
	return func(c *HTTPClient) { c.metrics = p }
}

// WithClock overrides the time source used for metadata defaults.
func WithClock(now func() time.Time) Option {
	return func(c *HTTPClient) { c.now = now }
}

// HTTPClient implements Client over the gateway's HTTP API.
type HTTPClient struct {
	opts    Options
	client  *http.Client
	query   vesselquery.Builder
	metrics *telemetry.Provider
	now     func() time.Time
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a gateway client. It holds no global state; create one per process
// and pass it to the components that need it.
func NewHTTPClient(opts Options, options ...Option) *HTTPClient {
	c := &HTTPClient{
		opts:   opts.withDefaults(),
		client: &http.Client{},
		now:    time.Now,
	}
	for _, o := range options {
		o(c)
	}
	return c
}

func (c *HTTPClient) Submit(ctx context.Context, img Image, meta Metadata) (sub *Submission, err error) {
	defer c.observe("submit", time.Now(), &err)

	meta = meta.WithDefaults(img.Name, c.now())
	target := c.query.Join(c.opts.BaseURL, vesselquery.VesselsPath)

	err = c.retry(ctx, "submit", func() error {
		body, contentType, err := multipartBody(img, meta)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("building form: %w", err))
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.opts.SubmitTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, target, body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("building request: %w", err))
		}
		req.Header.Set("Content-Type", contentType)
		c.setAuth(req)

		raw, err := c.do(req)
		if err != nil {
			return err
		}

		s, err := decodeSubmission(raw)
		if err != nil {
			return backoff.Permanent(err)
		}
		sub = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("image submitted to gateway", "job_id", sub.JobID, "image", img.Name, "size", len(img.Data))
	return sub, nil
}

func (c *HTTPClient) PollStatus(ctx context.Context, jobID, statusURL string) (payload *StatusPayload, err error) {
	defer c.observe("poll", time.Now(), &err)

	target := secureURL(statusURL)
	if target == "" {
		if strings.TrimSpace(jobID) == "" {
			return nil, errors.New("poll status: neither job id nor status url given")
		}
		target = c.query.Join(c.opts.BaseURL, c.query.JobStatus(jobID))
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.opts.PollTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	c.setAuth(req)

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return decodeStatus(raw)
}

func (c *HTTPClient) FetchResult(ctx context.Context, resourceID string) (rec *models.RemoteRecord, err error) {
	defer c.observe("fetch", time.Now(), &err)

	if strings.TrimSpace(resourceID) == "" {
		return nil, errors.New("fetch result: empty resource id")
	}
	target := c.query.Join(c.opts.BaseURL, c.query.ResourceLookup(resourceID))

	err = c.retry(ctx, "fetch", func() error {
		records, err := c.getRecords(ctx, target, c.opts.FetchTimeout)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		if records[0].ID == "" {
			return backoff.Permanent(malformed("result for resource %s carries no id", resourceID))
		}
		rec = &records[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		slog.Debug("gateway result not available yet", "resource_id", resourceID)
	}
	return rec, nil
}

func (c *HTTPClient) HealthCheck(ctx context.Context) bool {
	var err error
	defer c.observe("health", time.Now(), &err)

	attemptCtx, cancel := context.WithTimeout(ctx, c.opts.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, c.query.Join(c.opts.BaseURL, vesselquery.PingPath), nil)
	if err != nil {
		return false
	}

	raw, err := c.do(req)
	if err != nil {
		slog.Warn("gateway health check failed", "error", err)
		return false
	}

	if msg := gjson.GetBytes(raw, "message"); msg.Type != gjson.String || msg.Str != "pong" {
		err = malformed("unexpected ping body")
		slog.Warn("gateway answered ping with unexpected body", "body", truncate(raw, 200))
		return false
	}
	return true
}

func (c *HTTPClient) ListCatalog(ctx context.Context) (all []models.RemoteRecord, err error) {
	defer c.observe("catalog", time.Now(), &err)

	size := c.opts.CatalogPageSize
	for page := 0; page < c.opts.CatalogMaxPages; page++ {
		target := c.query.Join(c.opts.BaseURL, c.query.CatalogPage(vesselquery.CatalogParams{
			Limit: size,
			Skip:  page * size,
		}))

		var records []models.RemoteRecord
		err := c.retry(ctx, "catalog", func() error {
			var err error
			records, err = c.getRecords(ctx, target, c.opts.CatalogTimeout)
			return err
		})
		if err != nil {
			if page == 0 {
				return nil, err
			}
			slog.Warn("catalog page failed, returning partial catalog", "page", page+1, "records", len(all), "error", err)
			return all, nil
		}

		all = append(all, records...)
		if len(records) < size {
			return all, nil
		}
	}

	slog.Warn("catalog page cap reached", "max_pages", c.opts.CatalogMaxPages, "records", len(all))
	return all, nil
}

// getRecords performs one GET with its own timeout and decodes a record list or object.
// Decode failures are permanent.
func (c *HTTPClient) getRecords(ctx context.Context, target string, timeout time.Duration) ([]models.RemoteRecord, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("building request: %w", err))
	}
	c.setAuth(req)

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}
	records, err := decodeRecords(raw)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	return records, nil
}

// do sends req and returns the body of a 2xx response. Non-retryable status codes are
// wrapped as permanent errors so retry stops immediately.
func (c *HTTPClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classifyError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		if statusErr.Retryable() {
			return nil, statusErr
		}
		return nil, backoff.Permanent(statusErr)
	}
	return raw, nil
}

// retry runs fn with a constant interval, at most MaxRetries extra times, stopping early on
// permanent errors or when ctx ends. The returned error is always classified.
func (c *HTTPClient) retry(ctx context.Context, op string, fn func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.opts.RetryInterval), uint64(c.opts.MaxRetries)),
		ctx,
	)
	err := backoff.RetryNotify(fn, policy, func(err error, wait time.Duration) {
		slog.Warn("gateway request failed, retrying", "operation", op, "error", err, "retry_in", wait)
	})
	return classifyError(err)
}

func (c *HTTPClient) setAuth(req *http.Request) {
	if c.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}
	req.Header.Set("Accept", "application/json")
}

func (c *HTTPClient) observe(op string, start time.Time, err *error) {
	c.metrics.RecordGatewayCall(op, *err, time.Since(start))
}

// multipartBody encodes the metadata fields and the image under the "file" field.
func multipartBody(img Image, meta Metadata) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range meta.formFields() {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	name := img.Name
	if name == "" {
		name = "imagem"
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(name)))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// secureURL upgrades an http status URL to https. The gateway advertises http URLs
// behind a TLS-terminating proxy.
func secureURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "http://") {
		return "https://" + strings.TrimPrefix(raw, "http://")
	}
	return raw
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
