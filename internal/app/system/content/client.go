// internal/app/system/content/client.go
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/stratatour/internal/app/system/cmsquery"
	"github.com/dalemusser/stratatour/internal/app/system/jsonutil"
	"github.com/dalemusser/stratatour/internal/app/system/metrics"
	"github.com/dalemusser/stratatour/internal/app/system/rendercache"
	"github.com/dalemusser/stratatour/internal/app/system/tracing"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// TagContent is recorded on every page that read from the content API.
const TagContent = "content"

// Resource names understood by the content API.
const (
	ResourceTours      = "tours"
	ResourceCategories = "categories"
	ResourcePages      = "pages"
	ResourceSettings   = "site-setting"
)

// Config configures a Client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Logger  *zap.Logger
	// HTTPClient is optional; its Timeout is ignored in favor of Timeout.
	HTTPClient *http.Client
}

// Client is the storefront's only way to read and write CMS content.
type Client struct {
	base    *url.URL
	token   string
	timeout time.Duration
	httpc   *http.Client
	logger  *zap.Logger
	tracer  trace.Tracer
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("content client: base url is empty")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("content client: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("content client: base url must be http(s), got %q", cfg.BaseURL)
	}
	httpc := cfg.HTTPClient
	if httpc == nil {
		// no client-level timeout; each call carries its own deadline
		httpc = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		base:    base,
		token:   cfg.Token,
		timeout: timeout,
		httpc:   httpc,
		logger:  logger,
		tracer:  tracing.Tracer(),
	}, nil
}

// Timeout returns the per-call deadline.
func (c *Client) Timeout() time.Duration { return c.timeout }

// FetchCollection lists resource entries matching q into out (a pointer to
// a slice) and returns the pagination meta.
func (c *Client) FetchCollection(ctx context.Context, resource string, q cmsquery.Query, out any) (jsonutil.Pagination, error) {
	var env jsonutil.RawEnvelope
	if err := c.do(ctx, http.MethodGet, resource, "api/"+resource, q.Encode(), nil, &env); err != nil {
		return jsonutil.Pagination{}, err
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return jsonutil.Pagination{}, fmt.Errorf("decode %s collection: %w", resource, err)
	}
	if env.Meta.Pagination == nil {
		return jsonutil.Pagination{}, nil
	}
	return *env.Meta.Pagination, nil
}

// FetchOne loads a single entry into out. A UUID is looked up by document
// id; anything else is treated as a slug.
func (c *Client) FetchOne(ctx context.Context, resource, idOrSlug string, draft bool, out any) error {
	if idOrSlug == "" {
		return ErrNotFound
	}
	if _, err := uuid.Parse(idOrSlug); err == nil {
		q := url.Values{}
		if draft {
			q.Set("status", "draft")
		}
		var env jsonutil.RawEnvelope
		if err := c.do(ctx, http.MethodGet, resource, "api/"+resource+"/"+url.PathEscape(idOrSlug), q, nil, &env); err != nil {
			return err
		}
		return decodeOne(resource, env.Data, out)
	}

	q := cmsquery.Query{Page: 1, PageSize: 1, Draft: draft}.Where(cmsquery.Eq("slug", idOrSlug))
	var list []json.RawMessage
	if _, err := c.FetchCollection(ctx, resource, q, &list); err != nil {
		return err
	}
	if len(list) == 0 {
		return fmt.Errorf("%s %q: %w", resource, idOrSlug, ErrNotFound)
	}
	return decodeOne(resource, list[0], out)
}

// FetchSingle loads a single-type resource such as site-setting.
func (c *Client) FetchSingle(ctx context.Context, resource string, out any) error {
	var env jsonutil.RawEnvelope
	if err := c.do(ctx, http.MethodGet, resource, "api/"+resource, nil, nil, &env); err != nil {
		return err
	}
	return decodeOne(resource, env.Data, out)
}

// Update PUTs fields to a published entry (both its versions).
func (c *Client) Update(ctx context.Context, resource, documentID string, fields any) error {
	if documentID == "" {
		return fmt.Errorf("update %s: empty document id", resource)
	}
	body := map[string]any{"data": fields}
	q := url.Values{"status": {"published"}}
	return c.do(ctx, http.MethodPut, resource, "api/"+resource+"/"+url.PathEscape(documentID), q, body, nil)
}

// Ping makes the smallest possible read to check the content API is up.
func (c *Client) Ping(ctx context.Context) error {
	q := cmsquery.Query{Page: 1, PageSize: 1}.Select("slug")
	var list []json.RawMessage
	_, err := c.FetchCollection(ctx, ResourceTours, q, &list)
	return err
}

func decodeOne(resource string, data json.RawMessage, out any) error {
	if len(data) == 0 || string(data) == "null" {
		return fmt.Errorf("%s: %w", resource, ErrNotFound)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", resource, err)
	}
	return nil
}

// do performs one call. Reads record the content tags into the render in
// progress so the page can be dropped by tag later.
func (c *Client) do(ctx context.Context, method, resource, path string, query url.Values, body any, out any) error {
	u := c.base.ResolveReference(&url.URL{Path: path})
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	endpoint := u.String()

	if method == http.MethodGet {
		rendercache.RecordTags(ctx, TagContent, TagContent+":"+resource)
	}

	ctx, span := c.tracer.Start(ctx, "content.fetch", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", endpoint),
		attribute.String("content.resource", resource),
	)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", resource, err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(callCtx, method, endpoint, reader)
	if err != nil {
		span.RecordError(err)
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	otel.GetTextMapPropagator().Inject(callCtx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.httpc.Do(req)
	elapsed := time.Since(start)
	metrics.ContentRequestDuration.WithLabelValues(resource, method).Observe(elapsed.Seconds())

	if err != nil {
		err = c.classify(ctx, callCtx, endpoint, err)
		c.finish(span, resource, method, endpoint, 0, elapsed, err)
		return err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		err = fmt.Errorf("%s: %w", endpoint, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err = &UpstreamError{URL: endpoint, Status: resp.StatusCode, Body: string(snippet)}
	case out != nil:
		if derr := json.NewDecoder(resp.Body).Decode(out); derr != nil {
			err = c.decodeError(ctx, callCtx, endpoint, resource, derr)
		}
	}
	c.finish(span, resource, method, endpoint, resp.StatusCode, elapsed, err)
	return err
}

// classify turns a transport error into TimeoutError or TransportError.
// A cancelled caller context is returned as is.
func (c *Client) classify(parent, callCtx context.Context, endpoint string, err error) error {
	if parent.Err() != nil && !errors.Is(parent.Err(), context.DeadlineExceeded) {
		return parent.Err()
	}
	var ne net.Error
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &ne) && ne.Timeout()) {
		return &TimeoutError{URL: endpoint, Timeout: c.timeout}
	}
	return &TransportError{URL: endpoint, Err: err}
}

// decodeError keeps malformed JSON as a plain decode error. Anything else
// failed while reading the body and is classified like a transport error.
func (c *Client) decodeError(parent, callCtx context.Context, endpoint, resource string, err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("decode %s response: %w", resource, err)
	}
	return c.classify(parent, callCtx, endpoint, err)
}

func (c *Client) finish(span trace.Span, resource, method, endpoint string, status int, elapsed time.Duration, err error) {
	outcome := outcomeOf(err)
	metrics.ContentRequestsTotal.WithLabelValues(resource, method, outcome).Inc()

	fields := []zap.Field{
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Int("status", status),
		zap.Duration("duration", elapsed),
	}
	if err == nil || errors.Is(err, ErrNotFound) {
		c.logger.Debug("content api call", fields...)
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.logger.Warn("content api call failed", append(fields, zap.String("outcome", outcome), zap.Error(err))...)
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	var te *TimeoutError
	var tr *TransportError
	var ue *UpstreamError
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.As(err, &te):
		return "timeout"
	case errors.As(err, &tr):
		return "transport"
	case errors.As(err, &ue):
		if ue.Status >= 500 {
			return "upstream_5xx"
		}
		return "upstream_4xx"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	return "error"
}
