package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
)

const tracerName = "github.com/utafrali/storefront/internal/client"

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// TokenSource supplies the bearer token for outgoing calls and forgets the
// stored tokens when the API rejects them.
type TokenSource interface {
	AccessToken(ctx context.Context) string
	Invalidate(ctx context.Context)
}

// Client calls the storefront REST API.
type Client struct {
	baseURL string
	http    HTTPDoer
	tokens  TokenSource
	logger  *slog.Logger
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, doer HTTPDoer, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    doer,
		logger:  logger,
	}
}

// SetTokenSource attaches the session that authenticates calls. It must be
// called before the client is shared between goroutines.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// Ping checks the API answers at all. Any HTTP response counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/categories/", http.NoBody)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("ping storefront api: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("ping storefront api: status %d", resp.StatusCode)
	}
	return nil
}

// call sends one request. in is encoded as the JSON body when non-nil, and
// a 2xx body is decoded into out when out is non-nil. op names the call in
// errors and logs.
func (c *Client) call(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	body := io.Reader(http.NoBody)
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	ctx, span := tracing.Tracer(tracerName).Start(ctx, "storefront-api "+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(method),
			semconv.URLPath(path),
		),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.AccessToken(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.CorrelationHeader, id)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		c.logger.WarnContext(ctx, "storefront api call failed",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return apperrors.RemoteCallFailed(op, err)
	}

	span.SetAttributes(semconv.HTTPResponseStatusCode(resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		}
		if resp.StatusCode == http.StatusUnauthorized && c.tokens != nil {
			c.tokens.Invalidate(ctx)
		}
		return httpclient.ParseResponseError(resp, op)
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.RemoteCallFailed(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	return c.call(ctx, op, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, op, path string, in, out any) error {
	return c.call(ctx, op, http.MethodPost, path, nil, in, out)
}

func (c *Client) put(ctx context.Context, op, path string, in, out any) error {
	return c.call(ctx, op, http.MethodPut, path, nil, in, out)
}

// listOrPage decodes endpoints that answer with either a plain JSON array or
// a {count,next,previous,results} page depending on server pagination.
type listOrPage[T any] struct {
	Count    int
	Next     string
	Previous string
	Results  []T
}

func (l *listOrPage[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &l.Results); err != nil {
			return err
		}
		l.Count = len(l.Results)
		return nil
	}

	var page struct {
		Count    *int    `json:"count"`
		Next     *string `json:"next"`
		Previous *string `json:"previous"`
		Results  []T     `json:"results"`
	}
	if err := json.Unmarshal(data, &page); err != nil {
		return err
	}
	l.Results = page.Results
	l.Count = len(page.Results)
	if page.Count != nil {
		l.Count = *page.Count
	}
	if page.Next != nil {
		l.Next = *page.Next
	}
	if page.Previous != nil {
		l.Previous = *page.Previous
	}
	return nil
}

func escape(id fmt.Stringer) string {
	return url.PathEscape(id.String())
}
