package lookup

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"barcode-lookup/internal/constant"
	"barcode-lookup/internal/entity"
	"barcode-lookup/internal/pkg/apperr"
	"barcode-lookup/internal/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Client resolves scanned codes against the catalog server. Each Lookup is
// exactly one GET; there is no retry and no caching.
type Client struct {
	BaseURL string
	Client  *http.Client
	logger  logger.ILogger
	tracer  trace.Tracer
}

type Option func(*Client)

// WithHTTPClient replaces the transport, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.Client = hc
	}
}

func NewClient(baseURL string, log logger.ILogger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = constant.LookupDefaultBase
	}
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		// No timeout: the transport default applies and callers cancel via ctx.
		Client: &http.Client{},
		logger: log,
		tracer: otel.Tracer(constant.LookupTracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URLFor builds the lookup URL for code.
func (c *Client) URLFor(code string) string {
	return c.BaseURL + constant.LookupEndpointPath + EscapeCode(code)
}

func (c *Client) Lookup(ctx context.Context, code string) (*entity.ProductRecord, error) {
	if code == "" {
		return nil, apperr.InvalidInput("scanned code is empty")
	}
	if !utf8.ValidString(code) {
		return nil, apperr.InvalidInput("scanned code is not valid UTF-8")
	}

	ctx, span := c.tracer.Start(ctx, constant.LookupSpanName, trace.WithAttributes(
		attribute.String("barcode.code", code),
	))
	defer span.End()

	record, err := c.do(ctx, span, code)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.KindOf(err).String())
		return nil, err
	}
	return record, nil
}

func (c *Client) do(ctx context.Context, span trace.Span, code string) (*entity.ProductRecord, error) {
	url := c.URLFor(code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.InvalidInput(fmt.Sprintf("cannot build request: %v", err))
	}
	// The server expects this header even though a GET carries no body.
	req.Header.Set("Content-Type", constant.LookupContentType)
	req.Header.Set("Accept", constant.LookupContentType)

	c.logger.Debug(constant.LookupLoggerModule, "Sending lookup request", map[string]interface{}{
		"code": code,
		"url":  url,
	})

	res, err := c.Client.Do(req)
	if err != nil {
		c.logger.Warn(constant.LookupLoggerModule, "Lookup request failed", map[string]interface{}{
			"code":  code,
			"error": err.Error(),
		})
		return nil, apperr.Network(err)
	}
	defer res.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		c.logger.Warn(constant.LookupLoggerModule, "Lookup returned non-success status", map[string]interface{}{
			"code":   code,
			"status": res.StatusCode,
		})
		return nil, apperr.Server(res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, constant.LookupMaxBodyBytes))
	if err != nil {
		return nil, apperr.Network(fmt.Errorf("read response: %w", err))
	}

	record, err := DecodeProductRecord(body)
	if err != nil {
		c.logger.Warn(constant.LookupLoggerModule, "Lookup response rejected", map[string]interface{}{
			"code":  code,
			"error": err.Error(),
			"body":  truncate(body, 256),
		})
		return nil, err
	}

	c.logger.Info(constant.LookupLoggerModule, "Lookup resolved", map[string]interface{}{
		"code":      code,
		"id":        record.ID,
		"reference": record.Reference,
	})
	return record, nil
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
