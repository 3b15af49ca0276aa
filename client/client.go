package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/httpfetch/client/metrics"
	"github.com/adamwoolhether/httpfetch/client/throttle"
)

// Client dispatches requests with a fixed set of defaults. It is safe
// for concurrent use; its configuration is read-only after [Build].
type Client struct {
	c          *http.Client
	logger     *slog.Logger
	cfg        Config
	query      QueryPolicy
	requestID  bool
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// Build creates a [Client]. Without options it uses a zero-timeout
// [http.Client] on [http.DefaultTransport] and an empty [Config].
func Build(optFns ...Option) (*Client, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	var cfg Config
	if opts.config != nil {
		cfg = opts.config.clone()
	}
	if opts.baseURL != nil {
		cfg.BaseURL = *opts.baseURL
	}
	if opts.headers != nil {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string, len(opts.headers))
		}
		for k, v := range opts.headers {
			cfg.Headers[k] = v
		}
	}
	if opts.authorization != nil {
		cfg.Authorization = *opts.authorization
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	client := &Client{
		c:          &http.Client{},
		logger:     slog.Default(),
		cfg:        cfg,
		query:      opts.queryPolicy,
		requestID:  opts.requestID,
		tracer:     noop.NewTracerProvider().Tracer("no-op tracer"),
		propagator: otel.GetTextMapPropagator(),
	}

	if opts.client != nil {
		hc := *opts.client
		client.c = &hc
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	if opts.tracer != nil {
		client.tracer = opts.tracer
	}

	if opts.propagator != nil {
		client.propagator = opts.propagator
	}

	if opts.timeout != nil {
		client.c.Timeout = *opts.timeout
	}

	if opts.noFollowRedirects {
		client.c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		transport = opts.client.Transport
	default:
		transport = http.DefaultTransport
	}
	if opts.registerer != nil {
		collector, err := metrics.New(opts.registerer)
		if err != nil {
			return nil, fmt.Errorf("configuring metrics: %w", err)
		}
		transport = collector.RoundTripper(transport)
	}
	if opts.userAgent != "" {
		transport = userAgent{value: opts.userAgent, base: transport}
	}
	if opts.throttle != nil {
		rt, err := throttle.NewRoundTripper(opts.throttle.RPS, opts.throttle.Burst, func() *slog.Logger { return client.logger }, transport)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		transport = rt
	}
	client.c.Transport = transport

	return client, nil
}

// Config returns a copy of the client's defaults.
func (c *Client) Config() Config {
	return c.cfg.clone()
}

// Get dispatches a GET request. See [Client.Fetch].
func (c *Client) Get(ctx context.Context, rawURL string, body any, opts ...RequestOption) (*Envelope, error) {
	return c.Fetch(ctx, http.MethodGet, rawURL, body, opts...)
}

// Post dispatches a POST request. See [Client.Fetch].
func (c *Client) Post(ctx context.Context, rawURL string, body any, opts ...RequestOption) (*Envelope, error) {
	return c.Fetch(ctx, http.MethodPost, rawURL, body, opts...)
}

// Put dispatches a PUT request. See [Client.Fetch].
func (c *Client) Put(ctx context.Context, rawURL string, body any, opts ...RequestOption) (*Envelope, error) {
	return c.Fetch(ctx, http.MethodPut, rawURL, body, opts...)
}

// Patch dispatches a PATCH request. See [Client.Fetch].
func (c *Client) Patch(ctx context.Context, rawURL string, body any, opts ...RequestOption) (*Envelope, error) {
	return c.Fetch(ctx, http.MethodPatch, rawURL, body, opts...)
}

// Delete dispatches a DELETE request. See [Client.Fetch].
func (c *Client) Delete(ctx context.Context, rawURL string, body any, opts ...RequestOption) (*Envelope, error) {
	return c.Fetch(ctx, http.MethodDelete, rawURL, body, opts...)
}

// Fetch builds a request from rawURL, body and opts, merges the client
// defaults, performs exactly one round trip and normalizes the outcome.
//
// Body handling: nil sends nothing; string, []byte and io.Reader are sent
// as-is; a *[Form] is sent as multipart/form-data; url.Values is sent
// form-urlencoded; anything else is JSON-encoded with an application/json
// Content-Type. Nil pointers and empty maps count as no body.
//
// A 2xx response yields its *[Envelope]. A non-2xx response, or a body
// that is not valid JSON, yields a *[ResponseError] wrapping the Envelope.
// A non-2xx response always wraps [ErrUnexpectedStatusCode], joined with
// [ErrDecodeBody] when its body is not JSON either.
// A failure before any response is received is returned wrapped as-is.
func (c *Client) Fetch(ctx context.Context, method, rawURL string, body any, opts ...RequestOption) (*Envelope, error) {
	req, err := c.newRequest(ctx, method, rawURL, body, opts...)
	if err != nil {
		return nil, err
	}

	return c.exec(req)
}

// Do dispatches an already-built request through the client's transport
// and normalizes the outcome like [Client.Fetch]. Client defaults are
// not merged into req.
func (c *Client) Do(req *http.Request) (*Envelope, error) {
	return c.exec(req)
}

// Into decodes a successful envelope into a T. It passes err through
// untouched, so calls can be chained:
//
//	user, err := client.Into[User](c.Get(ctx, "/users/1", nil))
func Into[T any](env *Envelope, err error) (T, error) {
	var v T
	if err != nil {
		return v, err
	}

	if err := env.Decode(&v); err != nil {
		return v, err
	}

	return v, nil
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string, body any, opts ...RequestOption) (*http.Request, error) {
	var settings requestOpts
	for _, opt := range opts {
		if err := opt(&settings); err != nil {
			return nil, fmt.Errorf("applying request option: %w", err)
		}
	}

	target := c.cfg.resolveURL(rawURL)
	if settings.query != nil {
		if q := c.query.Encode(settings.query); q != "" {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + q
		}
	}

	payload, contentType, err := encodeBody(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range settings.headers {
		req.Header.Set(k, v)
	}

	cacheMode := c.cfg.Cache
	if settings.cache != nil {
		cacheMode = *settings.cache
	}
	if cc := cacheControl(cacheMode, c.cfg.Revalidate); cc != "" {
		req.Header.Set("Cache-Control", cc)
	}

	auth := c.cfg.Authorization
	if settings.authorization != "" {
		auth = settings.authorization
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	if c.requestID && req.Header.Get("X-Request-ID") == "" {
		req.Header.Set("X-Request-ID", uuid.NewString())
	}

	for _, cookie := range settings.cookies {
		req.AddCookie(cookie)
	}

	for _, fn := range settings.reqFns {
		fn(req)
	}

	return req, nil
}

// exec performs the round trip and folds every post-response failure
// into a *ResponseError.
func (c *Client) exec(req *http.Request) (*Envelope, error) {
	ctx, span := c.tracer.Start(req.Context(), "client.fetch", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", req.Method),
		attribute.String("url.full", req.URL.Redacted()),
	)

	req = req.WithContext(ctx)
	c.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.c.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		c.logger.Debug("request failed", "method", req.Method, "url", req.URL.Redacted(), "error", err)
		return nil, fmt.Errorf("exec http do: %w", err)
	}

	defer func() {
		if _, err := io.Copy(io.Discard, resp.Body); err != nil {
			c.logger.Error("failed to discard unused body", "error", err)
		}
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	raw, readErr := io.ReadAll(resp.Body)
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = nil
	}

	env := newEnvelope(resp, raw)
	env.Message = bodyMessage(raw)

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	c.logger.Debug("request completed", "method", req.Method, "url", req.URL.Redacted(), "status", resp.StatusCode, "since", time.Since(start).String())

	var bodyErr error
	switch {
	case readErr != nil:
		bodyErr = fmt.Errorf("reading body: %w", readErr)
	case raw != nil && !json.Valid(raw):
		bodyErr = fmt.Errorf("%w: invalid JSON", ErrDecodeBody)
	}
	if bodyErr != nil {
		env.Raw = nil
	}

	// A failed status is always in the chain, with any body error joined on.
	failure := bodyErr
	if !env.OK() {
		failure = statusErr(resp.StatusCode)
		if bodyErr != nil {
			failure = errors.Join(failure, bodyErr)
		}
	}

	if failure == nil {
		return env, nil
	}

	if env.Message == "" {
		env.Message = env.StatusText
	}
	if env.Message == "" {
		env.Message = failure.Error()
	}

	span.SetStatus(codes.Error, env.Message)

	return nil, &ResponseError{Envelope: env, Err: failure}
}

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case *Form:
		if b == nil {
			return nil, "", nil
		}
		r, err := b.encode()
		if err != nil {
			return nil, "", err
		}
		return r, b.ContentType(), nil
	case string:
		return strings.NewReader(b), "", nil
	case []byte:
		return bytes.NewReader(b), "", nil
	case url.Values:
		return strings.NewReader(b.Encode()), "application/x-www-form-urlencoded", nil
	case io.Reader:
		return b, "", nil
	default:
		if isEmptyBody(b) {
			return nil, "", nil
		}
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), contentTypeJSON, nil
	}
}

// isEmptyBody reports whether v carries nothing worth encoding.
func isEmptyBody(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	case reflect.Map:
		return rv.Len() == 0
	default:
		return false
	}
}
