package client

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/httpfetch/client/throttle"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error
type options struct {
	client            *http.Client
	rt                http.RoundTripper
	timeout           *time.Duration
	userAgent         string
	throttle          *throttle.Config
	noFollowRedirects bool
	logger            *slog.Logger

	config        *Config
	baseURL       *string
	headers       map[string]string
	authorization *string
	queryPolicy   QueryPolicy
	requestID     bool
	tracer        trace.Tracer
	propagator    propagation.TextMapPropagator
	registerer    prometheus.Registerer
}

// WithClient replaces the default [http.Client] used by the [Client].
// The given client is copied, never mutated.
func WithClient(hc *http.Client) Option {
	return func(c *options) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		c.client = hc
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		c.rt = rt
		return nil
	}
}

// WithTimeout sets the overall request timeout on the underlying [http.Client].
// Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		c.timeout = &d
		return nil
	}
}

// WithUserAgent adds a persistent User-Agent header to all outgoing requests.
func WithUserAgent(header string) Option {
	return func(c *options) error {
		c.userAgent = header
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting with the given requests per second and burst capacity.
func WithThrottle(rps, burst int) Option {
	return func(c *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, throttle.ErrMustNotBeZero)
		}
		c.throttle = &throttle.Config{RPS: rps, Burst: burst}
		return nil
	}
}

// WithNoFollowRedirects prevents the [Client] from following HTTP redirects.
func WithNoFollowRedirects() Option {
	return func(c *options) error {
		c.noFollowRedirects = true
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(c *options) error {
		c.logger = logger
		return nil
	}
}

// WithConfig sets the request defaults. The value is copied. Fields set by
// [WithBaseURL], [WithDefaultHeaders] and [WithDefaultAuthorization] take
// precedence regardless of order.
func WithConfig(cfg Config) Option {
	return func(c *options) error {
		cfg = cfg.clone()
		c.config = &cfg
		return nil
	}
}

// WithBaseURL sets the prefix applied to scheme-less request URLs.
func WithBaseURL(baseURL string) Option {
	return func(c *options) error {
		c.baseURL = &baseURL
		return nil
	}
}

// WithDefaultHeaders adds headers sent on every request.
func WithDefaultHeaders(headers map[string]string) Option {
	return func(c *options) error {
		if c.headers == nil {
			c.headers = make(map[string]string, len(headers))
		}
		maps.Copy(c.headers, headers)
		return nil
	}
}

// WithDefaultAuthorization sets the Authorization header value used when a
// call supplies none.
func WithDefaultAuthorization(token string) Option {
	return func(c *options) error {
		c.authorization = &token
		return nil
	}
}

// WithQueryPolicy selects the query serialization policy.
func WithQueryPolicy(p QueryPolicy) Option {
	return func(c *options) error {
		switch p {
		case QueryEncodeAll, QueryDropFalsy:
			c.queryPolicy = p
			return nil
		default:
			return fmt.Errorf("unknown query policy: %s", p)
		}
	}
}

// WithRequestID attaches a random X-Request-ID header to each request
// that doesn't already carry one.
func WithRequestID() Option {
	return func(c *options) error {
		c.requestID = true
		return nil
	}
}

// WithTracer starts a client span around every dispatched request.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *options) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		c.tracer = tracer
		return nil
	}
}

// WithPropagator sets the propagator used to inject trace context into
// outgoing headers. Defaults to the global otel propagator.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(c *options) error {
		if p == nil {
			return errors.New("propagator must not be nil")
		}
		c.propagator = p
		return nil
	}
}

// WithMetrics registers request counters, latency histograms and an
// in-flight gauge on reg and instruments the transport with them.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *options) error {
		if reg == nil {
			return errors.New("registerer must not be nil")
		}
		c.registerer = reg
		return nil
	}
}

// userAgent is an http.RoundTripper, enabling the persistent User-Agent header.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", ua.value)
	return ua.base.RoundTrip(cpy)
}

// RequestOption is a functional option for a single dispatched request.
type RequestOption func(options *requestOpts) error

type requestOpts struct {
	query         map[string]any
	authorization string
	headers       map[string]string
	cookies       []*http.Cookie
	cache         *string
	reqFns        []func(*http.Request)
}

// WithQuery serializes params with the client's [QueryPolicy] and
// appends them to the URL.
func WithQuery(params map[string]any) RequestOption {
	return func(opts *requestOpts) error {
		opts.query = params

		return nil
	}
}

// WithAuthorization overrides the default Authorization header for this call.
// An empty token falls back to the default.
func WithAuthorization(token string) RequestOption {
	return func(opts *requestOpts) error {
		opts.authorization = token

		return nil
	}
}

// WithHeader sets a single header on the outgoing request.
func WithHeader(key, value string) RequestOption {
	return func(opts *requestOpts) error {
		if key == "" {
			return errors.New("cannot use empty header key")
		}
		if opts.headers == nil {
			opts.headers = make(map[string]string)
		}
		opts.headers[key] = value

		return nil
	}
}

// WithHeaders sets custom headers on the outgoing request. They override
// configured defaults and the body's Content-Type.
func WithHeaders(headers map[string]string) RequestOption {
	return func(opts *requestOpts) error {
		if opts.headers == nil {
			opts.headers = make(map[string]string, len(headers))
		}
		maps.Copy(opts.headers, headers)

		return nil
	}
}

// WithCookies attaches the given cookies to the outgoing request.
func WithCookies(cookies ...*http.Cookie) RequestOption {
	return func(opts *requestOpts) error {
		opts.cookies = append(opts.cookies, cookies...)

		return nil
	}
}

// WithCache overrides the configured cache mode for this call.
func WithCache(mode string) RequestOption {
	return func(opts *requestOpts) error {
		if err := validate.Var(mode, "oneof=default no-store reload no-cache force-cache only-if-cached"); err != nil {
			return fmt.Errorf("invalid cache mode[%s]", mode)
		}
		opts.cache = &mode

		return nil
	}
}

// WithRequestFunc runs fn against the built request right before it is
// sent, giving access to transport-specific settings.
func WithRequestFunc(fn func(*http.Request)) RequestOption {
	return func(opts *requestOpts) error {
		if fn == nil {
			return errors.New("request func must not be nil")
		}
		opts.reqFns = append(opts.reqFns, fn)

		return nil
	}
}
