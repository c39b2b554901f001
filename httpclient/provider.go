package httpclient

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/gaborage/routekit/internal/tracking"
	"github.com/gaborage/routekit/logger"
	"github.com/gaborage/routekit/trace"
)

const (
	// DefaultTimeout applies to each attempt.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRetryAfter bounds how long a server may ask us to wait.
	DefaultMaxRetryAfter = 30 * time.Second

	tracerName = "github.com/gaborage/routekit/httpclient"
)

// Config holds the Provider configuration.
type Config struct {
	// Timeout is the per-attempt timeout. Zero disables it.
	Timeout time.Duration
	// MaxAttempts caps attempts per call including the first one.
	MaxAttempts int
	Backoff     BackoffConfig
	// MaxRetryAfter bounds Retry-After delays; zero ignores the header.
	MaxRetryAfter time.Duration
	// RateLimit is the sustained requests per second across all calls; zero disables it.
	RateLimit float64
	RateBurst int
	// LogPayloads enables debug-level logging of headers and body payloads
	LogPayloads bool
	// MaxPayloadLogBytes caps the number of body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int
}

// DefaultConfig returns the configuration used by NewBuilder.
func DefaultConfig() Config {
	return Config{
		Timeout:            DefaultTimeout,
		MaxAttempts:        DefaultMaxAttempts,
		Backoff:            DefaultBackoffConfig(),
		MaxRetryAfter:      DefaultMaxRetryAfter,
		MaxPayloadLogBytes: DefaultMaxPayloadLogBytes,
	}
}

// Provider executes routes. It is safe for concurrent use; the only state
// shared between calls lives in interceptors such as the auth coordinator.
type Provider struct {
	transport Transport
	resolver  EnvironmentResolver
	codec     Codec
	chain     Chain
	logger    logger.Logger
	config    Config
	limiter   *rate.Limiter
	tracer    oteltrace.Tracer
}

// Builder provides a fluent interface for configuring a Provider.
type Builder struct {
	transport    Transport
	resolver     EnvironmentResolver
	environments map[ServiceDomain]Environment
	codec        Codec
	interceptors []Interceptor
	logger       logger.Logger
	config       Config
}

// NewBuilder creates a Builder with DefaultConfig.
func NewBuilder(log logger.Logger) *Builder {
	if log == nil {
		log = logger.Nop()
	}
	return &Builder{logger: log, config: DefaultConfig()}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithTransport sets the transport. Defaults to an HTTPTransport.
func (b *Builder) WithTransport(t Transport) *Builder {
	b.transport = t
	return b
}

// WithHTTPClient uses client through an HTTPTransport.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.transport = NewHTTPTransport(client)
	return b
}

// WithResolver sets the environment resolver. It takes precedence over
// environments registered with WithEnvironment.
func (b *Builder) WithResolver(r EnvironmentResolver) *Builder {
	b.resolver = r
	return b
}

// WithEnvironment registers a static environment for domain.
func (b *Builder) WithEnvironment(domain ServiceDomain, env Environment) *Builder {
	if b.environments == nil {
		b.environments = make(map[ServiceDomain]Environment)
	}
	b.environments[domain] = env
	return b
}

// WithCodec sets the body codec. Defaults to JSONCodec.
func (b *Builder) WithCodec(c Codec) *Builder {
	b.codec = c
	return b
}

// WithTimeout sets the per-attempt timeout.
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout
	return b
}

// WithMaxAttempts caps attempts per call including the first.
func (b *Builder) WithMaxAttempts(n int) *Builder {
	b.config.MaxAttempts = n
	return b
}

// WithBackoff sets the delay schedule between attempts.
func (b *Builder) WithBackoff(cfg BackoffConfig) *Builder {
	b.config.Backoff = cfg
	return b
}

// WithRateLimit gates every attempt through a token bucket.
func (b *Builder) WithRateLimit(rps float64, burst int) *Builder {
	b.config.RateLimit = rps
	b.config.RateBurst = burst
	return b
}

// WithPayloadLogging enables debug payload logs capped at maxBytes.
func (b *Builder) WithPayloadLogging(maxBytes int) *Builder {
	b.config.LogPayloads = true
	b.config.MaxPayloadLogBytes = maxBytes
	return b
}

// WithInterceptor appends an interceptor. Order of registration is the order
// of Adapt and ShouldRetry.
func (b *Builder) WithInterceptor(i Interceptor) *Builder {
	b.interceptors = append(b.interceptors, i)
	return b
}

// WithRequestInterceptor appends an adapt-only interceptor.
func (b *Builder) WithRequestInterceptor(fn func(ctx context.Context, req *Request) (*Request, error)) *Builder {
	return b.WithInterceptor(RequestInterceptor(fn))
}

// Build creates the Provider.
func (b *Builder) Build() *Provider {
	transport := b.transport
	if transport == nil {
		transport = NewHTTPTransport(nil)
	}
	resolver := b.resolver
	if resolver == nil {
		resolver = NewStaticResolver(b.environments)
	}
	codec := b.codec
	if codec == nil {
		codec = JSONCodec{}
	}
	cfg := b.config
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	return &Provider{
		transport: transport,
		resolver:  resolver,
		codec:     codec,
		chain:     append(Chain(nil), b.interceptors...),
		logger:    b.logger,
		config:    cfg,
		limiter:   newLimiter(cfg.RateLimit, cfg.RateBurst),
		tracer:    otel.Tracer(tracerName),
	}
}

// Codec returns the codec used for bodies, e.g. to decode error payloads.
func (p *Provider) Codec() Codec { return p.codec }

// Perform executes route and decodes its successful response into T.
// Every failure is a *NetworkError.
func Perform[T any](ctx context.Context, p *Provider, route Route[T]) (T, error) {
	ctx, span := p.startSpan(ctx, route)
	defer span.End()

	var out T
	decode := func(resp *Response) *NetworkError {
		v, err := decodeResult(route, p.codec, resp)
		if err != nil {
			return AsNetworkError(err)
		}
		out = v
		return nil
	}

	if _, err := p.do(ctx, route, decode); err != nil {
		var zero T
		recordSpanError(span, err)
		return zero, err
	}
	span.SetStatus(codes.Ok, "")
	return out, nil
}

// Do executes ep and returns the raw 2xx response without decoding it.
func (p *Provider) Do(ctx context.Context, ep Endpoint) (*Response, error) {
	ctx, span := p.startSpan(ctx, ep)
	defer span.End()

	resp, err := p.do(ctx, ep, nil)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return resp, nil
}

// acceptFunc inspects a 2xx response inside the attempt. A non-nil error
// fails the attempt and goes through the same retry decision as a status
// error.
type acceptFunc func(resp *Response) *NetworkError

func (p *Provider) do(ctx context.Context, ep Endpoint, accept acceptFunc) (*Response, error) {
	requestID := trace.EnsureTraceID(ctx)
	ctx = trace.WithTraceID(ctx, requestID)

	compiled, err := Compile(ep, p.resolver, CompileOptions{Codec: p.codec, Timeout: p.config.Timeout})
	if err != nil {
		nerr := withDomain(AsNetworkError(err), ep.Domain())
		p.logFailure(ep.Domain(), nerr, 0, requestID)
		return nil, nerr
	}

	resp, nerr, attempts := p.execute(ctx, compiled, requestID, accept)
	if nerr != nil {
		nerr = withDomain(nerr, ep.Domain())
		p.logFailure(ep.Domain(), nerr, attempts, requestID)
		return nil, nerr
	}
	return resp, nil
}

// execute drives the retry state machine for one call.
func (p *Provider) execute(ctx context.Context, compiled *Request, requestID string, accept acceptFunc) (*Response, *NetworkError, int) {
	state := newRetryState(p.config.MaxAttempts, p.config.Backoff.NewBackOff(), p.config.MaxRetryAfter)

	for {
		attempt := state.begin()

		req, err := p.chain.Adapt(ctx, compiled)
		if err != nil {
			state.fail()
			return nil, AsNetworkError(err), attempt
		}
		if nerr := admit(ctx, p.limiter); nerr != nil {
			state.fail()
			return nil, nerr, attempt
		}

		resp, nerr := p.send(ctx, req, attempt, requestID)
		if nerr == nil && accept != nil {
			nerr = accept(resp)
		}
		if nerr == nil {
			state.succeed()
			return resp, nil, attempt
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			state.fail()
			return nil, AsNetworkError(ctxErr), attempt
		}
		if nerr.Structural() || state.exhausted() {
			state.fail()
			return nil, nerr, attempt
		}

		retry, rerr := p.chain.ShouldRetry(ctx, req, resp, nerr)
		if rerr != nil {
			state.fail()
			return nil, AsNetworkError(rerr), attempt
		}
		if !retry {
			state.fail()
			return nil, nerr, attempt
		}

		delay, ok := state.next(resp)
		if !ok {
			state.fail()
			return nil, nerr, attempt
		}
		tracking.RecordRetry(ctx, string(compiled.Domain), string(nerr.Kind))
		p.logRetry(req, nerr, attempt, delay, requestID)

		if err := wait(ctx, delay); err != nil {
			state.fail()
			return nil, AsNetworkError(err), attempt
		}
	}
}

// send performs one attempt and classifies its outcome. A non-nil response
// is returned alongside status errors so interceptors can inspect it.
func (p *Provider) send(ctx context.Context, req *Request, attempt int, requestID string) (*Response, *NetworkError) {
	p.logRequest(req, attempt, requestID)

	start := time.Now()
	resp, err := p.transport.Send(ctx, req)
	elapsed := time.Since(start)

	metric := tracking.Attempt{
		Domain:   string(req.Domain),
		Method:   req.Method,
		Number:   attempt,
		Duration: elapsed,
	}

	if err != nil {
		nerr := ClassifyTransportError(err)
		metric.ErrorType = string(nerr.Kind)
		tracking.RecordAttempt(ctx, metric)
		return nil, nerr
	}
	if resp == nil {
		nerr := ClassifyResponse(nil)
		metric.ErrorType = string(nerr.Kind)
		tracking.RecordAttempt(ctx, metric)
		return nil, nerr
	}

	if resp.Stats.ElapsedTime == 0 {
		resp.Stats.ElapsedTime = elapsed
	}
	resp.Stats.Attempt = attempt
	p.logResponse(req, resp, requestID)

	nerr := ClassifyResponse(resp)
	metric.StatusCode = resp.StatusCode
	if nerr != nil {
		metric.ErrorType = string(nerr.Kind)
	}
	tracking.RecordAttempt(ctx, metric)
	return resp, nerr
}

func (p *Provider) startSpan(ctx context.Context, ep Endpoint) (context.Context, oteltrace.Span) {
	return p.tracer.Start(ctx, "routekit "+ep.Method(),
		oteltrace.WithSpanKind(oteltrace.SpanKindClient),
		oteltrace.WithAttributes(
			attribute.String("http.request.method", ep.Method()),
			attribute.String("routekit.domain", string(ep.Domain())),
			attribute.String("routekit.path", ep.Path()),
		))
}

func recordSpanError(span oteltrace.Span, err error) {
	span.RecordError(err)
	if nerr := AsNetworkError(err); nerr != nil {
		span.SetAttributes(attribute.String("error.type", string(nerr.Kind)))
		if nerr.StatusCode > 0 {
			span.SetAttributes(attribute.Int("http.response.status_code", nerr.StatusCode))
		}
	}
	span.SetStatus(codes.Error, err.Error())
}

// withDomain returns a copy of nerr tagged with domain so shared error values
// are never mutated.
func withDomain(nerr *NetworkError, domain ServiceDomain) *NetworkError {
	if nerr == nil || nerr.Domain == domain {
		return nerr
	}
	c := *nerr
	c.Domain = domain
	return &c
}
