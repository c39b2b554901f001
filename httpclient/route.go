package httpclient

import (
	"maps"
	"net/http"
	"strings"
)

// Encoding selects where route parameters are placed.
type Encoding int

const (
	// EncodingDefault places parameters in the query for GET and HEAD and
	// in a JSON body otherwise.
	EncodingDefault Encoding = iota
	EncodingQuery
	EncodingJSON
	EncodingForm
	// EncodingNone sends neither query parameters nor a body.
	EncodingNone
)

func (e Encoding) String() string {
	switch e {
	case EncodingQuery:
		return "query"
	case EncodingJSON:
		return "json"
	case EncodingForm:
		return "form"
	case EncodingNone:
		return "none"
	default:
		return "default"
	}
}

// Endpoint is the untyped half of a route: everything needed to build a request.
type Endpoint interface {
	Domain() ServiceDomain
	Method() string
	// Path is relative to the environment base URL and may carry an inline query.
	Path() string
	Parameters() map[string]any
	// Body is an explicit payload. When non-nil it takes precedence over
	// Parameters for body encodings.
	Body() any
	Encoding() Encoding
	Headers() map[string]string
}

// Route is an Endpoint that knows how to decode a successful response into T.
type Route[T any] interface {
	Endpoint
	Decode(codec Codec, resp *Response) (T, error)
}

// Empty is the result type for routes whose success body is ignored.
type Empty struct{}

// DecodeFunc decodes a successful response body.
type DecodeFunc[T any] func(codec Codec, resp *Response) (T, error)

// Definition is an immutable Route built by NewRoute.
type Definition[T any] struct {
	domain   ServiceDomain
	method   string
	path     string
	params   map[string]any
	body     any
	encoding Encoding
	headers  map[string]string
	decode   DecodeFunc[T]
}

var _ Route[Empty] = (*Definition[Empty])(nil)

// RouteOption configures a route at construction.
type RouteOption func(*routeSpec)

type routeSpec struct {
	params   map[string]any
	body     any
	encoding Encoding
	headers  map[string]string
}

// WithParams merges parameters into the route.
func WithParams(params map[string]any) RouteOption {
	return func(s *routeSpec) {
		if s.params == nil {
			s.params = make(map[string]any, len(params))
		}
		maps.Copy(s.params, params)
	}
}

// WithParam sets one parameter.
func WithParam(key string, value any) RouteOption {
	return WithParams(map[string]any{key: value})
}

// WithBody sets an explicit payload encoded with the provider codec. A form
// route takes a url.Values body. Query and none placements, including GET
// and HEAD under the default encoding, reject a body at compile time.
func WithBody(body any) RouteOption {
	return func(s *routeSpec) { s.body = body }
}

// WithEncoding overrides the default parameter placement.
func WithEncoding(enc Encoding) RouteOption {
	return func(s *routeSpec) { s.encoding = enc }
}

// WithHeader sets a route header. Route headers override every other source.
func WithHeader(key, value string) RouteOption {
	return func(s *routeSpec) {
		if s.headers == nil {
			s.headers = make(map[string]string)
		}
		s.headers[key] = value
	}
}

// NewRoute builds a route whose 2xx body is decoded into T with the provider
// codec. For T = Empty the body is ignored.
func NewRoute[T any](domain ServiceDomain, method, path string, opts ...RouteOption) *Definition[T] {
	return NewRouteWithDecoder[T](domain, method, path, decodeWithCodec[T], opts...)
}

// NewRouteWithDecoder builds a route with a custom decoder.
func NewRouteWithDecoder[T any](domain ServiceDomain, method, path string, decode DecodeFunc[T], opts ...RouteOption) *Definition[T] {
	var s routeSpec
	for _, opt := range opts {
		opt(&s)
	}
	if method == "" {
		method = http.MethodGet
	}
	return &Definition[T]{
		domain:   domain,
		method:   strings.ToUpper(method),
		path:     path,
		params:   s.params,
		body:     s.body,
		encoding: s.encoding,
		headers:  s.headers,
		decode:   decode,
	}
}

func decodeWithCodec[T any](codec Codec, resp *Response) (T, error) {
	var out T
	if _, empty := any(out).(Empty); empty {
		return out, nil
	}
	if b, ok := any(&out).(*[]byte); ok {
		*b = append([]byte(nil), resp.Body...)
		return out, nil
	}
	if codec == nil {
		codec = JSONCodec{}
	}
	err := codec.Unmarshal(resp.Body, &out)
	return out, err
}

func (d *Definition[T]) Domain() ServiceDomain      { return d.domain }
func (d *Definition[T]) Method() string             { return d.method }
func (d *Definition[T]) Path() string               { return d.path }
func (d *Definition[T]) Parameters() map[string]any { return maps.Clone(d.params) }
func (d *Definition[T]) Body() any                  { return d.body }
func (d *Definition[T]) Encoding() Encoding         { return d.encoding }
func (d *Definition[T]) Headers() map[string]string { return maps.Clone(d.headers) }

// Decode implements Route.
func (d *Definition[T]) Decode(codec Codec, resp *Response) (T, error) {
	return d.decode(codec, resp)
}
