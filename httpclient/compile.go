package httpclient

import (
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"
)

const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeForm   = "application/x-www-form-urlencoded"
)

// CompileOptions carries provider settings the compiler needs.
type CompileOptions struct {
	Codec   Codec
	Timeout time.Duration
}

// Compile turns an endpoint into a transport request. It performs no I/O.
//
// Query parameters merge with key deduplication: the base URL query is
// overridden by the endpoint's inline query, which is overridden by route
// parameters. Keys are emitted in sorted order.
func Compile(ep Endpoint, resolver EnvironmentResolver, opts CompileOptions) (*Request, error) {
	if resolver == nil {
		return nil, NewMissingEnvironmentError(ep.Domain())
	}
	env, ok := resolver.Resolve(ep.Domain())
	if !ok {
		return nil, NewMissingEnvironmentError(ep.Domain())
	}
	codec := opts.Codec
	if codec == nil {
		codec = JSONCodec{}
	}

	base, err := parseBaseURL(env.BaseURL)
	if err != nil {
		return nil, err
	}
	segments, inlineQuery, err := splitEndpointPath(ep.Path())
	if err != nil {
		return nil, err
	}

	baseSegments, err := pathSegments(base.EscapedPath())
	if err != nil {
		return nil, NewInvalidURLError("malformed base URL path", err)
	}
	u := *base
	u.Path, u.RawPath = joinPath(append(baseSegments, segments...))
	u.Fragment = ""

	query := base.Query()
	if inlineQuery != "" {
		inline, err := url.ParseQuery(inlineQuery)
		if err != nil {
			return nil, NewInvalidURLError("malformed inline query", err)
		}
		for k, v := range inline {
			query[k] = v
		}
	}

	method := ep.Method()
	if method == "" {
		method = http.MethodGet
	}
	placement := resolvePlacement(ep.Encoding(), method)
	params := ep.Parameters()

	if placement == EncodingQuery {
		for k, v := range params {
			if vals, ok := queryValues(v); ok {
				query[k] = vals
			}
		}
	}
	u.RawQuery = query.Encode()

	req := &Request{
		Domain:  ep.Domain(),
		Method:  method,
		URL:     u.String(),
		Header:  http.Header{},
		Timeout: opts.Timeout,
	}

	contentType, err := encodeBody(req, ep, placement, params, codec)
	if err != nil {
		return nil, err
	}
	applyHeaders(req.Header, env, codec, contentType, ep.Headers())
	return req, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, NewInvalidURLError("empty base URL", nil)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, NewInvalidURLError("malformed base URL", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, NewInvalidURLError(fmt.Sprintf("base URL %q is not an absolute http(s) URL", raw), nil)
	}
	return u, nil
}

// splitEndpointPath validates the relative endpoint path and returns its
// decoded non-empty segments and any inline query. Segments may be
// percent-escaped; an escaped "/" stays inside its segment.
func splitEndpointPath(p string) ([]string, string, error) {
	pathPart, query, _ := strings.Cut(p, "?")

	switch {
	case strings.Contains(pathPart, "://"):
		return nil, "", NewInvalidURLError(fmt.Sprintf("endpoint path %q must be relative", p), nil)
	case strings.HasPrefix(pathPart, "//"):
		return nil, "", NewInvalidURLError(fmt.Sprintf("endpoint path %q is protocol-relative", p), nil)
	case strings.ContainsRune(pathPart, '\\'):
		return nil, "", NewInvalidURLError(fmt.Sprintf("endpoint path %q contains a backslash", p), nil)
	}

	segments, err := pathSegments(pathPart)
	if err != nil {
		return nil, "", NewInvalidURLError(fmt.Sprintf("endpoint path %q has a malformed escape", p), err)
	}
	for _, seg := range segments {
		if seg == "." || seg == ".." {
			return nil, "", NewInvalidURLError(fmt.Sprintf("endpoint path %q contains a dot segment", p), nil)
		}
	}
	return segments, query, nil
}

// pathSegments splits an escaped path on "/" and unescapes each non-empty
// segment.
func pathSegments(escaped string) ([]string, error) {
	var out []string
	for _, seg := range strings.Split(escaped, "/") {
		if seg == "" {
			continue
		}
		dec, err := url.PathUnescape(seg)
		if err != nil {
			return nil, err
		}
		out = append(out, dec)
	}
	return out, nil
}

// joinPath returns the decoded path and its escaped form for url.URL.
func joinPath(segments []string) (path, rawPath string) {
	if len(segments) == 0 {
		return "/", ""
	}
	escaped := make([]string, len(segments))
	for i, seg := range segments {
		escaped[i] = url.PathEscape(seg)
	}
	return "/" + strings.Join(segments, "/"), "/" + strings.Join(escaped, "/")
}

func resolvePlacement(enc Encoding, method string) Encoding {
	if enc != EncodingDefault {
		return enc
	}
	if method == http.MethodGet || method == http.MethodHead {
		return EncodingQuery
	}
	return EncodingJSON
}

func encodeBody(req *Request, ep Endpoint, placement Encoding, params map[string]any, codec Codec) (string, error) {
	explicit := ep.Body()

	switch placement {
	case EncodingNone, EncodingQuery:
		if explicit != nil {
			return "", NewBodyEncodingError(fmt.Sprintf("%s route with %s placement cannot carry a body", req.Method, placement), nil)
		}
		return "", nil
	case EncodingForm:
		form := url.Values{}
		if explicit != nil {
			v, ok := explicit.(url.Values)
			if !ok {
				return "", NewBodyEncodingError(fmt.Sprintf("form body must be url.Values, got %T", explicit), nil)
			}
			form = v
		} else {
			for k, v := range params {
				if vals, ok := queryValues(v); ok {
					form[k] = vals
				}
			}
		}
		if len(form) == 0 {
			return "", nil
		}
		req.Body = []byte(form.Encode())
		return contentTypeForm, nil
	}

	var payload any
	switch {
	case explicit != nil:
		payload = explicit
	case placement == EncodingJSON && len(params) > 0:
		payload = params
	default:
		return "", nil
	}

	body, err := codec.Marshal(payload)
	if err != nil {
		return "", NewBodyEncodingError(fmt.Sprintf("cannot encode %T", payload), err)
	}
	if len(body) == 0 {
		return "", NewBodyEncodingError(fmt.Sprintf("encoding %T produced no bytes", payload), nil)
	}
	req.Body = body
	return codec.ContentType(), nil
}

// applyHeaders layers environment headers, the API key, defaults and the
// route's own headers, in that order. Later layers win.
func applyHeaders(h http.Header, env Environment, codec Codec, contentType string, routeHeaders map[string]string) {
	for k, v := range env.Headers {
		h.Set(k, v)
	}
	if env.APIKey != "" {
		name := env.APIKeyHeader
		if name == "" {
			name = DefaultAPIKeyHeader
		}
		h.Set(name, env.APIKey)
	}
	if h.Get(headerAccept) == "" {
		h.Set(headerAccept, codec.ContentType())
	}
	if contentType != "" {
		h.Set(headerContentType, contentType)
	}
	for k, v := range routeHeaders {
		h.Set(k, v)
	}
}

// queryValues renders a parameter value. Nil values are skipped.
func queryValues(v any) ([]string, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case string:
		return []string{t}, true
	case []string:
		return append([]string(nil), t...), true
	case bool:
		return []string{strconv.FormatBool(t)}, true
	case time.Time:
		return []string{t.Format(time.RFC3339)}, true
	case fmt.Stringer:
		return []string{t.String()}, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]string, 0, rv.Len())
		for i := range rv.Len() {
			out = append(out, fmt.Sprint(rv.Index(i).Interface()))
		}
		return out, true
	}
	return []string{fmt.Sprint(v)}, true
}
