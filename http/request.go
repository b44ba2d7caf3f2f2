package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Default headers sent with every request unless overridden.
var defaultHeaders = map[string]string{
	"Content-Type": "application/json",
	"Accept":       "application/json",
}

// Request represents an HTTP request to be timed.
type Request struct {
	// Method is the HTTP verb (GET, POST, PUT, DELETE, ...)
	Method string

	// Path is appended verbatim to the client's base URL
	Path string

	// QueryParams are merged into the URL's query string
	QueryParams url.Values

	// Headers take precedence over client and default headers
	Headers map[string]string

	// Body is serialized as JSON unless it is a string, []byte or io.Reader
	Body any
}

// NewRequest creates a new request for method and path.
//
// Example:
//
//	req := http.NewRequest("GET", "/get").
//	    WithQueryParam("name", "test")
func NewRequest(method, path string) *Request {
	return &Request{
		Method:      method,
		Path:        path,
		QueryParams: make(url.Values),
		Headers:     make(map[string]string),
	}
}

// WithHeader sets a header on the request.
func (r *Request) WithHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

// WithHeaders sets several headers on the request.
func (r *Request) WithHeaders(headers map[string]string) *Request {
	for key, value := range headers {
		r.Headers[key] = value
	}
	return r
}

// WithQueryParam adds a query parameter to the request.
func (r *Request) WithQueryParam(key, value string) *Request {
	r.QueryParams.Add(key, value)
	return r
}

// WithQueryParams adds multiple query parameters to the request.
func (r *Request) WithQueryParams(params map[string]string) *Request {
	for key, value := range params {
		r.QueryParams.Add(key, value)
	}
	return r
}

// WithBody sets the body of the request.
func (r *Request) WithBody(body any) *Request {
	r.Body = body
	return r
}

// RequestOption configures a Request built by Client.Request.
type RequestOption func(*Request)

// Params adds query parameters.
func Params(params map[string]string) RequestOption {
	return func(r *Request) { r.WithQueryParams(params) }
}

// Query adds multi-valued query parameters.
func Query(values url.Values) RequestOption {
	return func(r *Request) {
		for key, vs := range values {
			for _, v := range vs {
				r.QueryParams.Add(key, v)
			}
		}
	}
}

// JSON sets a payload that is serialized as JSON.
func JSON(body any) RequestOption {
	return func(r *Request) { r.Body = body }
}

// Body sets a raw body that is sent unchanged.
func Body(body io.Reader) RequestOption {
	return func(r *Request) { r.Body = body }
}

// Headers overrides client and default headers on key collision.
func Headers(headers map[string]string) RequestOption {
	return func(r *Request) { r.WithHeaders(headers) }
}

// URL returns base + Path with the request's query parameters merged in.
func (r *Request) URL(base string) (*url.URL, error) {
	reqURL, err := url.Parse(base + r.Path)
	if err != nil {
		return nil, err
	}

	if len(r.QueryParams) > 0 {
		query := reqURL.Query()
		for key, values := range r.QueryParams {
			for _, value := range values {
				query.Add(key, value)
			}
		}
		reqURL.RawQuery = query.Encode()
	}
	return reqURL, nil
}

// build constructs the *http.Request with the given merged headers.
func (r *Request) build(ctx context.Context, reqURL *url.URL, headers map[string]string) (*http.Request, error) {
	var bodyReader io.Reader
	if r.Body != nil {
		switch body := r.Body.(type) {
		case string:
			bodyReader = strings.NewReader(body)
		case []byte:
			bodyReader = bytes.NewReader(body)
		case io.Reader:
			bodyReader = body
		default:
			jsonBody, err := json.Marshal(body)
			if err != nil {
				return nil, err
			}
			bodyReader = bytes.NewReader(jsonBody)
		}
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, reqURL.String(), bodyReader)
	if err != nil {
		return nil, err
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	return req, nil
}

// mergeHeaders layers defaults, then client headers, then request headers.
// Keys are compared canonically so "content-type" overrides "Content-Type".
func mergeHeaders(layers ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, layer := range layers {
		for key, value := range layer {
			merged[http.CanonicalHeaderKey(key)] = value
		}
	}
	return merged
}
