package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/wesleyorama2/apiprobe/http"

// Client performs timed HTTP exchanges against a base URL.
// Client is safe for concurrent use by multiple goroutines; every request
// gets its own PhaseTracker and TimingRecord.
type Client struct {
	baseURL       string
	headers       map[string]string
	sessionConfig SessionConfig
	sessions      *Sessions
	resolver      Resolver
	logger        Logger
	recorders     []Recorder
	tracer        trace.Tracer
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// NewClient creates a new HTTP client with the given options.
//
// Example:
//
//	client := http.NewClient(
//	    http.WithBaseURL("https://httpbin.org"),
//	    http.WithLogger(logger),
//	)
//	defer client.Close()
func NewClient(options ...ClientOption) *Client {
	client := &Client{
		headers: make(map[string]string),
		sessionConfig: SessionConfig{
			Timeout: 30 * time.Second,
		},
		logger: nopLogger{},
		tracer: otel.Tracer(tracerName),
	}

	// Apply options
	for _, option := range options {
		option(client)
	}

	client.sessions = NewSessions(client.sessionConfig)
	return client
}

// WithBaseURL sets the base URL every endpoint is appended to.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTimeout sets the timeout for all requests made by this client.
// The default timeout is 30 seconds.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.sessionConfig.Timeout = timeout
	}
}

// WithHeader adds a client header. Request headers override it.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithHeaders adds several client headers.
func WithHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		for key, value := range headers {
			c.headers[key] = value
		}
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
// WARNING: This should only be used for testing purposes.
func WithInsecureSkipVerify() ClientOption {
	return func(c *Client) {
		c.sessionConfig.InsecureSkipVerify = true
	}
}

// WithTransport sets the round tripper sessions are built on.
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.sessionConfig.Transport = transport
	}
}

// WithResolver replaces net.DefaultResolver for the DNS phase.
func WithResolver(resolver Resolver) ClientOption {
	return func(c *Client) {
		c.resolver = resolver
	}
}

// WithLogger sets the logging collaborator.
func WithLogger(logger Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder registers a recorder for finished exchanges.
func WithRecorder(recorder Recorder) ClientOption {
	return func(c *Client) {
		c.recorders = append(c.recorders, recorder)
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider. The global
// provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) ClientOption {
	return func(c *Client) {
		c.tracer = tp.Tracer(tracerName)
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request performs a timed exchange for method and endpoint.
//
// Example:
//
//	resp, err := client.Request(ctx, "GET", "/get", http.Params(map[string]string{"name": "test"}))
//	if err != nil {
//	    return err
//	}
//	fmt.Println(resp.Data, resp.Timing.TotalTime())
func (c *Client) Request(ctx context.Context, method, endpoint string, opts ...RequestOption) (*AugmentedResponse, error) {
	req := NewRequest(method, endpoint)
	for _, opt := range opts {
		opt(req)
	}
	return c.Do(ctx, req)
}

// Do executes req and returns the response with its interpreted body and
// timing record. DNS and transport errors are returned exactly as produced.
// A timing record is always finalized, including on failure, and handed to
// the registered recorders.
func (c *Client) Do(ctx context.Context, req *Request) (resp *AugmentedResponse, err error) {
	fullURL := c.baseURL + req.Path
	session := c.sessions.GetOrCreate()
	tracker := NewPhaseTracker(c.resolver, c.logger)

	ctx, span := c.tracer.Start(ctx, "HTTP "+req.Method, trace.WithSpanKind(trace.SpanKindClient))
	statusCode := 0
	defer func() {
		tracker.Finalize()
		timing := tracker.Timing()
		if resp != nil {
			resp.Timing = timing
		}
		c.finish(ctx, span, Exchange{
			Method:     req.Method,
			URL:        fullURL,
			StatusCode: statusCode,
			Err:        err,
			Timing:     timing,
		})
	}()

	reqURL, err := req.URL(c.baseURL)
	if err != nil {
		c.logFailure(req.Method, fullURL, err)
		return nil, err
	}
	fullURL = reqURL.String()
	if reqURL.Hostname() == "" {
		err = fmt.Errorf("no host in request URL %q", fullURL)
		c.logFailure(req.Method, fullURL, err)
		return nil, err
	}

	if _, _, err = tracker.TrackDNSResolution(ctx, reqURL.Hostname()); err != nil {
		c.logFailure(req.Method, fullURL, err)
		return nil, err
	}

	headers := mergeHeaders(defaultHeaders, c.headers, req.Headers)
	c.logger.LogRequest(req.Method, fullURL, headers, req.QueryParams, req.Body)

	httpReq, err := req.build(httptrace.WithClientTrace(ctx, tracker.ClientTrace()), reqURL, headers)
	if err != nil {
		c.logFailure(req.Method, fullURL, err)
		return nil, err
	}

	tracker.MarkConnectStart()
	httpResp, err := session.HTTPClient().Do(httpReq)
	if err != nil {
		c.logFailure(req.Method, fullURL, err)
		return nil, err
	}
	defer httpResp.Body.Close()
	statusCode = httpResp.StatusCode

	tracker.MarkHeadersReceived(reqURL.Scheme == "https")

	tracker.MarkReceiveStart()
	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		c.logFailure(req.Method, fullURL, err)
		return nil, err
	}
	decoded := Interpret(httpResp.Header.Get("Content-Type"), body)
	if decoded.Fallback() {
		c.logger.Error(fmt.Sprintf("Failed to parse response: %v", decoded.Err),
			"content_type", httpResp.Header.Get("Content-Type"))
	}
	tracker.MarkReceiveEnd()

	timing := tracker.Timing()
	c.logger.LogResponse(httpResp.StatusCode, decoded.Value, timing.Map())
	Analyze(c.logger, timing.Summary())

	httpResp.Body = io.NopCloser(bytes.NewReader(body))
	return &AugmentedResponse{
		Response:   httpResp,
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    httpResp.Header,
		Data:       decoded.Value,
		Kind:       decoded.Kind,
		Body:       body,
		Timing:     timing,
	}, nil
}

func (c *Client) logFailure(method, url string, err error) {
	c.logger.Error(fmt.Sprintf("Request failed: %v", err),
		"method", method,
		"url", url,
		"error", err,
	)
}

// finish closes the span and hands the exchange to the recorders.
func (c *Client) finish(ctx context.Context, span trace.Span, ex Exchange) {
	defer span.End()

	summary := ex.Timing.Summary()
	span.SetAttributes(
		attribute.String("http.request.method", ex.Method),
		attribute.String("url.full", ex.URL),
		attribute.Float64("apiprobe.dns_resolution_ms", summary.DNSResolution),
		attribute.Float64("apiprobe.tcp_connection_ms", summary.TCPConnection),
		attribute.Float64("apiprobe.ssl_handshake_ms", summary.SSLHandshake),
		attribute.Float64("apiprobe.request_send_ms", summary.RequestSend),
		attribute.Float64("apiprobe.response_receive_ms", summary.ResponseReceive),
		attribute.Float64("apiprobe.total_time_ms", summary.TotalTime),
	)
	if ex.StatusCode != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", ex.StatusCode))
	}
	if ex.Err != nil {
		span.RecordError(ex.Err)
		span.SetStatus(codes.Error, ex.Err.Error())
	}

	if len(c.recorders) == 0 {
		return
	}
	if ci, ok := c.logger.(caseIdentifier); ok {
		ex.CaseID = ci.CaseID()
	}
	// recorders still run when the request context was cancelled
	recordCtx := context.WithoutCancel(ctx)
	for _, r := range c.recorders {
		if err := r.Record(recordCtx, ex); err != nil {
			c.logger.Error(fmt.Sprintf("Failed to record exchange: %v", err), "url", ex.URL)
		}
	}
}

// Close releases the client's session. It is safe to call more than once.
func (c *Client) Close() error {
	return c.sessions.Close()
}

// Get is a convenience method for making GET requests.
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*AugmentedResponse, error) {
	return c.Request(ctx, http.MethodGet, path, opts...)
}

// Post is a convenience method for making POST requests with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*AugmentedResponse, error) {
	return c.Request(ctx, http.MethodPost, path, append([]RequestOption{JSON(body)}, opts...)...)
}

// Put is a convenience method for making PUT requests with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) (*AugmentedResponse, error) {
	return c.Request(ctx, http.MethodPut, path, append([]RequestOption{JSON(body)}, opts...)...)
}

// Patch is a convenience method for making PATCH requests with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any, opts ...RequestOption) (*AugmentedResponse, error) {
	return c.Request(ctx, http.MethodPatch, path, append([]RequestOption{JSON(body)}, opts...)...)
}

// Delete is a convenience method for making DELETE requests.
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (*AugmentedResponse, error) {
	return c.Request(ctx, http.MethodDelete, path, opts...)
}
